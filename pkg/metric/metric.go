// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metric provides primitives for collecting metrics.
package metric

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrInvalidName indicates that a metric name is not of the form
	// "/component/name".
	ErrInvalidName = errors.New("metric name must start with '/' and contain only [a-z0-9_/]")

	// ErrFieldValueContainsIllegalChar indicates that the value of a metric
	// field had an invalid character in it.
	ErrFieldValueContainsIllegalChar = errors.New("metric field value contains illegal character")

	// ErrFieldHasNoAllowedValues indicates that the field needs to define some
	// allowed values to be a valid and useful field.
	ErrFieldHasNoAllowedValues = errors.New("metric field does not define any allowed values")
)

// Field contains the field name and allowed values for the metric which is
// used in registration of the metric.
type Field struct {
	// name is the metric field name.
	name string

	// allowedValues is the list of allowed values for the field.
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues []string) Field {
	return Field{
		name:          name,
		allowedValues: allowedValues,
	}
}

// Uint64Metric encapsulates a uint64 that represents some kind of metric to be
// monitored. Metrics with fields keep one counter per combination of field
// values.
type Uint64Metric struct {
	name        string
	description string
	fields      []Field

	// values maps the joined field values to counters. It is fully
	// populated at creation and never mutated afterwards.
	values map[string]*atomic.Uint64
}

// metricSet is the set of registered metrics.
type metricSet struct {
	mu sync.Mutex
	m  map[string]*Uint64Metric
}

// allMetrics are the registered metrics.
var allMetrics = &metricSet{m: make(map[string]*Uint64Metric)}

func validName(name string) bool {
	if !strings.HasPrefix(name, "/") || len(name) < 2 {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '/') {
			return false
		}
	}
	return true
}

// combinations returns every joined combination of the allowed field values.
func combinations(fields []Field) []string {
	keys := []string{""}
	for i, f := range fields {
		var next []string
		for _, k := range keys {
			for _, v := range f.allowedValues {
				if i == 0 {
					next = append(next, v)
				} else {
					next = append(next, k+"\x00"+v)
				}
			}
		}
		keys = next
	}
	return keys
}

// NewUint64Metric creates and registers a new cumulative metric with the given
// name.
func NewUint64Metric(name string, description string, fields ...Field) (*Uint64Metric, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	for _, f := range fields {
		if len(f.allowedValues) == 0 {
			return nil, ErrFieldHasNoAllowedValues
		}
		for _, v := range f.allowedValues {
			if strings.ContainsAny(v, "\x00\"\\\n") {
				return nil, ErrFieldValueContainsIllegalChar
			}
		}
	}
	m := &Uint64Metric{
		name:        name,
		description: description,
		fields:      fields,
		values:      make(map[string]*atomic.Uint64),
	}
	for _, k := range combinations(fields) {
		m.values[k] = new(atomic.Uint64)
	}

	allMetrics.mu.Lock()
	defer allMetrics.mu.Unlock()
	if _, ok := allMetrics.m[name]; ok {
		return nil, ErrNameInUse
	}
	allMetrics.m[name] = m
	return m, nil
}

// MustCreateNewUint64Metric calls NewUint64Metric and panics if it returns
// an error.
func MustCreateNewUint64Metric(name string, description string, fields ...Field) *Uint64Metric {
	m, err := NewUint64Metric(name, description, fields...)
	if err != nil {
		panic(fmt.Sprintf("Unable to create metric %q: %s", name, err))
	}
	return m
}

func (m *Uint64Metric) counter(fieldValues []string) *atomic.Uint64 {
	if len(fieldValues) != len(m.fields) {
		panic(fmt.Sprintf("Number of fieldValues %d is not equal to the number of metric fields %d", len(fieldValues), len(m.fields)))
	}
	c, ok := m.values[strings.Join(fieldValues, "\x00")]
	if !ok {
		panic(fmt.Sprintf("Invalid field values %v for metric %q", fieldValues, m.name))
	}
	return c
}

// Value returns the current value of the metric for the given set of fields.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	return m.counter(fieldValues).Load()
}

// Increment increments the metric field by 1.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.counter(fieldValues).Add(1)
}

// IncrementBy increments the metric by v.
func (m *Uint64Metric) IncrementBy(v uint64, fieldValues ...string) {
	m.counter(fieldValues).Add(v)
}

// promName converts "/kernel/syscalls" into "<prefix>_kernel_syscalls".
func promName(prefix, name string) string {
	return prefix + strings.ReplaceAll(name, "/", "_")
}

// WritePrometheus writes a snapshot of every registered metric to w in the
// Prometheus text exposition format. Metric names are prefixed with prefix.
func WritePrometheus(w io.Writer, prefix string) error {
	allMetrics.mu.Lock()
	names := make([]string, 0, len(allMetrics.m))
	for name := range allMetrics.m {
		names = append(names, name)
	}
	allMetrics.mu.Unlock()
	sort.Strings(names)

	for _, name := range names {
		allMetrics.mu.Lock()
		m := allMetrics.m[name]
		allMetrics.mu.Unlock()
		if err := m.writePrometheus(w, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (m *Uint64Metric) writePrometheus(w io.Writer, prefix string) error {
	pn := promName(prefix, m.name)
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", pn, m.description, pn); err != nil {
		return err
	}
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var labels string
		if len(m.fields) > 0 {
			vals := strings.Split(k, "\x00")
			pairs := make([]string, len(m.fields))
			for i, f := range m.fields {
				pairs[i] = fmt.Sprintf("%s=%q", f.name, vals[i])
			}
			labels = "{" + strings.Join(pairs, ",") + "}"
		}
		if _, err := fmt.Fprintf(w, "%s%s %d\n", pn, labels, m.values[k].Load()); err != nil {
			return err
		}
	}
	return nil
}
