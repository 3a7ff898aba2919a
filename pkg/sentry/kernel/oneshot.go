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

package kernel

import "sync"

// oneshot is a single-use wake primitive. Fire may be called any number of
// times; only the first has an effect. Data written before Fire is visible to
// any goroutine that has observed Done being closed.
type oneshot struct {
	once sync.Once
	ch   chan struct{}
}

func (o *oneshot) init() {
	o.ch = make(chan struct{})
}

// Fire wakes all current and future waiters.
func (o *oneshot) Fire() {
	o.once.Do(func() { close(o.ch) })
}

// Done returns a channel that is closed once Fire has been called.
func (o *oneshot) Done() <-chan struct{} {
	return o.ch
}

// Fired returns true if Fire has been called.
func (o *oneshot) Fired() bool {
	select {
	case <-o.ch:
		return true
	default:
		return false
	}
}
