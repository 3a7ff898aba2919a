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

package log

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testWriter struct {
	lines []string
	fail  bool
	limit int
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	if w.limit > 0 && len(w.lines) >= w.limit {
		return len(bytes), nil
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(expected, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCaller(t *testing.T) {
	for _, e := range []Emitter{
		GoogleEmitter{&Writer{}},
		JSONEmitter{&Writer{}},
	} {
		tw := &testWriter{}
		switch e := e.(type) {
		case GoogleEmitter:
			e.Writer.Next = tw
		case JSONEmitter:
			e.Writer.Next = tw
		}
		bl := &BasicLogger{Emitter: e, Level: Debug}
		bl.Debugf("testing...\n") // Just for file + line.
		if len(tw.lines) == 0 {
			t.Fatalf("expected a line, got none")
		}
		if !strings.Contains(tw.lines[0], "log_test.go") {
			t.Errorf("expected log_test.go, got %q", tw.lines[0])
		}
	}
}

func TestLevels(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{Emitter: &Writer{Next: tw}, Level: Info}
	bl.Debugf("debug\n")
	bl.Infof("info\n")
	bl.Warningf("warning\n")
	if want := []string{"info\n", "warning\n"}; !cmp.Equal(want, tw.lines) {
		t.Errorf("lines: got %q, want %q", tw.lines, want)
	}
	if bl.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) at Info: got true, want false")
	}
	bl.SetLevel(Debug)
	if !bl.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) after SetLevel(Debug): got false, want true")
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{Emitter: &Writer{Next: tw}, Level: Info}
	rl := RateLimitedLogger(bl, time.Hour)
	rl.Warningf("first\n")
	rl.Warningf("second\n")
	rl.Warningf("third\n")
	if want := []string{"first\n"}; !cmp.Equal(want, tw.lines) {
		t.Errorf("lines: got %q, want %q", tw.lines, want)
	}
}

func TestFilePattern(t *testing.T) {
	p := FilePattern{
		Command: "run",
		Start:   time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC),
	}
	for pattern, want := range map[string]string{
		"/tmp/logs/":                 "/tmp/logs/trapgate.log.20260102-030405.000006.run",
		"/tmp/%COMMAND%.log":         "/tmp/run.log",
		"/tmp/plain.log":             "/tmp/plain.log",
		"/tmp/%TIMESTAMP%/debug.log": "/tmp/20260102-030405.000006/debug.log",
	} {
		if got := p.Build(pattern); got != want {
			t.Errorf("Build(%q): got %q, want %q", pattern, got, want)
		}
	}
}
