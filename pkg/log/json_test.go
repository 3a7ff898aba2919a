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
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Tests that Level can marshal/unmarshal properly.
func TestLevelMarshal(t *testing.T) {
	lvs := []Level{Warning, Info, Debug}
	for _, lv := range lvs {
		bs, err := lv.MarshalJSON()
		if err != nil {
			t.Errorf("error marshaling %v: %v", lv, err)
		}
		var lv2 Level
		if err := lv2.UnmarshalJSON(bs); err != nil {
			t.Errorf("error unmarshaling %v: %v", bs, err)
		}
		if lv != lv2 {
			t.Errorf("marshal/unmarshal level got %v wanted %v", lv2, lv)
		}
	}
}

// Test that integers can be properly unmarshaled.
func TestUnmarshalFromInt(t *testing.T) {
	tcs := []struct {
		i    int
		want Level
	}{
		{0, Warning},
		{1, Info},
		{2, Debug},
	}

	for _, tc := range tcs {
		j, err := json.Marshal(tc.i)
		if err != nil {
			t.Errorf("error marshaling %v: %v", tc.i, err)
		}
		var lv Level
		if err := lv.UnmarshalJSON(j); err != nil {
			t.Errorf("error unmarshaling %v: %v", j, err)
		}
		if lv != tc.want {
			t.Errorf("marshal/unmarshal %v got %v want %v", tc.i, lv, tc.want)
		}
	}
}

func TestSplitTaskPrefix(t *testing.T) {
	for _, tc := range []struct {
		msg  string
		tid  int32
		name string
		rest string
		ok   bool
	}{
		{"[    7:echo] Exited with status 0 (normal)", 7, "echo", "Exited with status 0 (normal)", true},
		{"[12345:exec-child] Released", 12345, "exec-child", "Released", true},
		{"Powering off", 0, "", "Powering off", false},
		{"[not a task] x", 0, "", "[not a task] x", false},
		{"[x:y] bad id", 0, "", "[x:y] bad id", false},
		{"[3:name]no space", 0, "", "[3:name]no space", false},
	} {
		tid, name, rest, ok := splitTaskPrefix(tc.msg)
		if tid != tc.tid || name != tc.name || rest != tc.rest || ok != tc.ok {
			t.Errorf("splitTaskPrefix(%q) = (%d, %q, %q, %t), want (%d, %q, %q, %t)",
				tc.msg, tid, name, rest, ok, tc.tid, tc.name, tc.rest, tc.ok)
		}
	}
}

func TestJSONEmitterTaskFields(t *testing.T) {
	var buf bytes.Buffer
	e := JSONEmitter{&Writer{Next: &buf}}
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	e.Emit(0, Info, ts, "[%5d:%s] Exited with status %d", 4, "cat", 0)
	e.Emit(0, Warning, ts, "Powering off")

	dec := json.NewDecoder(&buf)
	var got []jsonLog
	for dec.More() {
		var j jsonLog
		if err := dec.Decode(&j); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if j.Caller == "" {
			t.Errorf("message %q has no caller", j.Msg)
		}
		j.Caller = ""
		got = append(got, j)
	}
	want := []jsonLog{
		{Msg: "Exited with status 0", TID: 4, Task: "cat", Level: Info, Time: ts},
		{Msg: "Powering off", Level: Warning, Time: ts},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("log lines mismatch (-want +got):\n%s", diff)
	}
}
