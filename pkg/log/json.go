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
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// jsonLog is one line of JSON output. Messages logged by a task carry its ID
// and name as separate fields instead of the "[tid:name] " text prefix.
type jsonLog struct {
	Msg    string    `json:"msg"`
	TID    int32     `json:"tid,omitempty"`
	Task   string    `json:"task,omitempty"`
	Caller string    `json:"caller,omitempty"`
	Level  Level     `json:"level"`
	Time   time.Time `json:"time"`
}

var levelNames = [...]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

// MarshalJSON implements json.Marshaler.MarashalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return strconv.AppendQuote(nil, levelNames[l]), nil
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON. It can unmarshal
// from both string names and integers.
func (l *Level) UnmarshalJSON(b []byte) error {
	s := string(b)
	for lv, name := range levelNames {
		if s == strconv.Itoa(lv) || s == strconv.Quote(name) {
			*l = Level(lv)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", s)
}

// splitTaskPrefix splits a "[  tid:name] " task prefix off msg.
func splitTaskPrefix(msg string) (tid int32, name, rest string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return 0, "", msg, false
	}
	end := strings.Index(msg, "] ")
	if end < 0 {
		return 0, "", msg, false
	}
	idStr, name, found := strings.Cut(msg[1:end], ":")
	if !found {
		return 0, "", msg, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 32)
	if err != nil {
		return 0, "", msg, false
	}
	return int32(id), name, msg[end+2:], true
}

// JSONEmitter logs messages in json format.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	j := jsonLog{
		Msg:   fmt.Sprintf(format, v...),
		Level: level,
		Time:  timestamp,
	}
	if tid, name, rest, ok := splitTaskPrefix(j.Msg); ok {
		j.TID, j.Task, j.Msg = tid, name, rest
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		j.Caller = fmt.Sprintf("%s:%d", file[strings.LastIndexByte(file, '/')+1:], line)
	}
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	e.Writer.Write(b)
}
