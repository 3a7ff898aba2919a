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

// Package cmd holds implementations of the trapgate commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/trapgate/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages are
// consumed by the user in addition to the debug log.
var ErrorLogger io.Writer

// Errorf logs error to the debug log, the error log and stderr. It returns
// subcommands.ExitFailure so commands can return its result directly.
func Errorf(format string, args ...any) subcommands.ExitStatus {
	writeError(fmt.Sprintf(format, args...))
	return subcommands.ExitFailure
}

// Fatalf logs the same message as Errorf and exits.
func Fatalf(format string, args ...any) {
	writeError(fmt.Sprintf(format, args...))
	os.Exit(128)
}

type jsonError struct {
	Msg   string    `json:"msg"`
	Level string    `json:"level"`
	Time  time.Time `json:"time"`
}

func writeError(msg string) {
	log.Warningf("FATAL ERROR: %s", msg)
	fmt.Fprintf(os.Stderr, "trapgate: %s\n", msg)
	if ErrorLogger != nil {
		// Also log to the error log in JSON format.
		if b, err := json.Marshal(jsonError{Msg: msg, Level: "error", Time: time.Now()}); err == nil {
			ErrorLogger.Write(append(b, '\n'))
		}
	}
}
