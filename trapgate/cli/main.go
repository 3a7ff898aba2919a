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

// Package cli is the main entrypoint for trapgate.
package cli

import (
	"context"
	"flag"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/trapgate/cmd"
	"gvisor.dev/trapgate/trapgate/config"
)

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// Register with the main command line.
	config.RegisterFlags(flag.CommandLine)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	// Create a new Config from the flags.
	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		cmd.Fatalf("%v", err)
	}

	subcommand := flag.CommandLine.Arg(0)
	startTime := time.Now()

	// Set up logging.
	if conf.Debug {
		log.SetLevel(log.Debug)
	}

	var logFile io.Writer = os.Stderr
	if conf.LogFilename != "" {
		f, err := log.OpenFile(conf.LogFilename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, log.FilePattern{
			Command: subcommand,
			Start:   startTime,
		})
		if err != nil {
			cmd.Fatalf("error opening log file %q: %v", conf.LogFilename, err)
		}
		defer f.Close()
		logFile = f
		cmd.ErrorLogger = f
	}
	log.SetTarget(newEmitter(conf.LogFormat, logFile))

	const delimString = `**************** trapgate ****************`
	log.Infof(delimString)
	log.Infof("%s, %s, %d CPUs, %s, PID %d", runtime.Version(), runtime.GOARCH, runtime.NumCPU(), runtime.GOOS, os.Getpid())
	log.Infof("Args: %v", os.Args)
	conf.Log()
	log.Infof(delimString)

	// Call the subcommand and pass in the configuration.
	var exitCode int
	subcmdCode := subcommands.Execute(context.Background(), conf, &exitCode)
	if subcmdCode == subcommands.ExitSuccess {
		log.Infof("Exiting with status: %d", exitCode)
		os.Exit(exitCode)
	}
	// Return an error that is unlikely to be used by user programs.
	log.Warningf("Failure to execute command, err: %v", subcmdCode)
	os.Exit(128)
}

// forEachCmd invokes the passed callback for each command supported by
// trapgate.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")

	cb(new(cmd.Run), "")

	const infoGroup = "info"
	cb(new(cmd.Programs), infoGroup)
	cb(new(cmd.Syscalls), infoGroup)
}

func newEmitter(format config.LogFormat, logFile io.Writer) log.Emitter {
	switch format {
	case config.LogFormatJSON:
		return log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	default:
		return log.GoogleEmitter{Writer: &log.Writer{Next: logFile}}
	}
}
