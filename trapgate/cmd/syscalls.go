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

package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	abitrap "gvisor.dev/trapgate/pkg/abi/trap"
	"gvisor.dev/trapgate/pkg/sentry/kernel"
	"gvisor.dev/trapgate/pkg/sentry/syscalls/trap"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
}

// SyscallDoc represents a single item of syscall documentation.
type SyscallDoc struct {
	Num     abitrap.Sysno `json:"num"`
	Name    string        `json:"name"`
	Args    int           `json:"args"`
	Returns bool          `json:"returns"`
}

// ArchInfo is the syscall documentation for an architecture.
type ArchInfo struct {
	Arch     string       `json:"arch"`
	Syscalls []SyscallDoc `json:"syscalls"`
}

type outputFunc func(io.Writer, ArchInfo) error

// A map of output type names to output functions.
var outputMap = map[string]outputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print information about the supported syscalls."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print information about the supported syscalls.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json).")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		return Errorf("Unsupported output format %q", s.output)
	}
	if err := out(os.Stdout, archInfo(trap.I386)); err != nil {
		return Errorf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// archInfo returns the documentation for every syscall in table.
func archInfo(table *kernel.SyscallTable) ArchInfo {
	info := ArchInfo{Arch: table.Arch.String()}
	for num, sc := range table.Table {
		info.Syscalls = append(info.Syscalls, SyscallDoc{
			Num:     abitrap.Sysno(num),
			Name:    sc.Name,
			Args:    sc.Args,
			Returns: sc.Returns,
		})
	}
	return info
}

// outputTable outputs the syscall info in tabular format.
func outputTable(w io.Writer, info ArchInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	// Print the arch.
	fmt.Fprintf(w, "%s:\n\n", info.Arch)

	// Write the header
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", "NUM", "NAME", "ARGS", "RETURNS"); err != nil {
		return err
	}

	// Write each syscall entry
	for _, sc := range info.Syscalls {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\t%t\n", sc.Num, sc.Name, sc.Args, sc.Returns); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// outputJSON outputs the syscall info in JSON format.
func outputJSON(w io.Writer, info ArchInfo) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(info)
}

// outputCSV outputs the syscall info in CSV format.
func outputCSV(w io.Writer, info ArchInfo) error {
	csvWriter := csv.NewWriter(w)

	// Write the header
	if err := csvWriter.Write([]string{"Arch", "Num", "Name", "Args", "Returns"}); err != nil {
		return err
	}
	for _, sc := range info.Syscalls {
		if err := csvWriter.Write([]string{
			info.Arch,
			strconv.Itoa(int(sc.Num)),
			sc.Name,
			strconv.Itoa(sc.Args),
			strconv.FormatBool(sc.Returns),
		}); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
