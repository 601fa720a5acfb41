// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var version = "development"

type command interface {
	RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

var handlers = map[string]command{
	"import":       &importer{},
	"merge":        &merger{},
	"filter":       &filtercmd{},
	"stats":        &statscmd{},
	"dumpgob":      &dumpGob{},
	"export-numpy": &exportNumpy{},
	"pca-go":       &goPCA{},
	"plot":         &pythonPlot{},
}

func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// RunCommand dispatches to the named subcommand and returns its exit code.
func RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr, prog)
		return 2
	}
	switch args[0] {
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "%s %s\n", prog, version)
		return 0
	case "help", "-help", "--help", "-h":
		usage(stdout, prog)
		return 0
	}
	cmd, ok := handlers[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "%s: unrecognized command %q\n", prog, args[0])
		usage(stderr, prog)
		return 2
	}
	return cmd.RunCommand(prog+" "+args[0], args[1:], stdin, stdout, stderr)
}

func usage(w io.Writer, prog string) {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "usage: %s command [options]\n\ncommands:\n", prog)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprint(w, "  version\n\nrun \"command -help\" for per-command options\n")
}
