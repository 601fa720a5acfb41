// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

type pythonPlot struct{}

//go:embed plot.py
var plotscript string

func (cmd *pythonPlot) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "pca.npy", "input `file` (numpy array of components)")
	outputFilename := flags.String("o", "", "output `filename` (e.g., './plot.png')")
	samplesFilename := flags.String("samples", "", "use Population column of `samples.csv` to color points")
	xComponent := flags.Int("x", 1, "1-based component to plot on x axis")
	yComponent := flags.Int("y", 2, "1-based component to plot on y axis")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}
	if *outputFilename == "" {
		fmt.Fprintln(stderr, "error: must specify -o filename.png (or try -help)")
		return 1
	}

	plotargs := []string{
		"-",
		*inputFilename,
		fmt.Sprintf("%d", *xComponent),
		fmt.Sprintf("%d", *yComponent),
		*samplesFilename,
		*outputFilename,
	}
	python := exec.Command("python3", plotargs...)
	python.Stdin = strings.NewReader(plotscript)
	python.Stdout = stdout
	python.Stderr = stderr
	err = python.Run()
	if err != nil {
		return 1
	}
	return 0
}
