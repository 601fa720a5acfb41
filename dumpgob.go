// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"
)

// dumpGob prints a cohort gob in readable form, for debugging.
type dumpGob struct{}

func (cmd *dumpGob) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input cohort gob `file`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	cohort, err := loadCohort(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	bufw := bufio.NewWriter(stdout)
	fmt.Fprintf(bufw, "samples %d: %s\n", len(cohort.SampleIDs), strings.Join(cohort.SampleIDs, " "))
	for i, site := range cohort.Sites {
		fmt.Fprintf(bufw, "site %d:%d %s %s>%s genotypes %v\n", site.Chromosome, site.Position, site.ID, site.Ref, site.Alt, cohort.Genotypes[i])
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	return 0
}
