// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

type merger struct{}

func (cmd *merger) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	outputFilename := flags.String("o", "-", "output `file`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() < 1 {
		err = errors.New("no input files specified")
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	var merged *Cohort
	for _, infile := range flags.Args() {
		log.Infof("reading %s", infile)
		cohort, loadErr := loadCohort(infile, stdin)
		if loadErr != nil {
			err = loadErr
			return 1
		}
		if merged == nil {
			merged = cohort
			continue
		}
		if !equalStrings(merged.SampleIDs, cohort.SampleIDs) {
			err = fmt.Errorf("%s has a different sample set (%d vs %d samples)", infile, len(cohort.SampleIDs), len(merged.SampleIDs))
			return 1
		}
		merged.Sites = append(merged.Sites, cohort.Sites...)
		merged.Genotypes = append(merged.Genotypes, cohort.Genotypes...)
	}
	sortSites(merged)
	log.Infof("merged %d sites, %d samples", len(merged.Sites), len(merged.SampleIDs))

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	err = WriteCohort(bufw, strings.HasSuffix(*outputFilename, ".gz"), merged)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

// sortSites orders sites by (chromosome, position), keeping genotype rows
// aligned. Ties keep input order.
func sortSites(cohort *Cohort) {
	order := make([]int, len(cohort.Sites))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := cohort.Sites[order[a]], cohort.Sites[order[b]]
		if sa.Chromosome != sb.Chromosome {
			return sa.Chromosome < sb.Chromosome
		}
		return sa.Position < sb.Position
	})
	sites := make([]SiteRef, len(order))
	rows := make([][]int16, len(order))
	for i, idx := range order {
		sites[i] = cohort.Sites[idx]
		rows[i] = cohort.Genotypes[idx]
	}
	cohort.Sites = sites
	cohort.Genotypes = rows
}
