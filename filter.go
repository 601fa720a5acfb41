// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

type filter struct {
	MaxMissing float64
	MinMAF     float64
	MaxSites   int
}

func (f *filter) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&f.MaxMissing, "max-missing", 1, "drop sites where more than `P` of genotypes are missing (0 ≤ P ≤ 1)")
	flags.Float64Var(&f.MinMAF, "min-maf", 0, "drop sites with minor allele frequency below `F`")
	flags.IntVar(&f.MaxSites, "max-sites", -1, "keep at most `N` sites")
}

// Apply drops sites that fail the configured thresholds, preserving site
// order.
func (f *filter) Apply(cohort *Cohort) {
	keptSites := cohort.Sites[:0]
	keptRows := cohort.Genotypes[:0]
	for i, row := range cohort.Genotypes {
		missing, maf := siteAlleleStats(row)
		if len(row) > 0 && float64(missing)/float64(len(row)) > f.MaxMissing {
			continue
		}
		if maf < f.MinMAF {
			continue
		}
		keptSites = append(keptSites, cohort.Sites[i])
		keptRows = append(keptRows, row)
	}
	cohort.Sites = keptSites
	cohort.Genotypes = keptRows
	if f.MaxSites >= 0 && len(cohort.Sites) > f.MaxSites {
		cohort.Sites = cohort.Sites[:f.MaxSites]
		cohort.Genotypes = cohort.Genotypes[:f.MaxSites]
	}
}

// siteAlleleStats returns the number of missing genotypes in a site row and
// the site's minor allele frequency over the called genotypes.
func siteAlleleStats(row []int16) (missing int, maf float64) {
	alt := 0
	for _, v := range row {
		if v < 0 {
			missing++
		} else {
			alt += int(v)
		}
	}
	called := 2 * (len(row) - missing)
	if called == 0 {
		return missing, 0
	}
	freq := float64(alt) / float64(called)
	if freq > 0.5 {
		freq = 1 - freq
	}
	return missing, freq
}

type filtercmd struct {
	filter
}

func (cmd *filtercmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "-", "input cohort gob `file`")
	outputFilename := flags.String("o", "-", "output `file`")
	cmd.filter.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	log.Print("reading")
	cohort, err := loadCohort(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	before := len(cohort.Sites)
	log.Print("filtering")
	cmd.filter.Apply(cohort)
	log.Printf("filtering done, kept %d of %d sites", len(cohort.Sites), before)

	var outfile io.WriteCloser
	if *outputFilename == "-" {
		outfile = nopCloser{stdout}
	} else {
		outfile, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
		if err != nil {
			return 1
		}
		defer outfile.Close()
	}
	w := bufio.NewWriter(outfile)
	err = WriteCohort(w, strings.HasSuffix(*outputFilename, ".gz"), cohort)
	if err != nil {
		return 1
	}
	err = w.Flush()
	if err != nil {
		return 1
	}
	err = outfile.Close()
	if err != nil {
		return 1
	}
	return 0
}
