// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
)

type statscmd struct{}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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

	cohort, err := loadCohort(*inputFilename, stdin)
	if err != nil {
		return 1
	}

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
	err = cmd.doStats(cohort, bufw)
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

type distSummary struct {
	Mean   float64
	Median float64
	Q1     float64
	Q3     float64
}

func summarize(values []float64) (distSummary, error) {
	var ret distSummary
	var err error
	if ret.Mean, err = stats.Mean(values); err != nil {
		return ret, err
	}
	if ret.Median, err = stats.Median(values); err != nil {
		return ret, err
	}
	if ret.Q1, err = stats.Percentile(values, 25); err != nil {
		return ret, err
	}
	if ret.Q3, err = stats.Percentile(values, 75); err != nil {
		return ret, err
	}
	return ret, nil
}

func (cmd *statscmd) doStats(cohort *Cohort, output io.Writer) error {
	var ret struct {
		Samples            int
		Sites              int
		GenotypeCounts     map[string]int64
		SitesPerChromosome map[int]int
		MissingRate        distSummary
		AltAlleleFrequency distSummary
	}
	ret.Samples = len(cohort.SampleIDs)
	ret.Sites = len(cohort.Sites)
	ret.GenotypeCounts = map[string]int64{"missing": 0, "homref": 0, "het": 0, "homalt": 0}
	ret.SitesPerChromosome = map[int]int{}

	missrate := make([]float64, 0, len(cohort.Sites))
	altfreq := make([]float64, 0, len(cohort.Sites))
	for i, row := range cohort.Genotypes {
		ret.SitesPerChromosome[cohort.Sites[i].Chromosome]++
		missing, alt := 0, 0
		for _, v := range row {
			switch v {
			case -1:
				ret.GenotypeCounts["missing"]++
				missing++
			case 0:
				ret.GenotypeCounts["homref"]++
			case 1:
				ret.GenotypeCounts["het"]++
				alt++
			case 2:
				ret.GenotypeCounts["homalt"]++
				alt += 2
			}
		}
		if len(row) > 0 {
			missrate = append(missrate, float64(missing)/float64(len(row)))
		}
		if called := 2 * (len(row) - missing); called > 0 {
			altfreq = append(altfreq, float64(alt)/float64(called))
		}
	}
	if len(missrate) > 0 {
		var err error
		ret.MissingRate, err = summarize(missrate)
		if err != nil {
			return err
		}
	}
	if len(altfreq) > 0 {
		var err error
		ret.AltAlleleFrequency, err = summarize(altfreq)
		if err != nil {
			return err
		}
	}
	return json.NewEncoder(output).Encode(ret)
}
