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

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

type exportNumpy struct{}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	outputDir := flags.String("output-dir", ".", "output `directory`")
	panelFilename := flags.String("panel", "", "sample panel `file` (tsv: sample pop super_pop gender)")
	populationsFilename := flags.String("populations", "", "population description `file` (tsv: pop name super_pop)")
	onehot := flags.Bool("one-hot", false, "recode genotypes as one-hot indicator columns")
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

	log.Print("reading cohort")
	cohort, err := loadCohort(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	if len(cohort.Sites) == 0 {
		err = errors.New("cohort contains no sites")
		return 1
	}

	panel := map[string]PanelRecord{}
	if *panelFilename != "" {
		panel, err = LoadPanel(*panelFilename)
		if err != nil {
			return 1
		}
	}
	populations := map[string]PopulationRecord{}
	if *populationsFilename != "" {
		populations, err = LoadPopulations(*populationsFilename)
		if err != nil {
			return 1
		}
	}
	labels := SampleLabels(cohort.SampleIDs, panel)

	data, rows, cols := cohort2array(cohort)
	if *onehot {
		log.Printf("recode one-hot: %d rows, %d cols", rows, cols)
		data, cols = recodeOnehot(data, cols)
	}

	matrixFilename := *outputDir + "/matrix.npy"
	log.Infof("writing %s: %d rows, %d cols", matrixFilename, rows, cols)
	err = writeNumpyInt16(matrixFilename, data, rows, cols)
	if err != nil {
		return 1
	}
	samplesFilename := *outputDir + "/samples.csv"
	log.Infof("writing %s", samplesFilename)
	err = writeSamplesCSV(samplesFilename, labels, populations)
	if err != nil {
		return 1
	}
	sitesFilename := *outputDir + "/sites.csv"
	log.Infof("writing %s", sitesFilename)
	err = writeSitesCSV(sitesFilename, cohort.Sites)
	if err != nil {
		return 1
	}
	return 0
}

// cohort2array flattens the site-major cohort rows into a sample-major
// array: one row per sample, one column per site.
func cohort2array(cohort *Cohort) (data []int16, rows, cols int) {
	rows, cols = len(cohort.SampleIDs), len(cohort.Sites)
	data = make([]int16, rows*cols)
	for col, siteRow := range cohort.Genotypes {
		for row, v := range siteRow {
			data[row*cols+col] = v
		}
	}
	return
}

// recodeOnehot expands each site column into three indicator columns: hom
// ref, het, hom alt. A missing genotype leaves all three columns zero.
func recodeOnehot(in []int16, incols int) ([]int16, int) {
	if incols == 0 {
		return nil, 0
	}
	rows := len(in) / incols
	outcols := incols * 3
	out := make([]int16, rows*outcols)
	for row := 0; row < rows; row++ {
		for col := 0; col < incols; col++ {
			if v := in[row*incols+col]; v >= 0 {
				out[row*outcols+col*3+int(v)] = 1
			}
		}
	}
	return out, outcols
}

func writeNumpyInt16(filename string, data []int16, rows, cols int) error {
	output, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	npw.Shape = []int{rows, cols}
	err = npw.WriteInt16(data)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

func writeSamplesCSV(filename string, labels []PanelRecord, populations map[string]PopulationRecord) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprint(f, "Index,SampleID,Population,Superpopulation,PopulationName\n")
	if err != nil {
		return err
	}
	for i, rec := range labels {
		name := ""
		if pop, ok := populations[rec.Population]; ok {
			name = pop.Name
		}
		_, err = fmt.Fprintf(f, "%d,%s,%s,%s,%s\n", i, rec.SampleID, rec.Population, rec.Superpopulation, name)
		if err != nil {
			return fmt.Errorf("write %s: %w", filename, err)
		}
	}
	return f.Close()
}

func writeSitesCSV(filename string, sites []SiteRef) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprint(f, "Chromosome,Position,ID,Ref,Alt\n")
	if err != nil {
		return err
	}
	for _, site := range sites {
		_, err = fmt.Fprintf(f, "%d,%d,%s,%s,%s\n", site.Chromosome, site.Position, site.ID, site.Ref, site.Alt)
		if err != nil {
			return fmt.Errorf("write %s: %w", filename, err)
		}
	}
	return f.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
