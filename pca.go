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

	"github.com/james-bowman/nlp"
	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

type goPCA struct {
	filter filter
}

func (cmd *goPCA) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	components := flags.Int("components", 4, "number of components")
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
	log.Info("filtering")
	cmd.filter.Apply(cohort)

	nsamples, nsites := len(cohort.SampleIDs), len(cohort.Sites)
	if *components > nsamples || *components > nsites {
		err = fmt.Errorf("-components=%d exceeds matrix dimensions (%d samples × %d sites)", *components, nsamples, nsites)
		return 1
	}

	log.Printf("creating matrix backed by array: %d rows, %d cols", nsamples, nsites)
	mtx := cohort2imputed(cohort).T()

	log.Print("fitting")
	transformer := nlp.NewPCA(*components)
	transformer.Fit(mtx)
	log.Printf("transforming")
	mtx, err = transformer.Transform(mtx)
	if err != nil {
		return 1
	}
	mtx = mtx.T()

	rows, cols := mtx.Dims()
	log.Printf("copying result to numpy output array: %d rows, %d cols", rows, cols)
	out := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = mtx.At(i, j)
		}
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
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return 1
	}
	npw.Shape = []int{rows, cols}
	log.Printf("writing numpy: %d rows, %d cols", rows, cols)
	err = npw.WriteFloat64(out)
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
	log.Print("done")
	return 0
}

// cohort2imputed builds a samples × sites float matrix from the cohort,
// replacing missing genotypes with the site mean so they do not pull
// components toward -1.
func cohort2imputed(cohort *Cohort) mat.Matrix {
	nsamples, nsites := len(cohort.SampleIDs), len(cohort.Sites)
	data := make([]float64, nsamples*nsites)
	for j, row := range cohort.Genotypes {
		sum, called := 0, 0
		for _, v := range row {
			if v >= 0 {
				sum += int(v)
				called++
			}
		}
		mean := 0.0
		if called > 0 {
			mean = float64(sum) / float64(called)
		}
		for i, v := range row {
			x := mean
			if v >= 0 {
				x = float64(v)
			}
			data[i*nsites+j] = x
		}
	}
	return mat.NewDense(nsamples, nsites, data)
}
