// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// SiteRef identifies one retained SNP site.
type SiteRef struct {
	Chromosome int
	Position   int
	ID         string
	Ref        string
	Alt        string
}

// Cohort is a genotype matrix for a fixed set of samples: one row per site,
// one int16 genotype code per sample. Every row has len(SampleIDs) entries.
type Cohort struct {
	SampleIDs []string
	Sites     []SiteRef
	Genotypes [][]int16
}

// CohortEntry is one frame of a gob cohort stream. import writes one entry
// per input file (typically one per chromosome); readers merge frames
// site-wise and require all frames to agree on the sample set.
type CohortEntry struct {
	SampleIDs []string
	Sites     []SiteRef
	Genotypes [][]int16
}

// ReadCohort reads a gob cohort stream, merging all entries.
func ReadCohort(rdr io.Reader, gz bool) (*Cohort, error) {
	if gz {
		gzr, err := pgzip.NewReader(rdr)
		if err != nil {
			return nil, err
		}
		defer gzr.Close()
		rdr = gzr
	}
	dec := gob.NewDecoder(rdr)
	var ret *Cohort
	for {
		var ent CohortEntry
		err := dec.Decode(&ent)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("gob decode: %w", err)
		}
		if ret == nil {
			ret = &Cohort{SampleIDs: ent.SampleIDs}
		} else if !equalStrings(ret.SampleIDs, ent.SampleIDs) {
			return nil, fmt.Errorf("cohort entries have mismatched sample sets (%d vs %d samples)", len(ret.SampleIDs), len(ent.SampleIDs))
		}
		if len(ent.Sites) != len(ent.Genotypes) {
			return nil, fmt.Errorf("cohort entry has %d sites but %d genotype rows", len(ent.Sites), len(ent.Genotypes))
		}
		for i, row := range ent.Genotypes {
			if len(row) != len(ret.SampleIDs) {
				return nil, fmt.Errorf("site %d:%d has %d genotypes, expected %d", ent.Sites[i].Chromosome, ent.Sites[i].Position, len(row), len(ret.SampleIDs))
			}
		}
		ret.Sites = append(ret.Sites, ent.Sites...)
		ret.Genotypes = append(ret.Genotypes, ent.Genotypes...)
	}
	if ret == nil {
		return nil, errors.New("empty cohort input")
	}
	return ret, nil
}

// WriteCohort writes the cohort as a single-entry gob stream.
func WriteCohort(w io.Writer, gz bool, cohort *Cohort) error {
	if gz {
		gzw := pgzip.NewWriter(w)
		err := writeCohortEntry(gzw, cohort)
		if err != nil {
			return err
		}
		return gzw.Close()
	}
	return writeCohortEntry(w, cohort)
}

func writeCohortEntry(w io.Writer, cohort *Cohort) error {
	return gob.NewEncoder(w).Encode(CohortEntry{
		SampleIDs: cohort.SampleIDs,
		Sites:     cohort.Sites,
		Genotypes: cohort.Genotypes,
	})
}

// loadCohort reads a cohort gob from the named file, or from stdin if
// filename is "-". A ".gz" suffix selects gzip decompression.
func loadCohort(filename string, stdin io.Reader) (*Cohort, error) {
	var input io.ReadCloser
	if filename == "-" {
		input = ioutil.NopCloser(stdin)
	} else {
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		input = f
	}
	return ReadCohort(bufio.NewReaderSize(input, 1<<22), strings.HasSuffix(filename, ".gz"))
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
