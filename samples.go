// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/gocarina/gocsv"
)

// MissingPopulation is the label assigned to samples that have no entry in
// the panel file. Unknowns are always bucketed here, never dropped.
const MissingPopulation = "missing"

// PanelRecord is one row of a sample panel file: a tab-delimited table with
// a "sample pop super_pop gender" header, as distributed with the 1000
// Genomes phase 3 release.
type PanelRecord struct {
	SampleID        string `csv:"sample"`
	Population      string `csv:"pop"`
	Superpopulation string `csv:"super_pop"`
	Sex             string `csv:"gender"`
}

// PopulationRecord is one row of a population description file: a
// tab-delimited table with a "pop name super_pop" header mapping population
// codes to display names and continental groups.
type PopulationRecord struct {
	Code            string `csv:"pop"`
	Name            string `csv:"name"`
	Superpopulation string `csv:"super_pop"`
}

func tabReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = '\t'
	r.LazyQuotes = true
	return r
}

// LoadPanel reads a sample panel file into an immutable sample→population
// lookup table.
func LoadPanel(path string) (map[string]PanelRecord, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []*PanelRecord
	gocsv.SetCSVReader(tabReader)
	if err := gocsv.UnmarshalBytes(buf, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make(map[string]PanelRecord, len(records))
	for _, rec := range records {
		if rec.SampleID == "" {
			continue
		}
		if _, dup := out[rec.SampleID]; dup {
			return nil, fmt.Errorf("%s: duplicate sample %q", path, rec.SampleID)
		}
		out[rec.SampleID] = *rec
	}
	return out, nil
}

// LoadPopulations reads a population description file into an immutable
// code→description lookup table.
func LoadPopulations(path string) (map[string]PopulationRecord, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []*PopulationRecord
	gocsv.SetCSVReader(tabReader)
	if err := gocsv.UnmarshalBytes(buf, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make(map[string]PopulationRecord, len(records))
	for _, rec := range records {
		if rec.Code == "" {
			continue
		}
		out[rec.Code] = *rec
	}
	return out, nil
}

// SampleLabels resolves population labels for the given samples, in matrix
// column order. Samples absent from the panel get MissingPopulation.
func SampleLabels(sampleIDs []string, panel map[string]PanelRecord) []PanelRecord {
	labels := make([]PanelRecord, len(sampleIDs))
	for i, id := range sampleIDs {
		if rec, ok := panel[id]; ok {
			labels[i] = rec
		} else {
			labels[i] = PanelRecord{
				SampleID:        id,
				Population:      MissingPopulation,
				Superpopulation: MissingPopulation,
			}
		}
	}
	return labels
}
