// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bufio"
	"encoding/gob"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

const maxFailureExamples = 10

type importer struct {
	outputFile    string
	stride        int
	maxSites      int
	autosomesOnly bool
}

func (cmd *importer) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cmd.outputFile, "o", "-", "output `file` (\".gz\" suffix enables compression)")
	flags.IntVar(&cmd.stride, "stride", 1, "keep every `N`th body line (subsampling)")
	flags.IntVar(&cmd.maxSites, "max-sites", 0, "stop after keeping `N` sites per input file (0 = no limit)")
	flags.BoolVar(&cmd.autosomesOnly, "autosomes-only", true, "reject records on chromosomes other than 1..22")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() == 0 {
		flags.Usage()
		return 2
	} else if cmd.stride < 1 {
		err = errors.New("-stride must be >= 1")
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	infiles := flags.Args()
	entries := make([]*CohortEntry, len(infiles))
	tally := make([]scanTally, len(infiles))
	throttle := throttle{Max: runtime.NumCPU()}
	for i, infile := range infiles {
		i, infile := i, infile
		throttle.Acquire()
		go func() {
			defer throttle.Release()
			log.Infof("%s starting", infile)
			ent, t, err := cmd.scanFile(infile)
			entries[i], tally[i] = ent, t
			throttle.Report(err)
			log.Infof("%s done", infile)
		}()
	}
	err = throttle.Wait()
	if err != nil {
		return 1
	}

	for i := 1; i < len(entries); i++ {
		if !equalStrings(entries[0].SampleIDs, entries[i].SampleIDs) {
			err = fmt.Errorf("%s and %s have different sample sets (%d vs %d samples)", infiles[0], infiles[i], len(entries[0].SampleIDs), len(entries[i].SampleIDs))
			return 1
		}
	}

	var total scanTally
	for _, t := range tally {
		total.kept += t.kept
		total.scanned += t.scanned
		for kind, n := range t.failed {
			total.addFailure(kind, n)
		}
	}
	log.Infof("total: kept %d of %d body lines%s", total.kept, total.scanned, total.failureSummary())

	var output io.WriteCloser
	if cmd.outputFile == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(cmd.outputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	var w io.Writer = bufw
	var gzw *pgzip.Writer
	if strings.HasSuffix(cmd.outputFile, ".gz") {
		gzw = pgzip.NewWriter(bufw)
		w = gzw
	}
	enc := gob.NewEncoder(w)
	for _, ent := range entries {
		err = enc.Encode(ent)
		if err != nil {
			return 1
		}
	}
	if gzw != nil {
		err = gzw.Close()
		if err != nil {
			return 1
		}
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

type scanTally struct {
	scanned int
	kept    int
	failed  map[DecodeFailureKind]int
}

func (t *scanTally) addFailure(kind DecodeFailureKind, n int) {
	if t.failed == nil {
		t.failed = map[DecodeFailureKind]int{}
	}
	t.failed[kind] += n
}

func (t *scanTally) failures() int {
	n := 0
	for _, c := range t.failed {
		n += c
	}
	return n
}

func (t *scanTally) failureSummary() string {
	if len(t.failed) == 0 {
		return ""
	}
	kinds := make([]int, 0, len(t.failed))
	for kind := range t.failed {
		kinds = append(kinds, int(kind))
	}
	sort.Ints(kinds)
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s %d", DecodeFailureKind(kind), t.failed[DecodeFailureKind(kind)]))
	}
	return fmt.Sprintf(", rejected %d (%s)", t.failures(), strings.Join(parts, ", "))
}

// scanFile streams one VCF file, decoding every strideth body line. Header
// lines establish the sample set; decode failures are tallied per kind and
// never abort the scan.
func (cmd *importer) scanFile(infile string) (*CohortEntry, scanTally, error) {
	var tally scanTally
	f, err := os.Open(infile)
	if err != nil {
		return nil, tally, err
	}
	defer f.Close()
	var input io.Reader = f
	if strings.HasSuffix(infile, ".gz") {
		gzr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, tally, fmt.Errorf("%s: gzip: %w", infile, err)
		}
		defer gzr.Close()
		input = gzr
	}

	ent := &CohortEntry{}
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	lineno := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineno++
		if len(line) == 0 {
			continue
		}
		if line[0] == '#' {
			if strings.HasPrefix(line, "#CHROM") {
				fields := strings.Fields(line)
				if len(fields) > vcfFirstSample {
					ent.SampleIDs = fields[vcfFirstSample:]
				} else {
					ent.SampleIDs = []string{}
				}
				log.Infof("%s: %d samples", infile, len(ent.SampleIDs))
			}
			continue
		}
		tally.scanned++
		if (tally.scanned-1)%cmd.stride != 0 {
			continue
		}
		rec, fail := DecodeGenotypeLine(line, cmd.autosomesOnly)
		if fail != nil {
			tally.addFailure(fail.Kind, 1)
			if tally.failures() <= maxFailureExamples {
				log.Warnf("%s line %d: %s", infile, lineno, fail)
			}
			continue
		}
		if ent.SampleIDs == nil {
			return nil, tally, fmt.Errorf("%s line %d: data line before #CHROM header", infile, lineno)
		}
		if len(rec.Genotypes) != len(ent.SampleIDs) {
			tally.addFailure(MalformedLine, 1)
			if tally.failures() <= maxFailureExamples {
				log.Warnf("%s line %d: %d genotypes, expected %d", infile, lineno, len(rec.Genotypes), len(ent.SampleIDs))
			}
			continue
		}
		ent.Sites = append(ent.Sites, SiteRef{
			Chromosome: rec.Chromosome,
			Position:   rec.Position,
			ID:         rec.ID,
			Ref:        rec.Ref,
			Alt:        rec.Alt,
		})
		ent.Genotypes = append(ent.Genotypes, rec.Genotypes)
		tally.kept++
		if cmd.maxSites > 0 && tally.kept >= cmd.maxSites {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, tally, fmt.Errorf("%s: %w", infile, err)
	}
	if ent.SampleIDs == nil {
		return nil, tally, fmt.Errorf("%s: no #CHROM header found", infile)
	}
	log.Infof("%s: kept %d of %d body lines%s", infile, tally.kept, tally.scanned, tally.failureSummary())
	return ent, tally, nil
}
