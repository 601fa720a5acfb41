// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed VCF body columns. Sample genotype fields start at column 9.
const (
	vcfChrom = iota
	vcfPos
	vcfID
	vcfRef
	vcfAlt
	vcfQual
	vcfFilter
	vcfInfo
	vcfFormat
	vcfFirstSample
)

// GenotypeRecord is one decoded biallelic SNP record. Genotypes holds the
// alt allele count for each sample column, in file order: 0, 1, or 2, with
// -1 meaning no call.
type GenotypeRecord struct {
	Chromosome int
	Position   int
	ID         string
	Ref        string
	Alt        string
	Filter     string
	Genotypes  []int16
}

type DecodeFailureKind int

const (
	HeaderLine DecodeFailureKind = iota
	MalformedLine
	NonAutosome
	InvalidAllele
	FilterRejected
	UnknownGenotype
)

func (k DecodeFailureKind) String() string {
	switch k {
	case HeaderLine:
		return "header line"
	case MalformedLine:
		return "malformed line"
	case NonAutosome:
		return "non-autosome"
	case InvalidAllele:
		return "invalid allele"
	case FilterRejected:
		return "filter rejected"
	case UnknownGenotype:
		return "unknown genotype"
	default:
		return fmt.Sprintf("decode failure %d", int(k))
	}
}

// DecodeFailure explains why a line could not be decoded. HeaderLine is not
// a data error: callers skip those lines without counting them.
type DecodeFailure struct {
	Kind   DecodeFailureKind
	Detail string
	Line   string
}

func (f *DecodeFailure) Error() string {
	if f.Detail == "" {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %q", f.Kind, f.Detail)
}

// DecodeGenotypeLine decodes one line of VCF body text into a
// GenotypeRecord. It accepts only clean biallelic SNP records: REF and ALT
// must each be a single A/C/G/T base, FILTER (when present) must be PASS or
// ".", and every sample genotype must be a 0/1 diploid call or "./.". When
// autosomeOnly is set, chromosome labels outside 1..22 are rejected.
//
// On failure the returned *DecodeFailure is non-nil and carries the reason
// plus the offending text; the record value is zero. Decoding a header line
// (leading "#") fails with HeaderLine.
func DecodeGenotypeLine(line string, autosomeOnly bool) (GenotypeRecord, *DecodeFailure) {
	if strings.HasPrefix(line, "#") {
		return GenotypeRecord{}, &DecodeFailure{Kind: HeaderLine, Line: line}
	}
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return GenotypeRecord{}, &DecodeFailure{
			Kind:   MalformedLine,
			Detail: fmt.Sprintf("%d fields", len(fields)),
			Line:   line,
		}
	}
	chrom, err := strconv.Atoi(fields[vcfChrom])
	if err != nil || chrom < 1 || (autosomeOnly && chrom > 22) {
		return GenotypeRecord{}, &DecodeFailure{Kind: NonAutosome, Detail: fields[vcfChrom], Line: line}
	}
	pos, err := strconv.Atoi(fields[vcfPos])
	if err != nil || pos < 0 {
		return GenotypeRecord{}, &DecodeFailure{Kind: MalformedLine, Detail: "POS " + fields[vcfPos], Line: line}
	}
	ref, alt := fields[vcfRef], fields[vcfAlt]
	if !validAllele(ref) {
		return GenotypeRecord{}, &DecodeFailure{Kind: InvalidAllele, Detail: ref, Line: line}
	}
	if !validAllele(alt) {
		return GenotypeRecord{}, &DecodeFailure{Kind: InvalidAllele, Detail: alt, Line: line}
	}
	filter := "."
	if len(fields) > vcfFilter {
		filter = fields[vcfFilter]
		if filter != "PASS" && filter != "." {
			return GenotypeRecord{}, &DecodeFailure{Kind: FilterRejected, Detail: filter, Line: line}
		}
	}
	rec := GenotypeRecord{
		Chromosome: chrom,
		Position:   pos,
		ID:         fields[vcfID],
		Ref:        ref,
		Alt:        alt,
		Filter:     filter,
	}
	if len(fields) > vcfFirstSample {
		rec.Genotypes = make([]int16, 0, len(fields)-vcfFirstSample)
		for _, gt := range fields[vcfFirstSample:] {
			code, ok := genotypeCode(gt)
			if !ok {
				return GenotypeRecord{}, &DecodeFailure{Kind: UnknownGenotype, Detail: gt, Line: line}
			}
			rec.Genotypes = append(rec.Genotypes, code)
		}
	}
	return rec, nil
}

func validAllele(s string) bool {
	return s == "A" || s == "C" || s == "G" || s == "T"
}

// genotypeCode maps a sample genotype field to an alt allele count. Only
// the two allele characters are inspected; the "/" or "|" separator at
// position 1 is ignored, so phasing is not tracked.
func genotypeCode(gt string) (int16, bool) {
	if len(gt) < 3 {
		return 0, false
	}
	switch a, b := gt[0], gt[2]; {
	case a == '.' && b == '.':
		return -1, true
	case a == '0' && b == '0':
		return 0, true
	case a == '0' && b == '1', a == '1' && b == '0':
		return 1, true
	case a == '1' && b == '1':
		return 2, true
	}
	return 0, false
}
