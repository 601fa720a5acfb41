// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"gopkg.in/check.v1"
)

type filterSuite struct{}

var _ = check.Suite(&filterSuite{})

func testCohort() *Cohort {
	return &Cohort{
		SampleIDs: []string{"s1", "s2", "s3", "s4"},
		Sites: []SiteRef{
			{Chromosome: 1, Position: 100, ID: "a"},
			{Chromosome: 1, Position: 200, ID: "b"},
			{Chromosome: 1, Position: 300, ID: "c"},
			{Chromosome: 2, Position: 100, ID: "d"},
		},
		Genotypes: [][]int16{
			{0, 1, 2, -1},    // maf 0.5, 25% missing
			{0, 0, 0, 0},     // monomorphic
			{-1, -1, -1, -1}, // all missing
			{0, 0, 0, 1},     // maf 0.125
		},
	}
}

func (f *filterSuite) TestDefaultKeepsAll(c *check.C) {
	cohort := testCohort()
	(&filter{MaxMissing: 1, MinMAF: 0, MaxSites: -1}).Apply(cohort)
	c.Check(cohort.Sites, check.HasLen, 4)
}

func (f *filterSuite) TestMaxMissing(c *check.C) {
	cohort := testCohort()
	(&filter{MaxMissing: 0.5, MinMAF: 0, MaxSites: -1}).Apply(cohort)
	c.Assert(cohort.Sites, check.HasLen, 3)
	c.Check(cohort.Sites[0].ID, check.Equals, "a")
	c.Check(cohort.Sites[2].ID, check.Equals, "d")
	c.Check(cohort.Genotypes, check.HasLen, 3)
}

func (f *filterSuite) TestMinMAF(c *check.C) {
	cohort := testCohort()
	(&filter{MaxMissing: 1, MinMAF: 0.1, MaxSites: -1}).Apply(cohort)
	c.Assert(cohort.Sites, check.HasLen, 2)
	c.Check(cohort.Sites[0].ID, check.Equals, "a")
	c.Check(cohort.Sites[1].ID, check.Equals, "d")
}

func (f *filterSuite) TestMaxSites(c *check.C) {
	cohort := testCohort()
	(&filter{MaxMissing: 0.5, MinMAF: 0.1, MaxSites: 1}).Apply(cohort)
	c.Assert(cohort.Sites, check.HasLen, 1)
	c.Check(cohort.Sites[0].ID, check.Equals, "a")
}

func (f *filterSuite) TestSiteAlleleStats(c *check.C) {
	missing, maf := siteAlleleStats([]int16{0, 1, 2, -1})
	c.Check(missing, check.Equals, 1)
	c.Check(maf, check.Equals, 0.5)

	missing, maf = siteAlleleStats([]int16{2, 2, 2, 1})
	c.Check(missing, check.Equals, 0)
	// folded to the minor allele
	c.Check(maf, check.Equals, 0.125)

	missing, maf = siteAlleleStats([]int16{-1, -1})
	c.Check(missing, check.Equals, 2)
	c.Check(maf, check.Equals, 0.0)
}
