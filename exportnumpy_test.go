// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"gopkg.in/check.v1"
)

type exportNumpySuite struct{}

var _ = check.Suite(&exportNumpySuite{})

func (s *exportNumpySuite) TestCohort2Array(c *check.C) {
	cohort := &Cohort{
		SampleIDs: []string{"s1", "s2", "s3"},
		Sites: []SiteRef{
			{Chromosome: 1, Position: 100, ID: "rs1", Ref: "A", Alt: "G"},
			{Chromosome: 2, Position: 200, ID: "rs2", Ref: "C", Alt: "T"},
		},
		Genotypes: [][]int16{
			{0, 1, 2},
			{-1, 0, 1},
		},
	}
	data, rows, cols := cohort2array(cohort)
	c.Check(rows, check.Equals, 3)
	c.Check(cols, check.Equals, 2)
	c.Check(data, check.DeepEquals, []int16{
		0, -1,
		1, 0,
		2, 1,
	})
}

func (s *exportNumpySuite) TestOnehot(c *check.C) {
	for _, trial := range []struct {
		incols  int
		in      []int16
		outcols int
		out     []int16
	}{
		{1, []int16{0, 2}, 3, []int16{
			1, 0, 0,
			0, 0, 1,
		}},
		{1, []int16{1, -1}, 3, []int16{
			0, 1, 0,
			0, 0, 0,
		}},
		{2, []int16{
			0, 1,
			2, -1,
		}, 6, []int16{
			1, 0, 0, 0, 1, 0,
			0, 0, 1, 0, 0, 0,
		}},
	} {
		out, outcols := recodeOnehot(trial.in, trial.incols)
		c.Check(out, check.DeepEquals, trial.out)
		c.Check(outcols, check.Equals, trial.outcols)
	}
}
