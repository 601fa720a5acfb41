// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfmatrix

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io/ioutil"
	"math"
	"os"
	"strings"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type pipelineSuite struct{}

var _ = check.Suite(&pipelineSuite{})

// gzipTestdata writes a gzipped copy of testdata/example.vcf so the
// compressed input path gets exercised.
func gzipTestdata(c *check.C, tmpdir string) string {
	buf, err := ioutil.ReadFile("testdata/example.vcf")
	c.Assert(err, check.IsNil)
	gzfile := tmpdir + "/example.vcf.gz"
	f, err := os.Create(gzfile)
	c.Assert(err, check.IsNil)
	defer f.Close()
	gzw := gzip.NewWriter(f)
	_, err = gzw.Write(buf)
	c.Assert(err, check.IsNil)
	c.Assert(gzw.Close(), check.IsNil)
	c.Assert(f.Close(), check.IsNil)
	return gzfile
}

type statsReport struct {
	Samples        int
	Sites          int
	GenotypeCounts map[string]int64
}

func runStats(c *check.C, gobfile string) statsReport {
	statsout := &bytes.Buffer{}
	code := RunCommand("vcfmatrix", []string{"stats", "-i", gobfile}, bytes.NewReader(nil), statsout, os.Stderr)
	c.Assert(code, check.Equals, 0)
	var ret statsReport
	c.Assert(json.Unmarshal(statsout.Bytes(), &ret), check.IsNil)
	return ret
}

func (s *pipelineSuite) TestImportExportPCA(c *check.C) {
	tmpdir := c.MkDir()
	gzfile := gzipTestdata(c, tmpdir)

	code := RunCommand("vcfmatrix", []string{"import", "-o", tmpdir + "/cohort.gob", gzfile}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)

	ret := runStats(c, tmpdir+"/cohort.gob")
	c.Check(ret.Samples, check.Equals, 4)
	c.Check(ret.Sites, check.Equals, 4)
	c.Check(ret.GenotypeCounts["missing"], check.Equals, int64(1))
	c.Check(ret.GenotypeCounts["homref"], check.Equals, int64(5))
	c.Check(ret.GenotypeCounts["het"], check.Equals, int64(5))
	c.Check(ret.GenotypeCounts["homalt"], check.Equals, int64(5))

	code = RunCommand("vcfmatrix", []string{"export-numpy",
		"-i", tmpdir + "/cohort.gob",
		"-output-dir", tmpdir,
		"-panel", "testdata/panel.tsv",
		"-populations", "testdata/populations.tsv",
	}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)

	f, err := os.Open(tmpdir + "/matrix.npy")
	c.Assert(err, check.IsNil)
	defer f.Close()
	npy, err := gonpy.NewReader(f)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{4, 4})
	matrix, err := npy.GetInt16()
	c.Assert(err, check.IsNil)
	c.Check(matrix, check.DeepEquals, []int16{
		0, 0, 2, 1,
		1, 0, 2, 1,
		2, 1, 0, 0,
		-1, 2, 1, 2,
	})

	samples, err := ioutil.ReadFile(tmpdir + "/samples.csv")
	c.Assert(err, check.IsNil)
	c.Check(strings.Split(string(samples), "\n"), check.DeepEquals, []string{
		"Index,SampleID,Population,Superpopulation,PopulationName",
		"0,HG00096,GBR,EUR,British in England and Scotland",
		"1,HG00171,FIN,EUR,Finnish in Finland",
		"2,NA18525,CHB,EAS,Han Chinese in Beijing",
		"3,NA19017,missing,missing,",
		"",
	})

	sites, err := ioutil.ReadFile(tmpdir + "/sites.csv")
	c.Assert(err, check.IsNil)
	c.Check(strings.HasPrefix(string(sites), "Chromosome,Position,ID,Ref,Alt\n1,12345,rs1,A,G\n"), check.Equals, true)

	code = RunCommand("vcfmatrix", []string{"pca-go", "-components", "2", "-i", tmpdir + "/cohort.gob", "-o", tmpdir + "/pca.npy"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
	pf, err := os.Open(tmpdir + "/pca.npy")
	c.Assert(err, check.IsNil)
	defer pf.Close()
	pnpy, err := gonpy.NewReader(pf)
	c.Assert(err, check.IsNil)
	c.Check(pnpy.Shape, check.DeepEquals, []int{4, 2})
	pcs, err := pnpy.GetFloat64()
	c.Assert(err, check.IsNil)
	for i, v := range pcs {
		c.Check(math.IsNaN(v), check.Equals, false, check.Commentf("pcs[%d]", i))
	}
}

func (s *pipelineSuite) TestImportStride(c *check.C) {
	tmpdir := c.MkDir()
	code := RunCommand("vcfmatrix", []string{"import", "-stride", "2", "-o", tmpdir + "/cohort.gob", "testdata/example.vcf"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)

	cohort, err := loadCohort(tmpdir+"/cohort.gob", nil)
	c.Assert(err, check.IsNil)
	// body lines 1,3,5,7 are scanned; rs5 (chrX) and rs7 (2/0 genotype)
	// fail to decode, leaving rs1 and rs3
	c.Assert(cohort.Sites, check.HasLen, 2)
	c.Check(cohort.Sites[0].ID, check.Equals, "rs1")
	c.Check(cohort.Sites[1].ID, check.Equals, "rs3")
}

func (s *pipelineSuite) TestImportMaxSites(c *check.C) {
	tmpdir := c.MkDir()
	code := RunCommand("vcfmatrix", []string{"import", "-max-sites", "1", "-o", tmpdir + "/cohort.gob", "testdata/example.vcf"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
	cohort, err := loadCohort(tmpdir+"/cohort.gob", nil)
	c.Assert(err, check.IsNil)
	c.Assert(cohort.Sites, check.HasLen, 1)
	c.Check(cohort.Sites[0].ID, check.Equals, "rs1")
}

func (s *pipelineSuite) TestImportGzipOutput(c *check.C) {
	tmpdir := c.MkDir()
	code := RunCommand("vcfmatrix", []string{"import", "-o", tmpdir + "/cohort.gob.gz", "testdata/example.vcf"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
	cohort, err := loadCohort(tmpdir+"/cohort.gob.gz", nil)
	c.Assert(err, check.IsNil)
	c.Check(cohort.Sites, check.HasLen, 4)
	c.Check(cohort.SampleIDs, check.DeepEquals, []string{"HG00096", "HG00171", "NA18525", "NA19017"})
}

func (s *pipelineSuite) TestMerge(c *check.C) {
	tmpdir := c.MkDir()
	for _, name := range []string{"a.gob", "b.gob"} {
		code := RunCommand("vcfmatrix", []string{"import", "-o", tmpdir + "/" + name, "testdata/example.vcf"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
		c.Assert(code, check.Equals, 0)
	}
	code := RunCommand("vcfmatrix", []string{"merge", "-o", tmpdir + "/merged.gob", tmpdir + "/a.gob", tmpdir + "/b.gob"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)

	cohort, err := loadCohort(tmpdir+"/merged.gob", nil)
	c.Assert(err, check.IsNil)
	c.Assert(cohort.Sites, check.HasLen, 8)
	for i := 1; i < len(cohort.Sites); i++ {
		prev, cur := cohort.Sites[i-1], cohort.Sites[i]
		sorted := prev.Chromosome < cur.Chromosome ||
			(prev.Chromosome == cur.Chromosome && prev.Position <= cur.Position)
		c.Check(sorted, check.Equals, true, check.Commentf("sites[%d]=%v sites[%d]=%v", i-1, prev, i, cur))
	}
}

func (s *pipelineSuite) TestFilterCommand(c *check.C) {
	tmpdir := c.MkDir()
	code := RunCommand("vcfmatrix", []string{"import", "-o", tmpdir + "/cohort.gob", "testdata/example.vcf"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
	// rs1 has one missing genotype out of four
	code = RunCommand("vcfmatrix", []string{"filter", "-max-missing", "0.2", "-i", tmpdir + "/cohort.gob", "-o", tmpdir + "/filtered.gob"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
	cohort, err := loadCohort(tmpdir+"/filtered.gob", nil)
	c.Assert(err, check.IsNil)
	c.Assert(cohort.Sites, check.HasLen, 3)
	c.Check(cohort.Sites[0].ID, check.Equals, "rs2")
}

func (s *pipelineSuite) TestDumpGob(c *check.C) {
	tmpdir := c.MkDir()
	code := RunCommand("vcfmatrix", []string{"import", "-o", tmpdir + "/cohort.gob", "testdata/example.vcf"}, bytes.NewReader(nil), &bytes.Buffer{}, os.Stderr)
	c.Assert(code, check.Equals, 0)
	out := &bytes.Buffer{}
	code = RunCommand("vcfmatrix", []string{"dumpgob", "-i", tmpdir + "/cohort.gob"}, bytes.NewReader(nil), out, os.Stderr)
	c.Assert(code, check.Equals, 0)
	c.Check(strings.Contains(out.String(), "samples 4: HG00096 HG00171 NA18525 NA19017"), check.Equals, true)
	c.Check(strings.Contains(out.String(), "site 1:12345 rs1 A>G genotypes [0 1 2 -1]"), check.Equals, true)
}

func (s *pipelineSuite) TestUnknownCommand(c *check.C) {
	stderr := &bytes.Buffer{}
	code := RunCommand("vcfmatrix", []string{"frobnicate"}, bytes.NewReader(nil), &bytes.Buffer{}, stderr)
	c.Check(code, check.Equals, 2)
	c.Check(strings.Contains(stderr.String(), "unrecognized command"), check.Equals, true)
}
