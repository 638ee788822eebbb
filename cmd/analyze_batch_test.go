package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/eda-cli/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeBatch_CollisionSuffixAndManifests(t *testing.T) {
	home := sandbox(t)

	// Two CSV files with the same basename in different directories
	p1 := writeFile(t, filepath.Join(home, "d1", "towns.csv"), townsCSV)
	writeFile(t, filepath.Join(home, "d2", "towns.csv"), townsCSV)
	outDir := filepath.Join(home, "results")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "towns.csv"),
		"--decimal", "comma", "--thousands", ".", "-o", outDir, "--format", "json")
	assert.Contains(t, out, "[1/2] Processing towns.csv...")
	assert.Contains(t, out, "[2/2] Processing towns.csv...")
	assert.Contains(t, out, "towns__2")

	first := filepath.Join(outDir, "towns")
	second := filepath.Join(outDir, "towns__2")
	for _, dir := range []string{first, second} {
		for _, name := range []string{"summary.json", "heatmap.png", "pairplot.png", "univariate_renta2021.png", report.ManifestFileName} {
			_, err := os.Stat(filepath.Join(dir, name))
			assert.NoError(t, err, filepath.Join(dir, name))
		}
	}

	m, err := report.LoadManifest(first)
	require.NoError(t, err)
	assert.Equal(t, p1, m.Source)
	assert.Equal(t, filepath.Join(first, "summary.json"), m.Summary)
	require.NotNil(t, m.Univariate)
	require.NotNil(t, m.Bivariate)
	assert.Equal(t, []string{"Inmuebles_totales", "Renta2021", "Edad2021"}, m.Bivariate.Columns)
	// three distributions plus heatmap and pair plot
	assert.Len(t, m.Figures, 5)
}

func TestAnalyzeBatch_SkipsBivariateWithoutMatches(t *testing.T) {
	home := sandbox(t)
	p := writeFile(t, filepath.Join(home, "plain.csv"), "a,b\n1,2\n3,4\n5,7\n")
	outDir := filepath.Join(home, "results")

	out := runCmd(t, "analyze-batch", p, "-o", outDir, "--no-figures", "--quiet")
	assert.NotContains(t, out, "Processing")

	m, err := report.LoadManifest(filepath.Join(outDir, "plain"))
	require.NoError(t, err)
	assert.Nil(t, m.Bivariate)
	assert.Equal(t, []string{"a", "b"}, m.Univariate.Features)
	assert.Empty(t, m.Figures)
	_, err = os.Stat(filepath.Join(outDir, "plain", "summary.md"))
	assert.NoError(t, err)
}

func TestAnalyzeBatch_NoInputs(t *testing.T) {
	home := sandbox(t)
	_, err := execute(t, "analyze-batch", filepath.Join(home, "*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestExpandInputs(t *testing.T) {
	home := sandbox(t)
	a := writeFile(t, filepath.Join(home, "b.csv"), "x\n1\n")
	b := writeFile(t, filepath.Join(home, "a.csv"), "x\n1\n")
	got := expandInputs([]string{filepath.Join(home, "*.csv"), a, filepath.Join(home, "missing.csv")})
	assert.Equal(t, []string{b, a}, got)
}
