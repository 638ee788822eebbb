package analysis

import (
	"bytes"
	"math"
	"regexp"
	"testing"

	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBivariateDefaultSelection(t *testing.T) {
	tbl := mustTable(t,
		table.Categorical("Nombre", "a", "b", "c", "d"),
		table.Numeric("Inmuebles_totales", 10, 20, 30, 40),
		table.Numeric("Renta2021", 1, 2, 3, 4),
		table.Numeric("Edad2021", 40, 30, 20, 10),
		table.Numeric("Renta2020", 5, 1, 7, 2),
	)
	var out bytes.Buffer
	rr := &recordingRenderer{}
	res, err := Bivariate(tbl, BivariateOptions{Out: &out, Renderer: rr})
	require.NoError(t, err)

	assert.Equal(t, []string{"Inmuebles_totales", "Renta2021", "Edad2021"}, res.Columns)
	assert.Empty(t, res.Skipped)
	r, c := res.Corr.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.InDelta(t, 1.0, res.Corr.At(0, 1), 1e-12)
	assert.InDelta(t, -1.0, res.Corr.At(0, 2), 1e-12)
	assert.InDelta(t, -1.0, res.Corr.At(1, 2), 1e-12)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, res.Corr.At(i, i), 1e-12)
	}

	require.Len(t, rr.heatmaps, 1)
	assert.Equal(t, res.Columns, rr.heatmaps[0])
	require.Len(t, rr.pairPlots, 1)
	assert.Equal(t, res.Columns, rr.pairPlots[0].Names())
	assert.Empty(t, rr.distributions)

	text := out.String()
	assert.Contains(t, text, "Bivariate analysis of 3 columns: Inmuebles_totales, Renta2021, Edad2021")
	assert.Contains(t, text, "[CORRELATIONS]")
	assert.Contains(t, text, "- Inmuebles_totales ~ Renta2021: r=1.000")
	assert.Contains(t, text, "r=-1.000")
}

func TestBivariateNoMatch(t *testing.T) {
	tbl := mustTable(t, table.Numeric("Poblacion", 1, 2, 3))
	_, err := Bivariate(tbl, BivariateOptions{})
	assert.ErrorIs(t, err, ErrNoColumnsSelected)
}

func TestBivariateCategoricalMatchSkipped(t *testing.T) {
	tbl := mustTable(t,
		table.Categorical("Zona2021", "n", "s", "n"),
		table.Numeric("Renta2021", 1, 2, 3),
		table.Numeric("Paro2021", 3, 1, 2),
	)
	res, err := Bivariate(tbl, BivariateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zona2021"}, res.Skipped)
	assert.Equal(t, []string{"Renta2021", "Paro2021"}, res.Columns)
	assert.InDelta(t, -0.5, res.Corr.At(0, 1), 1e-12)

	only := mustTable(t, table.Categorical("Zona2021", "n", "s"))
	_, err = Bivariate(only, BivariateOptions{})
	assert.ErrorIs(t, err, ErrNoColumnsSelected)
}

func TestBivariateCustomPattern(t *testing.T) {
	tbl := mustTable(t,
		table.Numeric("alpha_x", 1, 2, 3),
		table.Numeric("beta_x", 2, 4, 7),
		table.Numeric("gamma", 9, 1, 4),
	)
	res, err := Bivariate(tbl, BivariateOptions{Pattern: regexp.MustCompile(`_x$`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha_x", "beta_x"}, res.Columns)
}

func TestCorrelationMatrixPairwiseMissing(t *testing.T) {
	nan := math.NaN()
	tbl := mustTable(t,
		table.Numeric("a", 1, 2, nan, 4, 5),
		table.Numeric("b", 2, 4, 6, 8, 10),
		table.Numeric("c", nan, nan, nan, nan, 1),
	)
	corr := CorrelationMatrix(tbl)
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-12)
	assert.True(t, math.IsNaN(corr.At(0, 2)), "fewer than two paired observations")
	assert.True(t, math.IsNaN(corr.At(1, 2)))
}

func TestBivariatePairsOrdering(t *testing.T) {
	tbl := mustTable(t,
		table.Numeric("A2021", 1, 2, 3, 4, 5),
		table.Numeric("B2021", 1, 2, 3, 4, 6),
		table.Numeric("C2021", 3, 1, 4, 1, 5),
	)
	res, err := Bivariate(tbl, BivariateOptions{})
	require.NoError(t, err)
	pairs := res.Pairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, "A2021", pairs[0].A)
	assert.Equal(t, "B2021", pairs[0].B)
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, math.Abs(pairs[i-1].R), math.Abs(pairs[i].R))
	}
}
