package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	"github.com/KaramelBytes/eda-cli/internal/table"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fixtureSummary(t *testing.T) *analysis.Summary {
	t.Helper()
	tbl, err := table.New("towns.csv",
		table.Categorical("city", "A", "B", "A"),
		table.Numeric("population", 100, 200, 150),
		table.Numeric("broken", 1, math.NaN(), 3),
	)
	require.NoError(t, err)
	opt := analysis.DefaultUnivariateOptions()
	opt.IsolateErrors = true
	s, err := analysis.Univariate(tbl, opt)
	require.NoError(t, err)
	return s
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"": FormatMarkdown, "md": FormatMarkdown, "CSV": FormatCSV,
		"json": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, ".yaml", FormatYAML.Ext())
	assert.Equal(t, ".md", FormatMarkdown.Ext())
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, fixtureSummary(t), FormatCSV))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, summaryColumns, records[0])
	assert.Equal(t, []string{"population", "150", "150", "100", "2500", "50"}, records[1][:6])
	assert.Equal(t, "Not normal", records[1][10])
	assert.Empty(t, records[1][11])
	assert.Equal(t, "NaN", records[2][1])
	assert.Equal(t, "Error", records[2][10])
	assert.Contains(t, records[2][11], `column "broken"`)
}

func TestWriteSummaryCSVKeepsPrecision(t *testing.T) {
	tiny := analysis.Row{
		Feature: "tiny", Mean: 2.75e-07, Median: 3e-07, Mode: 1e-07,
		Variance: 2.9e-14, StdDev: math.Sqrt(2.9e-14),
		Percentile25: 2e-07, Percentile75: 4e-07,
		KSStatistic: 0.5, PValue: 1.234567890123e-12, Distribution: analysis.LabelNotNormal,
	}
	s := &analysis.Summary{Source: "tiny.csv", Rows: []analysis.Row{tiny}}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, s, FormatCSV))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	want := []float64{tiny.Mean, tiny.Median, tiny.Mode, tiny.Variance, tiny.StdDev,
		tiny.Percentile25, tiny.Percentile75, tiny.KSStatistic, tiny.PValue}
	for i, v := range want {
		got, err := strconv.ParseFloat(records[1][i+1], 64)
		require.NoError(t, err, records[0][i+1])
		assert.Equal(t, v, got, records[0][i+1])
	}
}

func TestWriteSummaryCSVNoNumericColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, &analysis.Summary{}, FormatCSV))
	assert.Equal(t, strings.Join(summaryColumns, ",")+"\n", buf.String())
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, fixtureSummary(t), FormatJSON))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "population", rows[0]["Feature"])
	assert.Equal(t, 150.0, rows[0]["Mean"])
	assert.Equal(t, "Not normal", rows[0]["Distribution"])
	assert.NotContains(t, rows[0], "Error")
	assert.Nil(t, rows[1]["Mean"], "undefined statistics are null")
	assert.Contains(t, rows[1]["Error"], `column "broken"`)

	// keys follow the summary column order
	first := buf.String()[:strings.Index(buf.String(), "}")]
	last := -1
	for _, col := range summaryColumns[:len(summaryColumns)-1] {
		i := strings.Index(first, `"`+col+`"`)
		require.Greater(t, i, last, col)
		last = i
	}
}

func TestWriteSummaryYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, fixtureSummary(t), FormatYAML))
	var doc yamlSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "towns.csv", doc.Source)
	assert.Equal(t, 0.05, doc.Alpha)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, 2500.0, doc.Rows[0].Variance)
	assert.Contains(t, doc.Rows[1].Error, "broken")
	require.Len(t, doc.Categorical, 1)
	assert.Equal(t, []yamlCount{{"A", 2}, {"B", 1}}, doc.Categorical[0].Counts)
}

func TestWriteSummaryMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, fixtureSummary(t), FormatMarkdown))
	assert.Contains(t, buf.String(), "[UNIVARIATE SUMMARY]")
	assert.Contains(t, buf.String(), "[NOTES]")
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest("towns.csv")
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)

	m.RecordUnivariate(fixtureSummary(t))
	tbl, err := table.New("towns.csv",
		table.Numeric("Renta2021", 1, 2, 3),
		table.Numeric("Edad2021", 3, 2, 1),
	)
	require.NoError(t, err)
	res, err := analysis.Bivariate(tbl, analysis.BivariateOptions{})
	require.NoError(t, err)
	m.RecordBivariate(analysis.DefaultPattern, res)
	m.AddFigures(filepath.Join(dir, "heatmap.png"))

	path, err := m.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestFileName), path)

	got, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, []string{"population", "broken"}, got.Univariate.Features)
	assert.Equal(t, []string{"broken"}, got.Univariate.Failed)
	assert.Equal(t, []string{"Renta2021", "Edad2021"}, got.Bivariate.Columns)
	require.Len(t, got.Bivariate.Pairs, 1)
	assert.InDelta(t, -1.0, got.Bivariate.Pairs[0].R, 1e-12)
	assert.Len(t, got.Figures, 1)
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
