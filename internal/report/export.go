// Package report exports analysis results and records what a run produced.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/eda-cli/internal/analysis"
	"github.com/KaramelBytes/eda-cli/internal/utils"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gopkg.in/yaml.v3"
)

// Format is a summary export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts a format name or a common alias ("md", "yml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported summary format: %s (use markdown|csv|json|yaml)", s)
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ".md"
	}
}

// Column names of the exported summary table.
var summaryColumns = []string{
	"Feature", "Mean", "Median", "Mode", "Variance", "Standard_Deviation",
	"Percentile_25", "Percentile_75", "K_test", "p_value", "Distribution", "Error",
}

func rowStats(r analysis.Row) []float64 {
	return []float64{r.Mean, r.Median, r.Mode, r.Variance, r.StdDev,
		r.Percentile25, r.Percentile75, r.KSStatistic, r.PValue}
}

func rowError(r analysis.Row) string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// formatStat prints the shortest text that parses back to v. Undefined
// statistics print as NaN.
func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SummaryFrame converts the summary rows into a DataFrame, one row per
// numeric column. Statistics are stored as text that round-trips to the
// computed float64, since gota prints float series with six decimals.
func SummaryFrame(s *analysis.Summary) dataframe.DataFrame {
	n := len(s.Rows)
	cols := make([][]string, len(summaryColumns))
	for i := range cols {
		cols[i] = make([]string, n)
	}
	for i, r := range s.Rows {
		cols[0][i] = r.Feature
		for j, v := range rowStats(r) {
			cols[j+1][i] = formatStat(v)
		}
		cols[len(cols)-2][i] = r.Distribution
		cols[len(cols)-1][i] = rowError(r)
	}
	ss := make([]series.Series, len(cols))
	for i, c := range cols {
		ss[i] = series.New(c, series.String, summaryColumns[i])
	}
	return dataframe.New(ss...)
}

// jsonRow keeps the summary column order in JSON output. Undefined
// statistics encode as null.
type jsonRow struct {
	Feature           string   `json:"Feature"`
	Mean              *float64 `json:"Mean"`
	Median            *float64 `json:"Median"`
	Mode              *float64 `json:"Mode"`
	Variance          *float64 `json:"Variance"`
	StandardDeviation *float64 `json:"Standard_Deviation"`
	Percentile25      *float64 `json:"Percentile_25"`
	Percentile75      *float64 `json:"Percentile_75"`
	KTest             *float64 `json:"K_test"`
	PValue            *float64 `json:"p_value"`
	Distribution      string   `json:"Distribution"`
	Error             string   `json:"Error,omitempty"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toJSON(s *analysis.Summary) []jsonRow {
	rows := make([]jsonRow, 0, len(s.Rows))
	for _, r := range s.Rows {
		st := rowStats(r)
		rows = append(rows, jsonRow{
			Feature: r.Feature,
			Mean:    finiteOrNil(st[0]), Median: finiteOrNil(st[1]), Mode: finiteOrNil(st[2]),
			Variance: finiteOrNil(st[3]), StandardDeviation: finiteOrNil(st[4]),
			Percentile25: finiteOrNil(st[5]), Percentile75: finiteOrNil(st[6]),
			KTest: finiteOrNil(st[7]), PValue: finiteOrNil(st[8]),
			Distribution: r.Distribution,
			Error:        rowError(r),
		})
	}
	return rows
}

type yamlCount struct {
	Value string `yaml:"value"`
	Count int    `yaml:"count"`
}

type yamlCategorical struct {
	Column string      `yaml:"column"`
	Unique int         `yaml:"unique"`
	Counts []yamlCount `yaml:"counts"`
}

type yamlRow struct {
	Feature           string  `yaml:"feature"`
	Mean              float64 `yaml:"mean"`
	Median            float64 `yaml:"median"`
	Mode              float64 `yaml:"mode"`
	Variance          float64 `yaml:"variance"`
	StandardDeviation float64 `yaml:"standard_deviation"`
	Percentile25      float64 `yaml:"percentile_25"`
	Percentile75      float64 `yaml:"percentile_75"`
	KTest             float64 `yaml:"k_test"`
	PValue            float64 `yaml:"p_value"`
	Distribution      string  `yaml:"distribution"`
	Error             string  `yaml:"error,omitempty"`
}

type yamlSummary struct {
	Source         string            `yaml:"source"`
	Alpha          float64           `yaml:"alpha"`
	NormalCount    int               `yaml:"normal_count"`
	NotNormalCount int               `yaml:"not_normal_count"`
	Rows           []yamlRow         `yaml:"rows"`
	Categorical    []yamlCategorical `yaml:"categorical,omitempty"`
}

func toYAML(s *analysis.Summary) yamlSummary {
	out := yamlSummary{
		Source:         s.Source,
		Alpha:          s.Alpha,
		NormalCount:    s.NormalCount,
		NotNormalCount: s.NotNormalCount,
		Rows:           make([]yamlRow, 0, len(s.Rows)),
	}
	for _, r := range s.Rows {
		yr := yamlRow{
			Feature: r.Feature, Mean: r.Mean, Median: r.Median, Mode: r.Mode,
			Variance: r.Variance, StandardDeviation: r.StdDev,
			Percentile25: r.Percentile25, Percentile75: r.Percentile75,
			KTest: r.KSStatistic, PValue: r.PValue, Distribution: r.Distribution,
		}
		yr.Error = rowError(r)
		out.Rows = append(out.Rows, yr)
	}
	for _, c := range s.Categorical {
		yc := yamlCategorical{Column: c.Column, Unique: c.Unique}
		for _, kv := range c.Counts {
			yc.Counts = append(yc.Counts, yamlCount{Value: kv.Value, Count: kv.Count})
		}
		out.Categorical = append(out.Categorical, yc)
	}
	return out
}

// WriteSummary writes s to w in the requested format.
func WriteSummary(w io.Writer, s *analysis.Summary, f Format) error {
	switch f {
	case FormatMarkdown, "":
		_, err := io.WriteString(w, s.Markdown())
		return err
	case FormatCSV:
		return SummaryFrame(s).WriteCSV(w)
	case FormatJSON:
		data, err := utils.PrettyJSON(toJSON(s))
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toYAML(s)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported summary format: %s", f)
	}
}
