package analysis

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/KaramelBytes/eda-cli/internal/table"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Distribution labels used in the summary.
const (
	LabelNormal    = "Normal"
	LabelNotNormal = "Not normal"
	LabelError     = "Error"
)

// DefaultAlpha is the significance level of the normality test.
const DefaultAlpha = 0.05

// Renderer turns analysis data into figures. Implementations decide where
// the figures go (files, a window, nowhere).
type Renderer interface {
	// Distribution draws a histogram with density curve next to a boxplot.
	Distribution(column string, values []float64) error
	// Heatmap draws a correlation matrix.
	Heatmap(columns []string, corr *mat.SymDense) error
	// PairPlot draws pairwise scatter plots with densities on the diagonal.
	PairPlot(t *table.Table) error
}

// UnivariateOptions controls the univariate analysis.
type UnivariateOptions struct {
	// Alpha is the significance level; p < Alpha means "Not normal".
	// Zero selects DefaultAlpha; other values must lie in (0, 1).
	Alpha float64
	// Out receives the console report. Nil discards it.
	Out io.Writer
	// Renderer draws per-column figures. Nil skips rendering.
	Renderer Renderer
	// IsolateErrors records a failing column on its row instead of aborting.
	IsolateErrors bool
	Logger        *zap.Logger
}

// DefaultUnivariateOptions returns the options used by the CLI when no
// configuration overrides them.
func DefaultUnivariateOptions() UnivariateOptions {
	return UnivariateOptions{Alpha: DefaultAlpha}
}

// Row is one line of the univariate summary, keyed by Feature.
type Row struct {
	Feature      string
	Mean         float64
	Median       float64
	Mode         float64
	Variance     float64
	StdDev       float64
	Percentile25 float64
	Percentile75 float64
	KSStatistic  float64
	PValue       float64
	Distribution string
	// Err is set only when the column failed under IsolateErrors.
	Err error
}

// CategoryCount is a categorical value with its number of occurrences.
type CategoryCount struct {
	Value string
	Count int
}

// CategoricalReport lists the value counts of a categorical column.
type CategoricalReport struct {
	Column string
	Counts []CategoryCount
	Unique int
}

// Summary is the result of Univariate: one row per numeric column.
type Summary struct {
	Source         string
	Alpha          float64
	Rows           []Row
	Categorical    []CategoricalReport
	NormalCount    int
	NotNormalCount int

	index map[string]int
}

// Row returns the row for the given feature.
func (s *Summary) Row(feature string) (Row, bool) {
	i, ok := s.index[feature]
	if !ok {
		return Row{}, false
	}
	return s.Rows[i], true
}

// Features returns the row keys in order.
func (s *Summary) Features() []string {
	out := make([]string, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Feature
	}
	return out
}

// Failed returns the rows that carry an error.
func (s *Summary) Failed() []Row {
	var out []Row
	for _, r := range s.Rows {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Univariate analyzes every column of t. Categorical columns are reported on
// opt.Out; numeric columns are rendered, tested for normality against N(0,1)
// and summarized. The input table is not modified.
func Univariate(t *table.Table, opt UnivariateOptions) (*Summary, error) {
	switch {
	case opt.Alpha == 0:
		opt.Alpha = DefaultAlpha
	case !(opt.Alpha > 0 && opt.Alpha < 1):
		return nil, fmt.Errorf("%w: %g", ErrInvalidAlpha, opt.Alpha)
	}
	out := opt.Out
	if out == nil {
		out = io.Discard
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Summary{Source: t.Name, Alpha: opt.Alpha, index: map[string]int{}}
	for _, col := range t.Columns {
		fmt.Fprintf(out, "Univariate analysis of %s:\n", col.Name)
		switch col.Kind {
		case table.KindCategorical:
			rep := countCategories(col)
			s.Categorical = append(s.Categorical, rep)
			writeCategorical(out, rep)
		case table.KindNumeric:
			row, err := analyzeNumeric(col, opt)
			if err != nil {
				cerr := &ColumnError{Column: col.Name, Err: err}
				if !opt.IsolateErrors {
					return nil, cerr
				}
				log.Warn("column analysis failed", zap.String("column", col.Name), zap.Error(err))
				row = failedRow(col.Name, cerr)
				fmt.Fprintf(out, "The column %s could not be analyzed: %v\n\n", col.Name, err)
			} else {
				switch row.Distribution {
				case LabelNormal:
					s.NormalCount++
					fmt.Fprintf(out, "The column %s follows a normal distribution.\n\n", col.Name)
				default:
					s.NotNormalCount++
					fmt.Fprintf(out, "The column %s does not follow a normal distribution.\n\n", col.Name)
				}
				log.Debug("column analyzed",
					zap.String("column", col.Name),
					zap.Float64("ks", row.KSStatistic),
					zap.Float64("p_value", row.PValue),
					zap.String("distribution", row.Distribution))
			}
			s.index[col.Name] = len(s.Rows)
			s.Rows = append(s.Rows, row)
		}
	}
	fmt.Fprintf(out, "Number of variables that follow a normal distribution: %d\n", s.NormalCount)
	fmt.Fprintf(out, "Number of variables that do not follow a normal distribution: %d\n", s.NotNormalCount)
	return s, nil
}

func analyzeNumeric(col table.Column, opt UnivariateOptions) (Row, error) {
	if opt.Renderer != nil {
		if err := opt.Renderer.Distribution(col.Name, col.Values); err != nil {
			return Row{}, fmt.Errorf("render: %w", err)
		}
	}
	ks, err := KolmogorovSmirnovNormal(col.Values)
	if err != nil {
		return Row{}, err
	}
	d, err := Describe(col.Values)
	if err != nil {
		return Row{}, err
	}
	label := LabelNormal
	if ks.PValue < opt.Alpha {
		label = LabelNotNormal
	}
	return Row{
		Feature:      col.Name,
		Mean:         d.Mean,
		Median:       d.Median,
		Mode:         d.Mode,
		Variance:     d.Variance,
		StdDev:       d.StdDev,
		Percentile25: d.Percentile25,
		Percentile75: d.Percentile75,
		KSStatistic:  ks.Statistic,
		PValue:       ks.PValue,
		Distribution: label,
	}, nil
}

func failedRow(name string, err error) Row {
	nan := math.NaN()
	return Row{
		Feature: name, Mean: nan, Median: nan, Mode: nan, Variance: nan, StdDev: nan,
		Percentile25: nan, Percentile75: nan, KSStatistic: nan, PValue: nan,
		Distribution: LabelError, Err: err,
	}
}

func countCategories(col table.Column) CategoricalReport {
	index := map[string]int{}
	var tops []CategoryCount
	for _, v := range col.Labels {
		if v == "" {
			continue
		}
		i, ok := index[v]
		if !ok {
			i = len(tops)
			index[v] = i
			tops = append(tops, CategoryCount{Value: v})
		}
		tops[i].Count++
	}
	// Ties keep the order of first appearance.
	sort.SliceStable(tops, func(i, j int) bool { return tops[i].Count > tops[j].Count })
	return CategoricalReport{Column: col.Name, Counts: tops, Unique: len(tops)}
}

func writeCategorical(w io.Writer, rep CategoricalReport) {
	fmt.Fprintf(w, "Categoric feature: %s\n", rep.Column)
	fmt.Fprintln(w, "- Unique values:")
	width := 0
	for _, c := range rep.Counts {
		if len(c.Value) > width {
			width = len(c.Value)
		}
	}
	for _, c := range rep.Counts {
		fmt.Fprintf(w, "    %-*s  %d\n", width, safeVal(c.Value), c.Count)
	}
	fmt.Fprintf(w, "- Number of unique values: %d\n\n", rep.Unique)
}
