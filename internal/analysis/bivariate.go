package analysis

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"

	"github.com/KaramelBytes/eda-cli/internal/table"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultPattern selects the total housing units column and every column
// named after a 2021 measurement.
const DefaultPattern = `\bInmuebles_totales\b|\b\w+2021\b`

// BivariateOptions controls the bivariate analysis.
type BivariateOptions struct {
	// Pattern selects columns by name; nil uses DefaultPattern.
	Pattern *regexp.Regexp
	// Out receives the console report. Nil discards it.
	Out io.Writer
	// Renderer draws the heatmap and pair plot. Nil skips rendering.
	Renderer Renderer
	// TopPairs limits the correlation pairs written to Out; 0 means 10.
	TopPairs int
	Logger   *zap.Logger
}

// BivariateResult is the selected sub-table and its correlation matrix.
type BivariateResult struct {
	// Columns are the numeric selected columns, in table order.
	Columns []string
	// Corr holds Pearson coefficients; undefined entries are NaN.
	Corr *mat.SymDense
	// Skipped are selected columns excluded from correlation (not numeric).
	Skipped []string
	// Selection is the derived view the figures were drawn from.
	Selection *table.Table
}

// PairCorr is one off-diagonal coefficient.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// Pairs returns the off-diagonal coefficients ordered by |r| descending,
// skipping undefined ones.
func (b *BivariateResult) Pairs() []PairCorr {
	var pairs []PairCorr
	n := len(b.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := b.Corr.At(i, j)
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: b.Columns[i], B: b.Columns[j], R: r})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	return pairs
}

// Bivariate selects the columns matching opt.Pattern, computes their Pearson
// correlation matrix and renders the heatmap and pair plot.
func Bivariate(t *table.Table, opt BivariateOptions) (*BivariateResult, error) {
	pattern := opt.Pattern
	if pattern == nil {
		pattern = regexp.MustCompile(DefaultPattern)
	}
	out := opt.Out
	if out == nil {
		out = io.Discard
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sel := t.Select(pattern)
	if len(sel.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoColumnsSelected, pattern.String())
	}
	res := &BivariateResult{}
	for _, c := range sel.Columns {
		if c.Kind != table.KindNumeric {
			res.Skipped = append(res.Skipped, c.Name)
		}
	}
	num := sel.Numeric()
	res.Selection = num
	res.Columns = num.Names()
	if len(res.Skipped) > 0 {
		log.Info("non-numeric columns excluded from correlation", zap.Strings("columns", res.Skipped))
	}
	if len(res.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s (only non-numeric columns matched)", ErrNoColumnsSelected, pattern.String())
	}
	res.Corr = CorrelationMatrix(num)

	if opt.Renderer != nil {
		if err := opt.Renderer.Heatmap(res.Columns, res.Corr); err != nil {
			return nil, fmt.Errorf("render heatmap: %w", err)
		}
		if err := opt.Renderer.PairPlot(num); err != nil {
			return nil, fmt.Errorf("render pair plot: %w", err)
		}
	}
	writeBivariate(out, res, opt.TopPairs)
	return res, nil
}

// CorrelationMatrix returns the Pearson correlation matrix of the numeric
// columns of t. Missing values are dropped pairwise.
func CorrelationMatrix(t *table.Table) *mat.SymDense {
	cols := t.Numeric().Columns
	n := len(cols)
	corr := mat.NewSymDense(n, nil)
	if n == 0 {
		return corr
	}
	rows := cols[0].Len()
	complete := true
	for _, c := range cols {
		for _, v := range c.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
		}
	}
	if complete && rows >= 2 {
		x := mat.NewDense(rows, n, nil)
		for j, c := range cols {
			x.SetCol(j, c.Values)
		}
		stat.CorrelationMatrix(corr, x, nil)
		return corr
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			corr.SetSym(i, j, pairwiseCorrelation(cols[i].Values, cols[j].Values))
		}
	}
	return corr
}

func pairwiseCorrelation(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if i >= len(y) {
			break
		}
		if isFinite(x[i]) && isFinite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func writeBivariate(w io.Writer, res *BivariateResult, top int) {
	if top <= 0 {
		top = 10
	}
	fmt.Fprintf(w, "Bivariate analysis of %d columns: ", len(res.Columns))
	for i, c := range res.Columns {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprint(w, safeName(c))
	}
	fmt.Fprintln(w)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped non-numeric columns: %v\n", res.Skipped)
	}
	pairs := res.Pairs()
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintln(w, "\n[CORRELATIONS]")
	if len(pairs) > top {
		pairs = pairs[:top]
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
	}
}
