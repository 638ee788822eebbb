package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Descriptives are the moment and order statistics of a numeric column.
type Descriptives struct {
	Mean         float64
	Median       float64
	Mode         float64
	Variance     float64
	StdDev       float64
	Percentile25 float64
	Percentile75 float64
}

// Describe computes descriptive statistics. Variance and standard deviation
// use the n-1 denominator (NaN for a single value). Mode is the smallest of
// the most frequent values. Percentiles interpolate linearly between ranks.
func Describe(values []float64) (Descriptives, error) {
	if len(values) == 0 {
		return Descriptives{}, ErrEmptyColumn
	}
	var d Descriptives
	d.Mean = stat.Mean(values, nil)
	d.Variance = stat.Variance(values, nil)
	d.StdDev = math.Sqrt(d.Variance)

	median, err := stats.Median(values)
	if err != nil {
		return Descriptives{}, fmt.Errorf("median: %w", err)
	}
	d.Median = median

	d.Mode, err = firstMode(values)
	if err != nil {
		return Descriptives{}, err
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	d.Percentile25 = quantile(sorted, 0.25)
	d.Percentile75 = quantile(sorted, 0.75)
	return d, nil
}

func firstMode(values []float64) (float64, error) {
	modes, err := stats.Mode(values)
	if err != nil {
		return math.NaN(), fmt.Errorf("mode: %w", err)
	}
	if len(modes) > 0 {
		return modes[0], nil
	}
	// No single value dominates: every value is modal, the first is the minimum.
	lo, err := stats.Min(values)
	if err != nil {
		return math.NaN(), fmt.Errorf("mode: %w", err)
	}
	return lo, nil
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
