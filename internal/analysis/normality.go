package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxExactOrder bounds the matrix used by the exact Kolmogorov distribution.
// Larger problems fall back to the limiting distribution.
const maxExactOrder = 201

// KSResult is the outcome of a one-sample Kolmogorov–Smirnov test.
type KSResult struct {
	Statistic float64
	PValue    float64
	N         int
}

// KolmogorovSmirnovNormal tests values against the standard normal
// distribution N(0,1) and returns the two-sided statistic and p-value.
// The data are not standardized first.
func KolmogorovSmirnovNormal(values []float64) (KSResult, error) {
	n := len(values)
	if n == 0 {
		return KSResult{}, ErrEmptyColumn
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	for _, v := range sorted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return KSResult{}, fmt.Errorf("kolmogorov-smirnov: %w", ErrNonFinite)
		}
	}
	sort.Float64s(sorted)

	nf := float64(n)
	var d float64
	for i, x := range sorted {
		cdf := distuv.UnitNormal.CDF(x)
		if plus := float64(i+1)/nf - cdf; plus > d {
			d = plus
		}
		if minus := cdf - float64(i)/nf; minus > d {
			d = minus
		}
	}
	p := 1 - kolmogorovCDF(n, d)
	p = math.Max(0, math.Min(1, p))
	return KSResult{Statistic: d, PValue: p, N: n}, nil
}

// kolmogorovCDF returns P(D_n < d) for the two-sided one-sample statistic,
// following Marsaglia, Tsang and Wang (2003), "Evaluating Kolmogorov's
// distribution".
func kolmogorovCDF(n int, d float64) float64 {
	if d <= 0 {
		return 0
	}
	if d >= 1 {
		return 1
	}
	nf := float64(n)
	s := d * d * nf
	if s > 7.24 || (s > 3.76 && n > 99) {
		return 1 - 2*math.Exp(-(2.000071+0.331/math.Sqrt(nf)+1.409/nf)*s)
	}
	k := int(nf*d) + 1
	m := 2*k - 1
	if m > maxExactOrder {
		return kolmogorovLimit((math.Sqrt(nf) + 0.12 + 0.11/math.Sqrt(nf)) * d)
	}
	h := float64(k) - nf*d

	H := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 >= 0 {
				H.Set(i, j, 1)
			}
		}
	}
	for i := 0; i < m; i++ {
		H.Set(i, 0, H.At(i, 0)-math.Pow(h, float64(i+1)))
		H.Set(m-1, i, H.At(m-1, i)-math.Pow(h, float64(m-i)))
	}
	if 2*h-1 > 0 {
		H.Set(m-1, 0, H.At(m-1, 0)+math.Pow(2*h-1, float64(m)))
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 > 0 {
				v := H.At(i, j)
				for g := 2; g <= i-j+1; g++ {
					v /= float64(g)
				}
				H.Set(i, j, v)
			}
		}
	}

	Q, eQ := scaledPower(H, 0, n)
	v := Q.At(k-1, k-1)
	for i := 1; i <= n; i++ {
		v = v * float64(i) / nf
		if v < 1e-140 {
			v *= 1e140
			eQ -= 140
		}
	}
	return v * math.Pow(10, float64(eQ))
}

// scaledPower computes A^n as (matrix, decimal exponent) pairs to keep the
// entries inside float64 range.
func scaledPower(a *mat.Dense, ea, n int) (*mat.Dense, int) {
	if n == 1 {
		out := mat.DenseCopyOf(a)
		return out, ea
	}
	half, eh := scaledPower(a, ea, n/2)
	var sq mat.Dense
	sq.Mul(half, half)
	out, eo := &sq, 2*eh
	if n%2 == 1 {
		var odd mat.Dense
		odd.Mul(a, &sq)
		out, eo = &odd, ea+eo
	}
	m, _ := out.Dims()
	if out.At(m/2, m/2) > 1e140 {
		out.Scale(1e-140, out)
		eo += 140
	}
	return out, eo
}

// kolmogorovLimit is the limiting Kolmogorov distribution P(K <= x).
func kolmogorovLimit(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x < 1 {
		// Jacobi theta form converges fast for small x.
		var sum float64
		c := -math.Pi * math.Pi / (8 * x * x)
		for j := 1; j <= 7; j += 2 {
			sum += math.Exp(float64(j*j) * c)
		}
		return math.Sqrt(2*math.Pi) / x * sum
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := math.Exp(-2 * float64(j*j) * x * x)
		sum += sign * term
		if term < 1e-16 {
			break
		}
		sign = -sign
	}
	return 1 - 2*sum
}
