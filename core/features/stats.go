package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const eps = 1e-9

// percentile returns the p-th percentile (0..100) of x using linear
// interpolation between closest ranks. x is not modified.
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return sortedPercentile(s, p)
}

func sortedPercentile(s []float64, p float64) float64 {
	if len(s) == 1 {
		return s[0]
	}
	pos := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	if lo >= len(s)-1 {
		return s[len(s)-1]
	}
	if lo < 0 {
		return s[0]
	}
	frac := pos - float64(lo)
	return s[lo] + frac*(s[lo+1]-s[lo])
}

// nanMeanStd is the mean and population standard deviation of the finite
// entries of x. Both are NaN when x has no finite entry.
func nanMeanStd(x []float64) (mean, std float64) {
	finite := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(finite, nil)
}

func db(v float64) float64 {
	return 20 * math.Log10(v+eps)
}
