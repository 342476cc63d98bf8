package features

import (
	"math"
	"testing"
)

func TestPercentileLinear(t *testing.T) {
	x := []float64{4, 1, 3, 2}
	cases := map[float64]float64{0: 1, 10: 1.3, 25: 1.75, 50: 2.5, 75: 3.25, 90: 3.7, 100: 4}
	for p, want := range cases {
		if got := percentile(x, p); math.Abs(got-want) > 1e-12 {
			t.Errorf("p%.0f = %v, want %v", p, got, want)
		}
	}
	if x[0] != 4 {
		t.Error("percentile reordered its input")
	}
	if !math.IsNaN(percentile(nil, 50)) {
		t.Error("empty percentile should be NaN")
	}
}

func TestNanMeanStd(t *testing.T) {
	mean, std := nanMeanStd([]float64{1, math.NaN(), 3, math.Inf(-1)})
	if mean != 2 || std != 1 {
		t.Errorf("got %v, %v; want 2, 1", mean, std)
	}

	mean, std = nanMeanStd([]float64{math.NaN(), math.Inf(-1)})
	if !math.IsNaN(mean) || !math.IsNaN(std) {
		t.Errorf("all non-finite: got %v, %v", mean, std)
	}
}
