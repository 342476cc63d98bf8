package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// periodicHann returns a length-n Hann window for spectral analysis.
func periodicHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// stftFrames returns 1 + len(x)/hop, the frame count of a centered STFT.
func stftFrames(n, hop int) int {
	return 1 + n/hop
}

// powerSpectra runs a centered STFT (zero padding of nfft/2 on both sides)
// and calls fn with the |X|² of each frame. power has nfft/2+1 bins and is
// reused between calls.
func powerSpectra(x []float64, nfft, hop int, fn func(frame int, power []float64)) {
	fft := fourier.NewFFT(nfft)
	window := periodicHann(nfft)
	buf := make([]float64, nfft)
	power := make([]float64, nfft/2+1)
	var coeffs []complex128

	pad := nfft / 2
	frames := stftFrames(len(x), hop)
	for f := 0; f < frames; f++ {
		start := f*hop - pad
		for i := range buf {
			j := start + i
			if j < 0 || j >= len(x) {
				buf[i] = 0
				continue
			}
			buf[i] = x[j] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			power[k] = a * a
		}
		fn(f, power)
	}
}
