// Package audiotest generates deterministic signals and WAV fixtures for tests.
package audiotest

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sine returns n samples of amp*sin(2πft) at rate.
func Sine(freq, amp float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

// Noise returns n samples of uniform noise in [-amp, amp] from a fixed seed.
func Noise(amp float64, n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (2*r.Float64() - 1)
	}
	return out
}

// Clicks returns a click track: a short decaying burst every period samples.
func Clicks(period, n int, amp float64) []float64 {
	out := make([]float64, n)
	const burst = 64
	for start := 0; start < n; start += period {
		for i := 0; i < burst && start+i < n; i++ {
			out[start+i] = amp * math.Exp(-float64(i)/8) * math.Sin(2*math.Pi*float64(i)/8)
		}
	}
	return out
}

// Scale multiplies every sample by g and returns a new slice.
func Scale(x []float64, g float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

// WriteWAV writes 16-bit PCM with one slice per channel. Samples are clipped to [-1,1].
func WriteWAV(path string, rate int, channels ...[]float64) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	nch := len(channels)
	n := len(channels[0])
	data := make([]int, n*nch)
	for i := 0; i < n; i++ {
		for c, ch := range channels {
			v := math.Max(-1, math.Min(1, ch[i]))
			data[i*nch+c] = int(math.Round(v * 32767))
		}
	}

	enc := wav.NewEncoder(f, rate, 16, nch, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nch, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	return enc.Close()
}
