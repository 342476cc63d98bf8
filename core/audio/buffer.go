package audio

import "time"

// Buffer is decoded audio held in memory. Every channel has the same length.
// Buffers are never modified after the loader returns them.
type Buffer struct {
	Channels   [][]float64
	SampleRate int
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of samples per channel.
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Len()) / float64(b.SampleRate) * float64(time.Second))
}

// Samples returns the first channel, which is the whole signal for mono buffers.
func (b *Buffer) Samples() []float64 {
	if len(b.Channels) == 0 {
		return nil
	}
	return b.Channels[0]
}

// Mono returns the channel average. For a mono buffer it is the channel itself.
func (b *Buffer) Mono() []float64 {
	return downmix(b.Channels)
}

// downmix averages all channels into one.
func downmix(channels [][]float64) []float64 {
	switch len(channels) {
	case 0:
		return nil
	case 1:
		return channels[0]
	}
	n := len(channels[0])
	out := make([]float64, n)
	scale := 1 / float64(len(channels))
	for _, ch := range channels {
		for i, v := range ch {
			out[i] += v
		}
	}
	for i := range out {
		out[i] *= scale
	}
	return out
}

// deinterleave splits frame-interleaved samples into per-channel slices,
// keeping at most keep channels.
func deinterleave(data []float64, channels, keep int) [][]float64 {
	if channels < 1 {
		return nil
	}
	if keep > channels {
		keep = channels
	}
	frames := len(data) / channels
	out := make([][]float64, keep)
	for c := range out {
		out[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * channels
		for c := 0; c < keep; c++ {
			out[c][i] = data[base+c]
		}
	}
	return out
}
