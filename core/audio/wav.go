package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// wavFormatFloat is the WAVE_FORMAT_IEEE_FLOAT tag, which the native decoder
// does not convert. Such files are handed to ffmpeg.
const wavFormatFloat = 3

var errWavFloat = errors.New("ieee float wav")

// decodeWAV reads an integer PCM WAV file into deinterleaved samples in [-1,1].
func decodeWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file")
	}
	if dec.WavAudioFormat == wavFormatFloat {
		return nil, 0, errWavFloat
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("could not read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("wav has no channel layout")
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", depth)
	}

	data := make([]float64, len(buf.Data))
	if depth == 8 {
		// 8-bit WAV is unsigned.
		for i, v := range buf.Data {
			data[i] = float64(v-128) / 128
		}
	} else {
		full := float64(int64(1) << (depth - 1))
		for i, v := range buf.Data {
			data[i] = float64(v) / full
		}
	}

	ch := buf.Format.NumChannels
	return deinterleave(data, ch, ch), buf.Format.SampleRate, nil
}
