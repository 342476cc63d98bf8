package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// decodeMP3 reads an MP3 file. go-mp3 always yields 16-bit stereo frames,
// so a stream whose channels are identical is returned as mono.
func decodeMP3(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid mp3 stream: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode: %w", err)
	}

	const bytesPerSample = 2
	data := make([]float64, len(raw)/bytesPerSample)
	for i := range data {
		v := int16(binary.LittleEndian.Uint16(raw[i*bytesPerSample:]))
		data[i] = float64(v) / 32768
	}
	return collapseIdentical(deinterleave(data, 2, 2)), dec.SampleRate(), nil
}

// collapseIdentical drops the second channel when it repeats the first.
func collapseIdentical(chs [][]float64) [][]float64 {
	if len(chs) != 2 || len(chs[0]) != len(chs[1]) {
		return chs
	}
	for i, v := range chs[0] {
		if chs[1][i] != v {
			return chs
		}
	}
	return chs[:1]
}
