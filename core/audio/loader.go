package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mixlens/logger"
)

// DefaultSampleRate is the analysis rate used when none is configured.
const DefaultSampleRate = 48000

// Loader decodes files into Buffers at a requested rate and layout.
type Loader struct {
	ffmpeg *FFmpegDecoder
}

// NewLoader creates a Loader. ffmpegPath is used for containers without a
// native decoder.
func NewLoader(ffmpegPath string) *Loader {
	return &Loader{ffmpeg: NewFFmpegDecoder(ffmpegPath)}
}

var defaultLoader = NewLoader("ffmpeg")

// Load decodes path with the default loader.
func Load(path string, targetRate int, mono bool) (*Buffer, error) {
	return defaultLoader.Load(path, targetRate, mono)
}

// Load decodes path, resamples to targetRate and arranges channels.
// mono averages every channel into one. Otherwise at most the first two
// channels are kept.
func (l *Loader) Load(path string, targetRate int, mono bool) (*Buffer, error) {
	if targetRate <= 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("invalid target sample rate %d", targetRate)}
	}

	channels, rate, err := l.decode(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if len(channels) == 0 || rate <= 0 {
		return nil, &DecodeError{Path: path, Err: errors.New("no audio channels")}
	}

	if mono {
		channels = [][]float64{downmix(channels)}
	} else if len(channels) > 2 {
		logger.Debug("Truncating channels to stereo",
			logger.String("path", path),
			logger.Int("channels", len(channels)))
		channels = channels[:2]
	}

	if rate != targetRate {
		for i, ch := range channels {
			channels[i] = Resample(ch, rate, targetRate)
		}
	}

	return &Buffer{Channels: channels, SampleRate: targetRate}, nil
}

func (l *Loader) decode(path string) ([][]float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		channels, rate, err := decodeWAV(path)
		if errors.Is(err, errWavFloat) {
			return l.ffmpeg.Decode(path)
		}
		return channels, rate, err
	case ".mp3":
		return decodeMP3(path)
	default:
		return l.ffmpeg.Decode(path)
	}
}
