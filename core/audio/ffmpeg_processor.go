package audio

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"mixlens/logger"
)

// FFmpegDecoder decodes any container ffmpeg understands into float PCM.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a decoder that shells out to ffmpegPath.
// ffprobe is expected next to it.
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

// StreamInfo is the first audio stream reported by ffprobe.
type StreamInfo struct {
	CodecName  string
	SampleRate int
	Channels   int
}

// Probe reads codec, sample rate and channel count of the first audio stream.
func (p *FFmpegDecoder) Probe(inputFile string) (*StreamInfo, error) {
	ffprobePath := strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels",
		"-of", "json",
		inputFile,
	}

	cmd := exec.Command(ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}

	var probeData struct {
		Streams []struct {
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if len(probeData.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found in file")
	}

	s := probeData.Streams[0]
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q", s.SampleRate)
	}
	if s.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", s.Channels)
	}
	return &StreamInfo{CodecName: s.CodecName, SampleRate: rate, Channels: s.Channels}, nil
}

// Decode converts inputFile to interleaved 32-bit float PCM at its native
// rate and returns the channels deinterleaved.
func (p *FFmpegDecoder) Decode(inputFile string) ([][]float64, int, error) {
	info, err := p.Probe(inputFile)
	if err != nil {
		return nil, 0, err
	}

	args := []string{
		"-v", "error",
		"-i", inputFile,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(info.Channels),
		"-ar", strconv.Itoa(info.SampleRate),
		"pipe:1",
	}

	cmd := exec.Command(p.ffmpegPath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logger.Debug("Executing FFmpeg decode",
		logger.String("cmd", p.ffmpegPath+" "+strings.Join(args, " ")),
		logger.String("codec", info.CodecName))

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg execution failed for %s: %w\nFFmpeg Error: %s", inputFile, err, stderr.String())
	}

	raw := out.Bytes()
	data := make([]float64, len(raw)/4)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return deinterleave(data, info.Channels, info.Channels), info.SampleRate, nil
}
