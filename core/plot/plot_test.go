package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixlens/core/audio"
	"mixlens/core/audio/audiotest"
	"mixlens/model"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestLoudnessPoints(t *testing.T) {
	const rate = 8000
	x := append(make([]float64, 2*rate), audiotest.Sine(440, 0.5, rate, 3*rate)...)

	pts := LoudnessPoints(x, rate)
	// 5 s gives 9 windows. The three fully silent ones are dropped.
	require.Len(t, pts, 6)
	assert.Equal(t, 1.5, pts[0].X)
}

func TestLoudnessCurvePNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "loud_user.png")
	buf := &audio.Buffer{Channels: [][]float64{audiotest.Sine(440, 0.5, 8000, 3*8000)}, SampleRate: 8000}

	require.NoError(t, LoudnessCurve(buf, out))
	assertPNG(t, out)
}

func TestLoudnessCurveSilence(t *testing.T) {
	out := filepath.Join(t.TempDir(), "silent.png")
	buf := &audio.Buffer{Channels: [][]float64{make([]float64, 8000)}, SampleRate: 8000}

	require.NoError(t, LoudnessCurve(buf, out))
	assertPNG(t, out)
}

func TestFrequencyBarsPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "freqbars.png")
	user := model.FrequencyBalanceFeatures{Low: 0.4, Mid: 0.45, High: 0.15}
	ref := model.FrequencyBalanceFeatures{Low: 0.3, Mid: 0.5, High: 0.2}

	require.NoError(t, FrequencyBars(user, ref, out))
	assertPNG(t, out)
}
