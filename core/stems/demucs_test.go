package stems

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixlens/model"
)

// fakeDemucs writes an executable that mimics the demucs layout.
func fakeDemucs(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demucs")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

const writeTwoStems = `model="$2"; out="$4"; in="$5"
base=$(basename "$in"); base="${base%.*}"
mkdir -p "$out/$model/$base"
touch "$out/$model/$base/vocals.wav" "$out/$model/$base/drums.wav"`

func TestDemucsCollectsProducedStems(t *testing.T) {
	sep := NewDemucsSeparator(fakeDemucs(t, writeTwoStems), "htdemucs")
	out := t.TempDir()

	got, err := sep.Separate(context.Background(), "/music/song.flac", out)
	require.NoError(t, err)

	assert.Equal(t, "/music/song.flac", got[model.SourceMix])
	assert.Equal(t, filepath.Join(out, "htdemucs", "song", "vocals.wav"), got[model.SourceVocals])
	assert.Equal(t, filepath.Join(out, "htdemucs", "song", "drums.wav"), got[model.SourceDrums])
	assert.NotContains(t, got, model.SourceBass)
	assert.NotContains(t, got, model.SourceOther)
}

func TestDemucsFailureIsSeparationError(t *testing.T) {
	sep := NewDemucsSeparator(fakeDemucs(t, `echo "model not found" >&2; exit 3`), "htdemucs")

	_, err := sep.Separate(context.Background(), "in.wav", t.TempDir())
	var se *SeparationError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Equal(t, "model not found", se.Stderr)
}

func TestDemucsMissingOutputDir(t *testing.T) {
	sep := NewDemucsSeparator(fakeDemucs(t, `exit 0`), "htdemucs")

	_, err := sep.Separate(context.Background(), "in.wav", t.TempDir())
	var se *SeparationError
	assert.True(t, errors.As(err, &se), "err = %v", err)
}

func TestDemucsMissingBinary(t *testing.T) {
	sep := NewDemucsSeparator(filepath.Join(t.TempDir(), "no-such-demucs"), "htdemucs")

	_, err := sep.Separate(context.Background(), "in.wav", t.TempDir())
	var se *SeparationError
	assert.True(t, errors.As(err, &se), "err = %v", err)
}

func TestPassthroughAndFactory(t *testing.T) {
	got, err := PassthroughSeparator{}.Separate(context.Background(), "a.wav", "")
	require.NoError(t, err)
	assert.Equal(t, map[model.Source]string{model.SourceMix: "a.wav"}, got)

	s, err := New("none", "", "")
	require.NoError(t, err)
	assert.IsType(t, PassthroughSeparator{}, s)

	s, err = New("demucs", "", "")
	require.NoError(t, err)
	assert.IsType(t, &DemucsSeparator{}, s)

	_, err = New("spleeter", "", "")
	assert.Error(t, err)
}
