package stems

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mixlens/logger"
	"mixlens/model"
)

// stemFiles maps demucs output names to sources.
var stemFiles = []struct {
	file   string
	source model.Source
}{
	{"vocals.wav", model.SourceVocals},
	{"drums.wav", model.SourceDrums},
	{"bass.wav", model.SourceBass},
	{"other.wav", model.SourceOther},
}

// DemucsSeparator runs the demucs command line tool.
type DemucsSeparator struct {
	bin   string
	model string
}

// NewDemucsSeparator creates a separator for the given binary and model name.
func NewDemucsSeparator(bin, modelName string) *DemucsSeparator {
	if bin == "" {
		bin = "demucs"
	}
	if modelName == "" {
		modelName = "htdemucs"
	}
	return &DemucsSeparator{bin: bin, model: modelName}
}

// Separate runs `demucs -n <model> -o <outputDir> <input>` and collects the
// four stems from <outputDir>/<model>/<track>/.
func (d *DemucsSeparator) Separate(ctx context.Context, inputPath, outputDir string) (map[model.Source]string, error) {
	bin, err := exec.LookPath(d.bin)
	if err != nil {
		return nil, &SeparationError{Input: inputPath, Err: fmt.Errorf("demucs not found: %w", err)}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &SeparationError{Input: inputPath, Err: err}
	}

	started := time.Now()
	cmd := exec.CommandContext(ctx, bin, "-n", d.model, "-o", outputDir, inputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Info("Running demucs",
		logger.String("input", inputPath),
		logger.String("model", d.model),
		logger.String("outDir", outputDir))

	if err := cmd.Run(); err != nil {
		return nil, &SeparationError{Input: inputPath, Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}

	trackDir, err := d.trackDir(inputPath, outputDir)
	if err != nil {
		return nil, &SeparationError{Input: inputPath, Err: err}
	}

	out := map[model.Source]string{model.SourceMix: inputPath}
	for _, s := range stemFiles {
		p := filepath.Join(trackDir, s.file)
		if _, statErr := os.Stat(p); statErr != nil {
			logger.Warn("Missing demucs stem", logger.String("stem", s.file), logger.String("dir", trackDir))
			continue
		}
		out[s.source] = p
	}

	logger.Info("Demucs finished",
		logger.String("input", inputPath),
		logger.Int("stems", len(out)-1),
		logger.Duration("took", time.Since(started)))
	return out, nil
}

// trackDir finds demucs' per-track directory. It prefers the directory named
// after the input and otherwise accepts a single child of the model directory.
func (d *DemucsSeparator) trackDir(inputPath, outputDir string) (string, error) {
	modelDir := filepath.Join(outputDir, d.model)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if fi, err := os.Stat(filepath.Join(modelDir, base)); err == nil && fi.IsDir() {
		return filepath.Join(modelDir, base), nil
	}

	child, err := findSingleChildDir(modelDir)
	if err != nil {
		return "", fmt.Errorf("demucs output not found: %w", err)
	}
	return filepath.Join(modelDir, child), nil
}

func findSingleChildDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if found != "" {
			return "", errors.New("multiple directories in " + dir)
		}
		found = e.Name()
	}
	if found == "" {
		return "", errors.New("no directory in " + dir)
	}
	return found, nil
}
