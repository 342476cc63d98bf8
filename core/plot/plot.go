// Package plot renders the PNG charts attached to an analysis result.
package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"mixlens/core/audio"
	"mixlens/core/features"
	"mixlens/model"
)

// Plot names used as keys of model.Result.Plots.
const (
	NameLoudnessUser = "loud_user"
	NameLoudnessRef  = "loud_ref"
	NameFreqBars     = "freqbars"
)

const (
	curveWindowSeconds = 1.0
	width              = 6 * vg.Inch
	height             = 4 * vg.Inch
)

// LoudnessPoints measures loudness over 1 s windows with a 0.5 s hop.
// Windows without a finite reading are left out.
func LoudnessPoints(x []float64, rate int) plotter.XYs {
	win := int(curveWindowSeconds * float64(rate))
	hop := win / 2
	if win < 1 || hop < 1 {
		return nil
	}
	var pts plotter.XYs
	for start := 0; start+win <= len(x); start += hop {
		l := features.IntegratedLoudness(x[start:start+win], rate)
		if math.IsInf(l, 0) || math.IsNaN(l) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(start) / float64(rate), Y: l})
	}
	return pts
}

// LoudnessCurve draws short-term loudness against time into out.
func LoudnessCurve(buf *audio.Buffer, out string) error {
	p := plot.New()
	p.Title.Text = "Loudness over time"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Short-term LUFS"

	if pts := LoudnessPoints(buf.Mono(), buf.SampleRate); len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("loudness line: %w", err)
		}
		line.Color = plotutil.Color(0)
		p.Add(line)
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(width, height, out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	return nil
}

// FrequencyBars draws grouped low/mid/high bars for user and reference.
func FrequencyBars(user, ref model.FrequencyBalanceFeatures, out string) error {
	p := plot.New()
	p.Title.Text = "Frequency balance"
	p.Y.Label.Text = "Energy proportion"

	barWidth := vg.Points(24)
	userBars, err := plotter.NewBarChart(plotter.Values{user.Low, user.Mid, user.High}, barWidth)
	if err != nil {
		return fmt.Errorf("user bars: %w", err)
	}
	userBars.Color = plotutil.Color(0)
	userBars.LineStyle.Width = 0
	userBars.Offset = -barWidth / 2

	refBars, err := plotter.NewBarChart(plotter.Values{ref.Low, ref.Mid, ref.High}, barWidth)
	if err != nil {
		return fmt.Errorf("reference bars: %w", err)
	}
	refBars.Color = plotutil.Color(1)
	refBars.LineStyle.Width = 0
	refBars.Offset = barWidth / 2

	p.Add(userBars, refBars)
	p.Legend.Add("User", userBars)
	p.Legend.Add("Reference", refBars)
	p.Legend.Top = true
	p.NominalX("Low", "Mid", "High")

	if err := p.Save(width, height, out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	return nil
}
