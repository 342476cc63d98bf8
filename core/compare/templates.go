package compare

import (
	"strings"
	"text/template"

	"mixlens/model"
)

// subject names the analysed source inside a recommendation.
type subject struct {
	Noun  string // "mix" or "<stem> stem"
	Level string // "overall level" or "stem level"
}

func subjectFor(src model.Source) subject {
	if src.IsStem() {
		return subject{Noun: string(src) + " stem", Level: "stem level"}
	}
	return subject{Noun: "mix", Level: "overall level"}
}

type message struct {
	subject
	Delta  float64
	Band   string
	More   bool
	Action string
}

var messages = template.Must(template.New("recs").Funcs(template.FuncMap{
	"pct": func(v float64) float64 { return v * 100 },
}).Parse(`
{{- define "quieter" -}}
Your {{.Noun}} is ~{{printf "%.1f" .Delta}} dB quieter than the reference. Raise {{.Level}} or reduce dynamic range before limiting.
{{- end -}}
{{- define "louder" -}}
Your {{.Noun}} is ~{{printf "%.1f" .Delta}} dB louder than the reference. Consider easing limiting to regain dynamics.
{{- end -}}
{{- define "compressed" -}}
Your {{.Noun}} is more compressed than the reference (lower crest). Back off bus compression or limiter.
{{- end -}}
{{- define "band" -}}
Your {{.Band}} is {{printf "%.0f" (pct .Delta)}}% {{if .More}}higher{{else}}lower{{end}} than the reference. Consider {{.Action}} EQ in that band.
{{- end -}}
{{- define "narrower" -}}
Your stereo image is narrower than the reference. Add subtle stereo widening on pads/FX.
{{- end -}}
{{- define "wider" -}}
Your stereo image is wider than the reference. Ensure mono compatibility and check phase.
{{- end -}}
{{- define "phase" -}}
Potential phase issues detected (negative L/R correlation). Check polarity or mid/side processing.
{{- end -}}
{{- define "drift" -}}
Rhythm is less consistent than the reference. Tighten timing or quantize drums/bass.
{{- end -}}
`))

// render executes a named template. The templates are fixed and their data
// is always well formed, so an execution error is a programming error.
func render(name string, m message) string {
	var sb strings.Builder
	if err := messages.ExecuteTemplate(&sb, name, m); err != nil {
		panic(err)
	}
	return sb.String()
}
