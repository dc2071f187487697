package archive

// Row is the flat, one-line-per-rule shape exporters and reports consume.
type Row struct {
	Fitness    float64 `json:"fitness"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Inclusion  float64 `json:"inclusion"`
	Amplitude  float64 `json:"amplitude"`
	TSM        float64 `json:"tsm"`
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
}

// RowColumns is the column order of Row in tabular exports.
var RowColumns = []string{
	"fitness", "support", "confidence", "inclusion", "amplitude", "tsm",
	"antecedent", "consequent", "start", "end",
}

func (e Entry) Row() Row {
	return Row{
		Fitness:    e.Fitness,
		Support:    e.Metrics.Support,
		Confidence: e.Metrics.Confidence,
		Inclusion:  e.Metrics.Inclusion,
		Amplitude:  e.Metrics.Amplitude,
		TSM:        e.Metrics.TSM,
		Antecedent: e.Antecedent.String(),
		Consequent: e.Consequent.String(),
		Start:      e.Window.StartString(),
		End:        e.Window.EndString(),
	}
}

// Rows renders the ranked archive.
func (a *Archive) Rows() []Row {
	ranked := a.Ranked()
	out := make([]Row, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, e.Row())
	}
	return out
}
