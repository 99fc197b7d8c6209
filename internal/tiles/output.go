package tiles

import "github.com/mohammad-safakhou/ideahub/internal/hub"

// Quality grades how much raw data backed a tile.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Citation is an evidence entry surfaced on a tile.
type Citation struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Source     hub.Source `json:"source"`
	Snippet    string     `json:"snippet,omitempty"`
	Confidence float64    `json:"confidence"`
}

// ChartData is one chart series ready for rendering.
type ChartData struct {
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Output is the synthesized result for one tile. It is never mutated after
// it is returned.
type Output struct {
	Tile        hub.TileType   `json:"tile"`
	Metrics     map[string]any `json:"metrics"`
	Explanation string         `json:"explanation"`
	Citations   []Citation     `json:"citations"`
	Charts      []ChartData    `json:"charts"`
	JSON        any            `json:"json"`
	Confidence  int            `json:"confidence"`
	DataQuality Quality        `json:"data_quality"`
}

// InsufficientData reports whether the output is the no-data sentinel.
func (o Output) InsufficientData() bool {
	m, ok := o.JSON.(map[string]any)
	return ok && m["error"] == ErrorInsufficientData
}

// ErrorInsufficientData is the error marker of the sentinel payload.
const ErrorInsufficientData = "insufficient_data"

func sentinel(t hub.TileType) Output {
	return Output{
		Tile:        t,
		Metrics:     map[string]any{},
		Explanation: "Not enough data was collected to compute this tile.",
		Citations:   []Citation{},
		Charts:      []ChartData{},
		JSON:        map[string]any{"error": ErrorInsufficientData, "tile": string(t)},
		Confidence:  0,
		DataQuality: QualityLow,
	}
}
