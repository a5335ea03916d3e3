package surface

import (
	"encoding/json"
	"io"

	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

// JSONRenderer marshals scores and metrics to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, score *scoring.CompositeScore) error {
	return encodeIndent(w, score)
}

func (r *JSONRenderer) RenderMetrics(w io.Writer, m *platform.Metrics) error {
	return encodeIndent(w, m)
}

func encodeIndent(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
