package output

import (
	"encoding/json"

	"github.com/reprogo/determinism-harness/internal/verify"
)

// JSONFormatter serializes the verification report as pretty-printed JSON.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

func (j JSONFormatter) Format(report *verify.Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
