package output

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reprogo/determinism-harness/internal/verify"
)

func sampleReport() *verify.Report {
	return &verify.Report{
		Seed:      42,
		HashSeed:  "42",
		Match:     true,
		Digest:    "00000000deadbeef",
		ReplayDig: "00000000deadbeef",
		Ops: []verify.OpReport{
			{
				Name:            "weights",
				Kind:            "uniform",
				Count:           4,
				Match:           true,
				FirstDivergence: -1,
				Mean:            decimal.NewFromFloat(0.5),
				Min:             decimal.NewFromFloat(0.1),
				Max:             decimal.NewFromFloat(0.9),
			},
		},
	}
}

func TestGetFormatterByName(t *testing.T) {
	assert.NotNil(t, GetFormatterByName("console"))
	assert.NotNil(t, GetFormatterByName("json"))
	assert.NotNil(t, GetFormatterByName("TEXT")) // alias, case-insensitive
	assert.Nil(t, GetFormatterByName("xml"))
}

func TestConsoleFormat(t *testing.T) {
	data, err := Render(sampleReport(), "console")
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "Seed: 42")
	assert.Contains(t, out, "weights (uniform, n=4): match")
	assert.Contains(t, out, "bit-identical across runs")
}

func TestConsoleFormatDivergence(t *testing.T) {
	report := sampleReport()
	report.Match = false
	report.Ops[0].Match = false
	report.Ops[0].FirstDivergence = 2

	data, err := Render(report, "console")
	require.NoError(t, err)
	assert.Contains(t, string(data), "DIVERGED at index 2")
	assert.Contains(t, string(data), "NON-DETERMINISTIC")
}

func TestJSONFormatRoundTrips(t *testing.T) {
	data, err := Render(sampleReport(), "json")
	require.NoError(t, err)

	var decoded verify.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, uint32(42), decoded.Seed)
	require.Len(t, decoded.Ops, 1)
	assert.Equal(t, "weights", decoded.Ops[0].Name)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sampleReport(), "xml")
	assert.Error(t, err)
}

func TestAvailableFormatterNames(t *testing.T) {
	assert.ElementsMatch(t, []string{"console", "json"}, AvailableFormatterNames())
}
