package verify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reprogo/determinism-harness/internal/config"
	"github.com/reprogo/determinism-harness/internal/harness"
	"github.com/reprogo/determinism-harness/internal/rng"
)

func testConfig() *config.RunConfig {
	opSeed := uint32(7)
	return &config.RunConfig{
		Seed:     42,
		HashSeed: "42",
		Threads:  config.Threads{IntraOp: 1, InterOp: 1},
		Workload: []config.OpSpec{
			{Name: "weights", Kind: "uniform", Count: 32, Seed: &opSeed},
			{Name: "noise", Kind: "normal", Count: 32},
			{Name: "shuffle", Kind: "permutation", Count: 16},
		},
	}
}

func TestRunOnceIsReproducible(t *testing.T) {
	t.Setenv(harness.HashSeedVar, "42")
	r := NewRunner(testConfig(), nil)

	first, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.Digest, second.Digest)
	assert.Len(t, first.Digest, 16)
}

func TestVerifyMatches(t *testing.T) {
	t.Setenv(harness.HashSeedVar, "42")
	r := NewRunner(testConfig(), nil)

	report, err := r.Verify(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Match)
	assert.Equal(t, report.Digest, report.ReplayDig)
	require.Len(t, report.Ops, 3)

	for _, op := range report.Ops {
		assert.True(t, op.Match, "op %s", op.Name)
		assert.Equal(t, -1, op.FirstDivergence)
	}

	// Uniform draws live in [0, 1), so the summary must too.
	weights := report.Ops[0]
	assert.True(t, weights.Min.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, weights.Max.LessThan(decimal.NewFromInt(1)))
	assert.True(t, weights.Mean.GreaterThan(decimal.Zero))
}

func TestDigestKeyedByHashSeed(t *testing.T) {
	results := []rng.Result{{Name: "x", Kind: "uniform", Values: []float64{0.25, 0.5}}}

	a := digest(harness.NewStableHash("42"), results)
	b := digest(harness.NewStableHash("42"), results)
	c := digest(harness.NewStableHash("7"), results)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRunOnceFailsOnHashSeedMismatch(t *testing.T) {
	t.Setenv(harness.HashSeedVar, "42")

	cfg := testConfig()
	cfg.HashSeed = "999"
	_, err := NewRunner(cfg, nil).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestCompareOpFindsFirstDivergence(t *testing.T) {
	a := rng.Result{Name: "x", Kind: "uniform", Values: []float64{0.1, 0.2, 0.3}}
	b := rng.Result{Name: "x", Kind: "uniform", Values: []float64{0.1, 0.9, 0.3}}

	rep := compareOp(a, b)
	assert.False(t, rep.Match)
	assert.Equal(t, 1, rep.FirstDivergence)

	rep = compareOp(a, a)
	assert.True(t, rep.Match)
	assert.Equal(t, -1, rep.FirstDivergence)
}

func TestCompareOpPermutation(t *testing.T) {
	a := rng.Result{Name: "p", Kind: "permutation", Ints: []int{2, 0, 1}}
	b := rng.Result{Name: "p", Kind: "permutation", Ints: []int{2, 1, 0}}

	rep := compareOp(a, b)
	assert.False(t, rep.Match)
	assert.Equal(t, 1, rep.FirstDivergence)
	assert.Equal(t, 3, rep.Count)
}

func TestSummarizeExactDecimals(t *testing.T) {
	res := rng.Result{Values: []float64{0.25, 0.5, 0.75}}
	mean, min, max := summarize(res)

	assert.True(t, mean.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, min.Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, max.Equal(decimal.NewFromFloat(0.75)))
}
