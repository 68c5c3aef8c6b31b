package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig drops a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
seed: 42
hash_seed: "42"
threads:
  intra_op: 1
  inter_op: 1
workload:
  - name: weights
    kind: uniform
    count: 64
    seed: 7
  - name: noise
    kind: normal
    count: 64
  - name: shuffle
    kind: permutation
    count: 32
`

func TestLoadFromFile(t *testing.T) {
	parser := NewParser()
	cfg, err := parser.LoadFromFile(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, uint32(42), cfg.Seed)
	assert.Equal(t, "42", cfg.HashSeed)
	assert.Equal(t, Threads{IntraOp: 1, InterOp: 1}, cfg.Threads)
	require.Len(t, cfg.Workload, 3)

	assert.Equal(t, "weights", cfg.Workload[0].Name)
	require.NotNil(t, cfg.Workload[0].Seed)
	assert.Equal(t, uint32(7), *cfg.Workload[0].Seed)
	assert.Nil(t, cfg.Workload[1].Seed)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := NewParser().LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileBadYAML(t *testing.T) {
	_, err := NewParser().LoadFromFile(writeConfig(t, "workload: [\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REPRO_SEED", "7")
	t.Setenv("REPRO_INTRA_OP_THREADS", "2")
	t.Setenv("REPRO_INTER_OP_THREADS", "3")

	cfg, err := NewParser().LoadFromFile(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, uint32(7), cfg.Seed)
	assert.Equal(t, Threads{IntraOp: 2, InterOp: 3}, cfg.Threads)
}

func TestHashSeedFallsBackToLaunchEnv(t *testing.T) {
	t.Setenv("REPRO_HASH_SEED", "99")

	body := `
seed: 1
threads:
  intra_op: 1
  inter_op: 1
workload:
  - name: x
    kind: uniform
    count: 1
`
	cfg, err := NewParser().LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "99", cfg.HashSeed)
}

func TestVisibleDevicesOverride(t *testing.T) {
	t.Setenv("REPRO_VISIBLE_DEVICES", "gpu:0,gpu:1")

	cfg, err := NewParser().LoadFromFile(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu:0", "gpu:1"}, cfg.VisibleDevices)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{
			name: "missing hash seed",
			cfg: RunConfig{
				Threads:  Threads{IntraOp: 1, InterOp: 1},
				Workload: []OpSpec{{Name: "x", Kind: "uniform", Count: 1}},
			},
		},
		{
			name: "zero intra threads",
			cfg: RunConfig{
				HashSeed: "1",
				Threads:  Threads{IntraOp: 0, InterOp: 1},
				Workload: []OpSpec{{Name: "x", Kind: "uniform", Count: 1}},
			},
		},
		{
			name: "empty workload",
			cfg: RunConfig{
				HashSeed: "1",
				Threads:  Threads{IntraOp: 1, InterOp: 1},
			},
		},
		{
			name: "unknown kind",
			cfg: RunConfig{
				HashSeed: "1",
				Threads:  Threads{IntraOp: 1, InterOp: 1},
				Workload: []OpSpec{{Name: "x", Kind: "poisson", Count: 1}},
			},
		},
		{
			name: "non-positive count",
			cfg: RunConfig{
				HashSeed: "1",
				Threads:  Threads{IntraOp: 1, InterOp: 1},
				Workload: []OpSpec{{Name: "x", Kind: "uniform", Count: 0}},
			},
		},
		{
			name: "duplicate op names",
			cfg: RunConfig{
				HashSeed: "1",
				Threads:  Threads{IntraOp: 1, InterOp: 1},
				Workload: []OpSpec{
					{Name: "x", Kind: "uniform", Count: 1},
					{Name: "x", Kind: "normal", Count: 1},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, parser.Validate(&tt.cfg))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("REPRO_HASH_SEED", "5")

	cfg, err := NewParser().Default()
	require.NoError(t, err)
	assert.Equal(t, "5", cfg.HashSeed)
	assert.Equal(t, Threads{IntraOp: 1, InterOp: 1}, cfg.Threads)
}
