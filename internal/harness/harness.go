// Package harness establishes a fully deterministic execution environment
// before any stochastic computation runs: it restricts computation to the
// CPU, pins the process-wide thread pool to fixed sizes, and seeds every
// random source in a fixed order.
//
// Ordering matters everywhere here. Seeds only affect stochastic objects
// constructed after they are set: the reference framework silently ignores a
// late re-seed for already-built objects, and this harness keeps those
// objects untouched too, but additionally fails the call with ErrFrozen so
// the mistake is visible instead of silent.
package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/reprogo/determinism-harness/internal/rng"
	"github.com/reprogo/determinism-harness/pkg/mt19937"
)

// ErrFrozen is returned by mutating calls after the first stochastic
// construction has consumed the configuration.
var ErrFrozen = errors.New("harness is frozen: stochastic objects already constructed")

// VisibleDevicesVar is the environment equivalent of the device visibility
// flag; an empty value restricts computation to the CPU.
const VisibleDevicesVar = "REPRO_VISIBLE_DEVICES"

// Options is the explicitly constructed configuration for a harness. It is
// consumed at New and by SeedAll; once the first stochastic object exists the
// harness is frozen and further mutation is rejected.
type Options struct {
	// Seed is applied to every seedable source by SeedAll.
	Seed uint32
	// HashSeed is the value REPRO_HASH_SEED must carry at launch.
	HashSeed string
	// IntraOpThreads and InterOpThreads fix the process-wide pool sizes.
	// Zero values mean single-threaded.
	IntraOpThreads int
	InterOpThreads int
	// VisibleDevices lists accelerator devices left visible. The
	// determinism harness normally leaves this empty.
	VisibleDevices []string
	// Pool overrides the process-wide thread pool, mainly for tests.
	Pool *rng.ThreadPool
	// Logger defaults to NopLogger.
	Logger Logger
}

// Harness owns the deterministic execution environment.
type Harness struct {
	mu sync.Mutex

	opts  Options
	log   Logger
	pool  *rng.ThreadPool
	graph *rng.Graph

	general *mt19937.MT19937
	numeric *mt19937.MT19937

	seeded  bool
	frozen  bool
	devices []string
}

// New creates a harness from the given options and verifies the launch-time
// hash seed. A missing or mismatched hash seed is a configuration error that
// aborts startup; it is the only hard failure the harness produces.
func New(opts Options) (*Harness, error) {
	if opts.HashSeed == "" {
		return nil, fmt.Errorf("hash seed configuration is required: %w", ErrHashSeedUnset)
	}
	if err := VerifyHashSeed(opts.HashSeed); err != nil {
		return nil, fmt.Errorf("startup aborted: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = NopLogger{}
	}
	pool := opts.Pool
	if pool == nil {
		pool = rng.DefaultPool()
	}

	h := &Harness{
		opts:    opts,
		log:     log,
		pool:    pool,
		graph:   rng.NewGraph(),
		general: mt19937.New(),
		numeric: mt19937.New(),
		devices: append([]string(nil), opts.VisibleDevices...),
	}
	return h, nil
}

// Init applies the full deterministic setup in the required order: device
// restriction, thread pinning, then seeding.
func (h *Harness) Init() error {
	h.RestrictToCPU()
	h.ForceSingleThreaded(h.opts.IntraOpThreads, h.opts.InterOpThreads)
	return h.SeedAll(h.opts.Seed)
}

// RestrictToCPU clears the visible accelerator list so no accelerator is
// used. It must run before any execution context is built; once the harness
// is frozen the call is rejected.
func (h *Harness) RestrictToCPU() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frozen {
		h.log.Warnf("restrict_to_cpu ignored: %v", ErrFrozen)
		return
	}
	h.devices = nil
	h.log.Debugf("computation restricted to cpu (%s cleared)", VisibleDevicesVar)
}

// ForceSingleThreaded fixes the process-wide thread pool sizes. The first
// write wins: if the pool was already configured or a context exists, the
// call is ignored and logged, never an error. This mirrors the runtime's
// pool singleton contract.
func (h *Harness) ForceSingleThreaded(intra, inter int) rng.ThreadConfig {
	if intra < 1 {
		intra = 1
	}
	if inter < 1 {
		inter = 1
	}

	cfg, applied := h.pool.Configure(intra, inter)
	if !applied && (cfg.IntraOp != intra || cfg.InterOp != inter) {
		h.log.Warnf("thread pool already fixed at intra=%d inter=%d; requested intra=%d inter=%d ignored",
			cfg.IntraOp, cfg.InterOp, intra, inter)
	}
	return cfg
}

// SeedAll seeds every source in the required order: it verifies the
// launch-time hash seed (which cannot be set from inside a running process),
// then seeds the general-purpose RNG, the numeric array RNG, and the graph
// seed. It must run before any stochastic operation is constructed; once the
// harness is frozen it returns ErrFrozen and leaves existing objects
// untouched.
func (h *Harness) SeedAll(seed uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frozen {
		h.log.Warnf("seed_all(%d) rejected: %v", seed, ErrFrozen)
		return ErrFrozen
	}

	if err := VerifyHashSeed(h.opts.HashSeed); err != nil {
		return err
	}

	h.general.Seed(uint64(seed))
	h.numeric.Seed(uint64(seed))
	if err := h.graph.SetSeed(seed); err != nil {
		return err
	}

	h.opts.Seed = seed
	h.seeded = true
	h.log.Debugf("all sources seeded with %d", seed)
	return nil
}

// General returns the general-purpose RNG. Draws advance the shared
// sequence.
func (h *Harness) General() *mt19937.MT19937 { return h.general }

// UniformArray fills and returns an array of uniform doubles from the
// numeric array source.
func (h *Harness) UniformArray(n int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = h.numeric.Float64()
	}
	return out
}

// NormalArray fills and returns an array of standard normal deviates from
// the numeric array source.
func (h *Harness) NormalArray(n int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = h.numeric.NormFloat64()
	}
	return out
}

// Graph returns the harness's computation graph.
func (h *Harness) Graph() *rng.Graph { return h.graph }

// NewOp constructs a stochastic operation on the harness's graph. The first
// construction freezes the harness: the configuration has been consumed and
// later seed mutation is rejected rather than silently ignored.
func (h *Harness) NewOp(name string, kind rng.OpKind, count int, opts ...rng.OpOption) (*rng.Op, error) {
	op, err := h.graph.NewOp(name, kind, count, opts...)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if !h.frozen {
		h.frozen = true
		h.log.Debugf("harness frozen by construction of operation %s", name)
	}
	h.mu.Unlock()
	return op, nil
}

// NewContext creates an execution context on the CPU. Creating the first
// context freezes the thread pool; discarding a context does not reset any
// seed, and a fresh context only reproduces sequences if the seeds are
// re-applied to a fresh graph first.
func (h *Harness) NewContext() (*rng.Context, error) {
	h.mu.Lock()
	h.frozen = true
	h.mu.Unlock()

	return rng.NewContext(rng.ContextOptions{Device: rng.CPU, Pool: h.pool})
}

// Eval is a convenience wrapper creating a context and evaluating ops on it.
func (h *Harness) Eval(ctx context.Context, ops ...*rng.Op) ([]rng.Result, error) {
	ec, err := h.NewContext()
	if err != nil {
		return nil, err
	}
	return ec.Eval(ctx, ops...)
}

// Frozen reports whether the first stochastic construction has consumed the
// configuration.
func (h *Harness) Frozen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frozen
}

// Seeded reports whether SeedAll has run.
func (h *Harness) Seeded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seeded
}

// VisibleDevices returns the accelerator devices left visible.
func (h *Harness) VisibleDevices() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.devices...)
}

// Device returns the device computation runs on: always CPU when the visible
// device list is empty.
func (h *Harness) Device() rng.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.devices) == 0 {
		return rng.CPU
	}
	return rng.Accelerator
}

// StableHash returns the digest hash keyed with the configured hash seed.
func (h *Harness) StableHash() StableHash {
	return NewStableHash(h.opts.HashSeed)
}

// Describe returns a short human-readable summary of the effective
// environment, used by the CLI's env command.
func (h *Harness) Describe() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	devices := "cpu only"
	if len(h.devices) > 0 {
		devices = strings.Join(h.devices, ",")
	}
	cfg := h.pool.Config()
	return fmt.Sprintf("seed=%d hash_seed=%s devices=%s intra_op=%d inter_op=%d frozen=%t",
		h.opts.Seed, h.opts.HashSeed, devices, cfg.IntraOp, cfg.InterOp, h.frozen)
}
