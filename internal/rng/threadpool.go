package rng

import "sync"

// ThreadConfig holds the process-wide thread pool sizes: intra-op workers
// (parallelism within a single operation's transform) and inter-op workers
// (operations evaluated concurrently by a context).
type ThreadConfig struct {
	IntraOp int
	InterOp int
}

// SingleThreaded is the configuration the determinism harness applies: one
// worker everywhere.
var SingleThreaded = ThreadConfig{IntraOp: 1, InterOp: 1}

// ThreadPool models the runtime's pool-size singleton. Sizes may be set once
// before the first execution context is created; the first write wins, and
// creating a context freezes the pool permanently. This mirrors the
// underlying runtime contract: later configuration calls are ignored, not
// errors.
type ThreadPool struct {
	mu     sync.Mutex
	cfg    ThreadConfig
	set    bool
	frozen bool
}

// defaultPool is the process-wide pool used when callers do not supply one.
var defaultPool = NewThreadPool()

// NewThreadPool creates an unconfigured pool. The zero configuration
// evaluates as single-threaded.
func NewThreadPool() *ThreadPool {
	return &ThreadPool{cfg: SingleThreaded}
}

// DefaultPool returns the process-wide pool.
func DefaultPool() *ThreadPool {
	return defaultPool
}

// Configure sets the pool sizes. The first call wins; any later call with
// different values, or any call after the pool is frozen, is ignored. The
// returned config is the effective one, and applied reports whether this
// call set it. Non-positive sizes are clamped to 1.
func (p *ThreadPool) Configure(intra, inter int) (ThreadConfig, bool) {
	if intra < 1 {
		intra = 1
	}
	if inter < 1 {
		inter = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen || p.set {
		return p.cfg, false
	}
	p.cfg = ThreadConfig{IntraOp: intra, InterOp: inter}
	p.set = true
	return p.cfg, true
}

// Config returns the effective configuration.
func (p *ThreadPool) Config() ThreadConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Frozen reports whether a context has consumed the pool.
func (p *ThreadPool) Frozen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frozen
}

// freeze marks the pool immutable and returns its configuration.
func (p *ThreadPool) freeze() ThreadConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frozen = true
	return p.cfg
}
