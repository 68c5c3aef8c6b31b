// Package verify proves reproducibility: it executes a configured stochastic
// workload twice, each time in a fresh graph and context with identical
// seeding, and compares the output streams bit for bit.
package verify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/reprogo/determinism-harness/internal/config"
	"github.com/reprogo/determinism-harness/internal/harness"
	"github.com/reprogo/determinism-harness/internal/rng"
)

// Runner executes configured workloads through the determinism harness.
type Runner struct {
	cfg *config.RunConfig
	log harness.Logger
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.RunConfig, log harness.Logger) *Runner {
	if log == nil {
		log = harness.NopLogger{}
	}
	return &Runner{cfg: cfg, log: log}
}

// Run is one complete evaluation of the workload.
type Run struct {
	Results []rng.Result `json:"results"`
	// Digest is a keyed hash over the exact output stream.
	Digest string `json:"digest"`
}

// RunOnce builds a fresh harness, applies the full deterministic setup,
// constructs the workload operations, and evaluates them. Each call is an
// independent construction phase, so equal configurations yield bit-identical
// runs.
func (r *Runner) RunOnce(ctx context.Context) (*Run, error) {
	h, err := harness.New(harness.Options{
		Seed:           r.cfg.Seed,
		HashSeed:       r.cfg.HashSeed,
		IntraOpThreads: r.cfg.Threads.IntraOp,
		InterOpThreads: r.cfg.Threads.InterOp,
		VisibleDevices: r.cfg.VisibleDevices,
		Pool:           rng.NewThreadPool(),
		Logger:         r.log,
	})
	if err != nil {
		return nil, err
	}
	if err := h.Init(); err != nil {
		return nil, err
	}

	ops := make([]*rng.Op, 0, len(r.cfg.Workload))
	for _, spec := range r.cfg.Workload {
		kind, err := rng.ParseOpKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", spec.Name, err)
		}

		var opts []rng.OpOption
		if spec.Seed != nil {
			opts = append(opts, rng.WithSeed(*spec.Seed))
		}
		op, err := h.NewOp(spec.Name, kind, spec.Count, opts...)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	results, err := h.Eval(ctx, ops...)
	if err != nil {
		return nil, err
	}

	return &Run{
		Results: results,
		Digest:  digest(h.StableHash(), results),
	}, nil
}

// digest hashes the exact textual form of every value in the stream under
// the launch hash seed.
func digest(sh harness.StableHash, results []rng.Result) string {
	h := sh.Sum64(nil)
	combine := func(s string) {
		h = h*1099511628211 ^ sh.SumString(s)
	}

	for _, res := range results {
		combine(res.Name)
		for _, v := range res.Values {
			combine(strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, n := range res.Ints {
			combine(strconv.Itoa(n))
		}
	}
	return fmt.Sprintf("%016x", h)
}

// OpReport is the verification outcome for a single operation.
type OpReport struct {
	Name            string          `json:"name"`
	Kind            string          `json:"kind"`
	Count           int             `json:"count"`
	Match           bool            `json:"match"`
	FirstDivergence int             `json:"first_divergence"` // -1 when the streams match
	Mean            decimal.Decimal `json:"mean"`
	Min             decimal.Decimal `json:"min"`
	Max             decimal.Decimal `json:"max"`
}

// Report is the outcome of a verification: two runs and their comparison.
type Report struct {
	Seed      uint32     `json:"seed"`
	HashSeed  string     `json:"hash_seed"`
	Match     bool       `json:"match"`
	Digest    string     `json:"digest"`
	ReplayDig string     `json:"replay_digest"`
	Ops       []OpReport `json:"ops"`
}

// Verify runs the workload twice and compares the streams. A mismatch is not
// an error; it is the report's finding.
func (r *Runner) Verify(ctx context.Context) (*Report, error) {
	first, err := r.RunOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("first run: %w", err)
	}
	second, err := r.RunOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	report := &Report{
		Seed:      r.cfg.Seed,
		HashSeed:  r.cfg.HashSeed,
		Match:     true,
		Digest:    first.Digest,
		ReplayDig: second.Digest,
	}

	for i := range first.Results {
		op := compareOp(first.Results[i], second.Results[i])
		if !op.Match {
			report.Match = false
		}
		report.Ops = append(report.Ops, op)
	}
	if first.Digest != second.Digest {
		report.Match = false
	}
	return report, nil
}

// compareOp diffs one operation's two streams and summarizes the first one.
func compareOp(a, b rng.Result) OpReport {
	rep := OpReport{
		Name:            a.Name,
		Kind:            a.Kind,
		Count:           len(a.Values) + len(a.Ints),
		Match:           true,
		FirstDivergence: -1,
	}

	for i := range a.Values {
		if i >= len(b.Values) || a.Values[i] != b.Values[i] {
			rep.Match = false
			rep.FirstDivergence = i
			break
		}
	}
	if rep.Match {
		for i := range a.Ints {
			if i >= len(b.Ints) || a.Ints[i] != b.Ints[i] {
				rep.Match = false
				rep.FirstDivergence = i
				break
			}
		}
	}

	rep.Mean, rep.Min, rep.Max = summarize(a)
	return rep
}

// summarize computes exact-decimal statistics over an operation's output.
func summarize(res rng.Result) (mean, min, max decimal.Decimal) {
	values := res.Values
	if len(values) == 0 {
		values = make([]float64, len(res.Ints))
		for i, n := range res.Ints {
			values[i] = float64(n)
		}
	}
	if len(values) == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	sum := decimal.Zero
	min = decimal.NewFromFloat(values[0])
	max = min
	for _, v := range values {
		d := decimal.NewFromFloat(v)
		sum = sum.Add(d)
		if d.LessThan(min) {
			min = d
		}
		if d.GreaterThan(max) {
			max = d
		}
	}
	mean = sum.Div(decimal.NewFromInt(int64(len(values))))
	return mean, min, max
}
