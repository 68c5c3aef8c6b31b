package rng

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Device identifies where a context evaluates operations.
type Device int

const (
	// CPU is the only device a deterministic context may use.
	CPU Device = iota
	// Accelerator is any non-CPU device; contexts reject it when device
	// visibility has been restricted.
	Accelerator
)

// String returns the device name.
func (d Device) String() string {
	if d == CPU {
		return "cpu"
	}
	return "accelerator"
}

// Context evaluates a graph's operations. Creating a context freezes the
// thread pool it was given; the pool sizes it observed at creation apply for
// its whole lifetime. Contexts are cheap and disposable, and discarding one
// does not reset any seed.
type Context struct {
	device Device
	cfg    ThreadConfig
}

// ContextOptions configures context creation.
type ContextOptions struct {
	// Device defaults to CPU.
	Device Device
	// Pool defaults to the process-wide pool.
	Pool *ThreadPool
	// AllowAccelerator must be set for a non-CPU device; the harness
	// leaves it false once device visibility has been restricted.
	AllowAccelerator bool
}

// NewContext creates an execution context and freezes its thread pool.
func NewContext(opts ContextOptions) (*Context, error) {
	if opts.Device != CPU && !opts.AllowAccelerator {
		return nil, fmt.Errorf("device %s is not visible; computation is restricted to cpu", opts.Device)
	}
	pool := opts.Pool
	if pool == nil {
		pool = defaultPool
	}
	return &Context{device: opts.Device, cfg: pool.freeze()}, nil
}

// Device returns the context's device.
func (c *Context) Device() Device { return c.device }

// Threads returns the thread configuration the context runs with.
func (c *Context) Threads() ThreadConfig { return c.cfg }

// Result is one operation's evaluation output. Values is populated for
// uniform and normal operations, Ints for permutations.
type Result struct {
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	Values []float64 `json:"values,omitempty"`
	Ints   []int     `json:"ints,omitempty"`
}

// Eval evaluates the given operations and returns one result per operation,
// in argument order. Up to InterOp operations run concurrently; each
// operation's draws stay sequential on its own generator, and transforms are
// applied per result slot, so the output is identical for any thread counts.
func (c *Context) Eval(ctx context.Context, ops ...*Op) ([]Result, error) {
	results := make([]Result, len(ops))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.InterOp)

	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev := op.draw()
			if op.transform != nil {
				c.applyTransform(ev.Values, op.transform)
			}
			results[i] = Result{
				Name:   ev.Name,
				Kind:   ev.Kind.String(),
				Values: ev.Values,
				Ints:   ev.Ints,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyTransform maps f over values using up to IntraOp workers. Each slot
// is computed independently, so chunking cannot change the output.
func (c *Context) applyTransform(values []float64, f func(float64) float64) {
	workers := c.cfg.IntraOp
	if workers <= 1 || len(values) < 2*workers {
		for i, v := range values {
			values[i] = f(v)
		}
		return
	}

	var g errgroup.Group
	chunk := (len(values) + workers - 1) / workers
	for start := 0; start < len(values); start += chunk {
		end := start + chunk
		if end > len(values) {
			end = len(values)
		}
		part := values[start:end]
		g.Go(func() error {
			for i, v := range part {
				part[i] = f(v)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}
