package output

import (
	"bytes"
	"fmt"

	"github.com/reprogo/determinism-harness/internal/verify"
)

// ConsoleFormatter renders a concise plain-text verification summary.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }

func (c ConsoleFormatter) Format(report *verify.Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "REPRODUCIBILITY VERIFICATION")
	fmt.Fprintln(&buf, "============================")
	fmt.Fprintf(&buf, "Seed: %d  Hash seed: %s\n", report.Seed, report.HashSeed)
	fmt.Fprintf(&buf, "Digest: %s\n", report.Digest)
	fmt.Fprintf(&buf, "Replay: %s\n", report.ReplayDig)
	fmt.Fprintln(&buf)

	for _, op := range report.Ops {
		status := "match"
		if !op.Match {
			status = fmt.Sprintf("DIVERGED at index %d", op.FirstDivergence)
		}
		fmt.Fprintf(&buf, "%s (%s, n=%d): %s\n", op.Name, op.Kind, op.Count, status)
		fmt.Fprintf(&buf, "  mean=%s min=%s max=%s\n",
			op.Mean.StringFixed(12), op.Min.StringFixed(12), op.Max.StringFixed(12))
	}

	fmt.Fprintln(&buf)
	if report.Match {
		fmt.Fprintln(&buf, "Result: bit-identical across runs")
	} else {
		fmt.Fprintln(&buf, "Result: NON-DETERMINISTIC output detected")
	}
	return buf.Bytes(), nil
}
