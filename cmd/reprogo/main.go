// Command reprogo runs stochastic workloads under the determinism harness
// and verifies that their output is reproducible bit for bit.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/reprogo/determinism-harness/internal/config"
	"github.com/reprogo/determinism-harness/internal/harness"
	"github.com/reprogo/determinism-harness/internal/output"
	"github.com/reprogo/determinism-harness/internal/rng"
	"github.com/reprogo/determinism-harness/internal/verify"
	"github.com/reprogo/determinism-harness/pkg/fsutil"
)

// envDocs describes the launch environment variables, appended to help text.
var envDocs = []struct{ name, description string }{
	{harness.HashSeedVar, "Launch-time hash seed; required, cannot be changed at runtime"},
	{"REPRO_SEED", "Seed applied to every random source"},
	{harness.VisibleDevicesVar, "Comma-separated accelerator list; empty restricts to CPU"},
	{"REPRO_INTRA_OP_THREADS", "Workers inside one operation (default 1)"},
	{"REPRO_INTER_OP_THREADS", "Operations evaluated concurrently (default 1)"},
}

func appendEnvDocs(cmd *cobra.Command) {
	usage := "\nEnvironment Variables:\n"
	for _, e := range envDocs {
		usage += fmt.Sprintf("      %-26s %s\n", e.name, e.description)
	}
	cmd.SetUsageTemplate(cmd.UsageTemplate() + usage)
}

// loadConfig reads the config file when given, otherwise builds one from the
// environment and flags.
func loadConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	parser := config.NewParser()

	path, _ := cmd.Flags().GetString("config")
	var cfg *config.RunConfig
	var err error
	if path != "" {
		cfg, err = parser.LoadFromFile(path)
	} else {
		cfg, err = parser.Default()
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint32("seed")
		cfg.Seed = seed
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) harness.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		return harness.SlogLogger{L: slog.New(h)}
	}
	return harness.NopLogger{}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the configured workload once and print its output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			run, err := verify.NewRunner(cfg, newLogger(cmd)).RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the workload twice and prove bit-identical output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			report, err := verify.NewRunner(cfg, newLogger(cmd)).Verify(cmd.Context())
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			data, err := output.Render(report, format)
			if err != nil {
				return err
			}
			cmd.Print(string(data))

			if !report.Match {
				return fmt.Errorf("workload output is not reproducible")
			}
			return nil
		},
	}
	cmd.Flags().String("format", "console", "Output format (console, json)")
	return cmd
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the effective deterministic environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			h, err := harness.New(harness.Options{
				Seed:           cfg.Seed,
				HashSeed:       cfg.HashSeed,
				IntraOpThreads: cfg.Threads.IntraOp,
				InterOpThreads: cfg.Threads.InterOp,
				VisibleDevices: cfg.VisibleDevices,
				Pool:           rng.NewThreadPool(),
				Logger:         newLogger(cmd),
			})
			if err != nil {
				return err
			}
			if err := h.Init(); err != nil {
				return err
			}

			cmd.Println(h.Describe())
			return nil
		},
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <directory>",
		Short: "List a directory in stable lexicographic order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := fsutil.StableListing(args[0])
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

// NewCLI builds the root command with all subcommands.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "reprogo",
		Short:         "Deterministic execution harness for stochastic workloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML run configuration")
	rootCmd.PersistentFlags().Uint32("seed", 0, "Override the configured seed")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newVerifyCmd(),
		newEnvCmd(),
		newLsCmd(),
	)
	appendEnvDocs(rootCmd)
	return rootCmd
}

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
