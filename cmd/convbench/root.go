package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/example/go-convbench/internal/config"
	"github.com/example/go-convbench/internal/conv"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/sched"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	var showStats bool

	cmd := &cobra.Command{
		Use:           "convbench",
		Short:         "Parallel 2-D image convolution and scheduling benchmark",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvolve(cmd.OutOrStdout(), activeCfg, showStats)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)
	cmd.Flags().BoolVar(&showStats, "show-stats", false, "Print how work units were spread over the workers")

	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newKernelCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// buildKernel validates the kernel section and constructs the kernel.
func buildKernel(kc config.KernelConfig) (*kernel.Kernel, error) {
	if err := kernel.CheckSupported(kc.Size); err != nil {
		return nil, err
	}

	filter, err := kernel.ParseFilter(kc.Filter)
	if err != nil {
		return nil, err
	}

	return kernel.Build(filter, kc.Size, kc.Sigma)
}

func execConfig(ec config.ExecConfig) (conv.ExecConfig, error) {
	return conv.NewExecConfig(ec.Threads, ec.Schedule, ec.Chunk, ec.Tile, ec.LoopOrder)
}

// runConvolve performs one convolution of cfg.Input into cfg.Output. Every
// argument is validated before the image is loaded.
func runConvolve(w io.Writer, cfg config.Config, showStats bool) error {
	if cfg.Input == "" || cfg.Output == "" {
		return errors.New("input and output files are required (-i, -o)")
	}

	if _, err := raster.FormatFromPath(cfg.Output); err != nil {
		return err
	}

	k, err := buildKernel(cfg.Kernel)
	if err != nil {
		return err
	}

	var ec conv.ExecConfig
	if !cfg.Sequential {
		if ec, err = execConfig(cfg.Exec); err != nil {
			return err
		}
	}

	fmt.Fprint(w, "=== 2D Convolution ===\n\n")
	fmt.Fprintln(w, "Loading input image...")

	src, err := raster.Load(cfg.Input)
	if err != nil {
		return err
	}
	slog.Info("loaded image", "path", cfg.Input, "width", src.Width, "height", src.Height, "channels", src.Channels)
	fmt.Fprintf(w, "Loaded image: %s (%s)\n", cfg.Input, src)

	fmt.Fprintf(w, "Creating %dx%d %s kernel...\n", k.Size, k.Size, cfg.Kernel.Filter)
	if k.Size <= 5 {
		k.Format(w)
	}

	var (
		out     *raster.Image
		stats   sched.Stats
		elapsed time.Duration
	)

	if cfg.Sequential {
		fmt.Fprint(w, "\nRunning sequential convolution...\n")

		start := time.Now()
		out, err = conv.Sequential(src, k)
		elapsed = time.Since(start)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Sequential time: %.6f seconds\n", elapsed.Seconds())
	} else {
		fmt.Fprint(w, "\nRunning parallel convolution...\n")
		ec.Format(w)
		fmt.Fprintln(w)

		start := time.Now()
		out, stats, err = conv.Parallel(src, k, ec)
		elapsed = time.Since(start)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Parallel time: %.6f seconds\n", elapsed.Seconds())
		fmt.Fprintf(w, "Threads used: %d\n", ec.Threads)

		if showStats {
			printStats(w, stats)
		}
	}
	slog.Info("convolved", "config", label(cfg, ec), "seconds", elapsed.Seconds())

	fmt.Fprint(w, "\nSaving output image...\n")
	if err := raster.Save(cfg.Output, out); err != nil {
		return err
	}
	slog.Info("saved image", "path", cfg.Output)
	fmt.Fprintf(w, "Saved image: %s\n", cfg.Output)

	fmt.Fprint(w, "\nConvolution completed successfully!\n")

	return nil
}

func label(cfg config.Config, ec conv.ExecConfig) string {
	if cfg.Sequential {
		return "sequential"
	}
	return ec.Label()
}

func printStats(w io.Writer, stats sched.Stats) {
	fmt.Fprintln(w, "Work distribution:")
	for i, u := range stats.Units {
		fmt.Fprintf(w, "  worker %2d: %6d units in %4d chunks\n", i, u, stats.Chunks[i])
	}
	fmt.Fprintf(w, "  imbalance (max/mean): %.3f\n", stats.Imbalance())
}
