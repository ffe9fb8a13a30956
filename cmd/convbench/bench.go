package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/example/go-convbench/internal/bench"
	"github.com/example/go-convbench/internal/config"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time parallel strategies against the sequential baseline",
		Long: "Runs the configured strategy, or a sweep over one parameter, several times\n" +
			"and reports min/mean/max time, speedup and efficiency versus the sequential\n" +
			"baseline. Every run is checked for byte equality with the baseline.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchCmd(cmd.Context(), cmd.OutOrStdout(), activeCfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Sweep, "sweep", "", "Sweep one axis: threads|schedule|chunk|tile|order|kernel")
	cmd.Flags().DurationVar(&opts.MaxTime, "max-time", 0, "Exit non-zero if any mean run time exceeds this value (0 = disabled)")
	cmd.Flags().StringVar(&opts.CPUProfile, "cpuprofile", "", "Write a CPU profile labelled per strategy")

	return cmd
}

type benchOptions struct {
	Sweep      string
	MaxTime    time.Duration
	CPUProfile string
}

func runBenchCmd(ctx context.Context, w io.Writer, cfg config.Config, opts benchOptions) (err error) {
	if strings.TrimSpace(cfg.Input) == "" {
		return errors.New("--input is required for bench")
	}
	switch cfg.Bench.Format {
	case "table", "json", "csv":
	default:
		return fmt.Errorf("--format must be 'table', 'json' or 'csv', got %q", cfg.Bench.Format)
	}

	axis, err := bench.ParseAxis(opts.Sweep)
	if err != nil {
		return err
	}

	filter, err := kernel.ParseFilter(cfg.Kernel.Filter)
	if err != nil {
		return err
	}
	k, err := buildKernel(cfg.Kernel)
	if err != nil {
		return err
	}
	ec, err := execConfig(cfg.Exec)
	if err != nil {
		return err
	}

	cases, err := bench.Sweep(axis, bench.Case{Kernel: k, Exec: ec}, func(size int) (*kernel.Kernel, error) {
		return kernel.Build(filter, size, cfg.Kernel.Sigma)
	})
	if err != nil {
		return err
	}

	src, err := raster.Load(cfg.Input)
	if err != nil {
		return err
	}
	slog.Info("loaded image", "path", cfg.Input, "width", src.Width, "height", src.Height, "channels", src.Channels)

	runner, err := bench.NewRunner(src, bench.Options{
		Runs:   cfg.Bench.Runs,
		Warmup: cfg.Bench.Warmup,
		Logger: slog.Default(),
	})
	if err != nil {
		return err
	}

	if opts.CPUProfile != "" {
		stop, profErr := bench.StartCPUProfile(opts.CPUProfile)
		if profErr != nil {
			return profErr
		}
		defer func() {
			if stopErr := stop(); stopErr != nil && err == nil {
				err = stopErr
			}
		}()
	}

	rep := bench.NewReport(fmt.Sprintf("%s (%s)", cfg.Input, src), axis)

	measured := make(map[*kernel.Kernel]bool)
	for _, c := range cases {
		if !measured[c.Kernel] {
			measured[c.Kernel] = true

			res, err := runner.Measure(ctx, bench.Case{Kernel: c.Kernel, Sequential: true})
			if err != nil {
				return err
			}
			rep.Add(res)
		}

		res, err := runner.Measure(ctx, c)
		if err != nil {
			return err
		}
		slog.Info("measured", "config", res.Label, "kernel", res.KernelSize, "mean_ms", res.Stats.Mean.Seconds()*1000, "speedup", res.Speedup)
		rep.Add(res)
	}

	if err := bench.Write(rep, cfg.Bench.Format, w); err != nil {
		return err
	}

	if bad := rep.Mismatches(); len(bad) > 0 {
		return fmt.Errorf("output differs from sequential for: %s", strings.Join(bad, ", "))
	}

	return rep.CheckTimeThreshold(opts.MaxTime)
}
