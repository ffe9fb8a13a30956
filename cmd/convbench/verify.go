package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/go-convbench/internal/config"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/verify"
	"github.com/spf13/cobra"
)

// Size of the synthetic image verified when no input is given.
const (
	verifyWidth  = 257
	verifyHeight = 131
)

func newVerifyCmd() *cobra.Command {
	var (
		quiet bool
		sizes []int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every scheduling strategy against the sequential baseline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.OutOrStdout(), cmd.ErrOrStderr(), activeCfg, sizes, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print failures and per-kernel summaries")
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "Kernel sizes to verify (default: the configured kernel size)")

	return cmd
}

func runVerify(stdout, stderr io.Writer, cfg config.Config, sizes []int, quiet bool) error {
	if len(sizes) == 0 {
		sizes = []int{cfg.Kernel.Size}
	}

	kernels := make([]*kernel.Kernel, 0, len(sizes))
	for _, size := range sizes {
		kc := cfg.Kernel
		kc.Size = size

		k, err := buildKernel(kc)
		if err != nil {
			return err
		}
		kernels = append(kernels, k)
	}

	src, name, err := verifyImage(cfg.Input)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "image: %s (%s)\n", name, src)

	vcfg := verify.DefaultGrid()
	vcfg.Image = src
	vcfg.Kernels = kernels
	vcfg.Quiet = quiet

	result := verify.Run(vcfg, stdout)
	if result.Failed() {
		for _, f := range result.Failures() {
			_, _ = fmt.Fprintf(stderr, "FAIL: %s\n", f)
		}

		return errors.New("verify: parallel output differs from sequential")
	}

	_, _ = fmt.Fprintf(stdout, "verify passed: %d configurations\n", result.Checks())

	return nil
}

// verifyImage loads path, or generates the composite test pattern when path
// is empty.
func verifyImage(path string) (*raster.Image, string, error) {
	if path == "" {
		img, err := raster.Generate(raster.PatternComposite, verifyWidth, verifyHeight)
		if err != nil {
			return nil, "", err
		}
		return img, string(raster.PatternComposite), nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("%w: %w", raster.ErrLoad, err)
	}

	img, err := raster.Load(path)
	if err != nil {
		return nil, "", err
	}
	return img, path, nil
}
