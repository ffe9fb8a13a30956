package main

import (
	"fmt"
	"io"

	"github.com/example/go-convbench/internal/config"
	"github.com/spf13/cobra"
)

func newKernelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kernel",
		Short: "Print the configured convolution kernel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKernel(cmd.OutOrStdout(), activeCfg.Kernel)
		},
	}
}

func runKernel(w io.Writer, kc config.KernelConfig) error {
	k, err := buildKernel(kc)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Filter: %s\n", kc.Filter)
	k.Format(w)
	_, _ = fmt.Fprintf(w, "Sum: %.6f\n", k.Sum())

	return nil
}
