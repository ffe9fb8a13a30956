package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/go-convbench/internal/raster"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic test images",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "images", "Output directory")
	cmd.Flags().IntVar(&opts.Size, "size", 2048, "Side length of the main images")
	cmd.Flags().IntVar(&opts.SmallSize, "small-size", 512, "Side length of input_small")
	cmd.Flags().StringVar(&opts.Ext, "ext", "png", "Image file extension")

	return cmd
}

type generateOptions struct {
	Dir       string
	Size      int
	SmallSize int
	Ext       string
}

func runGenerate(w io.Writer, opts generateOptions) error {
	if opts.Size < 1 || opts.SmallSize < 1 {
		return fmt.Errorf("image sizes must be positive, got %d and %d", opts.Size, opts.SmallSize)
	}

	dir, err := homedir.Expand(opts.Dir)
	if err != nil {
		return fmt.Errorf("expand output dir: %w", err)
	}

	path := func(name string) string { return filepath.Join(dir, name+"."+opts.Ext) }
	if _, err := raster.FormatFromPath(path("input")); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	save := func(name string, img *raster.Image) error {
		p := path(name)
		if err := raster.Save(p, img); err != nil {
			return err
		}
		slog.Debug("generated image", "path", p, "width", img.Width, "height", img.Height)
		_, _ = fmt.Fprintf(w, "  Saved: %s\n", p)
		return nil
	}

	_, _ = fmt.Fprintf(w, "Creating main test image (%dx%d)...\n", opts.Size, opts.Size)
	input, err := raster.Generate(raster.PatternComposite, opts.Size, opts.Size)
	if err != nil {
		return err
	}
	if err := save("input", input); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Creating small test image (%dx%d)...\n", opts.SmallSize, opts.SmallSize)
	small, err := raster.Resize(input, opts.SmallSize, opts.SmallSize)
	if err != nil {
		return err
	}
	if err := save("input_small", small); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w, "Creating additional test patterns...")
	for _, p := range raster.Patterns() {
		if p == raster.PatternComposite {
			continue
		}

		img, err := raster.Generate(p, opts.Size, opts.Size)
		if err != nil {
			return err
		}
		if err := save(string(p), img); err != nil {
			return err
		}
	}

	return nil
}
