package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

// JPEGQuality is the quality used when writing .jpg/.jpeg files.
const JPEGQuality = 90

var (
	ErrLoad              = errors.New("image load failed")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Format is an output container selected from a file extension.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatWebP Format = "webp"
)

// FormatFromPath maps a file extension (case-insensitive) to a Format.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".webp":
		return FormatWebP, nil
	case "":
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Load reads and decodes the image at path. Any failure wraps ErrLoad.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return img, nil
}

// Decode decodes any registered format (PNG, JPEG, BMP, TIFF, WebP) and
// returns the raster together with the detected format name. Images whose
// header declares more than MaxSamples samples fail with ErrTooLarge before
// any pixel data is read.
func Decode(r io.Reader) (*Image, string, error) {
	var head bytes.Buffer

	hdr, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if _, err := sampleCount(hdr.Width, hdr.Height, 1); errors.Is(err, ErrTooLarge) {
		return nil, "", err
	}

	src, name, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if src.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: empty image", ErrLoad)
	}

	img, err := FromImage(src)
	if err != nil {
		return nil, "", err
	}

	return img, name, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img *Image, format Format) error {
	if err := img.Validate(); err != nil {
		return err
	}

	if img.Channels > 4 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, img.Channels)
	}

	m := img.ToImage()

	switch format {
	case FormatPNG:
		return png.Encode(w, m)
	case FormatJPEG:
		return jpeg.Encode(w, m, &jpeg.Options{Quality: JPEGQuality})
	case FormatBMP:
		return bmp.Encode(w, m)
	case FormatTIFF:
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	case FormatWebP:
		return nativewebp.Encode(w, m, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

// Save encodes img into path using the format implied by its extension.
// The file is written to a temporary sibling first and renamed into place,
// so a failed save never leaves a partial file behind.
func Save(path string, img *Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := Encode(tmp, img, format); err != nil {
		_ = tmp.Close()
		cleanup()

		return fmt.Errorf("encode %s: %w", format, err)
	}

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()

		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename output: %w", err)
	}

	return nil
}
