// Package raster holds 8-bit interleaved images and moves them between
// memory, files and the standard library image types.
//
// Samples are stored row-major and interleaved by channel:
//
//	index = (row*Width + col)*Channels + channel
package raster

import (
	"errors"
	"fmt"
	"math"
)

// MaxSamples bounds the sample buffer of a single image.
const MaxSamples = math.MaxInt32

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrTooLarge     = errors.New("image too large")
)

// Image is a width x height raster with Channels interleaved 8-bit samples
// per pixel.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed image.
func New(width, height, channels int) (*Image, error) {
	n, err := sampleCount(width, height, channels)
	if err != nil {
		return nil, err
	}

	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, n),
	}, nil
}

func sampleCount(width, height, channels int) (int, error) {
	if width < 1 || height < 1 || channels < 1 {
		return 0, fmt.Errorf("%w: dimensions %dx%dx%d must be positive", ErrInvalidImage, width, height, channels)
	}

	if width > MaxSamples/height || width*height > MaxSamples/channels {
		return 0, fmt.Errorf("%w: %dx%dx%d exceeds %d samples", ErrTooLarge, width, height, channels, MaxSamples)
	}

	return width * height * channels, nil
}

// Validate checks the dimensions and that the buffer length matches them.
func (m *Image) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}

	n, err := sampleCount(m.Width, m.Height, m.Channels)
	if err != nil {
		return err
	}

	if len(m.Pix) != n {
		return fmt.Errorf("%w: buffer has %d samples, want %d", ErrInvalidImage, len(m.Pix), n)
	}

	return nil
}

// Index returns the buffer offset of (row, col, ch).
func (m *Image) Index(row, col, ch int) int {
	return (row*m.Width+col)*m.Channels + ch
}

// At returns the sample at (row, col, ch).
func (m *Image) At(row, col, ch int) uint8 { return m.Pix[m.Index(row, col, ch)] }

// Set stores v at (row, col, ch).
func (m *Image) Set(row, col, ch int, v uint8) { m.Pix[m.Index(row, col, ch)] = v }

// SameShape reports whether m and o have identical dimensions.
func (m *Image) SameShape(o *Image) bool {
	return m.Width == o.Width && m.Height == o.Height && m.Channels == o.Channels
}

// Clone returns a deep copy of m.
func (m *Image) Clone() *Image {
	c := *m
	c.Pix = append([]uint8(nil), m.Pix...)

	return &c
}

func (m *Image) String() string {
	return fmt.Sprintf("%dx%d, %d channels", m.Width, m.Height, m.Channels)
}

// Diff locates the first sample where a and b disagree.
type Diff struct {
	Row, Col, Channel int
	Want, Got         uint8
}

func (d Diff) String() string {
	return fmt.Sprintf("(row %d, col %d, ch %d): want %d, got %d", d.Row, d.Col, d.Channel, d.Want, d.Got)
}

// FirstDiff compares want and got sample by sample. ok is false when they
// are identical. Images of different shape report an error.
func FirstDiff(want, got *Image) (d Diff, ok bool, err error) {
	if !want.SameShape(got) {
		return Diff{}, false, fmt.Errorf("%w: shape %s vs %s", ErrInvalidImage, want, got)
	}

	for i := range want.Pix {
		if want.Pix[i] == got.Pix[i] {
			continue
		}

		px := i / want.Channels

		return Diff{
			Row:     px / want.Width,
			Col:     px % want.Width,
			Channel: i % want.Channels,
			Want:    want.Pix[i],
			Got:     got.Pix[i],
		}, true, nil
	}

	return Diff{}, false, nil
}
