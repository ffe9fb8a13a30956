package raster

import (
	"fmt"
	"math/rand/v2"

	"github.com/nfnt/resize"
)

// Pattern names a synthetic test image.
type Pattern string

const (
	PatternComposite    Pattern = "composite"
	PatternCheckerboard Pattern = "checkerboard"
	PatternStripesH     Pattern = "stripes_horizontal"
	PatternStripesV     Pattern = "stripes_vertical"
	PatternGradient     Pattern = "gradient"
)

// Patterns lists every synthetic pattern.
func Patterns() []Pattern {
	return []Pattern{PatternComposite, PatternCheckerboard, PatternStripesH, PatternStripesV, PatternGradient}
}

// Generate renders a three-channel test image of the given pattern.
func Generate(p Pattern, width, height int) (*Image, error) {
	m, err := New(width, height, 3)
	if err != nil {
		return nil, err
	}

	switch p {
	case PatternComposite:
		drawComposite(m)
	case PatternCheckerboard:
		drawCheckerboard(m, 64)
	case PatternStripesH:
		drawStripes(m, 32, false)
	case PatternStripesV:
		drawStripes(m, 32, true)
	case PatternGradient:
		for y := range height {
			for x := range width {
				v := uint8(255 * x / width)
				m.setRGB(y, x, v, v, v)
			}
		}
	default:
		return nil, fmt.Errorf("unknown pattern %q", p)
	}

	return m, nil
}

// Noise returns an image of uniformly random samples. The same seed always
// produces the same image.
func Noise(width, height, channels int, seed uint64) (*Image, error) {
	m, err := New(width, height, channels)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range m.Pix {
		m.Pix[i] = uint8(rng.UintN(256))
	}

	return m, nil
}

// Resize scales m to width x height with Lanczos resampling.
func Resize(m *Image, width, height int) (*Image, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidImage, width, height)
	}

	scaled, err := FromImage(resize.Resize(uint(width), uint(height), m.ToImage(), resize.Lanczos3))
	if err != nil {
		return nil, err
	}
	if scaled.Channels == m.Channels {
		return scaled, nil
	}

	// Opaque RGBA input comes back with three channels and gray+alpha input
	// as RGBA; map the samples back onto the original channel layout.
	out, err := New(width, height, m.Channels)
	if err != nil {
		return nil, err
	}

	for p := range width * height {
		src := scaled.Pix[p*scaled.Channels : (p+1)*scaled.Channels]
		dst := out.Pix[p*m.Channels : (p+1)*m.Channels]

		gray, alpha := src[0], uint8(255)
		if len(src) == 4 {
			alpha = src[3]
		}

		switch m.Channels {
		case 1:
			dst[0] = gray
		case 2:
			dst[0], dst[1] = gray, alpha
		default:
			for c := range dst {
				switch {
				case c < 3 && c < len(src):
					dst[c] = src[c]
				case c < 3:
					dst[c] = gray
				default:
					dst[c] = alpha
				}
			}
		}
	}

	return out, nil
}

func (m *Image) setRGB(row, col int, r, g, b uint8) {
	if row < 0 || row >= m.Height || col < 0 || col >= m.Width {
		return
	}

	i := m.Index(row, col, 0)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = r, g, b
}

func drawCheckerboard(m *Image, square int) {
	for y := range m.Height {
		for x := range m.Width {
			if (x/square+y/square)%2 == 0 {
				m.setRGB(y, x, 255, 255, 255)
			}
		}
	}
}

func drawStripes(m *Image, stripe int, vertical bool) {
	for y := range m.Height {
		for x := range m.Width {
			pos := y
			if vertical {
				pos = x
			}

			if pos%(2*stripe) < stripe {
				m.setRGB(y, x, 255, 255, 255)
			}
		}
	}
}

// drawComposite renders a red/green gradient with circles, squares and
// diagonal lines. Shape sizes are relative to a 2048x2048 canvas.
func drawComposite(m *Image) {
	w, h := m.Width, m.Height
	scale := func(v int) int { return max(1, v*min(w, h)/2048) }

	for y := range h {
		for x := range w {
			m.setRGB(y, x, uint8(255*x/w), uint8(255*y/h), 128)
		}
	}

	radius := scale(100)
	border := scale(3)

	for i := range 5 {
		cx, cy := w/6*(i+1), h/3
		fill := [3]uint8{uint8(255 - i*50), uint8(i * 50), 128}

		for y := cy - radius - border; y <= cy+radius+border; y++ {
			for x := cx - radius - border; x <= cx+radius+border; x++ {
				d2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
				switch {
				case d2 <= radius*radius:
					m.setRGB(y, x, fill[0], fill[1], fill[2])
				case d2 <= (radius+border)*(radius+border):
					m.setRGB(y, x, 255, 255, 255)
				}
			}
		}
	}

	side := scale(150)

	for i := range 5 {
		x0 := w/6*i + scale(50)
		y0 := h*2/3 - scale(100)
		fill := [3]uint8{uint8(i * 50), uint8(255 - i*50), 200}

		for y := y0; y <= y0+side; y++ {
			for x := x0; x <= x0+side; x++ {
				edge := x-x0 < border || x0+side-x < border || y-y0 < border || y0+side-y < border
				if edge {
					m.setRGB(y, x, 0, 0, 0)
				} else {
					m.setRGB(y, x, fill[0], fill[1], fill[2])
				}
			}
		}
	}

	lineWidth := scale(2)

	for i := range 10 {
		x1, x2 := i*w/10, w-i*w/10

		var v uint8
		if i%2 == 0 {
			v = 255
		}

		for y := range h {
			x := x1 + (x2-x1)*y/h
			for dx := range lineWidth {
				m.setRGB(y, x+dx, v, v, v)
			}
		}
	}
}
