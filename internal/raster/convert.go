package raster

import (
	"image"
	"image/color"
)

// FromImage copies src into an interleaved raster. Gray images give one
// channel, opaque color images three and everything else four (RGBA,
// non-premultiplied). Bounds above MaxSamples fail with ErrTooLarge.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	m, err := New(w, h, channelsOf(src))
	if err != nil {
		return nil, err
	}
	channels := m.Channels

	if g, ok := src.(*image.Gray); ok {
		for y := range h {
			row := g.Pix[y*g.Stride : y*g.Stride+w]
			copy(m.Pix[y*w:], row)
		}

		return m, nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := src.At(x, y)
			if channels == 1 {
				m.Pix[i] = color.GrayModel.Convert(c).(color.Gray).Y
				i++

				continue
			}

			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			m.Pix[i], m.Pix[i+1], m.Pix[i+2] = n.R, n.G, n.B
			if channels == 4 {
				m.Pix[i+3] = n.A
			}
			i += channels
		}
	}

	return m, nil
}

func channelsOf(src image.Image) int {
	switch src.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	}

	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}

	return 4
}

// ToImage converts m to a standard library image: *image.Gray for one
// channel, *image.RGBA for three and *image.NRGBA for two (gray+alpha) or
// four channels.
func (m *Image) ToImage() image.Image {
	rect := image.Rect(0, 0, m.Width, m.Height)
	n := m.Width * m.Height

	switch m.Channels {
	case 1:
		g := image.NewGray(rect)
		copy(g.Pix, m.Pix)

		return g
	case 3:
		out := image.NewRGBA(rect)
		for p := range n {
			copy(out.Pix[p*4:p*4+3], m.Pix[p*3:p*3+3])
			out.Pix[p*4+3] = 0xff
		}

		return out
	default:
		out := image.NewNRGBA(rect)
		for p := range n {
			src := m.Pix[p*m.Channels : (p+1)*m.Channels]
			dst := out.Pix[p*4 : p*4+4]

			switch m.Channels {
			case 2:
				dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], src[1]
			default:
				copy(dst, src[:4])
			}
		}

		return out
	}
}
