package sched

// Rect is a half-open pixel rectangle [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Dx returns the rectangle width.
func (r Rect) Dx() int { return r.X1 - r.X0 }

// Dy returns the rectangle height.
func (r Rect) Dy() int { return r.Y1 - r.Y0 }

// Area returns the number of pixels covered by r.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}

	return r.Dx() * r.Dy()
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }

// Space is an ordered sequence of disjoint rectangles that together cover an
// image exactly once. Each rectangle is one schedulable unit.
type Space interface {
	Len() int
	Unit(i int) Rect
}

type rowSpace struct{ width, height int }

// Rows returns the row-major space: unit i is row i.
func Rows(width, height int) Space { return rowSpace{width: width, height: height} }

func (s rowSpace) Len() int { return s.height }

func (s rowSpace) Unit(i int) Rect { return Rect{X0: 0, Y0: i, X1: s.width, Y1: i + 1} }

type columnSpace struct{ width, height int }

// Columns returns the column-major space: unit i is column i.
func Columns(width, height int) Space { return columnSpace{width: width, height: height} }

func (s columnSpace) Len() int { return s.width }

func (s columnSpace) Unit(i int) Rect { return Rect{X0: i, Y0: 0, X1: i + 1, Y1: s.height} }

// TileSpace is the grid of square tiles covering an image. Tiles are
// numbered row-major over the grid; edge tiles are clipped to the image.
type TileSpace struct {
	Width, Height int
	Size          int
	NumX, NumY    int
}

// Tiles returns the tile grid for a width x height image. A size below 1
// is treated as 1.
func Tiles(width, height, size int) TileSpace {
	if size < 1 {
		size = 1
	}

	return TileSpace{
		Width:  width,
		Height: height,
		Size:   size,
		NumX:   (width + size - 1) / size,
		NumY:   (height + size - 1) / size,
	}
}

func (s TileSpace) Len() int { return s.NumX * s.NumY }

func (s TileSpace) Unit(i int) Rect {
	ty, tx := i/s.NumX, i%s.NumX
	x0, y0 := tx*s.Size, ty*s.Size

	return Rect{
		X0: x0,
		Y0: y0,
		X1: min(x0+s.Size, s.Width),
		Y1: min(y0+s.Size, s.Height),
	}
}

// NewSpace picks the iteration space for an image: the tile grid when
// tile > 0, otherwise rows or columns according to order.
func NewSpace(width, height, tile int, order LoopOrder) Space {
	switch {
	case tile > 0:
		return Tiles(width, height, tile)
	case order == ColumnMajor:
		return Columns(width, height)
	default:
		return Rows(width, height)
	}
}
