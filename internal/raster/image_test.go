package raster

import (
	"errors"
	"testing"
)

func TestNewValidatesDimensions(t *testing.T) {
	tests := []struct {
		name    string
		w, h, c int
		wantErr error
	}{
		{"ok", 4, 3, 3, nil},
		{"zero width", 0, 3, 3, ErrInvalidImage},
		{"negative height", 4, -1, 1, ErrInvalidImage},
		{"zero channels", 4, 3, 0, ErrInvalidImage},
		{"overflow", 1 << 20, 1 << 20, 4, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.w, tt.h, tt.c)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New(%d,%d,%d) error = %v; want %v", tt.w, tt.h, tt.c, err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("New: %v", err)
			}

			if len(m.Pix) != tt.w*tt.h*tt.c {
				t.Errorf("len(Pix) = %d; want %d", len(m.Pix), tt.w*tt.h*tt.c)
			}
		})
	}
}

func TestValidateBufferLength(t *testing.T) {
	m := &Image{Width: 2, Height: 2, Channels: 3, Pix: make([]uint8, 11)}
	if err := m.Validate(); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Validate() = %v; want ErrInvalidImage", err)
	}

	m.Pix = make([]uint8, 12)
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v; want nil", err)
	}

	var nilImg *Image
	if err := nilImg.Validate(); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("nil Validate() = %v; want ErrInvalidImage", err)
	}
}

func TestIndexIsInterleavedRowMajor(t *testing.T) {
	m, err := New(5, 4, 3)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Index(2, 3, 1); got != (2*5+3)*3+1 {
		t.Errorf("Index(2,3,1) = %d", got)
	}

	m.Set(3, 4, 2, 77)
	if m.Pix[len(m.Pix)-1] != 77 || m.At(3, 4, 2) != 77 {
		t.Error("Set/At did not address the last sample")
	}
}

func TestFirstDiff(t *testing.T) {
	a, _ := New(3, 2, 2)
	b := a.Clone()

	if _, ok, err := FirstDiff(a, b); ok || err != nil {
		t.Fatalf("identical images: ok=%v err=%v", ok, err)
	}

	b.Set(1, 2, 1, 9)

	d, ok, err := FirstDiff(a, b)
	if err != nil || !ok {
		t.Fatalf("FirstDiff: ok=%v err=%v", ok, err)
	}

	want := Diff{Row: 1, Col: 2, Channel: 1, Want: 0, Got: 9}
	if d != want {
		t.Errorf("diff = %+v; want %+v", d, want)
	}

	c, _ := New(2, 3, 2)
	if _, _, err := FirstDiff(a, c); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("shape mismatch error = %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	a, _ := New(2, 2, 1)
	b := a.Clone()
	b.Pix[0] = 1

	if a.Pix[0] != 0 {
		t.Error("Clone shares the pixel buffer")
	}
}
