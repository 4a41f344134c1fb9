// Package imaging decodes raster images into the raw 8-bit sample layout
// stored in DICOM pixel data.
package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when the source image is missing or cannot be decoded.
	ErrDecode = errors.New("image decode failed")
	// ErrUnsupportedColorMode is returned for sample layouts other than
	// 8-bit grayscale and 8-bit RGB.
	ErrUnsupportedColorMode = errors.New("unsupported color mode")
)

// ColorMode is the pixel sample layout of a decoded image.
type ColorMode int

const (
	// Grayscale8 is one unsigned 8-bit sample per pixel.
	Grayscale8 ColorMode = iota + 1
	// RGB8 is three interleaved unsigned 8-bit samples per pixel.
	RGB8
)

// String returns the string representation of a ColorMode.
func (m ColorMode) String() string {
	switch m {
	case Grayscale8:
		return "Grayscale8"
	case RGB8:
		return "RGB8"
	default:
		return fmt.Sprintf("ColorMode(%d)", int(m))
	}
}

// IsValid reports whether m is one of the supported modes.
func (m ColorMode) IsValid() bool {
	return m == Grayscale8 || m == RGB8
}

// SamplesPerPixel returns 1 for Grayscale8, 3 for RGB8 and 0 otherwise.
func (m ColorMode) SamplesPerPixel() int {
	switch m {
	case Grayscale8:
		return 1
	case RGB8:
		return 3
	default:
		return 0
	}
}

// Facts describes a decoded image. Pixels are row-major, interleaved for RGB8.
type Facts struct {
	Width  int
	Height int
	Mode   ColorMode
	Pixels []byte

	// Format is the registered decoder name ("jpeg", "png", ...), informational only.
	Format string
}

// Validate checks the mode and that len(Pixels) == Width*Height*SamplesPerPixel.
func (f Facts) Validate() error {
	if !f.Mode.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedColorMode, f.Mode)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", f.Width, f.Height)
	}
	want := f.Width * f.Height * f.Mode.SamplesPerPixel()
	if len(f.Pixels) != want {
		return fmt.Errorf("pixel data is %d bytes, %dx%d %s needs %d", len(f.Pixels), f.Width, f.Height, f.Mode, want)
	}
	return nil
}
