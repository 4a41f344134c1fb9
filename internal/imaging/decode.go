package imaging

import (
	"fmt"
	"image"
	"os"

	// Decoders registered with the image package.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode opens path and decodes it into Facts.
//
// JPEG is the primary input; PNG, BMP, TIFF and WebP are accepted through the
// same registry. Missing files and undecodable data wrap ErrDecode, sample
// layouts other than 8-bit gray or opaque 8-bit color wrap
// ErrUnsupportedColorMode.
func Decode(path string) (Facts, error) {
	f, err := os.Open(path)
	if err != nil {
		return Facts{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer func() { _ = f.Close() }()

	img, format, err := image.Decode(f)
	if err != nil {
		return Facts{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	facts, err := FromImage(img)
	if err != nil {
		return Facts{}, fmt.Errorf("%s: %w", path, err)
	}
	facts.Format = format
	return facts, nil
}

// ClassifyColorMode maps a decoded image to a supported ColorMode.
func ClassifyColorMode(img image.Image) (ColorMode, error) {
	switch src := img.(type) {
	case *image.Gray:
		return Grayscale8, nil
	case *image.YCbCr:
		return RGB8, nil
	case *image.RGBA:
		if src.Opaque() {
			return RGB8, nil
		}
		return 0, fmt.Errorf("%w: RGBA image with transparency", ErrUnsupportedColorMode)
	case *image.NRGBA:
		if src.Opaque() {
			return RGB8, nil
		}
		return 0, fmt.Errorf("%w: NRGBA image with transparency", ErrUnsupportedColorMode)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedColorMode, img)
	}
}

// FromImage extracts raw samples from img. Rows are packed without padding
// starting at the top-left of the image bounds.
func FromImage(img image.Image) (Facts, error) {
	mode, err := ClassifyColorMode(img)
	if err != nil {
		return Facts{}, err
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return Facts{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	facts := Facts{Width: width, Height: height, Mode: mode}
	switch mode {
	case Grayscale8:
		facts.Pixels = packGray(img.(*image.Gray))
	case RGB8:
		facts.Pixels = packRGB(img)
	}
	return facts, nil
}

func packGray(src *image.Gray) []byte {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	out := make([]byte, width*height)
	for y := 0; y < height; y++ {
		start := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*width:(y+1)*width], src.Pix[start:start+width])
	}
	return out
}

func packRGB(img image.Image) []byte {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	rgba, ok := img.(*image.RGBA)
	if !ok {
		// YCbCr and NRGBA are normalized through an RGBA canvas
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	rb := rgba.Bounds()
	out := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		row := rgba.PixOffset(rb.Min.X, rb.Min.Y+y)
		for x := 0; x < width; x++ {
			s := row + x*4
			d := (y*width + x) * 3
			out[d] = rgba.Pix[s]
			out[d+1] = rgba.Pix[s+1]
			out[d+2] = rgba.Pix[s+2]
		}
	}
	return out
}
