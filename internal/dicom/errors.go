package dicom

import (
	"errors"

	"github.com/mrsinham/jpeg2dcm/internal/imaging"
)

// Conversion error kinds. Errors returned by this package and by
// internal/convert wrap exactly one of these; match them with errors.Is.
var (
	// ErrImageDecode means the source image is missing or not decodable.
	ErrImageDecode = imaging.ErrDecode
	// ErrUnsupportedColorMode means the image is not 8-bit grayscale or 8-bit RGB.
	ErrUnsupportedColorMode = imaging.ErrUnsupportedColorMode
	// ErrIdentifierGeneration means a fresh UID or token could not be produced.
	ErrIdentifierGeneration = errors.New("identifier generation failed")
	// ErrDestinationUnwritable means the output file could not be created or replaced.
	ErrDestinationUnwritable = errors.New("destination unwritable")
	// ErrEncodingOverflow means a value does not fit its VR or length field.
	ErrEncodingOverflow = errors.New("encoding overflow")
	// ErrInconsistentDataset means the file meta header and dataset disagree.
	ErrInconsistentDataset = errors.New("inconsistent dataset")
)

// Retryable reports whether retrying the same conversion may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrIdentifierGeneration)
}

// Kind returns the conversion error kind wrapped by err, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrImageDecode,
		ErrUnsupportedColorMode,
		ErrIdentifierGeneration,
		ErrDestinationUnwritable,
		ErrEncodingOverflow,
		ErrInconsistentDataset,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
