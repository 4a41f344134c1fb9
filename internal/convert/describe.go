package convert

import "github.com/mrsinham/jpeg2dcm/internal/dicom"

// Describe returns a short message for err that tells the user what to fix.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch dicom.Kind(err) {
	case dicom.ErrImageDecode:
		return "the input could not be read as a JPEG image"
	case dicom.ErrUnsupportedColorMode:
		return "only 8-bit grayscale and 8-bit RGB images can be converted"
	case dicom.ErrIdentifierGeneration:
		return "could not generate unique identifiers, try again"
	case dicom.ErrDestinationUnwritable:
		return "the output file could not be written, check the path and permissions"
	case dicom.ErrEncodingOverflow:
		return "a value is too long or uses characters DICOM cannot store"
	case dicom.ErrInconsistentDataset:
		return "internal error: the generated dataset is inconsistent"
	}
	return err.Error()
}
