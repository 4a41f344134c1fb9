package dicom

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Specific Character Set defined terms written by the builder.
const (
	CharsetLatin1 = "ISO_IR 100"
	CharsetUTF8   = "ISO_IR 192"
)

// SelectCharacterSet returns the SpecificCharacterSet value needed to encode
// values, or "" when they are all in the default repertoire.
func SelectCharacterSet(values ...string) string {
	charset := ""
	for _, v := range values {
		if isASCII(v) {
			continue
		}
		if _, err := charmap.ISO8859_1.NewEncoder().String(v); err != nil {
			return CharsetUTF8
		}
		charset = CharsetLatin1
	}
	return charset
}

// textEncoder converts text values to bytes for one character set.
type textEncoder func(vr, s string) ([]byte, error)

func encoderFor(charset string) (textEncoder, error) {
	switch charset {
	case "", "ISO_IR 6":
		return func(vr, s string) ([]byte, error) {
			if !isASCII(s) {
				return nil, fmt.Errorf("%w: %s value %q requires a SpecificCharacterSet", ErrEncodingOverflow, vr, s)
			}
			return []byte(s), nil
		}, nil
	case CharsetLatin1:
		return func(vr, s string) ([]byte, error) {
			if isASCII(s) || !textVRs[vr] {
				return asciiOnly(vr, s)
			}
			b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
			if err != nil {
				return nil, fmt.Errorf("%w: %s value %q not representable in %s: %w", ErrEncodingOverflow, vr, s, charset, err)
			}
			return b, nil
		}, nil
	case CharsetUTF8:
		return func(vr, s string) ([]byte, error) {
			if !textVRs[vr] {
				return asciiOnly(vr, s)
			}
			if !utf8.ValidString(s) {
				return nil, fmt.Errorf("%w: %s value is not valid UTF-8", ErrEncodingOverflow, vr)
			}
			return []byte(s), nil
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported SpecificCharacterSet %q", ErrInconsistentDataset, charset)
}

func asciiOnly(vr, s string) ([]byte, error) {
	if !isASCII(s) {
		return nil, fmt.Errorf("%w: %s value %q must use the default repertoire", ErrEncodingOverflow, vr, s)
	}
	return []byte(s), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
