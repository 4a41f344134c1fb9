// Package uid generates DICOM unique identifiers and opaque tokens.
package uid

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/google/uuid"
)

// MaxLength is the maximum length of a DICOM UI value.
const MaxLength = 64

// UUIDRoot is the ISO/ITU arc for UIDs derived from a UUID (PS3.5 B.2).
const UUIDRoot = "2.25"

var rootPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)(\.(0|[1-9][0-9]*))*$`)

// Generator produces fresh identifiers. Every call returns a new value.
type Generator interface {
	// NewUID returns a valid DICOM UID.
	NewUID() (string, error)
	// NewToken returns a general purpose unique token, used as the default patient ID.
	NewToken() (string, error)
}

// UUIDGenerator derives UIDs from random (version 4) UUIDs.
//
// With an empty Root the result is "2.25.<uuid as decimal>". With a Root the
// decimal digits are appended to it and truncated to MaxLength.
type UUIDGenerator struct {
	Root string
}

// NewGenerator returns a UUIDGenerator after validating root.
func NewGenerator(root string) (*UUIDGenerator, error) {
	if root != "" {
		if err := ValidRoot(root); err != nil {
			return nil, err
		}
	}
	return &UUIDGenerator{Root: root}, nil
}

// NewUID implements Generator.
func (g *UUIDGenerator) NewUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	digits := new(big.Int).SetBytes(u[:]).String()
	if g.Root == "" {
		return UUIDRoot + "." + digits, nil
	}

	s := g.Root + "." + digits
	if len(s) > MaxLength {
		s = s[:MaxLength]
	}
	return s, nil
}

// NewToken implements Generator.
func (g *UUIDGenerator) NewToken() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return u.String(), nil
}

// ValidRoot checks that root is a dotted numeric UID prefix short enough to
// leave room for at least 20 digits of randomness.
func ValidRoot(root string) error {
	if !rootPattern.MatchString(root) {
		return fmt.Errorf("invalid UID root %q: must be dot-separated numbers without leading zeros", root)
	}
	if len(root) > MaxLength-21 {
		return fmt.Errorf("UID root %q is too long (%d chars, max %d)", root, len(root), MaxLength-21)
	}
	return nil
}

// Valid reports whether s is a syntactically valid UID.
func Valid(s string) bool {
	return len(s) > 0 && len(s) <= MaxLength && rootPattern.MatchString(s)
}
