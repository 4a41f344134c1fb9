// Package util provides helpers shared by the conversion pipeline and its front ends.
package util

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagInfo describes a descriptive attribute that callers may set on the output.
type TagInfo struct {
	Name string
	Tag  tag.Tag
	VR   string
	// MaxLength is the maximum value length in characters allowed by the VR.
	MaxLength int
	validate  func(string) error
}

// Validate checks value against the VR rules of the tag.
func (i TagInfo) Validate(value string) error {
	if i.MaxLength > 0 && len([]rune(value)) > i.MaxLength {
		return fmt.Errorf("%s value is %d characters, max %d for VR %s", i.Name, len([]rune(value)), i.MaxLength, i.VR)
	}
	if i.validate != nil && value != "" {
		if err := i.validate(value); err != nil {
			return fmt.Errorf("%s: %w", i.Name, err)
		}
	}
	return nil
}

var integerString = regexp.MustCompile(`^[+-]?[0-9]+$`)

func validateDA(s string) error {
	if _, err := time.Parse("20060102", s); err != nil {
		return fmt.Errorf("invalid date %q, use YYYYMMDD", s)
	}
	return nil
}

func validateIS(s string) error {
	if !integerString.MatchString(s) {
		return fmt.Errorf("invalid integer string %q", s)
	}
	return nil
}

func validateSex(s string) error {
	switch s {
	case "M", "F", "O":
		return nil
	}
	return fmt.Errorf("invalid sex %q, use M, F or O", s)
}

// tagRegistry maps lowercase tag names to their TagInfo. Identifiers, dates
// stamped at conversion time and the image pixel module are deliberately absent.
var tagRegistry = map[string]TagInfo{
	"patientbirthdate":       {Name: "PatientBirthDate", Tag: tag.PatientBirthDate, VR: "DA", MaxLength: 8, validate: validateDA},
	"patientsex":             {Name: "PatientSex", Tag: tag.PatientSex, VR: "CS", MaxLength: 16, validate: validateSex},
	"studyid":                {Name: "StudyID", Tag: tag.StudyID, VR: "SH", MaxLength: 16},
	"studydescription":       {Name: "StudyDescription", Tag: tag.StudyDescription, VR: "LO", MaxLength: 64},
	"seriesdescription":      {Name: "SeriesDescription", Tag: tag.SeriesDescription, VR: "LO", MaxLength: 64},
	"seriesnumber":           {Name: "SeriesNumber", Tag: tag.SeriesNumber, VR: "IS", MaxLength: 12, validate: validateIS},
	"accessionnumber":        {Name: "AccessionNumber", Tag: tag.AccessionNumber, VR: "SH", MaxLength: 16},
	"referringphysicianname": {Name: "ReferringPhysicianName", Tag: tag.ReferringPhysicianName, VR: "PN", MaxLength: 64},
	"institutionname":        {Name: "InstitutionName", Tag: tag.InstitutionName, VR: "LO", MaxLength: 64},
}

// reservedTags are attributes generated by the converter that cannot be overridden.
var reservedTags = map[string]bool{
	"patientname":               true,
	"patientid":                 true,
	"studyinstanceuid":          true,
	"seriesinstanceuid":         true,
	"sopinstanceuid":            true,
	"sopclassuid":               true,
	"modality":                  true,
	"studydate":                 true,
	"studytime":                 true,
	"contentdate":               true,
	"contenttime":               true,
	"rows":                      true,
	"columns":                   true,
	"samplesperpixel":           true,
	"photometricinterpretation": true,
	"planarconfiguration":       true,
	"bitsallocated":             true,
	"bitsstored":                true,
	"highbit":                   true,
	"pixelrepresentation":       true,
	"pixeldata":                 true,
	"specificcharacterset":      true,
	"transfersyntaxuid":         true,
}

// GetTagByName returns TagInfo for a given tag name.
// The lookup is case-insensitive. If the tag is not found, an error is returned
// with a suggestion for the closest matching tag name (using Levenshtein distance).
func GetTagByName(name string) (TagInfo, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if info, ok := tagRegistry[normalizedName]; ok {
		return info, nil
	}

	if reservedTags[normalizedName] {
		return TagInfo{}, fmt.Errorf("tag %q is generated by the converter and cannot be set", name)
	}

	suggestion := findClosestTagName(normalizedName)
	if suggestion != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, suggestion)
	}

	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

// TagNames returns the canonical names of all settable tags, sorted.
func TagNames() []string {
	names := make([]string, 0, len(tagRegistry))
	for _, info := range tagRegistry {
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names
}

// ParsedTag is a validated Name=Value assignment.
type ParsedTag struct {
	Info  TagInfo
	Value string
}

// ParsedTags is an ordered list of assignments; later entries win.
type ParsedTags []ParsedTag

// Get returns the value set for name, if any.
func (p ParsedTags) Get(name string) (string, bool) {
	normalized := strings.ToLower(name)
	for i := len(p) - 1; i >= 0; i-- {
		if strings.ToLower(p[i].Info.Name) == normalized {
			return p[i].Value, true
		}
	}
	return "", false
}

// Map returns the assignments keyed by canonical tag name.
func (p ParsedTags) Map() map[string]string {
	if len(p) == 0 {
		return nil
	}
	m := make(map[string]string, len(p))
	for _, t := range p {
		m[t.Info.Name] = t.Value
	}
	return m
}

// ParseTagFlag parses a single "Name=Value" assignment.
func ParseTagFlag(s string) (ParsedTag, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return ParsedTag{}, fmt.Errorf("invalid tag %q, expected Name=Value", s)
	}
	info, err := GetTagByName(name)
	if err != nil {
		return ParsedTag{}, err
	}
	value = strings.TrimSpace(value)
	if err := info.Validate(value); err != nil {
		return ParsedTag{}, err
	}
	return ParsedTag{Info: info, Value: value}, nil
}

// ParseTagFlags parses repeated --tag flags.
func ParseTagFlags(flags []string) (ParsedTags, error) {
	var parsed ParsedTags
	for _, f := range flags {
		p, err := ParseTagFlag(f)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

// ParseTagMap parses tags loaded from a config file.
func ParseTagMap(m map[string]string) (ParsedTags, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flags := make([]string, len(keys))
	for i, k := range keys {
		flags[i] = k + "=" + m[k]
	}
	return ParseTagFlags(flags)
}

// findClosestTagName finds the closest matching tag name using Levenshtein distance.
// Returns empty string if no close match is found (distance > 5).
func findClosestTagName(input string) string {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var bestMatch string

	for _, key := range sortedRegistryKeys() {
		distance := levenshteinDistance(input, key)
		if distance < bestDistance {
			bestDistance = distance
			bestMatch = tagRegistry[key].Name
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

func sortedRegistryKeys() []string {
	keys := make([]string, 0, len(tagRegistry))
	for k := range tagRegistry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// levenshteinDistance calculates the Levenshtein distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
