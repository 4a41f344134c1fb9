package util

import (
	"strings"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestGetTagByName_Valid(t *testing.T) {
	tests := []struct {
		name        string
		expectedTag tag.Tag
		expectedVR  string
	}{
		{"PatientBirthDate", tag.PatientBirthDate, "DA"},
		{"PatientSex", tag.PatientSex, "CS"},
		{"StudyID", tag.StudyID, "SH"},
		{"StudyDescription", tag.StudyDescription, "LO"},
		{"SeriesDescription", tag.SeriesDescription, "LO"},
		{"SeriesNumber", tag.SeriesNumber, "IS"},
		{"AccessionNumber", tag.AccessionNumber, "SH"},
		{"ReferringPhysicianName", tag.ReferringPhysicianName, "PN"},
		{"InstitutionName", tag.InstitutionName, "LO"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := GetTagByName(tc.name)
			if err != nil {
				t.Fatalf("GetTagByName(%q) returned error: %v", tc.name, err)
			}
			if info.Tag != tc.expectedTag {
				t.Errorf("GetTagByName(%q).Tag = %v, want %v", tc.name, info.Tag, tc.expectedTag)
			}
			if info.VR != tc.expectedVR {
				t.Errorf("GetTagByName(%q).VR = %q, want %q", tc.name, info.VR, tc.expectedVR)
			}
			if info.Name != tc.name {
				t.Errorf("GetTagByName(%q).Name = %q, want %q", tc.name, info.Name, tc.name)
			}
		})
	}
}

func TestGetTagByName_CaseInsensitive(t *testing.T) {
	for _, name := range []string{"studydescription", "STUDYDESCRIPTION", "  StudyDescription "} {
		info, err := GetTagByName(name)
		if err != nil {
			t.Errorf("GetTagByName(%q) returned error: %v", name, err)
			continue
		}
		if info.Tag != tag.StudyDescription {
			t.Errorf("GetTagByName(%q).Tag = %v", name, info.Tag)
		}
	}
}

func TestGetTagByName_Reserved(t *testing.T) {
	for _, name := range []string{"PatientName", "SOPInstanceUID", "Rows", "PixelData"} {
		_, err := GetTagByName(name)
		if err == nil {
			t.Errorf("GetTagByName(%q) should fail for a generated tag", name)
			continue
		}
		if !strings.Contains(err.Error(), "cannot be set") {
			t.Errorf("GetTagByName(%q) error = %q, want reserved message", name, err)
		}
	}
}

func TestGetTagByName_Suggestion(t *testing.T) {
	_, err := GetTagByName("StudyDescriptoin")
	if err == nil {
		t.Fatal("expected error for misspelled tag")
	}
	if !strings.Contains(err.Error(), `did you mean "StudyDescription"`) {
		t.Errorf("expected suggestion in error, got %q", err)
	}

	_, err = GetTagByName("CompletelyUnrelatedAttributeName")
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("did not expect a suggestion, got %q", err)
	}
}

func TestParseTagFlags(t *testing.T) {
	parsed, err := ParseTagFlags([]string{
		"InstitutionName=CHU Bordeaux",
		"PatientSex=F",
		"institutionname=Other Hospital",
	})
	if err != nil {
		t.Fatalf("ParseTagFlags failed: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("expected 3 parsed tags, got %d", len(parsed))
	}

	val, ok := parsed.Get("InstitutionName")
	if !ok || val != "Other Hospital" {
		t.Errorf("Get(InstitutionName) = %q, %v; last assignment should win", val, ok)
	}
	if _, ok := parsed.Get("StudyID"); ok {
		t.Error("Get(StudyID) should not be set")
	}

	m := parsed.Map()
	if m["PatientSex"] != "F" {
		t.Errorf("Map()[PatientSex] = %q", m["PatientSex"])
	}
}

func TestParseTagFlag_Invalid(t *testing.T) {
	tests := []string{
		"NoEqualsSign",
		"PatientBirthDate=1990-01-01",
		"PatientSex=X",
		"SeriesNumber=two",
		"StudyID=" + strings.Repeat("A", 17),
		"PatientID=123",
	}

	for _, input := range tests {
		if _, err := ParseTagFlag(input); err == nil {
			t.Errorf("ParseTagFlag(%q) should fail", input)
		}
	}
}

func TestParseTagMap(t *testing.T) {
	parsed, err := ParseTagMap(map[string]string{
		"StudyDescription": "Wound photo",
		"AccessionNumber":  "ACC001",
	})
	if err != nil {
		t.Fatalf("ParseTagMap failed: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(parsed))
	}
	// sorted by key for deterministic output
	if parsed[0].Info.Name != "AccessionNumber" {
		t.Errorf("first tag = %s, want AccessionNumber", parsed[0].Info.Name)
	}
}

func TestTagNames(t *testing.T) {
	names := TagNames()
	if len(names) != len(tagRegistry) {
		t.Fatalf("TagNames() returned %d names, want %d", len(names), len(tagRegistry))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("TagNames() not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"studyid", "studyid", 0},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
