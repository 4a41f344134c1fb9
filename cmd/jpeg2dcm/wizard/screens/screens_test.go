package screens

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/types"
	"github.com/mrsinham/jpeg2dcm/internal/convert"
	"github.com/mrsinham/jpeg2dcm/internal/dicom"
	"github.com/mrsinham/jpeg2dcm/internal/imaging"
)

func TestValidateInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(file, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", file, false},
		{"surrounding spaces", "  " + file + " ", false},
		{"empty", "", true},
		{"missing", filepath.Join(dir, "missing.jpg"), true},
		{"directory", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInput(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"empty uses default", "", false},
		{"new file", filepath.Join(dir, "out.dcm"), false},
		{"missing directory", filepath.Join(dir, "nope", "out.dcm"), true},
		{"directory", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutput(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutput(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePatientName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"simple", "Anonymous", false},
		{"components", "Doe^Jane^Marie", false},
		{"accented", "Müller^Zoë", false},
		{"blank", "   ", true},
		{"multi-value delimiter", `Doe\Smith`, true},
		{"too long", strings.Repeat("a", 65), true},
		{"64 accented runes", strings.Repeat("é", 64), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePatientName(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePatientName(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestFormScreen_RegenerateID(t *testing.T) {
	state := &types.State{PatientName: "Anonymous", PatientID: "first"}
	s := NewFormScreen(state, FormOptions{
		Regenerate: func() (string, error) { return "second", nil },
	})

	s.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if state.PatientID != "second" {
		t.Errorf("PatientID = %q, want second", state.PatientID)
	}
	if !strings.Contains(s.View(), "second") {
		t.Error("view should show the new patient ID")
	}
}

func TestFormScreen_RegenerateFailureKeepsID(t *testing.T) {
	state := &types.State{PatientName: "Anonymous", PatientID: "first"}
	s := NewFormScreen(state, FormOptions{
		Regenerate: func() (string, error) { return "", errors.New("no entropy") },
	})

	s.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if state.PatientID != "first" {
		t.Errorf("PatientID = %q, should be unchanged", state.PatientID)
	}
	if !strings.Contains(s.View(), "no entropy") {
		t.Error("view should report the generation failure")
	}
}

func TestFormScreen_Cancel(t *testing.T) {
	s := NewFormScreen(&types.State{}, FormOptions{})
	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !s.Cancelled() || cmd == nil {
		t.Error("ctrl+c should cancel")
	}
	if s.Done() {
		t.Error("cancelled form should not be done")
	}
}

func TestCompletionScreen(t *testing.T) {
	s := NewCompletionScreen(CompletionMsg{
		Result: convert.Result{
			Output:      "/export/scan.dcm",
			PatientName: "Doe^Jane",
			PatientID:   "P1",
			Width:       640,
			Height:      480,
			Mode:        imaging.RGB8,
		},
		Size: 2048,
	})

	view := s.View()
	for _, want := range []string{"/export/scan.dcm", "640x480", "2.0 KB", "dcmdump /export/scan.dcm", "Doe^Jane"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}

	s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if !s.SaveRequested() {
		t.Error("s should request saving the configuration")
	}
	if s.SaveRequested() {
		t.Error("SaveRequested should clear the request")
	}

	s.SetSaved("jpeg2dcm.yaml")
	if !strings.Contains(s.View(), "Configuration saved to jpeg2dcm.yaml") {
		t.Error("view should confirm the saved configuration")
	}
}

func TestErrorScreen_Retry(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantRetry bool
	}{
		{"identifier failure", fmt.Errorf("%w: rand", dicom.ErrIdentifierGeneration), true},
		{"decode failure", fmt.Errorf("decode: %w", dicom.ErrImageDecode), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewErrorScreen(tt.err)
			s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
			if s.Retry() != tt.wantRetry {
				t.Errorf("Retry() = %v, want %v", s.Retry(), tt.wantRetry)
			}
			if !strings.Contains(s.View(), convert.Describe(tt.err)) {
				t.Error("view should show the user message")
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
