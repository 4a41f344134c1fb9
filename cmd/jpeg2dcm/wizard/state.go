// Package wizard provides an interactive TUI for converting an image.
package wizard

import (
	"path/filepath"

	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/types"
	"github.com/mrsinham/jpeg2dcm/internal/config"
	"github.com/mrsinham/jpeg2dcm/internal/convert"
	"github.com/mrsinham/jpeg2dcm/internal/uid"
)

// NewState prefills the wizard from cfg. The patient ID comes from cfg or
// is generated here, once per session.
func NewState(cfg config.Config, gen uid.Generator) (*types.State, error) {
	s := &types.State{
		PatientName: cfg.PatientName,
		PatientID:   cfg.PatientID,
	}
	if s.PatientName == "" {
		s.PatientName = config.DefaultPatientName
	}
	if s.PatientID == "" {
		id, err := convert.NewPatientID(gen)
		if err != nil {
			return nil, err
		}
		s.PatientID = id
	}
	return s, nil
}

// ToRequest converts the collected state to a conversion request. An empty
// output goes next to the input, or into outputDir when set.
func ToRequest(s *types.State, outputDir string) convert.Request {
	return convert.Request{
		Input:       s.Input,
		Output:      SuggestOutput(s.Output, outputDir, s.Input),
		PatientName: s.PatientName,
		PatientID:   s.PatientID,
	}
}

// SuggestOutput returns output, or the default for input when it is empty.
func SuggestOutput(output, outputDir, input string) string {
	switch {
	case output != "":
		return output
	case outputDir != "":
		return convert.OutputIn(outputDir, input)
	}
	return convert.SuggestOutput(input)
}

// ToConfig records the session's patient name and output directory on base.
// The patient ID is left as configured so the next session gets a new one.
func ToConfig(base config.Config, s *types.State, output string) config.Config {
	cfg := base
	cfg.PatientName = s.PatientName
	if output != "" {
		cfg.OutputDir = filepath.Dir(output)
	}
	return cfg
}
