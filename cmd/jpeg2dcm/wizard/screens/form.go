package screens

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/components"
	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/types"
)

// maxPersonNameLength is the PN limit per component group.
const maxPersonNameLength = 64

var idErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

// FormOptions configures a FormScreen.
type FormOptions struct {
	// Suggest returns the output used when the output field is left empty.
	Suggest func(input string) string
	// Regenerate returns a new patient ID. Nil disables Ctrl+N.
	Regenerate func() (string, error)
}

// FormScreen collects the input, output and patient identity
type FormScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	state     *types.State
	opts      FormOptions
	confirmed bool
	idErr     error
	width     int
	done      bool
	cancelled bool
}

// NewFormScreen creates the form, bound to state
func NewFormScreen(state *types.State, opts FormOptions) *FormScreen {
	s := &FormScreen{
		helpPanel: components.NewHelpPanel(),
		state:     state,
		opts:      opts,
	}
	s.form = s.newForm()
	return s
}

func (s *FormScreen) newForm() *huh.Form {
	s.confirmed = true
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("input").
				Title("Input Image").
				Placeholder("photo.jpg").
				Value(&s.state.Input).
				Validate(ValidateInput),

			huh.NewInput().
				Key("output").
				Title("Output File").
				DescriptionFunc(func() string {
					if s.opts.Suggest == nil || s.state.Input == "" {
						return "Leave empty to use the input name with .dcm"
					}
					return "Leave empty for " + s.opts.Suggest(s.state.Input)
				}, &s.state.Input).
				Value(&s.state.Output).
				Validate(ValidateOutput),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("patient_name").
				Title("Patient Name").
				Placeholder("Family^Given").
				Value(&s.state.PatientName).
				Validate(ValidatePatientName),

			huh.NewConfirm().
				Key("confirm").
				Title("Convert now?").
				Affirmative("Convert").
				Negative("Edit").
				Value(&s.confirmed),
		),
	).WithShowHelp(false).WithShowErrors(true)
}

// ValidateInput requires an existing regular file.
func ValidateInput(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("input image is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot open %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// ValidateOutput accepts an empty path or one whose directory exists.
func ValidateOutput(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory %s does not exist", dir)
	}
	return nil
}

// ValidatePatientName rejects values DICOM would split or truncate.
func ValidatePatientName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("patient name is required")
	}
	if strings.Contains(name, `\`) {
		return errors.New(`patient name cannot contain \`)
	}
	if utf8.RuneCountInString(name) > maxPersonNameLength {
		return fmt.Errorf("patient name is limited to %d characters", maxPersonNameLength)
	}
	return nil
}

// Init implements tea.Model
func (s *FormScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *FormScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			s.cancelled = true
			return s, tea.Quit
		case "ctrl+n":
			s.regenerateID()
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.helpPanel.SetWidth(msg.Width / 2)
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if focused := s.form.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}

	if s.form.State == huh.StateCompleted {
		if !s.confirmed {
			// back to the first field with the values kept
			s.form = s.newForm()
			return s, s.form.Init()
		}
		s.state.Input = strings.TrimSpace(s.state.Input)
		s.state.Output = strings.TrimSpace(s.state.Output)
		s.done = true
	}

	return s, cmd
}

func (s *FormScreen) regenerateID() {
	if s.opts.Regenerate == nil {
		return
	}
	id, err := s.opts.Regenerate()
	if err != nil {
		s.idErr = err
		return
	}
	s.idErr = nil
	s.state.PatientID = id
}

// View implements tea.Model
func (s *FormScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render("JPEG2DCM - Convert an image")

	id := components.LabelStyle.Render("Patient ID: ") + components.ValueStyle.Render(s.state.PatientID)
	if s.idErr != nil {
		id += "\n" + idErrorStyle.Render("Could not generate a new ID: "+s.idErr.Error())
	}

	hints := "Tab: Next field | Enter: Submit | Esc: Cancel"
	if s.opts.Regenerate != nil {
		hints += " | Ctrl+N: New patient ID"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		s.form.View(),
		"",
		id,
		"",
		s.helpPanel.View(),
		"",
		components.KeyHintStyle.Render(hints),
	)
}

// Done returns true if the form was completed and confirmed
func (s *FormScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *FormScreen) Cancelled() bool {
	return s.cancelled
}
