package wizard

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/components"
	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/screens"
	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/types"
	"github.com/mrsinham/jpeg2dcm/internal/config"
	"github.com/mrsinham/jpeg2dcm/internal/convert"
	"github.com/mrsinham/jpeg2dcm/internal/logging"
	"github.com/mrsinham/jpeg2dcm/internal/uid"
)

// Phase represents the current phase/screen of the wizard.
type Phase int

const (
	PhaseForm Phase = iota
	PhaseConverting
	PhaseComplete
	PhaseError
	PhaseSaveConfig
)

// Wizard is the main orchestrator for the wizard interface.
type Wizard struct {
	state     *types.State
	cfg       config.Config
	converter *convert.Converter

	// Current phase
	phase Phase

	// Screen instances
	formScreen       *screens.FormScreen
	convertingScreen *screens.ConvertingScreen
	completionScreen *screens.CompletionScreen
	errorScreen      *screens.ErrorScreen

	// Save config form
	saveConfigForm *huh.Form
	configPath     string

	result *convert.Result

	// Final state
	cancelled bool
	finished  bool
	err       error
}

// NewWizard creates a wizard converting with conv. cfg supplies the output
// directory and is the base for a saved configuration.
func NewWizard(state *types.State, cfg config.Config, conv *convert.Converter) *Wizard {
	w := &Wizard{
		state:     state,
		cfg:       cfg,
		converter: conv,
		phase:     PhaseForm,
	}

	w.formScreen = screens.NewFormScreen(state, screens.FormOptions{
		Suggest: func(input string) string {
			return SuggestOutput("", cfg.OutputDir, input)
		},
		Regenerate: func() (string, error) {
			return convert.NewPatientID(conv.Builder.UIDs)
		},
	})

	return w
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	return w.formScreen.Init()
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch w.phase {
	case PhaseForm:
		return w.updateForm(msg)
	case PhaseConverting:
		return w.updateConverting(msg)
	case PhaseComplete:
		return w.updateComplete(msg)
	case PhaseError:
		return w.updateError(msg)
	case PhaseSaveConfig:
		return w.updateSaveConfig(msg)
	}

	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	switch w.phase {
	case PhaseForm:
		return w.formScreen.View()
	case PhaseConverting:
		return w.convertingScreen.View()
	case PhaseComplete:
		return w.completionScreen.View()
	case PhaseError:
		return w.errorScreen.View()
	case PhaseSaveConfig:
		return w.viewSaveConfig()
	}

	return ""
}

// updateForm handles updates while the form is shown.
func (w *Wizard) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.formScreen.Update(msg)
	if fs, ok := model.(*screens.FormScreen); ok {
		w.formScreen = fs
	}

	if w.formScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.formScreen.Done() {
		return w.startConversion()
	}

	return w, cmd
}

// startConversion switches to the converting phase and runs the conversion
// as a command.
func (w *Wizard) startConversion() (tea.Model, tea.Cmd) {
	req := ToRequest(w.state, w.cfg.OutputDir)
	w.phase = PhaseConverting
	w.convertingScreen = screens.NewConvertingScreen(req)

	conv := w.converter
	return w, func() tea.Msg {
		startTime := time.Now()

		res, err := conv.Convert(req)
		if err != nil {
			return screens.ErrorMsg{Error: err}
		}

		var size int64
		if info, err := os.Stat(res.Output); err == nil {
			size = info.Size()
		}

		return screens.CompletionMsg{
			Result:   *res,
			Size:     size,
			Duration: time.Since(startTime),
		}
	}
}

// updateConverting handles updates while the conversion runs.
func (w *Wizard) updateConverting(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case screens.CompletionMsg:
		w.phase = PhaseComplete
		w.result = &msg.Result
		w.completionScreen = screens.NewCompletionScreen(msg)
		return w, nil

	case screens.ErrorMsg:
		w.phase = PhaseError
		w.err = msg.Error
		w.errorScreen = screens.NewErrorScreen(msg.Error)
		return w, nil
	}

	model, cmd := w.convertingScreen.Update(msg)
	if cs, ok := model.(*screens.ConvertingScreen); ok {
		w.convertingScreen = cs
	}

	if w.convertingScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	return w, cmd
}

// updateComplete handles updates in the completion phase.
func (w *Wizard) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.completionScreen.Update(msg)
	if cs, ok := model.(*screens.CompletionScreen); ok {
		w.completionScreen = cs
	}

	if w.completionScreen.Done() {
		w.finished = true
		return w, tea.Quit
	}

	if w.completionScreen.SaveRequested() {
		return w.transitionToSaveConfig()
	}

	return w, cmd
}

// updateError handles updates in the error phase.
func (w *Wizard) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.errorScreen.Update(msg)
	if es, ok := model.(*screens.ErrorScreen); ok {
		w.errorScreen = es
	}

	if w.errorScreen.Retry() {
		w.err = nil
		return w.startConversion()
	}

	if w.errorScreen.Done() {
		w.finished = true
		return w, tea.Quit
	}

	return w, cmd
}

// transitionToSaveConfig shows the save config dialog.
func (w *Wizard) transitionToSaveConfig() (tea.Model, tea.Cmd) {
	w.phase = PhaseSaveConfig
	if w.configPath == "" {
		w.configPath = "jpeg2dcm.yaml"
	}

	w.saveConfigForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("config_path").
				Title("Save configuration to").
				Description("Enter the path for the YAML config file").
				Value(&w.configPath).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)

	return w, w.saveConfigForm.Init()
}

// updateSaveConfig handles updates in the save config phase.
func (w *Wizard) updateSaveConfig(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			w.phase = PhaseComplete
			return w, nil
		case "ctrl+c":
			w.cancelled = true
			return w, tea.Quit
		}
	}

	form, cmd := w.saveConfigForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.saveConfigForm = f
	}

	if w.saveConfigForm.State == huh.StateCompleted {
		if err := w.saveConfig(w.configPath); err != nil {
			w.err = err
			w.phase = PhaseError
			w.errorScreen = screens.NewErrorScreen(err)
			return w, nil
		}
		w.completionScreen.SetSaved(w.configPath)
		w.phase = PhaseComplete
		return w, nil
	}

	return w, cmd
}

// saveConfig writes the session settings as YAML.
func (w *Wizard) saveConfig(path string) error {
	var output string
	if w.result != nil {
		output = w.result.Output
	}
	return ToConfig(w.cfg, w.state, output).Save(path)
}

// viewSaveConfig renders the save config dialog.
func (w *Wizard) viewSaveConfig() string {
	title := components.TitleStyle.Render("Save Configuration")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		w.saveConfigForm.View(),
		"",
		components.KeyHintStyle.Render("Enter: Save | Esc: Back"),
	)
}

// Run starts the interactive wizard with settings from cfg.
func Run(cfg config.Config) error {
	// Console logs would draw over the TUI, only a log file is kept
	level := cfg.Log.Level
	if cfg.Log.File == "" {
		level = "off"
	}
	closer, err := logging.Init(level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	gen, err := uid.NewGenerator(cfg.UIDRoot)
	if err != nil {
		return err
	}
	extra, err := cfg.ParsedTags()
	if err != nil {
		return err
	}
	conv := convert.New(gen, extra)
	conv.Log = logging.Get()

	state, err := NewState(cfg, gen)
	if err != nil {
		return fmt.Errorf("%s: %w", convert.Describe(err), err)
	}

	p := tea.NewProgram(NewWizard(state, cfg, conv), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running wizard: %w", err)
	}

	if w, ok := finalModel.(*Wizard); ok {
		if w.cancelled {
			return nil // User cancelled, not an error
		}
		if w.err != nil {
			return w.err
		}
	}

	return nil
}
