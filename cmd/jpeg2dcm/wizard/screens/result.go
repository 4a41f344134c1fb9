package screens

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard/components"
	"github.com/mrsinham/jpeg2dcm/internal/convert"
	"github.com/mrsinham/jpeg2dcm/internal/dicom"
)

// CompletionMsg is sent when the conversion succeeds
type CompletionMsg struct {
	Result   convert.Result
	Size     int64         // Output size in bytes
	Duration time.Duration // Time taken
}

// ErrorMsg is sent when the conversion fails
type ErrorMsg struct {
	Error error
}

// ConvertingScreen is shown while the conversion runs
type ConvertingScreen struct {
	input     string
	output    string
	startTime time.Time
	cancelled bool
}

// NewConvertingScreen creates a new converting screen
func NewConvertingScreen(req convert.Request) *ConvertingScreen {
	return &ConvertingScreen{
		input:     req.Input,
		output:    req.Output,
		startTime: time.Now(),
	}
}

// Init implements tea.Model
func (s *ConvertingScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *ConvertingScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "ctrl+c" {
		s.cancelled = true
		return s, tea.Quit
	}
	return s, nil
}

// View implements tea.Model
func (s *ConvertingScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	var sb strings.Builder
	sb.WriteString(components.TitleStyle.Render("Converting..."))
	sb.WriteString("\n")
	sb.WriteString(components.LabelStyle.Render(s.input + " → " + s.output))
	sb.WriteString("\n")
	sb.WriteString(components.LabelStyle.Render(fmt.Sprintf("Elapsed: %.1fs", time.Since(s.startTime).Seconds())))
	sb.WriteString("\n\n")
	sb.WriteString(components.KeyHintStyle.Render("Press Ctrl+C to cancel"))
	return sb.String()
}

// Cancelled returns true if the user cancelled
func (s *ConvertingScreen) Cancelled() bool {
	return s.cancelled
}

// Completion screen styles
var (
	completionSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	completionCommandStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	completionButtonFocusedStyle = lipgloss.NewStyle().
					Background(lipgloss.Color("33")).
					Foreground(lipgloss.Color("255")).
					Padding(0, 2).
					Bold(true)
)

// CompletionScreen displays the written file
type CompletionScreen struct {
	msg        CompletionMsg
	saved      string
	saveConfig bool
	done       bool
}

// NewCompletionScreen creates a new completion screen
func NewCompletionScreen(msg CompletionMsg) *CompletionScreen {
	return &CompletionScreen{msg: msg}
}

// Init implements tea.Model
func (s *CompletionScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *CompletionScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc", "enter", "q":
			s.done = true
			return s, tea.Quit
		case "s":
			s.saveConfig = true
		}
	}
	return s, nil
}

// View implements tea.Model
func (s *CompletionScreen) View() string {
	res := s.msg.Result

	var sb strings.Builder
	sb.WriteString(completionSuccessStyle.Render("✓ Conversion complete!"))
	sb.WriteString("\n\n")
	sb.WriteString(components.TitleStyle.Render("Summary:"))
	sb.WriteString("\n")

	stats := []struct {
		label string
		value string
	}{
		{"Output", res.Output},
		{"Image", fmt.Sprintf("%dx%d %s", res.Width, res.Height, res.Mode)},
		{"Size", formatSize(s.msg.Size)},
		{"Duration", fmt.Sprintf("%.1fs", s.msg.Duration.Seconds())},
		{"Patient", fmt.Sprintf("%s (ID %s)", res.PatientName, res.PatientID)},
		{"Study UID", res.StudyInstanceUID},
		{"SOP Instance UID", res.SOPInstanceUID},
	}
	for _, stat := range stats {
		sb.WriteString("  ")
		sb.WriteString(components.LabelStyle.Render(stat.label + ":"))
		sb.WriteString(" ")
		sb.WriteString(components.ValueStyle.Render(stat.value))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(components.TitleStyle.Render("Next steps:"))
	sb.WriteString("\n")
	sb.WriteString("  • Validate: ")
	sb.WriteString(completionCommandStyle.Render("dcmdump " + res.Output))
	sb.WriteString("\n\n")

	if s.saved != "" {
		sb.WriteString(components.LabelStyle.Render("Configuration saved to " + s.saved))
		sb.WriteString("\n\n")
	}

	sb.WriteString(completionButtonFocusedStyle.Render("Exit"))
	sb.WriteString("\n\n")
	sb.WriteString(components.KeyHintStyle.Render("Press Enter or q to exit | s: Save configuration"))
	return sb.String()
}

// Done returns true if the user is finished
func (s *CompletionScreen) Done() bool {
	return s.done
}

// SaveRequested reports and clears a pending save configuration request.
func (s *CompletionScreen) SaveRequested() bool {
	requested := s.saveConfig
	s.saveConfig = false
	return requested
}

// SetSaved records where the configuration was written.
func (s *CompletionScreen) SetSaved(path string) {
	s.saved = path
}

// formatSize formats bytes as human-readable size
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

var (
	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

// ErrorScreen displays a failed conversion
type ErrorScreen struct {
	err   error
	done  bool
	retry bool
}

// NewErrorScreen creates a new error screen
func NewErrorScreen(err error) *ErrorScreen {
	return &ErrorScreen{err: err}
}

// Init implements tea.Model
func (s *ErrorScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *ErrorScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc", "enter", "q":
			s.done = true
			return s, tea.Quit
		case "r":
			if dicom.Retryable(s.err) {
				s.retry = true
			}
		}
	}
	return s, nil
}

// View implements tea.Model
func (s *ErrorScreen) View() string {
	var sb strings.Builder
	sb.WriteString(errorTitleStyle.Render("✗ Conversion failed"))
	sb.WriteString("\n\n")
	sb.WriteString("  ")
	msg := convert.Describe(s.err)
	sb.WriteString(errorMessageStyle.Render(msg))
	sb.WriteString("\n")
	if detail := s.err.Error(); detail != msg {
		sb.WriteString("  ")
		sb.WriteString(components.LabelStyle.Render(detail))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	hint := "Press Enter or q to exit"
	if dicom.Retryable(s.err) {
		hint += " | r: Retry"
	}
	sb.WriteString(components.KeyHintStyle.Render(hint))
	return sb.String()
}

// Done returns true if the user is finished
func (s *ErrorScreen) Done() bool {
	return s.done
}

// Retry returns true if the user asked to run the conversion again
func (s *ErrorScreen) Retry() bool {
	return s.retry
}

// Error returns the error
func (s *ErrorScreen) Error() error {
	return s.err
}
