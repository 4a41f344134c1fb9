// Package types holds the values shared by the wizard and its screens.
package types

// State holds what the wizard collects for one conversion.
type State struct {
	Input  string
	Output string // empty means the suggested output for Input

	PatientName string
	PatientID   string // generated once per session unless configured
}
