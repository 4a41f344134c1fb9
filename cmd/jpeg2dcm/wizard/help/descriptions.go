package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
}

// Texts contains help information for all wizard fields, keyed by form field key
var Texts = map[string]HelpText{
	"input": {
		Title:       "INPUT IMAGE",
		Description: "Path of the JPEG image to convert.",
		Details: `Only 8-bit grayscale and 8-bit RGB images are supported.
The pixels are stored uncompressed, exactly as decoded.`,
	},
	"output": {
		Title:       "OUTPUT FILE",
		Description: "Where the DICOM file is written.",
		Details: `Leave empty to write next to the input with a .dcm extension.
An existing file is replaced only once the new one is complete.`,
	},
	"patient_name": {
		Title:       "PATIENT NAME",
		Description: "Name stored in the Patient Name attribute.",
		Details: `DICOM person names use ^ between components: Family^Given^Middle.
Defaults to Anonymous. Accented characters are stored as Latin-1 or UTF-8.`,
	},
	"patient_id": {
		Title:       "PATIENT ID",
		Description: "Identifier generated for this session.",
		Details:     "Press Ctrl+N to generate a new one. Set patient_id in a config file to use a fixed value.",
	},
	"confirm": {
		Title:       "CONVERT",
		Description: "Start the conversion with these values.",
		Details:     "Choose No to go back and edit.",
	},
	"config_path": {
		Title:       "SAVE CONFIGURATION",
		Description: "YAML file to save the patient and output settings to.",
		Details:     "Load it later with: jpeg2dcm --config FILE or jpeg2dcm wizard --from FILE",
	},
}
