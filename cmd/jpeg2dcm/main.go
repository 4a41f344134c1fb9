package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/mrsinham/jpeg2dcm/cmd/jpeg2dcm/wizard"
	"github.com/mrsinham/jpeg2dcm/internal/config"
	"github.com/mrsinham/jpeg2dcm/internal/convert"
	"github.com/mrsinham/jpeg2dcm/internal/dicom"
	"github.com/mrsinham/jpeg2dcm/internal/logging"
	"github.com/mrsinham/jpeg2dcm/internal/uid"
	"github.com/mrsinham/jpeg2dcm/internal/util"
)

// version is set at build time via -ldflags
var version = "dev"

// envFile is read from the working directory when present.
const envFile = ".env"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if version != "dev" {
		dicom.Version = version
	}

	// Check for wizard subcommand (before flag parsing)
	if len(args) > 0 && args[0] == "wizard" {
		return runWizard(args[1:], stderr)
	}

	fs := flag.NewFlagSet("jpeg2dcm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	output := fs.String("output", "", "Output file (single input only, default: input with .dcm extension)")
	fs.StringVar(output, "o", "", "Output file (shortcut)")
	outputDir := fs.String("output-dir", "", "Directory for output files")
	patientName := fs.String("patient-name", "", "Patient name (default: Anonymous)")
	patientID := fs.String("patient-id", "", "Patient ID (default: generated)")
	workers := fs.Int("workers", 0, fmt.Sprintf("Number of parallel workers (default: %d = CPU cores)", runtime.NumCPU()))
	uidRoot := fs.String("uid-root", "", "UID root for generated identifiers (default: 2.25 UUID-derived)")

	var tagFlags []string
	fs.Func("tag", "Set DICOM tag: 'TagName=Value' (repeatable)", func(s string) error {
		tagFlags = append(tagFlags, s)
		return nil
	})

	configFile := fs.String("config", "", "Load configuration from YAML file")
	saveConfig := fs.String("save-config", "", "Save configuration to YAML file (after conversion)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error, off")
	logFormat := fs.String("log-format", "", "Log format: console, json")
	logFile := fs.String("log-file", "", "Write JSON logs to a rotated file")

	help := fs.Bool("help", false, "Show help message")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout)
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Fprintf(stdout, "jpeg2dcm %s\n", version)
		return 0
	}
	if *help {
		printHelp(stdout)
		return 0
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Flags given on the command line win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output-dir":
			cfg.OutputDir = *outputDir
		case "patient-name":
			cfg.PatientName = *patientName
		case "patient-id":
			cfg.PatientID = *patientID
		case "workers":
			cfg.Workers = *workers
		case "uid-root":
			cfg.UIDRoot = *uidRoot
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "log-file":
			cfg.Log.File = *logFile
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintf(stderr, "Error: at least one input image is required\n")
		printUsage(stderr, fs)
		return 1
	}
	if *output != "" && len(inputs) > 1 {
		fmt.Fprintf(stderr, "Error: --output can only be used with a single input, use --output-dir\n")
		return 1
	}

	closer, err := logging.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()
	log := logging.Get()

	extra, err := cfg.ParsedTags()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	flagTags, err := util.ParseTagFlags(tagFlags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	// --tag values are applied after config tags so they win
	extra = append(extra, flagTags...)
	if len(flagTags) > 0 {
		cfg.Tags = extra.Map()
	}
	if len(extra) > 0 {
		fmt.Fprintf(stdout, "Custom tags: %d specified\n", len(extra))
	}

	gen, err := uid.NewGenerator(cfg.UIDRoot)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	conv := convert.New(gen, extra)
	conv.Log = log

	// One patient per invocation: every file shares the same identifier
	id := cfg.PatientID
	if id == "" {
		if id, err = convert.NewPatientID(gen); err != nil {
			fmt.Fprintf(stderr, "Error: %s\n", convert.Describe(err))
			return 1
		}
	}

	reqs := make([]convert.Request, len(inputs))
	for i, in := range inputs {
		reqs[i] = convert.Request{Input: in, PatientName: cfg.PatientName, PatientID: id}
		switch {
		case *output != "":
			reqs[i].Output = *output
		case cfg.OutputDir != "":
			reqs[i].Output = convert.OutputIn(cfg.OutputDir, in)
		}
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			fmt.Fprintf(stderr, "Error: create output directory: %v\n", err)
			return 1
		}
	}

	var progress func(done, total int)
	if len(reqs) > 1 {
		progress = func(done, total int) {
			fmt.Fprintf(stdout, "\r  Progress: %d/%d (%.0f%%)", done, total, float64(done)/float64(total)*100)
			if done == total {
				fmt.Fprintln(stdout)
			}
		}
	}

	results, err := conv.ConvertAll(reqs, cfg.Workers, progress)
	if err != nil {
		log.Error().Err(err).Msg("conversion failed")
		fmt.Fprintf(stderr, "Error: %s\n", convert.Describe(err))
		if msg := err.Error(); msg != convert.Describe(err) {
			fmt.Fprintf(stderr, "  %s\n", msg)
		}
		return 1
	}

	if *saveConfig != "" {
		if err := cfg.Save(*saveConfig); err != nil {
			fmt.Fprintf(stderr, "Warning: could not save config: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Configuration saved to %s\n", *saveConfig)
		}
	}

	for _, res := range results {
		fmt.Fprintf(stdout, "✓ %s → %s (%dx%d %s)\n", res.Input, res.Output, res.Width, res.Height, res.Mode)
	}
	fmt.Fprintf(stdout, "  Patient: %s (ID %s)\n", results[0].PatientName, results[0].PatientID)
	return 0
}

// loadConfig reads defaults, then path (if set), then the environment.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.FromEnv(envFile); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runWizard(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("jpeg2dcm wizard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	from := fs.String("from", "", "Prefill the wizard from a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*from)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := wizard.Run(cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  jpeg2dcm [options] <image.jpg> [more images...]")
	fmt.Fprintln(w, "  jpeg2dcm wizard [--from config.yaml]")
	fmt.Fprintln(w, "\nOptions:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "jpeg2dcm")
	fmt.Fprintln(w, "========")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert JPEG images into DICOM Secondary Capture files.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  jpeg2dcm [options] <image.jpg> [more images...]")
	fmt.Fprintln(w, "  jpeg2dcm wizard [--from config.yaml]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output options:")
	fmt.Fprintln(w, "  -o, --output <FILE>   Output file (single input only)")
	fmt.Fprintln(w, "                        Default: input path with a .dcm extension")
	fmt.Fprintln(w, "  --output-dir <DIR>    Write every output into DIR")
	fmt.Fprintf(w, "  --workers <N>         Number of parallel workers (default: %d = CPU cores)\n", runtime.NumCPU())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Patient options:")
	fmt.Fprintln(w, "  --patient-name <NAME> Patient name in DICOM PN form (default: Anonymous)")
	fmt.Fprintln(w, "  --patient-id <ID>     Patient ID (default: generated once per run)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Identifiers:")
	fmt.Fprintln(w, "  --uid-root <ROOT>     Organization UID root, e.g. 1.2.826.0.1.3680043.8.498")
	fmt.Fprintln(w, "                        Default: 2.25 UUID-derived UIDs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Custom tags:")
	fmt.Fprintln(w, "  --tag <NAME=VALUE>    Set DICOM tag value (repeatable)")
	fmt.Fprintln(w, "                        Example: --tag \"InstitutionName=CHU Bordeaux\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintln(w, "  --config <FILE>       Load configuration from YAML file")
	fmt.Fprintln(w, "  --save-config <FILE>  Save the effective configuration after converting")
	fmt.Fprintf(w, "                        %s* environment variables and ./%s override the file\n", config.EnvPrefix, envFile)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Logging:")
	fmt.Fprintln(w, "  --log-level <LEVEL>   debug, info, warn, error, off (default: warn)")
	fmt.Fprintln(w, "  --log-format <FMT>    console, json (default: console)")
	fmt.Fprintln(w, "  --log-file <FILE>     Write JSON logs to FILE (rotated)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  --version             Show version")
	fmt.Fprintln(w, "  --help                Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Convert one photo, writing photo.dcm next to it")
	fmt.Fprintln(w, "  jpeg2dcm photo.jpg")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Convert a set of photos for one patient into a directory")
	fmt.Fprintln(w, "  jpeg2dcm --patient-name \"Doe^Jane\" --patient-id 12345 --output-dir out/ *.jpg")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Launch the interactive wizard")
	fmt.Fprintln(w, "  jpeg2dcm wizard")
}
