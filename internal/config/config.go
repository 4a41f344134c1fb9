// Package config loads jpeg2dcm settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/jpeg2dcm/internal/logging"
	"github.com/mrsinham/jpeg2dcm/internal/uid"
	"github.com/mrsinham/jpeg2dcm/internal/util"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "JPEG2DCM_"

// DefaultPatientName is used when no patient name is given.
const DefaultPatientName = "Anonymous"

// Config holds the settings shared by the CLI and the wizard.
type Config struct {
	OutputDir   string            `yaml:"output_dir,omitempty"`
	PatientName string            `yaml:"patient_name,omitempty"`
	PatientID   string            `yaml:"patient_id,omitempty"`
	UIDRoot     string            `yaml:"uid_root,omitempty"`
	Workers     int               `yaml:"workers,omitempty"`
	Tags        map[string]string `yaml:"tags,omitempty"`
	Log         LogConfig         `yaml:"log"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		PatientName: DefaultPatientName,
		Log: LogConfig{
			Level:  "warn",
			Format: logging.FormatConsole,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// FromEnv loads envFile (if it exists) into the process environment and
// overlays the JPEG2DCM_* variables on c. Variables already set in the
// environment take precedence over the file.
func (c *Config) FromEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	vars := map[string]*string{
		"OUTPUT_DIR":   &c.OutputDir,
		"PATIENT_NAME": &c.PatientName,
		"PATIENT_ID":   &c.PatientID,
		"UID_ROOT":     &c.UIDRoot,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FORMAT":   &c.Log.Format,
		"LOG_FILE":     &c.Log.File,
	}
	for name, dst := range vars {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.UIDRoot != "" {
		if err := uid.ValidRoot(c.UIDRoot); err != nil {
			return err
		}
	}
	if _, err := c.ParsedTags(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (use console or json)", c.Log.Format)
	}
	return nil
}

// ParsedTags validates Tags against the settable attribute registry.
func (c Config) ParsedTags() (util.ParsedTags, error) {
	return util.ParseTagMap(c.Tags)
}
