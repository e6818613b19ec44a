package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "acidentes/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Sources   []SourceConfig  `yaml:"sources" ignored:"true" validate:"required,min=1,unique=ID,dive"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// PipelineConfig contains settings shared by all pipeline stages
type PipelineConfig struct {
	// DataDir is where relative source paths are resolved.
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	// ReferenceDate pins "today" for the future-date check (YYYY-MM-DD).
	// Empty means the wall clock.
	ReferenceDate string `yaml:"reference_date" envconfig:"REFERENCE_DATE" validate:"omitempty,datetime=2006-01-02"`
	// FutureDateSampleSize caps how many flagged row indexes the run report keeps.
	FutureDateSampleSize int `yaml:"future_date_sample_size" envconfig:"FUTURE_DATE_SAMPLE_SIZE" validate:"min=0"`
	// DiscoverSources replaces the configured sources with the yearly files
	// found in DataDir, guessing encoding and delimiter from their content.
	DiscoverSources bool `yaml:"discover_sources" envconfig:"DISCOVER_SOURCES"`
}

// SourceConfig describes one yearly input file
type SourceConfig struct {
	ID        string `yaml:"id" validate:"required"`
	Path      string `yaml:"path" validate:"required"`
	Format    string `yaml:"format" validate:"omitempty,oneof=csv xlsx"`
	Encoding  string `yaml:"encoding" validate:"required_unless=Format xlsx,encoding"`
	Delimiter string `yaml:"delimiter" validate:"required_unless=Format xlsx,delimiter"`
	// Sheet selects the worksheet of an xlsx source; empty means the first one.
	Sheet string `yaml:"sheet"`
}

// OutputConfig contains export settings
type OutputConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR" validate:"required"`
	// FileName is the cleaned, feature-enriched table read by the dashboard.
	FileName string `yaml:"file_name" envconfig:"FILE_NAME" validate:"required"`
	// ConsolidatedFileName, when set, receives the raw consolidated table
	// before cleaning.
	ConsolidatedFileName string `yaml:"consolidated_file_name" envconfig:"CONSOLIDATED_FILE_NAME"`
	// ReportFileName, when set, receives the frequency tables as an xlsx workbook.
	ReportFileName string `yaml:"report_file_name" envconfig:"REPORT_FILE_NAME" validate:"omitempty,endswith=.xlsx"`
	Encoding       string `yaml:"encoding" envconfig:"ENCODING" validate:"required,encoding"`
	Delimiter      string `yaml:"delimiter" envconfig:"DELIMITER" validate:"required,delimiter"`
	WriteManifest  bool   `yaml:"write_manifest" envconfig:"WRITE_MANIFEST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	// MetricsTextfile, when set, receives the run metrics in Prometheus text
	// format for a node-exporter textfile collector.
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	// Optional developer overrides; a missing file is not an error.
	_ = godotenv.Load(".env.local")

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", configFile)
		}
	}

	// Fields without a matching variable keep their current value.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current value; a sources list replaces the default one.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		filepath.Join("configs", "config.yaml"),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// normalize fills per-source defaults that depend on other fields
func (c *Config) normalize() {
	for i := range c.Sources {
		src := &c.Sources[i]
		src.Format = strings.ToLower(strings.TrimSpace(src.Format))
		if src.Format == "" {
			src.Format = FormatCSV
		}
		if src.ID == "" {
			src.ID = strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
		}
	}
}

// Default returns the configuration that reproduces the original batch run:
// four yearly files in the working directory, alternating latin-1/semicolon
// and utf-8/comma, exported as utf-8/semicolon.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DataDir:              ".",
			FutureDateSampleSize: DefaultFutureDateSampleSize,
		},
		Sources: DefaultSources(),
		Output: OutputConfig{
			Dir:                  ".",
			FileName:             DefaultOutputFileName,
			ConsolidatedFileName: DefaultConsolidatedFileName,
			Encoding:             DefaultOutputEncoding,
			Delimiter:            DefaultOutputDelimiter,
			WriteManifest:        true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join(DefaultLogsDir, "consolidator.log"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			TraceExporter: "none",
		},
	}
}

// DefaultSources returns the per-year source table of the PRF datasets.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{ID: "2021", Path: "2021.csv", Format: FormatCSV, Encoding: "iso-8859-1", Delimiter: ";"},
		{ID: "2022", Path: "2022.csv", Format: FormatCSV, Encoding: "utf-8", Delimiter: ","},
		{ID: "2023", Path: "2023.csv", Format: FormatCSV, Encoding: "iso-8859-1", Delimiter: ";"},
		{ID: "2024", Path: "2024.csv", Format: FormatCSV, Encoding: "utf-8", Delimiter: ","},
	}
}

// DelimiterRune returns the delimiter as a rune. Validation guarantees a
// single character.
func DelimiterRune(delimiter string) rune {
	for _, r := range delimiter {
		return r
	}
	return ','
}

// String renders the source for logs.
func (s SourceConfig) String() string {
	return fmt.Sprintf("%s(%s, %s, %q)", s.ID, s.Path, s.Encoding, s.Delimiter)
}
