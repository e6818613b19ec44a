package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations of one run.
// This is the single source of truth for file paths in the application.
type Paths struct {
	WorkDir   string
	DataDir   string
	OutputDir string
	LogsDir   string
}

// NewPaths resolves the configured directories against the working
// directory. Unlike a long-running service, the batch job is invoked from the
// directory holding the yearly files, so nothing is resolved against the
// executable location.
func NewPaths(cfg *Config) (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(wd, p)
	}

	logsDir := DefaultLogsDir
	if cfg.Logging.FilePath != "" {
		logsDir = filepath.Dir(cfg.Logging.FilePath)
	}

	return &Paths{
		WorkDir:   wd,
		DataDir:   resolve(cfg.Pipeline.DataDir),
		OutputDir: resolve(cfg.Output.Dir),
		LogsDir:   resolve(logsDir),
	}, nil
}

// SourcePath returns the absolute path of a source file
func (p *Paths) SourcePath(src SourceConfig) string {
	if filepath.IsAbs(src.Path) {
		return src.Path
	}
	return filepath.Join(p.DataDir, src.Path)
}

// OutputPath returns the absolute path of a file in the output directory.
// An empty name yields "".
func (p *Paths) OutputPath(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.OutputDir, name)
}

// ManifestPath returns the run manifest location for an output file
func (p *Paths) ManifestPath(outputFile string) string {
	return outputFile + ManifestSuffix
}

// EnsureDirectories creates the output directory if missing
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", p.OutputDir, err)
	}
	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution",
		slog.String("work_dir", p.WorkDir),
		slog.String("data_dir", p.DataDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir))
}
