package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acidentes/internal/config"
	"acidentes/internal/infrastructure"
	"acidentes/internal/shared/testutil"
)

// writeConfig writes a YAML configuration reading the given sources from dir
// and points ACIDENTES_CONFIG_FILE at it.
func writeConfig(t *testing.T, dir string, sources ...string) {
	t.Helper()

	yaml := fmt.Sprintf(`pipeline:
  data_dir: %q
  reference_date: "2024-06-30"
output:
  dir: %q
  file_name: out.csv
  consolidated_file_name: ""
  encoding: utf-8
  delimiter: ";"
  write_manifest: true
logging:
  level: error
  format: json
  output: console
sources:
`, dir, dir)
	for _, id := range sources {
		yaml += fmt.Sprintf("  - id: %q\n    path: %s.csv\n    encoding: utf-8\n    delimiter: \",\"\n", id, id)
	}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv(config.EnvPrefix+"_CONFIG_FILE", path)

	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteAccidents(t, dir, "2023.csv", "utf-8", ',', testutil.SampleAccidents())
	writeConfig(t, dir, "2023")

	assert.Equal(t, 0, run(context.Background()))

	lines := testutil.ReadLines(t, filepath.Join(dir, "out.csv"))
	assert.Len(t, lines, 5)
	assert.FileExists(t, filepath.Join(dir, "out.csv"+config.ManifestSuffix))
	assert.NoFileExists(t, filepath.Join(dir, config.DefaultConsolidatedFileName))
}

func TestRun_MissingSourceExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "2023")

	assert.Equal(t, 1, run(context.Background()))
	assert.NoFileExists(t, filepath.Join(dir, "out.csv"))
}

func TestRun_InvalidConfigExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "2023")
	t.Setenv(config.EnvPrefix+"_OUTPUT_DELIMITER", ";;")

	assert.Equal(t, 1, run(context.Background()))
}
