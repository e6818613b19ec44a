package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"acidentes/internal/charset"
	"acidentes/pkg/contracts/domain"
)

// AccidentHeader is the column layout of the fixture files, a subset of the
// published PRF layout.
var AccidentHeader = []string{
	domain.ColumnID,
	domain.ColumnDate,
	domain.ColumnTime,
	domain.ColumnState,
	domain.ColumnHighway,
	domain.ColumnType,
	domain.ColumnClassification,
	domain.ColumnWeather,
	domain.ColumnInjured,
	domain.ColumnMinorInjuries,
	domain.ColumnSevereInjuries,
}

// AccidentRow builds a fixture record in AccidentHeader order.
type AccidentRow struct {
	ID             string
	Date           string
	Time           string
	State          string
	Highway        string
	Type           string
	Classification string
	Weather        string
	Injured        string
	Minor          string
	Severe         string
}

// Record returns the row as strings in AccidentHeader order.
func (r AccidentRow) Record() []string {
	return []string{
		r.ID, r.Date, r.Time, r.State, r.Highway, r.Type,
		r.Classification, r.Weather, r.Injured, r.Minor, r.Severe,
	}
}

// SampleAccidents returns a small, fully populated set of rows covering the
// three classification labels and every period of day.
func SampleAccidents() []AccidentRow {
	return []AccidentRow{
		{"1", "2023-01-05", "05:30:00", "MG", "040", "Colisão traseira", domain.ClassificationInjured, "Céu Claro", "2", "2", "0"},
		{"2", "2023-02-10", "06:00:00", "SP", "116", "Saída de leito carroçável", domain.ClassificationNone, "Chuva", "0", "0", "0"},
		{"3", "2023-03-15", "12:15:00", "MG", "381", "Colisão frontal", domain.ClassificationFatal, "Nublado", "4", "1", "3"},
		{"4", "2023-04-20", "23:59:59", "PR", "277", "Colisão traseira", domain.ClassificationInjured, "Céu Claro", "12", "10", "2"},
	}
}

// WriteDelimited writes header and records to dir/name with the given
// encoding and delimiter and returns the file path.
func WriteDelimited(t testing.TB, dir, name, encoding string, delimiter rune, header []string, records [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc, err := charset.NewWriter(f, encoding)
	require.NoError(t, err)

	w := csv.NewWriter(enc)
	w.Comma = delimiter
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(records))
	require.NoError(t, enc.Close())
	return path
}

// WriteAccidents writes rows as a source file with the fixture header.
func WriteAccidents(t testing.TB, dir, name, encoding string, delimiter rune, rows []AccidentRow) string {
	t.Helper()

	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return WriteDelimited(t, dir, name, encoding, delimiter, AccidentHeader, records)
}

// ReadLines returns the lines of a text file without the final newline.
func ReadLines(t testing.TB, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}
