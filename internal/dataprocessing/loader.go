package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"acidentes/internal/charset"
	"acidentes/internal/config"
	apperrors "acidentes/internal/errors"
)

// naValues are the raw tokens read as missing, on top of the empty string.
// They mirror the defaults of the tooling the PRF files were first analysed
// with, so that null counts agree with the published exploration.
var naValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

// Source is one yearly input as the loader sees it.
type Source struct {
	ID        string
	Path      string
	Format    string
	Encoding  string
	Delimiter rune
	Sheet     string
}

// SourceFromConfig resolves a configured source against paths.
func SourceFromConfig(src config.SourceConfig, paths *config.Paths) Source {
	return Source{
		ID:        src.ID,
		Path:      paths.SourcePath(src),
		Format:    src.Format,
		Encoding:  src.Encoding,
		Delimiter: config.DelimiterRune(src.Delimiter),
		Sheet:     src.Sheet,
	}
}

// SourceTable pairs a loaded table with the source it came from.
type SourceTable struct {
	Source Source
	Table  *Table
}

// Loader reads yearly source files into tables, keeping column names and raw
// cell values verbatim.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// Load reads every source in order. The first failure aborts the load.
func (l *Loader) Load(ctx context.Context, sources []Source) ([]SourceTable, error) {
	tables := make([]SourceTable, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := l.LoadSource(ctx, src)
		if err != nil {
			return nil, err
		}
		tables = append(tables, SourceTable{Source: src, Table: table})
	}
	return tables, nil
}

// LoadSource reads a single source according to its format.
func (l *Loader) LoadSource(ctx context.Context, src Source) (*Table, error) {
	var (
		table *Table
		err   error
	)
	switch src.Format {
	case "", config.FormatCSV:
		table, err = l.loadCSV(src)
	case config.FormatXLSX:
		table, err = l.loadXLSX(src)
	default:
		err = &SourceReadError{Source: src.ID, Path: src.Path, Err: fmt.Errorf("unsupported format %q", src.Format)}
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to load source",
			slog.String("source", src.ID),
			slog.String("path", src.Path),
			slog.String("error", err.Error()))
		return nil, err
	}

	l.logger.InfoContext(ctx, "Source loaded",
		slog.String("source", src.ID),
		slog.String("path", src.Path),
		slog.String("format", formatName(src.Format)),
		slog.String("encoding", src.Encoding),
		slog.Int("rows", table.Len()),
		slog.Int("columns", table.Width()))

	return table, nil
}

func (l *Loader) loadCSV(src Source) (*Table, error) {
	fail := func(line int, err error) error {
		return &SourceReadError{Source: src.ID, Path: src.Path, Line: line, Err: err}
	}
	malformed := func(line int, err error) error {
		return fail(line, apperrors.NewParsingError("malformed source", err))
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fail(0, openError(err))
	}
	defer f.Close()

	decoded, err := charset.NewReader(f, src.Encoding)
	if err != nil {
		return nil, fail(0, err)
	}

	reader := csv.NewReader(decoded)
	reader.Comma = src.Delimiter
	reader.LazyQuotes = true
	// Every record must match the header width.
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, malformed(0, errors.New("file is empty"))
	}
	if err != nil {
		return nil, malformed(parseErrorLine(err), err)
	}

	table, err := NewTable(dedupeHeader(header))
	if err != nil {
		return nil, malformed(1, err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(parseErrorLine(err), err)
		}
		if err := table.appendRow(rawRow(record)); err != nil {
			line, _ := reader.FieldPos(0)
			return nil, malformed(line, err)
		}
	}

	return table, nil
}

func (l *Loader) loadXLSX(src Source) (*Table, error) {
	fail := func(line int, err error) error {
		return &SourceReadError{Source: src.ID, Path: src.Path, Line: line, Err: err}
	}
	malformed := func(line int, err error) error {
		return fail(line, apperrors.NewParsingError("malformed workbook", err))
	}

	if _, err := os.Stat(src.Path); err != nil {
		return nil, fail(0, openError(err))
	}

	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, malformed(0, err)
	}
	defer f.Close()

	sheet := src.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, malformed(0, errors.New("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, malformed(0, fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	if len(rows) == 0 {
		return nil, malformed(0, fmt.Errorf("sheet %q is empty", sheet))
	}

	table, err := NewTable(dedupeHeader(rows[0]))
	if err != nil {
		return nil, malformed(1, err)
	}

	width := table.Width()
	for i, record := range rows[1:] {
		// Worksheets drop trailing empty cells; a longer row is malformed.
		if len(record) > width {
			return nil, malformed(i+2, fmt.Errorf("%w: row has %d fields, header has %d", csv.ErrFieldCount, len(record), width))
		}
		padded := make([]string, width)
		copy(padded, record)
		if err := table.appendRow(rawRow(padded)); err != nil {
			return nil, malformed(i+2, err)
		}
	}

	return table, nil
}

// openError marks a missing source file as not found.
func openError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewNotFoundError("source file", err)
	}
	return err
}

// rawRow converts raw strings into cells, mapping NA tokens to nulls.
func rawRow(record []string) []Cell {
	row := make([]Cell, len(record))
	for j, v := range record {
		if isNA(v) {
			row[j] = NullCell()
			continue
		}
		row[j] = NewCell(v)
	}
	return row
}

func isNA(v string) bool {
	if v == "" {
		return true
	}
	_, ok := naValues[v]
	return ok
}

// dedupeHeader renames repeated column names to name.1, name.2, ... so that
// every column stays addressable.
func dedupeHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		candidate := name
		for {
			if _, dup := seen[candidate]; !dup {
				break
			}
			seen[name]++
			candidate = name + "." + strconv.Itoa(seen[name])
		}
		seen[candidate] = 0
		out[i] = candidate
	}
	return out
}

func parseErrorLine(err error) int {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return perr.Line
	}
	return 0
}

func formatName(format string) string {
	if strings.TrimSpace(format) == "" {
		return config.FormatCSV
	}
	return format
}
