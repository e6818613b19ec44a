package dataprocessing

import (
	"errors"
	"fmt"

	"acidentes/pkg/contracts/domain"
)

var (
	errNullTime       = errors.New("time of day is missing")
	errHourNotInteger = errors.New("hour is not an integer")
)

// SourceReadError reports a source file that is missing, unreadable or
// malformed. It is fatal: the pipeline needs every configured source.
type SourceReadError struct {
	Source string
	Path   string
	// Line is the 1-based line (or worksheet row) of a malformed record, 0
	// when the failure is not tied to a line.
	Line int
	Err  error
}

func (e *SourceReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read source %s (%s) line %d: %v", e.Source, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("read source %s (%s): %v", e.Source, e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// TimeParseError reports a time-of-day cell that cannot be parsed. It is
// fatal because the hour drives periodo_dia.
type TimeParseError struct {
	// Row is the 0-based row index in the consolidated table.
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("parse %s at row %d: invalid time of day %q: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e *TimeParseError) Unwrap() error {
	return e.Err
}

// MissingColumnError reports a column the pipeline cannot run without.
type MissingColumnError struct {
	Column string
	Stage  string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: required column %q is absent from every source", e.Stage, e.Column)
}

// ColumnAllNullWarning is raised, never returned as a failure, when a column
// has no value to derive a fill value from. The column is left unfilled.
type ColumnAllNullWarning struct {
	Column string
	Kind   domain.ColumnKind
	Rows   int
}

func (w ColumnAllNullWarning) Error() string {
	return fmt.Sprintf("column %q (%s) is null in all %d rows; left unfilled", w.Column, w.Kind, w.Rows)
}
