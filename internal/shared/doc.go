// Package shared holds code used across packages that belongs to no single
// pipeline stage.
//
// The testutil subpackage provides the log-capturing slog handler and the
// accident fixture writers used by the stage and pipeline tests.
package shared
