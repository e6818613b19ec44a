package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"acidentes/internal/charset"
	"acidentes/internal/config"
	"acidentes/internal/dataprocessing"
)

// CSVWriter provides delimited-text export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative file names are
// resolved against the output directory of paths.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger.With(slog.String("component", "exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Encoding  string
	Delimiter rune
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// OptionsFromConfig returns the write options configured for exports.
func OptionsFromConfig(cfg config.OutputConfig) WriteOptions {
	return WriteOptions{
		Encoding:  cfg.Encoding,
		Delimiter: config.DelimiterRune(cfg.Delimiter),
	}
}

// WriteCSV writes headers and records to filePath, replacing any previous
// file atomically. Lines end with "\n" and fields are quoted only when
// needed, so the same input always produces the same bytes.
func (w *CSVWriter) WriteCSV(ctx context.Context, filePath string, options WriteOptions) (FileResult, error) {
	stream, err := w.CreateStreamWriter(filePath, options)
	if err != nil {
		return FileResult{}, err
	}

	for i, record := range options.Records {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				stream.Abort()
				return FileResult{}, err
			}
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Abort()
			return FileResult{}, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	result, err := stream.Close()
	if err != nil {
		return FileResult{}, err
	}

	w.logger.InfoContext(ctx, "CSV file written",
		slog.String("path", result.Path),
		slog.Int("record_count", result.Rows),
		slog.Int64("bytes", result.Bytes),
		slog.String("encoding", encodingName(options.Encoding)))

	return result, nil
}

// WriteTable writes a table with its column order as the header.
func (w *CSVWriter) WriteTable(ctx context.Context, filePath string, table *dataprocessing.Table, options WriteOptions) (FileResult, error) {
	options.Headers = table.Columns()
	options.Records = table.Records()
	return w.WriteCSV(ctx, filePath, options)
}

// StreamWriter writes records to a temporary file that replaces the target
// only when Close succeeds.
type StreamWriter struct {
	file    *atomicFile
	encoder io.WriteCloser
	writer  *csv.Writer
	rows    int
}

// CreateStreamWriter opens a stream for filePath and writes the header.
func (w *CSVWriter) CreateStreamWriter(filePath string, options WriteOptions) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(options.Headers)))

	file, err := createAtomic(fullPath)
	if err != nil {
		return nil, err
	}

	if options.BOMPrefix && charset.IsUTF8(encodingName(options.Encoding)) {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			file.Abort()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	encoder, err := charset.NewWriter(file, encodingName(options.Encoding))
	if err != nil {
		file.Abort()
		return nil, err
	}

	writer := csv.NewWriter(encoder)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}
	writer.UseCRLF = false

	stream := &StreamWriter{file: file, encoder: encoder, writer: writer}
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			file.Abort()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return stream, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return err
	}
	s.rows++
	return nil
}

// Close flushes the stream and moves it into place.
func (s *StreamWriter) Close() (FileResult, error) {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Abort()
		return FileResult{}, fmt.Errorf("failed to flush records: %w", err)
	}
	if err := s.encoder.Close(); err != nil {
		s.file.Abort()
		return FileResult{}, fmt.Errorf("failed to encode records: %w", err)
	}

	result, err := s.file.Commit()
	if err != nil {
		return FileResult{}, err
	}
	result.Rows = s.rows
	return result, nil
}

// Abort discards everything written so far.
func (s *StreamWriter) Abort() {
	s.file.Abort()
}

// resolvePath resolves a relative path against the output directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.OutputPath(filePath)
}

func encodingName(name string) string {
	if name == "" {
		return charset.UTF8
	}
	return name
}
