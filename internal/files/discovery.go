package files

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"acidentes/internal/config"
	apperrors "acidentes/internal/errors"
)

// sniffSize is how much of a file is inspected to guess its layout
const sniffSize = 64 * 1024

// yearlyFile matches the per-year file names published by the PRF portal,
// e.g. 2023.csv or datatran2023.csv.
var yearlyFile = regexp.MustCompile(`^(?:datatran)?(\d{4})\.(csv|xlsx)$`)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Year    string
	Format  string
	Size    int64
	ModTime time.Time
}

// Discovery finds yearly source files in a data directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindYearlyFiles returns the yearly files of dir sorted by year. When a year
// is present as both csv and xlsx, the csv file wins.
func (d *Discovery) FindYearlyFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	byYear := make(map[string]FileInfo)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := yearlyFile.FindStringSubmatch(strings.ToLower(entry.Name()))
		if m == nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		file := FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Year:    m[1],
			Format:  m[2],
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if prev, ok := byYear[file.Year]; ok && prev.Format == config.FormatCSV {
			continue
		}
		byYear[file.Year] = file
	}

	files := make([]FileInfo, 0, len(byYear))
	for _, f := range byYear {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Year < files[j].Year
	})
	return files, nil
}

// DiscoverSources turns the yearly files of dir into source configurations,
// guessing encoding and delimiter of delimited files from their content.
func (d *Discovery) DiscoverSources(dir string) ([]config.SourceConfig, error) {
	found, err := d.FindYearlyFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperrors.NewAppValidationError("no yearly source files found").WithContext("dir", dir)
	}

	sources := make([]config.SourceConfig, 0, len(found))
	for _, f := range found {
		src := config.SourceConfig{ID: f.Year, Path: f.Path, Format: f.Format}
		if f.Format == config.FormatCSV {
			src.Encoding, src.Delimiter, err = SniffFile(f.Path)
			if err != nil {
				return nil, err
			}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// SniffFile guesses the encoding and delimiter of a delimited text file.
func SniffFile(path string) (encoding, delimiter string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	encoding, delimiter = Sniff(head[:n])
	return encoding, delimiter, nil
}

// Sniff guesses the encoding and delimiter of the leading bytes of a
// delimited file. Text that is not valid UTF-8 is taken to be ISO-8859-1,
// which is what the PRF portal uses for its older files. The delimiter is
// the most frequent of ';', ',' and tab in the header line, ',' on a tie.
func Sniff(head []byte) (encoding, delimiter string) {
	encoding = "utf-8"
	body := bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(trimPartialRune(body)) {
		encoding = "iso-8859-1"
	}

	header, _ := bufio.NewReader(bytes.NewReader(body)).ReadString('\n')
	delimiter = ","
	best := strings.Count(header, ",")
	for _, candidate := range []string{";", "\t"} {
		if c := strings.Count(header, candidate); c > best {
			best = c
			delimiter = candidate
		}
	}
	return encoding, delimiter
}

// trimPartialRune drops a multi-byte sequence cut off by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
