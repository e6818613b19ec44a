package exporter

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/crypto/blake2b"

	apperrors "acidentes/internal/errors"
)

// atomicFile writes to a temporary file next to the target and only replaces
// the target on Commit. Until then a previous version of the target, if any,
// is left untouched.
type atomicFile struct {
	target  string
	tmp     *os.File
	digest  hash.Hash
	counter *countingWriter
	w       io.Writer
	done    bool
}

func createAtomic(target string) (*atomicFile, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageError("failed to create directory", target, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, storageError("failed to create temporary file", target, err)
	}

	digest, err := blake2b.New256(nil)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	counter := &countingWriter{}
	return &atomicFile{
		target:  target,
		tmp:     tmp,
		digest:  digest,
		counter: counter,
		w:       io.MultiWriter(tmp, digest, counter),
	}, nil
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.w.Write(p)
}

// Commit syncs the temporary file, renames it over the target and syncs the
// directory so the new entry survives a crash.
func (a *atomicFile) Commit() (FileResult, error) {
	if a.done {
		return FileResult{}, fmt.Errorf("file %s already finalized", a.target)
	}
	a.done = true

	if err := a.tmp.Sync(); err != nil {
		a.discard()
		return FileResult{}, storageError("failed to sync file", a.target, err)
	}
	if err := a.tmp.Chmod(0644); err != nil {
		a.discard()
		return FileResult{}, storageError("failed to set file mode", a.target, err)
	}
	if err := a.tmp.Close(); err != nil {
		os.Remove(a.tmp.Name())
		return FileResult{}, storageError("failed to close file", a.target, err)
	}
	if err := os.Rename(a.tmp.Name(), a.target); err != nil {
		os.Remove(a.tmp.Name())
		return FileResult{}, storageError("failed to replace file", a.target, err)
	}
	if err := syncDir(filepath.Dir(a.target)); err != nil {
		return FileResult{}, storageError("failed to sync directory", a.target, err)
	}

	return FileResult{
		Path:   a.target,
		Bytes:  a.counter.n,
		Digest: hex.EncodeToString(a.digest.Sum(nil)),
	}, nil
}

// Abort removes the temporary file. It is a no-op after Commit.
func (a *atomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.discard()
}

func (a *atomicFile) discard() {
	a.tmp.Close()
	os.Remove(a.tmp.Name())
}

// syncDir flushes the entries of dir. Windows cannot open a directory for
// syncing.
var syncDir = func(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func storageError(message, path string, cause error) error {
	return apperrors.NewStorageError(message, cause).WithContext("path", path)
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// FileResult describes a file the exporter wrote.
type FileResult struct {
	Path  string `json:"path"`
	Rows  int    `json:"rows,omitempty"`
	Bytes int64  `json:"bytes"`
	// Digest is the hex BLAKE2b-256 of the file contents.
	Digest string `json:"blake2b_256"`
}
