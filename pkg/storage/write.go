package storage

import (
	"errors"
	"io"
	"os"
)

// EnsureDir creates dir and its parents if missing. Safe to call concurrently.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// WriteFile replaces the content of filePath with data.
// Writes go straight to the final name: a crash mid-write leaves a truncated file.
func WriteFile(filePath string, data []byte) error {
	return os.WriteFile(filePath, data, 0o644)
}

// WriteFrom truncates filePath and copies r into it, returning the number of bytes written.
func WriteFrom(filePath string, r io.Reader) (n int64, err error) {
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return io.Copy(f, r)
}
