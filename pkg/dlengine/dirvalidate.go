package dlengine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotADirectory is returned when the download directory path
	// exists but names a file rather than a directory.
	ErrNotADirectory = errors.New("path is not a directory")
	// ErrDirectoryNotWritable is returned when the download directory
	// exists but cannot be written to.
	ErrDirectoryNotWritable = errors.New("download directory is not writable")
)

// ValidateDownloadDirectory checks that path is a directory the engine can
// actually write segment and output files into. The caller is expected to
// have already created path with MkdirAll; MkdirAll succeeds against an
// existing-but-unwritable directory, so this probes writability directly
// rather than trusting its return value.
func ValidateDownloadDirectory(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat download directory: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}

	probe := filepath.Join(path, fmt.Sprintf(".dlaccel_write_test_%d", os.Getpid()))
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDirectoryNotWritable, path)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
