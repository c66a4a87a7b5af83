package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/torosent/surgefire/internal/runner"
)

// WriteFile renders report into path. Concurrent runs writing the same path
// are serialized through an adjacent ".lock" file, and the report is written
// to a temporary file first so readers never see a partial document.
func WriteFile(path, format string, report *runner.Report) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, report); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
