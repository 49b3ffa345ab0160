package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

// Writer stores text artifacts (cleaned transcripts, raw logs, summaries).
type Writer struct {
	log pslog.Logger
}

// NewWriter constructs a writer. A nil logger disables logging.
func NewWriter(logger pslog.Logger) *Writer {
	return &Writer{log: logger}
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("artifact path is required")
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// WriteText atomically replaces path with text.
func WriteText(path string, text string) error {
	return NewWriter(nil).Write(path, text)
}

// ReadText reads a UTF-8 artifact.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces path with text via a temp file in the same directory.
func (w *Writer) Write(path string, text string) error {
	if err := w.write(path, text); err != nil {
		if w.log != nil {
			w.log.Warn("artifact write failed", "path", path, "err", err)
		}
		return err
	}
	if w.log != nil {
		w.log.Debug("artifact write ok", "path", path, "bytes", len(text))
	}
	return nil
}

func (w *Writer) write(path string, text string) error {
	if err := EnsureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
