package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Appender adds rows to a table file across several calls, writing the
// header only when the file is first created. It is safe for concurrent use.
type Appender struct {
	path   string
	header []string
	mu     sync.Mutex
	ready  bool
}

// NewAppender prepares an appender; nothing is written until Append.
// An existing file at path is truncated on the first Append so that every
// run starts from a fresh table.
func NewAppender(path string, header []string) *Appender {
	return &Appender{path: path, header: header}
}

// Path returns the file the appender writes to.
func (a *Appender) Path() string {
	return a.path
}

// Append writes one row.
func (a *Appender) Append(row []string) error {
	if len(row) != len(a.header) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrColumnCount, len(row), len(a.header))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if !a.ready {
		if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
			return err
		}
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(filepath.Clean(a.path), flags, 0o644)
	if err != nil {
		return err
	}

	var b strings.Builder
	if !a.ready {
		b.WriteString(strings.Join(a.header, " ") + "\n")
	}
	b.WriteString(strings.Join(row, " ") + "\n")

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	a.ready = true
	return f.Close()
}
