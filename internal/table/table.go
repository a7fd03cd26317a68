// Package table reads and writes the whitespace-delimited text tables used
// for every intermediate product of the pipeline (feature files, metrics,
// queried samples, canonical lists).
package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned while decoding tables.
var (
	ErrEmptyTable    = errors.New("table has no header")
	ErrColumnCount   = errors.New("row has the wrong number of columns")
	ErrMissingColumn = errors.New("missing column")
)

// Table is a header plus string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the position of name in the header.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

// Read decodes a table. Blank lines and lines starting with '#' are skipped;
// the first remaining line is the header.
func Read(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var t *Table
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if t == nil {
			t = &Table{Header: fields}
			continue
		}
		if len(fields) != len(t.Header) {
			return nil, fmt.Errorf("%w: line %d has %d, header has %d",
				ErrColumnCount, line, len(fields), len(t.Header))
		}
		t.Rows = append(t.Rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	if t == nil {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// ReadFile decodes the table stored at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write encodes t with single-space separators.
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	if err := writeLine(bw, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("%w: row %d", ErrColumnCount, i)
		}
		if err := writeLine(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile encodes t to path, creating parent directories as needed.
func WriteFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeLine(w *bufio.Writer, fields []string) error {
	_, err := w.WriteString(strings.Join(fields, " ") + "\n")
	return err
}
