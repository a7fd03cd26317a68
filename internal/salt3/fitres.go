// Package salt3 reads SALT3 light-curve fit results in the SNANA FITRES
// format and turns them into Tripp standardised distances.
package salt3

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
)

// Errors returned while reading fit results.
var (
	ErrNoVarNames   = errors.New("FITRES table has no VARNAMES line")
	ErrColumnCount  = errors.New("FITRES row does not match VARNAMES")
	ErrMissingField = errors.New("missing FITRES field")
	// ErrBadRedshift marks rows whose redshift is a sentinel such as -9.
	ErrBadRedshift = errors.New("redshift must be finite and positive")
)

// Record is one row of a FITRES table.
type Record struct {
	fields map[string]string
}

// NewRecord builds a record from field values.
func NewRecord(fields map[string]string) Record {
	return Record{fields: fields}
}

// ID returns the CID column.
func (r Record) ID() string {
	return r.fields["CID"]
}

// Has reports whether the record carries name.
func (r Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// String returns the raw value of name.
func (r Record) String(name string) (string, error) {
	v, ok := r.fields[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}

// Float returns name as a number.
func (r Record) Float(name string) (float64, error) {
	v, err := r.String(name)
	if err != nil {
		return 0, err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("field %s of %s: %w", name, r.ID(), err)
	}
	return f, nil
}

// FloatOr returns name as a number, or def when the field is absent.
func (r Record) FloatOr(name string, def float64) (float64, error) {
	if !r.Has(name) {
		return def, nil
	}
	return r.Float(name)
}

// FirstFloat returns the first present field among names.
func (r Record) FirstFloat(names ...string) (float64, error) {
	for _, n := range names {
		if r.Has(n) {
			return r.Float(n)
		}
	}
	return 0, fmt.Errorf("%w: none of %s", ErrMissingField, strings.Join(names, ", "))
}

// ParseFITRES reads a FITRES table. Comment lines start with '#'.
func ParseFITRES(r io.Reader) ([]Record, error) {
	var (
		names   []string
		records []Record
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "VARNAMES:":
			names = fields[1:]
		case "SN:":
			if names == nil {
				return nil, fmt.Errorf("line %d: %w", line, ErrNoVarNames)
			}
			values := fields[1:]
			if len(values) != len(names) {
				return nil, fmt.Errorf("line %d: %w: %d values for %d names", line, ErrColumnCount, len(values), len(names))
			}
			rec := make(map[string]string, len(names))
			for i, n := range names {
				rec[n] = values[i]
			}
			records = append(records, Record{fields: rec})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if names == nil {
		return nil, ErrNoVarNames
	}
	return records, nil
}

// ReadFITRES reads the FITRES table at path.
func ReadFITRES(path string) ([]Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ParseFITRES(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
