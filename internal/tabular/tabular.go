// Package tabular reads and writes the tab-delimited sheets exchanged
// with the archive tooling: quality tables, taxonomy tables, coverage
// tables, MAG metadata and accession logs.
package tabular

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sheet is a fully-read tab-delimited file with a header row.
type Sheet struct {
	headers []string
	index   map[string]int
	rows    [][]string
}

// ReadFile reads a headered TSV file.
func ReadFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Read reads a headered TSV stream.
func Read(r io.Reader) (*Sheet, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	s := &Sheet{index: map[string]int{}}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if s.headers == nil {
			s.headers = fields
			for i, h := range fields {
				s.index[strings.TrimSpace(h)] = i
			}
			continue
		}
		s.rows = append(s.rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if s.headers == nil {
		return nil, fmt.Errorf("empty sheet")
	}
	return s, nil
}

// Headers returns the header row.
func (s *Sheet) Headers() []string { return s.headers }

// Rows returns all data rows.
func (s *Sheet) Rows() [][]string { return s.rows }

// HasColumn reports whether the named column exists.
func (s *Sheet) HasColumn(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Require fails unless every named column is present.
func (s *Sheet) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !s.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required column(s) %s (header is %s)",
			strings.Join(missing, ", "), strings.Join(s.headers, ", "))
	}
	return nil
}

// Get returns the named column of a row, "" when the row is short.
func (s *Sheet) Get(row []string, col string) string {
	i, ok := s.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Writer emits tab-delimited rows. All writes are buffered and flushed
// on Close.
type Writer struct {
	f *os.File
	w *bufio.Writer
}

// NewWriter creates path and writes the header row.
func NewWriter(path string, headers ...string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f, w: bufio.NewWriter(f)}
	if len(headers) > 0 {
		if err := w.Write(headers...); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Write emits one row.
func (w *Writer) Write(fields ...string) error {
	_, err := w.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// WriteFile writes a complete headered TSV in one call.
func WriteFile(path string, headers []string, rows [][]string) error {
	w, err := NewWriter(path, headers...)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row...); err != nil {
			w.f.Close()
			return err
		}
	}
	return w.Close()
}
