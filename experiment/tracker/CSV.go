package tracker

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CSVLog is a results log stored as a CSV file. The header is written
// only when the file is created.
type CSVLog struct {
	path string
}

// NewCSVLog returns a CSVLog writing to path
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Path returns the file the log writes to
func (c *CSVLog) Path() string {
	return c.path
}

// Append appends rows to the log, creating it if needed
func (c *CSVLog) Append(rows ...Row) error {
	_, err := os.Stat(c.path)
	create := errors.Is(err, fs.ErrNotExist)
	if err != nil && !create {
		return fmt.Errorf("append: %w", err)
	}

	if dir := filepath.Dir(c.path); create && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	}
	file, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}

	w := csv.NewWriter(file)
	if create {
		w.Write(Header)
	}
	for _, r := range rows {
		w.Write(r.Record())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("append: %w", err)
	}
	return file.Close()
}

// LoadData loads and returns the records of a CSV results log, header
// included
func LoadData(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %w", err)
	}
	return records, nil
}
