package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet results are written to
const Sheet = "results"

// XLSXLog mirrors a results log into a spreadsheet workbook
type XLSXLog struct {
	path string
}

// NewXLSXLog returns an XLSXLog writing to path
func NewXLSXLog(path string) *XLSXLog {
	return &XLSXLog{path: path}
}

// Append appends rows to the results sheet, creating the workbook and
// writing the header if the file does not exist
func (x *XLSXLog) Append(rows ...Row) error {
	f, err := x.open()
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	defer f.Close()

	existing, err := f.GetRows(Sheet)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	next := len(existing) + 1

	for _, r := range rows {
		rowData := []interface{}{
			r.Timestamp.Format("2006-01-02T15:04:05.000"),
			r.AgentType,
			round2(r.AvgWaitTime),
			round2(r.AvgQueueLength),
			r.TotalThroughput,
		}
		cell := fmt.Sprintf("A%d", next)
		if err := f.SetSheetRow(Sheet, cell, &rowData); err != nil {
			return fmt.Errorf("append: %w", err)
		}
		next++
	}

	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

func (x *XLSXLog) open() (*excelize.File, error) {
	_, err := os.Stat(x.path)
	if err == nil {
		return excelize.OpenFile(x.path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(Sheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return nil, err
	}
	return f, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
