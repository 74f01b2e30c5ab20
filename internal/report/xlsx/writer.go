// Package xlsx writes simulation reports as Excel workbooks.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"bondsim/internal/core"
	"bondsim/internal/report"
)

const SheetName = "Sheet1"

// Writer stores workbooks in Dir.
type Writer struct {
	Dir string
}

var _ report.Writer = (*Writer)(nil)

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Write saves the workbook as report.FileName in Dir and returns its path.
// Failures wrap core.ErrReportWrite.
func (w *Writer) Write(ctx context.Context, doc report.Document) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create report dir: %v", core.ErrReportWrite, err)
	}
	path := filepath.Join(w.Dir, report.FileName(doc.Params, doc.RunID))
	if err := SaveAs(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// Path returns where a report with the given name lives, rejecting names
// that would escape Dir.
func (w *Writer) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || filepath.Ext(name) != ".xlsx" {
		return "", false
	}
	return filepath.Join(w.Dir, name), true
}

// SaveAs writes the workbook for doc to path.
func SaveAs(path string, doc report.Document) error {
	f, err := Build(doc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: save %s: %v", core.ErrReportWrite, path, err)
	}
	return nil
}

// Build lays out the header row and one row per month on SheetName.
func Build(doc report.Document) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, row := range report.Table(doc.Result) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", core.ErrReportWrite, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: write row %d: %v", core.ErrReportWrite, i+1, err)
		}
	}
	return f, nil
}
