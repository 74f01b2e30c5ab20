// Package source loads historical bond auction results from spreadsheets.
package source

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"bondsim/internal/yield"
)

// Spreadsheet column headers.
const (
	ColumnYear  = "Year"
	ColumnMonth = "Month"
	ColumnTenor = "Tenor (Years)"
	ColumnYield = "Weighted Avg Yield (%)"
)

var ErrMissingColumn = errors.New("missing column")

// Parse reads the first sheet of an xlsx workbook. Rows where any of the four
// columns is empty or not numeric are skipped.
func Parse(r io.Reader) ([]yield.Observation, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]yield.Observation, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	cols := make([]int, 0, 4)
	for _, name := range []string{ColumnYear, ColumnMonth, ColumnTenor, ColumnYield} {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		cols = append(cols, i)
	}

	out := make([]yield.Observation, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var vals [4]float64
		ok := true
		for k, c := range cols {
			v, good := cell(row, c)
			if !good {
				ok = false
				break
			}
			vals[k] = v
		}
		if !ok {
			continue
		}
		out = append(out, yield.Observation{
			Year:  int(vals[0]),
			Month: int(vals[1]),
			Tenor: int(vals[2]),
			Yield: vals[3],
		})
	}
	return out, nil
}

func cell(row []string, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(strings.ReplaceAll(row[i], ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
