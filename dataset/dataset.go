// Package dataset loads the raw housing listings file.
//
// The source is a tabular file with exactly seven columns in a fixed order:
// price, district, neighborhood, area, room count, building age, floor.
// Columns are mapped by position, never by header name, so arbitrary or
// localized headers are tolerated. Parsing and validation of the values is
// the cleaning stage's job; this package only reads cells as text.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	kperrors "konutpricer/pkg/errors"
)

// NumColumns is the expected column count of the source file.
const NumColumns = 7

// Raw is one unparsed listing row, cells in source order.
type Raw struct {
	Price        string
	District     string
	Neighborhood string
	Area         string
	Rooms        string
	Age          string
	Floor        string
}

// Record is a parsed, validated listing produced by the cleaning stage.
type Record struct {
	Price        float64
	District     string
	Neighborhood string
	Area         float64
	Rooms        float64
	Age          float64
	Floor        float64
}

// Load reads the file at path, choosing the format by extension
// (.xlsx/.xlsm via excelize, anything else as CSV).
func Load(path string) ([]Raw, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		return LoadCSV(path)
	}
}

// LoadXLSX reads the first sheet of an Excel workbook. The first row is
// treated as a header and skipped.
func LoadXLSX(path string) (_ []Raw, err error) {
	defer kperrors.Recover(&err, "dataset.LoadXLSX")
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, kperrors.NewModelError("dataset.LoadXLSX", "cannot open "+path, kperrors.ErrDataUnavailable)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, kperrors.NewModelError("dataset.LoadXLSX", "workbook has no sheets", kperrors.ErrDataUnavailable)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, kperrors.Wrap(err, "dataset.LoadXLSX")
	}
	if len(rows) <= 1 {
		return nil, kperrors.NewModelError("dataset.LoadXLSX", "workbook has no data rows", kperrors.ErrDataUnavailable)
	}
	out := make([]Raw, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, fromCells(row))
	}
	return out, nil
}

// LoadCSV reads a comma-separated file. The first row is treated as a
// header and skipped.
func LoadCSV(path string) (_ []Raw, err error) {
	defer kperrors.Recover(&err, "dataset.LoadCSV")
	f, err := os.Open(path)
	if err != nil {
		return nil, kperrors.NewModelError("dataset.LoadCSV", "cannot open "+path, kperrors.ErrDataUnavailable)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// ReadCSV reads CSV rows from r, skipping the first (header) row.
func ReadCSV(r io.Reader) (_ []Raw, err error) {
	defer kperrors.Recover(&err, "dataset.ReadCSV")
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // short rows are dropped by the cleaner, not here
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, kperrors.Wrap(err, "dataset.ReadCSV")
	}
	if len(rows) <= 1 {
		return nil, kperrors.NewModelError("dataset.ReadCSV", "no data rows", kperrors.ErrDataUnavailable)
	}
	out := make([]Raw, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, fromCells(row))
	}
	return out, nil
}

func fromCells(cells []string) Raw {
	var r Raw
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	r.Price = get(0)
	r.District = get(1)
	r.Neighborhood = get(2)
	r.Area = get(3)
	r.Rooms = get(4)
	r.Age = get(5)
	r.Floor = get(6)
	return r
}
