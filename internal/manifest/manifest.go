// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest reads the input reference workbook into validated
// (filename, company) rows.
package manifest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/drivescout/pkg/types"
)

// Required input columns, matched case-insensitively against the header row.
const (
	columnFilename = "filename"
	columnCompany  = "company"
)

// Manifest holds the validated reference rows and the count of rows dropped
// for empty filename or company, so callers can surface it.
type Manifest struct {
	Rows    []types.ReferenceRow
	Skipped int
}

// Load reads the first sheet of the workbook at path. The header row must
// contain "filename" and "company" columns (any casing); a missing column
// is a SchemaError. Rows with a blank filename or company are dropped and
// counted. Source order is preserved and no deduplication is applied:
// duplicate filenames are legal and each produces its own match later.
func Load(path string) (Manifest, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Manifest{}, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Manifest{}, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Manifest{}, &types.SchemaError{Source: path, Missing: []string{columnFilename, columnCompany}}
	}

	filenameCol, companyCol, err := locateColumns(path, rows[0])
	if err != nil {
		return Manifest{}, err
	}

	var m Manifest
	for _, row := range rows[1:] {
		filename := strings.TrimSpace(cell(row, filenameCol))
		company := strings.TrimSpace(cell(row, companyCol))
		if filename == "" || company == "" {
			// Only count rows that carry something; fully blank trailing
			// rows are an Excel artifact, not user data.
			if filename != "" || company != "" {
				m.Skipped++
			}
			continue
		}
		m.Rows = append(m.Rows, types.ReferenceRow{
			Index:    len(m.Rows),
			Filename: filename,
			Company:  company,
		})
	}
	return m, nil
}

// locateColumns finds the filename and company column positions in the
// header row.
func locateColumns(source string, header []string) (filenameCol, companyCol int, err error) {
	filenameCol, companyCol = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case columnFilename:
			if filenameCol < 0 {
				filenameCol = i
			}
		case columnCompany:
			if companyCol < 0 {
				companyCol = i
			}
		}
	}

	var missing []string
	if filenameCol < 0 {
		missing = append(missing, columnFilename)
	}
	if companyCol < 0 {
		missing = append(missing, columnCompany)
	}
	if len(missing) > 0 {
		return 0, 0, &types.SchemaError{Source: source, Missing: missing}
	}
	return filenameCol, companyCol, nil
}

// cell returns row[i], tolerating the short rows excelize produces when
// trailing cells are empty.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
