// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/drivescout/pkg/types"
)

// writeWorkbook creates an .xlsx in dir with the given rows on the first sheet.
func writeWorkbook(t *testing.T, dir string, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for r, row := range rows {
		for c, v := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cellName, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	path := filepath.Join(dir, "input.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}

func TestLoadPreservesOrderAndDuplicates(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]string{
		{"filename", "company"},
		{"invoice_jan.xlsx", "Acme"},
		{"report.pdf", "Acme"},
		{"invoice_jan.xlsx", "Acme"}, // duplicates are legal
		{"missing.docx", "Beta"},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", m.Skipped)
	}

	want := []types.ReferenceRow{
		{Index: 0, Filename: "invoice_jan.xlsx", Company: "Acme"},
		{Index: 1, Filename: "report.pdf", Company: "Acme"},
		{Index: 2, Filename: "invoice_jan.xlsx", Company: "Acme"},
		{Index: 3, Filename: "missing.docx", Company: "Beta"},
	}
	if len(m.Rows) != len(want) {
		t.Fatalf("len(Rows) = %d, want %d", len(m.Rows), len(want))
	}
	for i, row := range m.Rows {
		if row != want[i] {
			t.Errorf("Rows[%d] = %+v, want %+v", i, row, want[i])
		}
	}
}

func TestLoadHeaderCaseInsensitive(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]string{
		{"  FileName ", "COMPANY"},
		{"a.pdf", "Acme"},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Rows) != 1 || m.Rows[0].Filename != "a.pdf" || m.Rows[0].Company != "Acme" {
		t.Errorf("Rows = %+v, want one row a.pdf/Acme", m.Rows)
	}
}

func TestLoadExtraColumnsIgnored(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]string{
		{"notes", "filename", "owner", "company"},
		{"x", "a.pdf", "y", "Acme"},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Rows) != 1 || m.Rows[0].Filename != "a.pdf" || m.Rows[0].Company != "Acme" {
		t.Errorf("Rows = %+v, want one row a.pdf/Acme", m.Rows)
	}
}

func TestLoadMissingColumnIsSchemaError(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		missing string
	}{
		{"no company", []string{"filename", "owner"}, "company"},
		{"no filename", []string{"name", "company"}, "filename"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWorkbook(t, t.TempDir(), [][]string{tt.header, {"a", "b"}})

			_, err := Load(path)
			var schemaErr *types.SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("Load() error = %v, want SchemaError", err)
			}
			if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != tt.missing {
				t.Errorf("Missing = %v, want [%s]", schemaErr.Missing, tt.missing)
			}
		})
	}
}

func TestLoadSkipsBlankFields(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]string{
		{"filename", "company"},
		{"a.pdf", "Acme"},
		{"   ", "Acme"}, // blank filename
		{"b.pdf", ""},   // blank company
		{"c.pdf", "Beta"},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", m.Skipped)
	}
	if len(m.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(m.Rows))
	}
	// Index numbers the kept rows, not the source rows.
	if m.Rows[1].Index != 1 || m.Rows[1].Filename != "c.pdf" {
		t.Errorf("Rows[1] = %+v, want Index 1, c.pdf", m.Rows[1])
	}
}
