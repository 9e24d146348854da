// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report groups match results by company and renders the
// Found/Not-Found workbook plus a YAML run summary.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/drivescout/pkg/types"
)

// sheetNameLimit is Excel's hard cap on sheet name length.
const sheetNameLimit = 31

// header is the column layout shared by the Found and Not-Found blocks.
// Found rows carry matched name/id/link; Not-Found rows carry the reason.
var header = []interface{}{"company", "input filename", "status", "matched name", "file id", "link", "reason"}

// Build groups results by exact company string. Companies appear in order
// of first appearance among the input rows; within a company, Found rows
// precede Not-Found rows and both preserve original row order. Every result
// lands in exactly one group.
//
// Company casing is not normalized: "Acme" and "ACME" are distinct groups
// by decision, so reference data must use consistent casing.
func Build(results []types.MatchResult) []types.CompanyGroup {
	ordered := make([]types.MatchResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Row.Index < ordered[j].Row.Index
	})

	index := make(map[string]int)
	var groups []types.CompanyGroup
	for _, res := range ordered {
		gi, ok := index[res.Row.Company]
		if !ok {
			gi = len(groups)
			index[res.Row.Company] = gi
			groups = append(groups, types.CompanyGroup{Company: res.Row.Company})
		}
		if res.Found() {
			groups[gi].Found = append(groups[gi].Found, res)
		} else {
			groups[gi].NotFound = append(groups[gi].NotFound, res)
		}
	}
	return groups
}

// WriteWorkbook renders one sheet per company group at path. Rendering the
// same groups twice produces identical content; cell writes are fully
// determined by the group ordering contract.
func WriteWorkbook(groups []types.CompanyGroup, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetList()[0]

	used := make(map[string]bool)
	for _, g := range groups {
		sheet := sheetName(g.Company, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
		if err := writeGroup(f, sheet, g); err != nil {
			return err
		}
	}

	if len(groups) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report %s: %w", path, err)
	}
	return nil
}

// writeGroup writes the header, the Found block, then the Not-Found block.
func writeGroup(f *excelize.File, sheet string, g types.CompanyGroup) error {
	rowNum := 1
	if err := setRow(f, sheet, rowNum, header); err != nil {
		return err
	}

	for _, res := range g.Found {
		rowNum++
		cells := []interface{}{
			res.Row.Company,
			res.Row.Filename,
			string(res.Status),
			res.Resolved.Name,
			res.Resolved.ID,
			res.Resolved.WebViewLink,
			"",
		}
		if err := setRow(f, sheet, rowNum, cells); err != nil {
			return err
		}
	}

	for _, res := range g.NotFound {
		rowNum++
		cells := []interface{}{
			res.Row.Company,
			res.Row.Filename,
			string(res.Status),
			"", "", "",
			res.Reason,
		}
		if err := setRow(f, sheet, rowNum, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

// sheetName maps a company to a legal, unique Excel sheet name: illegal
// characters replaced, truncated to 31 characters, numeric suffix on
// collision.
func sheetName(company string, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, company)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "company"
	}
	// Truncation counts runes; a byte cut could split a multi-byte
	// character and produce an invalid sheet name.
	if r := []rune(cleaned); len(r) > sheetNameLimit {
		cleaned = string(r[:sheetNameLimit])
	}

	name := cleaned
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(cleaned)
		if len(base)+len(suffix) > sheetNameLimit {
			base = base[:sheetNameLimit-len(suffix)]
		}
		name = string(base) + suffix
	}
	used[name] = true
	return name
}

// Summary is the YAML sidecar written next to the report. Failure counts
// are part of the report artifact, not a side channel.
type Summary struct {
	GeneratedAt    time.Time      `yaml:"generated_at"`
	Input          string         `yaml:"input"`
	Report         string         `yaml:"report"`
	Rows           int            `yaml:"rows"`
	Skipped        int            `yaml:"skipped"`
	Found          int            `yaml:"found"`
	NotFound       int            `yaml:"not_found"`
	Reasons        map[string]int `yaml:"reasons,omitempty"`
	Downloaded     int            `yaml:"downloaded,omitempty"`
	DownloadFailed int            `yaml:"download_failed,omitempty"`
}

// NewSummary tallies results into a Summary. Query-failure reasons collapse
// under one key so the tally stays stable across differing error texts.
func NewSummary(input, reportPath string, skipped int, results []types.MatchResult) Summary {
	s := Summary{
		GeneratedAt: time.Now().UTC(),
		Input:       input,
		Report:      reportPath,
		Rows:        len(results),
		Skipped:     skipped,
		Reasons:     make(map[string]int),
	}
	for _, res := range results {
		if res.Found() {
			s.Found++
			continue
		}
		s.NotFound++
		reason := res.Reason
		if strings.HasPrefix(reason, types.ReasonQueryFailed) {
			reason = types.ReasonQueryFailed
		}
		s.Reasons[reason]++
	}
	return s
}

// WriteSummary writes the summary as YAML to path.
func WriteSummary(s Summary, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}
