// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the drivescout pipeline:
// reference rows loaded from the input workbook, candidate entries returned
// by the remote search, match classifications, company groupings, and
// download outcomes.
package types

// MatchStatus classifies a reference row after resolution.
type MatchStatus string

const (
	StatusFound    MatchStatus = "Found"
	StatusNotFound MatchStatus = "Not Found"
)

// Not-found reasons. ReasonQueryFailed is a prefix; the underlying error
// text is appended for diagnostics.
const (
	ReasonNoCandidates = "no candidates"
	ReasonAllExcluded  = "all candidates excluded"
	ReasonQueryFailed  = "query failed"
)

// ReferenceRow is one (filename, company) pair from the input workbook.
// Rows are immutable once loaded.
type ReferenceRow struct {
	// Index is the position of the row among the kept input rows, starting
	// at 0. Report ordering is reconstructed from it after any parallel
	// resolution, never from completion order.
	Index int `json:"index" yaml:"index"`

	// Filename is the name to locate in the remote store. Never empty.
	Filename string `json:"filename" yaml:"filename"`

	// Company is the organizational attribute used for grouping. Never empty.
	Company string `json:"company" yaml:"company"`
}

// CandidateEntry is one remote search hit for a term, before filtering.
type CandidateEntry struct {
	// ID is the remote file identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the remote file name.
	Name string `json:"name" yaml:"name"`

	// MimeType is the remote MIME type, when reported.
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`

	// Size is the remote size in bytes, when reported.
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`

	// WebViewLink is a browser link to the remote file, when reported.
	WebViewLink string `json:"web_view_link,omitempty" yaml:"web_view_link,omitempty"`
}

// MatchResult is the classification of a single reference row. Exactly one
// is produced per row. Resolved is set iff Status is StatusFound; Reason is
// set iff Status is StatusNotFound.
type MatchResult struct {
	Row      ReferenceRow    `json:"row" yaml:"row"`
	Status   MatchStatus     `json:"status" yaml:"status"`
	Resolved *CandidateEntry `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Reason   string          `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Found reports whether the row resolved to a remote entry.
func (m MatchResult) Found() bool {
	return m.Status == StatusFound
}

// CompanyGroup is the per-company bucket of results, rebuilt each run.
// Found and NotFound each preserve original row order.
type CompanyGroup struct {
	Company  string        `json:"company" yaml:"company"`
	Found    []MatchResult `json:"found" yaml:"found"`
	NotFound []MatchResult `json:"not_found" yaml:"not_found"`
}

// DownloadOutcome records the result of downloading one Found match.
// Err is the isolated per-file failure text; empty on success.
type DownloadOutcome struct {
	Result    MatchResult `json:"result" yaml:"result"`
	LocalPath string      `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	Err       string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the download succeeded.
func (o DownloadOutcome) OK() bool {
	return o.Err == ""
}
