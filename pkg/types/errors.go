// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// SchemaError reports a malformed input workbook (missing required columns).
// It is fatal to the run.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input %s: missing required column(s) %v", e.Source, e.Missing)
}

// QueryError reports a remote search or fetch failure. Transient failures
// (rate limiting, server errors, network faults) are retried by the
// resolver; permanent failures are not.
type QueryError struct {
	Op        string
	Term      string
	Transient bool
	Err       error
}

func (e *QueryError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s %q: %s error: %v", e.Op, e.Term, kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// DownloadError reports a per-file download failure. It is recorded in the
// DownloadOutcome and never aborts the batch.
type DownloadError struct {
	Name string
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("downloading %s to %s: %v", e.Name, e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
