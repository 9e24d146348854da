// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pdiddy/drivescout/pkg/types"
)

// mockFetcher serves canned bytes per entry ID and fails the IDs in fail.
type mockFetcher struct {
	content map[string]string
	fail    map[string]bool
}

func (m *mockFetcher) Fetch(ctx context.Context, entry types.CandidateEntry) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.fail[entry.ID] {
		return nil, errors.New("boom")
	}
	return io.NopCloser(strings.NewReader(m.content[entry.ID])), nil
}

// cancellingFetcher cancels the run after serving a fixed number of fetches.
type cancellingFetcher struct {
	inner  *mockFetcher
	cancel context.CancelFunc
	after  int32
	calls  int32
}

func (c *cancellingFetcher) Fetch(ctx context.Context, entry types.CandidateEntry) (io.ReadCloser, error) {
	rc, err := c.inner.Fetch(ctx, entry)
	if atomic.AddInt32(&c.calls, 1) >= c.after {
		c.cancel()
	}
	return rc, err
}

func foundResult(idx int, filename, company, id, name string) types.MatchResult {
	return types.MatchResult{
		Row:      types.ReferenceRow{Index: idx, Filename: filename, Company: company},
		Status:   types.StatusFound,
		Resolved: &types.CandidateEntry{ID: id, Name: name},
	}
}

func cfg() types.DownloadConfig {
	return types.DownloadConfig{Concurrency: 2}
}

func TestAllWritesCompanyTree(t *testing.T) {
	dest := t.TempDir()
	f := &mockFetcher{content: map[string]string{"f1": "alpha", "f2": "beta"}}
	results := []types.MatchResult{
		foundResult(0, "a.pdf", "Acme", "f1", "a.pdf"),
		foundResult(1, "b.pdf", "Beta Corp", "f2", "b.pdf"),
	}

	batch := All(context.Background(), f, results, dest, cfg(), &bytes.Buffer{})
	if batch.Downloaded != 2 || batch.Failed != 0 {
		t.Fatalf("batch = %d saved, %d failed; want 2, 0", batch.Downloaded, batch.Failed)
	}

	data, err := os.ReadFile(filepath.Join(dest, "Acme", "a.pdf"))
	if err != nil {
		t.Fatalf("reading Acme/a.pdf: %v", err)
	}
	if string(data) != "alpha" {
		t.Errorf("content = %q, want alpha", data)
	}
	if _, err := os.Stat(filepath.Join(dest, "Beta Corp", "b.pdf")); err != nil {
		t.Errorf("Beta Corp/b.pdf missing: %v", err)
	}
}

func TestAllSkipsNotFoundRows(t *testing.T) {
	f := &mockFetcher{content: map[string]string{"f1": "x"}}
	results := []types.MatchResult{
		foundResult(0, "a.pdf", "Acme", "f1", "a.pdf"),
		{
			Row:    types.ReferenceRow{Index: 1, Filename: "b.pdf", Company: "Acme"},
			Status: types.StatusNotFound,
			Reason: types.ReasonNoCandidates,
		},
	}

	batch := All(context.Background(), f, results, t.TempDir(), cfg(), &bytes.Buffer{})
	if len(batch.Outcomes) != 1 {
		t.Fatalf("len(Outcomes) = %d, want 1 (no outcome for Not Found)", len(batch.Outcomes))
	}
}

func TestAllIsolatesFailures(t *testing.T) {
	const n = 5
	f := &mockFetcher{content: map[string]string{}, fail: map[string]bool{"f2": true}}
	var results []types.MatchResult
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("f%d", i)
		f.content[id] = "data"
		results = append(results, foundResult(i, id+".pdf", "Acme", id, id+".pdf"))
	}

	batch := All(context.Background(), f, results, t.TempDir(), cfg(), &bytes.Buffer{})
	if len(batch.Outcomes) != n {
		t.Fatalf("len(Outcomes) = %d, want %d", len(batch.Outcomes), n)
	}
	if batch.Failed != 1 || batch.Downloaded != n-1 {
		t.Fatalf("batch = %d saved, %d failed; want %d, 1", batch.Downloaded, batch.Failed, n-1)
	}
	for i, o := range batch.Outcomes {
		if o.Result.Row.Index != i {
			t.Errorf("Outcomes[%d].Row.Index = %d, order not preserved", i, o.Result.Row.Index)
		}
		wantErr := o.Result.Resolved.ID == "f2"
		if wantErr == o.OK() {
			t.Errorf("Outcomes[%d] OK = %v, want failure only for f2", i, o.OK())
		}
	}
}

func TestAllOverwritesExistingFile(t *testing.T) {
	dest := t.TempDir()
	results := []types.MatchResult{foundResult(0, "a.pdf", "Acme", "f1", "a.pdf")}

	f := &mockFetcher{content: map[string]string{"f1": "first"}}
	All(context.Background(), f, results, dest, cfg(), &bytes.Buffer{})

	f.content["f1"] = "second"
	batch := All(context.Background(), f, results, dest, cfg(), &bytes.Buffer{})
	if batch.Failed != 0 {
		t.Fatalf("re-download failed: %+v", batch.Outcomes)
	}

	data, _ := os.ReadFile(filepath.Join(dest, "Acme", "a.pdf"))
	if string(data) != "second" {
		t.Errorf("content = %q, want second (overwrite, no versioning)", data)
	}
}

func TestAllLeavesNoTempFiles(t *testing.T) {
	dest := t.TempDir()
	f := &mockFetcher{fail: map[string]bool{"f1": true}, content: map[string]string{"f2": "ok"}}
	results := []types.MatchResult{
		foundResult(0, "a.pdf", "Acme", "f1", "a.pdf"),
		foundResult(1, "b.pdf", "Acme", "f2", "b.pdf"),
	}

	All(context.Background(), f, results, dest, cfg(), &bytes.Buffer{})

	entries, err := os.ReadDir(filepath.Join(dest, "Acme"))
	if err != nil {
		t.Fatalf("reading company dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".download-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAllCancelledRecordsUnscheduledOutcomes(t *testing.T) {
	const n = 4
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &mockFetcher{content: map[string]string{}}
	var results []types.MatchResult
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("f%d", i)
		inner.content[id] = "data"
		results = append(results, foundResult(i, id+".pdf", "Acme", id, id+".pdf"))
	}
	f := &cancellingFetcher{inner: inner, cancel: cancel, after: 1}

	batch := All(ctx, f, results, t.TempDir(), types.DownloadConfig{Concurrency: 1}, &bytes.Buffer{})

	if len(batch.Outcomes) != n {
		t.Fatalf("len(Outcomes) = %d, want %d (one per eligible row, scheduled or not)", len(batch.Outcomes), n)
	}
	if !batch.Outcomes[0].OK() {
		t.Errorf("Outcomes[0] = %+v, want the pre-cancel download to succeed", batch.Outcomes[0])
	}
	for i := 1; i < n; i++ {
		o := batch.Outcomes[i]
		if o.Result.Row.Index != i {
			t.Errorf("Outcomes[%d].Row.Index = %d, order not preserved", i, o.Result.Row.Index)
		}
		if o.OK() {
			t.Errorf("Outcomes[%d] succeeded after cancellation", i)
			continue
		}
		if !strings.Contains(o.Err, context.Canceled.Error()) {
			t.Errorf("Outcomes[%d].Err = %q, want it to carry %q", i, o.Err, context.Canceled.Error())
		}
	}
	if batch.Downloaded != 1 || batch.Failed != n-1 {
		t.Errorf("batch = %d saved, %d failed; want 1, %d", batch.Downloaded, batch.Failed, n-1)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Acme", "Acme"},
		{"separators", "A/B\\C", "A_B_C"},
		{"windows hostile", `a:*?"<>|b`, "a_______b"},
		{"dot trim", " ..name.. ", "name"},
		{"separators only", "///", "___"},
		{"dots only", " .. ", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
