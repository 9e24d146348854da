// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches resolved files into a company-named folder tree.
// Failures are isolated per file; one bad download never aborts the batch.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/drivescout/pkg/types"
)

// Fetcher is the remote content boundary. The returned reader streams the
// file bytes; the orchestrator closes it.
type Fetcher interface {
	Fetch(ctx context.Context, entry types.CandidateEntry) (io.ReadCloser, error)
}

// Batch holds per-file counters for a download pass.
type Batch struct {
	Downloaded int
	Failed     int
	Outcomes   []types.DownloadOutcome
}

// All downloads every Found result into destRoot/<company>/<name>, at most
// cfg.Concurrency files in flight. Outcomes preserve the order of the
// eligible results; Not Found rows are skipped without an outcome. An
// existing file at the target path is overwritten; there is no versioning.
// Cancelling ctx stops scheduling further files, and files already written
// stay on disk.
func All(ctx context.Context, fetcher Fetcher, results []types.MatchResult, destRoot string, cfg types.DownloadConfig, w io.Writer) Batch {
	var eligible []types.MatchResult
	for _, res := range results {
		if res.Found() {
			eligible = append(eligible, res)
		}
	}

	outcomes := make([]types.DownloadOutcome, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, res := range eligible {
		if gctx.Err() != nil {
			outcomes[i] = cancelled(res, gctx)
			continue
		}
		g.Go(func() error {
			outcomes[i] = one(gctx, fetcher, res, destRoot)
			return nil
		})
	}
	g.Wait()

	var batch Batch
	batch.Outcomes = outcomes
	for _, o := range outcomes {
		if o.OK() {
			batch.Downloaded++
			fmt.Fprintf(w, "saved:  %s\n", o.LocalPath)
		} else {
			batch.Failed++
			fmt.Fprintf(w, "failed: %s (%s)\n", o.Result.Resolved.Name, o.Err)
		}
	}
	fmt.Fprintf(w, "\nDownload summary: %d saved, %d failed (total: %d)\n",
		batch.Downloaded, batch.Failed, len(outcomes))
	return batch
}

// one downloads a single resolved entry, writing through a temp file and
// renaming into place so a torn download never masquerades as a complete
// file.
func one(ctx context.Context, fetcher Fetcher, res types.MatchResult, destRoot string) types.DownloadOutcome {
	entry := *res.Resolved
	dir := filepath.Join(destRoot, Sanitize(res.Row.Company))
	target := filepath.Join(dir, Sanitize(entry.Name))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failure(res, entry, target, err)
	}

	body, err := fetcher.Fetch(ctx, entry)
	if err != nil {
		return failure(res, entry, target, err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return failure(res, entry, target, err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		return failure(res, entry, target, copyErr)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return failure(res, entry, target, err)
	}

	return types.DownloadOutcome{Result: res, LocalPath: target}
}

func failure(res types.MatchResult, entry types.CandidateEntry, target string, err error) types.DownloadOutcome {
	derr := &types.DownloadError{Name: entry.Name, Path: target, Err: err}
	return types.DownloadOutcome{Result: res, Err: derr.Error()}
}

func cancelled(res types.MatchResult, ctx context.Context) types.DownloadOutcome {
	return types.DownloadOutcome{Result: res, Err: ctx.Err().Error()}
}

// Sanitize strips path-hostile characters from a path component. The result
// is deterministic for a given input, so a company always maps to the same
// folder.
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case 0:
			return -1
		}
		return r
	}, name)
	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
