// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match classifies reference rows as Found or Not Found against a
// remote name-search service. It applies the exclusion-suffix and
// duplicate-name policies, retries transient query failures with backoff,
// and guarantees exactly one result per row.
package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/drivescout/pkg/types"
)

// Searcher is the remote name-search boundary. Implementations return raw
// candidate entries for a term; transient failures are reported as
// QueryError with Transient set.
type Searcher interface {
	Search(ctx context.Context, term string) ([]types.CandidateEntry, error)
}

// Resolver classifies reference rows. It is safe for concurrent use; the
// only state shared between row resolutions lives behind the Searcher.
type Resolver struct {
	searcher Searcher
	cfg      types.MatchConfig
	suffixes []string // lowercased once at construction
}

// NewResolver builds a Resolver around a search service.
func NewResolver(searcher Searcher, cfg types.MatchConfig) *Resolver {
	suffixes := make([]string, len(cfg.ExcludedSuffixes))
	for i, s := range cfg.ExcludedSuffixes {
		suffixes[i] = strings.ToLower(s)
	}
	return &Resolver{searcher: searcher, cfg: cfg, suffixes: suffixes}
}

// Term derives the remote search term from a filename. The remote service
// matches by substring, so the term is the filename as given, trimmed and
// nothing more; any further normalization would change which variants the
// service returns.
func Term(filename string) string {
	return strings.TrimSpace(filename)
}

// Resolve classifies one row. The returned error is non-nil only when ctx
// was cancelled before a classification could be made; every other failure
// mode is folded into the MatchResult.
//
// Candidate handling is deliberately positional: after dropping excluded
// suffixes and collapsing case-insensitive duplicate names, the first
// survivor in the adapter's return order wins. No similarity ranking is
// attempted; multiple surviving distinct names are not an error.
func (r *Resolver) Resolve(ctx context.Context, row types.ReferenceRow) (types.MatchResult, error) {
	candidates, err := r.search(ctx, Term(row.Filename))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return types.MatchResult{}, err
		}
		return notFound(row, fmt.Sprintf("%s: %v", types.ReasonQueryFailed, err)), nil
	}

	if len(candidates) == 0 {
		return notFound(row, types.ReasonNoCandidates), nil
	}

	survivors := dedupe(r.exclude(candidates))
	if len(survivors) == 0 {
		return notFound(row, types.ReasonAllExcluded), nil
	}

	resolved := survivors[0]
	return types.MatchResult{Row: row, Status: types.StatusFound, Resolved: &resolved}, nil
}

// ResolveAll classifies rows with at most cfg.SearchConcurrency in flight,
// printing per-row progress to w. Results keep input order regardless of
// completion order. On cancellation the rows classified so far are returned
// along with the context error; they remain valid and reportable.
func (r *Resolver) ResolveAll(ctx context.Context, rows []types.ReferenceRow, w io.Writer) ([]types.MatchResult, error) {
	results := make([]types.MatchResult, len(rows))
	done := make([]bool, len(rows))

	var mu sync.Mutex // guards w
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.SearchConcurrency)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := r.Resolve(gctx, row)
			if err != nil {
				return err
			}
			results[i] = res
			done[i] = true

			mu.Lock()
			defer mu.Unlock()
			if res.Found() {
				fmt.Fprintf(w, "found:   %s (%s) -> %s\n", row.Filename, row.Company, res.Resolved.Name)
			} else {
				fmt.Fprintf(w, "missing: %s (%s): %s\n", row.Filename, row.Company, res.Reason)
			}
			return nil
		})
	}

	err := g.Wait()

	// Compact out rows that never got classified before a stop.
	out := results[:0]
	for i := range results {
		if done[i] {
			out = append(out, results[i])
		}
	}

	found := 0
	for _, res := range out {
		if res.Found() {
			found++
		}
	}
	fmt.Fprintf(w, "\nMatch summary: %d found, %d not found (total: %d)\n", found, len(out)-found, len(out))

	return out, err
}

// search queries the backend, retrying transient failures up to MaxRetries
// times with exponential backoff starting at RetryBackoff. Permanent
// failures return immediately. A cancelled backoff wait returns ctx.Err().
func (r *Resolver) search(ctx context.Context, term string) ([]types.CandidateEntry, error) {
	for attempt := 0; ; attempt++ {
		entries, err := r.searcher.Search(ctx, term)
		if err == nil {
			return entries, nil
		}

		var qerr *types.QueryError
		if !errors.As(err, &qerr) || !qerr.Transient {
			return nil, err
		}
		if attempt >= r.cfg.MaxRetries {
			return nil, err
		}

		backoff := time.Duration(1<<attempt) * r.cfg.RetryBackoff
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// exclude drops candidates whose extension-stripped stem ends with a
// configured excluded suffix. The comparison is case-insensitive.
func (r *Resolver) exclude(candidates []types.CandidateEntry) []types.CandidateEntry {
	kept := candidates[:0:0]
	for _, c := range candidates {
		if !r.excluded(c.Name) {
			kept = append(kept, c)
		}
	}
	return kept
}

func (r *Resolver) excluded(name string) bool {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, suf := range r.suffixes {
		if suf != "" && strings.HasSuffix(stem, suf) {
			return true
		}
	}
	return false
}

// dedupe collapses candidates with case-insensitively identical names to
// the first-seen entry, preserving adapter return order. Ties between
// distinct files that share a name are not further disambiguated.
func dedupe(candidates []types.CandidateEntry) []types.CandidateEntry {
	seen := make(map[string]struct{}, len(candidates))
	deduped := candidates[:0:0]
	for _, c := range candidates {
		key := strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, c)
	}
	return deduped
}

func notFound(row types.ReferenceRow, reason string) types.MatchResult {
	return types.MatchResult{Row: row, Status: types.StatusNotFound, Reason: reason}
}
