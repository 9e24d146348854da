// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package drive wraps the Google Drive v3 API as a name-search and fetch
// service. All calls share one rate limiter; failures are classified
// transient or permanent so the resolver can apply its retry policy.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pdiddy/drivescout/pkg/types"
)

// searchFields limits the candidate metadata returned per hit.
const searchFields = "files(id, name, mimeType, size, webViewLink)"

// Service is a live Drive client. It satisfies the resolver's Searcher and
// the download pass's Fetcher interfaces.
type Service struct {
	files    *gdrive.FilesService
	limiter  *rate.Limiter
	pageSize int64
	timeout  func(context.Context) (context.Context, context.CancelFunc)
}

// NewService builds a read-only Drive client from cfg. An API key takes
// precedence over a credentials file when both are set.
func NewService(ctx context.Context, cfg types.DriveConfig) (*Service, error) {
	opts := []option.ClientOption{option.WithScopes(gdrive.DriveReadonlyScope)}
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, &types.ConfigError{Field: "drive.credentials_file", Reason: "credentials file or API key required"}
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}

	return &Service{
		files:    svc.Files,
		limiter:  rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), 1),
		pageSize: int64(pageSize),
		timeout: func(parent context.Context) (context.Context, context.CancelFunc) {
			if cfg.Timeout <= 0 {
				return parent, func() {}
			}
			return context.WithTimeout(parent, cfg.Timeout)
		},
	}, nil
}

// Search returns up to pageSize candidates whose names contain term. The
// remote match is substring-based, so callers receive variants of the name
// as well as exact hits.
func (s *Service) Search(ctx context.Context, term string) ([]types.CandidateEntry, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := s.timeout(ctx)
	defer cancel()

	res, err := s.files.List().
		Q(Query(term)).
		Spaces("drive").
		PageSize(s.pageSize).
		Fields(searchFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("search", term, err)
	}

	entries := make([]types.CandidateEntry, 0, len(res.Files))
	for _, f := range res.Files {
		entries = append(entries, types.CandidateEntry{
			ID:          f.Id,
			Name:        f.Name,
			MimeType:    f.MimeType,
			Size:        f.Size,
			WebViewLink: f.WebViewLink,
		})
	}
	return entries, nil
}

// Fetch opens the file content stream for a resolved entry. The caller owns
// the returned reader; cancelling ctx aborts an in-progress read.
func (s *Service) Fetch(ctx context.Context, entry types.CandidateEntry) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.files.Get(entry.ID).Context(ctx).Download()
	if err != nil {
		return nil, classify("fetch", entry.Name, err)
	}
	return resp.Body, nil
}

// Query builds the Drive search expression for a term. Matching is
// "name contains", excluding trashed files, mirroring the service's
// substring semantics.
func Query(term string) string {
	safe := strings.ReplaceAll(term, `\`, `\\`)
	safe = strings.ReplaceAll(safe, `'`, `\'`)
	return fmt.Sprintf("name contains '%s' and trashed = false", safe)
}

// classify wraps an API failure as a QueryError. HTTP 429 and 5xx are
// transient, other API responses permanent. Non-API failures (per-request
// timeouts, connection resets) are treated as transient; cancellation
// passes through untouched so callers can distinguish a stop request.
func classify(op, term string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		transient := apiErr.Code == 429 || apiErr.Code >= 500
		return &types.QueryError{Op: op, Term: term, Transient: transient, Err: err}
	}
	return &types.QueryError{Op: op, Term: term, Transient: true, Err: err}
}
