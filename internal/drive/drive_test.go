// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/pdiddy/drivescout/pkg/types"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		term string
		want string
	}{
		{"plain", "invoice_jan.xlsx", "name contains 'invoice_jan.xlsx' and trashed = false"},
		{"single quote", "o'brien.pdf", `name contains 'o\'brien.pdf' and trashed = false`},
		{"backslash", `a\b.txt`, `name contains 'a\\b.txt' and trashed = false`},
		{"spaces kept", "annual report.docx", "name contains 'annual report.docx' and trashed = false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Query(tt.term))
		})
	}
}

func TestClassifyAPICodes(t *testing.T) {
	tests := []struct {
		code          int
		wantTransient bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{403, false},
		{404, false},
		{400, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("code %d", tt.code), func(t *testing.T) {
			err := classify("search", "x", &googleapi.Error{Code: tt.code})

			var qerr *types.QueryError
			require.ErrorAs(t, err, &qerr)
			assert.Equal(t, tt.wantTransient, qerr.Transient)
			assert.Equal(t, "search", qerr.Op)
			assert.Equal(t, "x", qerr.Term)
		})
	}
}

func TestClassifyNetworkFaultIsTransient(t *testing.T) {
	err := classify("fetch", "a.pdf", errors.New("connection reset by peer"))

	var qerr *types.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.True(t, qerr.Transient)
}

func TestClassifyCancellationPassesThrough(t *testing.T) {
	err := classify("search", "x", fmt.Errorf("calling API: %w", context.Canceled))

	var qerr *types.QueryError
	assert.False(t, errors.As(err, &qerr))
	assert.ErrorIs(t, err, context.Canceled)
}
