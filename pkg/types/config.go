// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Default configuration values. They mirror the remote service's practical
// limits: 20 results per name query, a modest query rate, three retries.
const (
	DefaultPageSize            = 20
	DefaultQueriesPerSecond    = 5.0
	DefaultTimeout             = 60 * time.Second
	DefaultMaxRetries          = 3
	DefaultRetryBackoff        = 2 * time.Second
	DefaultSearchConcurrency   = 1
	DefaultDownloadConcurrency = 4
	DefaultDownloadDir         = "downloads"
)

// DefaultExcludedSuffixes lists the filename-stem endings that disqualify a
// candidate: temp/backup variants that are not genuine matches.
func DefaultExcludedSuffixes() []string {
	return []string{"_backup", "_copy", "_old"}
}

// DriveConfig holds settings for the remote search adapter.
type DriveConfig struct {
	// CredentialsFile is the path to the Google credentials JSON.
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`

	// APIKey is an optional API key used instead of a credentials file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// PageSize is the maximum number of candidates requested per name query.
	PageSize int `json:"page_size" yaml:"page_size"`

	// QueriesPerSecond caps the shared rate of remote API calls.
	QueriesPerSecond float64 `json:"queries_per_second" yaml:"queries_per_second"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// MatchConfig holds settings for the match resolver.
type MatchConfig struct {
	// ExcludedSuffixes lists stem endings that disqualify a candidate.
	ExcludedSuffixes []string `json:"excluded_suffixes" yaml:"excluded_suffixes"`

	// MaxRetries is the number of retry attempts after a transient query
	// failure before the row is classified "query failed". 0 disables
	// retries; a negative value means unset and is normalized to the
	// default.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBackoff is the base delay before the first retry; it doubles on
	// each subsequent attempt. 0 retries immediately; a negative value
	// means unset and is normalized to the default.
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`

	// SearchConcurrency bounds parallel row resolutions. 1 processes rows
	// sequentially.
	SearchConcurrency int `json:"search_concurrency" yaml:"search_concurrency"`
}

// DownloadConfig holds settings for the download pass.
type DownloadConfig struct {
	// Dir is the destination root; company subfolders are created under it.
	Dir string `json:"dir" yaml:"dir"`

	// Concurrency bounds parallel file downloads.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// Config groups all stage configurations. It is assembled once at startup,
// validated, and passed explicitly into each component.
type Config struct {
	Drive    DriveConfig    `json:"drive" yaml:"drive"`
	Match    MatchConfig    `json:"match" yaml:"match"`
	Download DownloadConfig `json:"download" yaml:"download"`
}

// Normalize fills missing values with defaults. MaxRetries and RetryBackoff
// are considered missing only when negative, so an explicit 0 (no retries,
// immediate retry) survives.
func (c *Config) Normalize() {
	if c.Drive.PageSize == 0 {
		c.Drive.PageSize = DefaultPageSize
	}
	if c.Drive.QueriesPerSecond == 0 {
		c.Drive.QueriesPerSecond = DefaultQueriesPerSecond
	}
	if c.Drive.Timeout == 0 {
		c.Drive.Timeout = DefaultTimeout
	}
	if c.Match.ExcludedSuffixes == nil {
		c.Match.ExcludedSuffixes = DefaultExcludedSuffixes()
	}
	if c.Match.MaxRetries < 0 {
		c.Match.MaxRetries = DefaultMaxRetries
	}
	if c.Match.RetryBackoff < 0 {
		c.Match.RetryBackoff = DefaultRetryBackoff
	}
	if c.Match.SearchConcurrency == 0 {
		c.Match.SearchConcurrency = DefaultSearchConcurrency
	}
	if c.Download.Concurrency == 0 {
		c.Download.Concurrency = DefaultDownloadConcurrency
	}
	if c.Download.Dir == "" {
		c.Download.Dir = DefaultDownloadDir
	}
}

// Validate reports the first invalid configuration value as a ConfigError.
func (c *Config) Validate() error {
	if c.Drive.PageSize < 0 {
		return &ConfigError{Field: "drive.page_size", Reason: "must not be negative"}
	}
	if c.Drive.QueriesPerSecond < 0 {
		return &ConfigError{Field: "drive.queries_per_second", Reason: "must not be negative"}
	}
	if c.Match.MaxRetries < 0 {
		return &ConfigError{Field: "match.max_retries", Reason: "must not be negative"}
	}
	if c.Match.RetryBackoff < 0 {
		return &ConfigError{Field: "match.retry_backoff", Reason: "must not be negative"}
	}
	if c.Match.SearchConcurrency < 1 {
		return &ConfigError{Field: "match.search_concurrency", Reason: "must be at least 1"}
	}
	if c.Download.Concurrency < 1 {
		return &ConfigError{Field: "download.concurrency", Reason: "must be at least 1"}
	}
	return nil
}
