// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/drivescout/internal/download"
	"github.com/pdiddy/drivescout/internal/drive"
	"github.com/pdiddy/drivescout/internal/ledger"
	"github.com/pdiddy/drivescout/internal/manifest"
	"github.com/pdiddy/drivescout/internal/match"
	"github.com/pdiddy/drivescout/internal/report"
	"github.com/pdiddy/drivescout/internal/secrets"
	"github.com/pdiddy/drivescout/pkg/types"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Search Drive for every reference row and write the report",
	Long: `Locate loads the input workbook, searches Drive for each filename,
and writes the per-company Found/Not-Found report plus a YAML run summary.
With --download, found files are also fetched into company subfolders.
Interrupting a run keeps the rows classified so far and still writes the
report for them.`,
	RunE: runLocate,
}

func init() {
	addLocateFlags(locateCmd)
	_ = locateCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(locateCmd)
}

func addLocateFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "input workbook (.xlsx) with filename and company columns")
	cmd.Flags().String("output", "report.xlsx", "path of the report workbook to write")
	cmd.Flags().Bool("download", false, "download found files after reporting")
	cmd.Flags().String("dest", types.DefaultDownloadDir, "destination root for downloads")
	cmd.Flags().String("ledger", "", "record the run in this SQLite ledger (optional)")
	cmd.Flags().String("credentials", "", "Google credentials JSON file")
	cmd.Flags().String("api-key", "", "Google API key (alternative to credentials file)")
	cmd.Flags().StringSlice("excluded-suffixes", nil, "filename-stem suffixes that disqualify a candidate")
	cmd.Flags().Int("max-retries", types.DefaultMaxRetries, "retries after a transient query failure (0 disables)")
	cmd.Flags().Duration("retry-backoff", types.DefaultRetryBackoff, "base backoff before the first retry")
	cmd.Flags().Int("search-concurrency", 0, "parallel row resolutions (default 1)")
	cmd.Flags().Int("download-concurrency", 0, "parallel file downloads (default 4)")
	cmd.Flags().Int("page-size", 0, "candidates requested per name query (default 20)")
	cmd.Flags().Float64("qps", 0, "Drive API calls per second (default 5)")
	cmd.Flags().Duration("timeout", 0, "per-request timeout (default 60s)")
}

// buildConfig merges the config file with flag overrides into the single
// immutable Config passed to every stage. A flag wins only when it was set
// on the command line; its default never shadows a config-file value. The
// retry knobs start at -1 (unset) so that an explicit 0 survives Normalize.
func buildConfig(cmd *cobra.Command) types.Config {
	cfg := types.Config{
		Drive: types.DriveConfig{
			CredentialsFile:  viper.GetString("drive.credentials_file"),
			APIKey:           viper.GetString("drive.api_key"),
			PageSize:         viper.GetInt("drive.page_size"),
			QueriesPerSecond: viper.GetFloat64("drive.queries_per_second"),
			Timeout:          viper.GetDuration("drive.timeout"),
		},
		Match: types.MatchConfig{
			MaxRetries:        -1,
			RetryBackoff:      -1,
			SearchConcurrency: viper.GetInt("match.search_concurrency"),
		},
		Download: types.DownloadConfig{
			Dir:         viper.GetString("download.dir"),
			Concurrency: viper.GetInt("download.concurrency"),
		},
	}
	if viper.IsSet("match.excluded_suffixes") {
		cfg.Match.ExcludedSuffixes = viper.GetStringSlice("match.excluded_suffixes")
	}
	if viper.IsSet("match.max_retries") {
		cfg.Match.MaxRetries = viper.GetInt("match.max_retries")
	}
	if viper.IsSet("match.retry_backoff") {
		cfg.Match.RetryBackoff = viper.GetDuration("match.retry_backoff")
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("credentials"); v != "" {
		cfg.Drive.CredentialsFile = v
	}
	if v, _ := flags.GetString("api-key"); v != "" {
		cfg.Drive.APIKey = v
	}
	if flags.Changed("excluded-suffixes") {
		cfg.Match.ExcludedSuffixes, _ = flags.GetStringSlice("excluded-suffixes")
	}
	if flags.Changed("max-retries") {
		cfg.Match.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("retry-backoff") {
		cfg.Match.RetryBackoff, _ = flags.GetDuration("retry-backoff")
	}
	if v, _ := flags.GetInt("search-concurrency"); v != 0 {
		cfg.Match.SearchConcurrency = v
	}
	if v, _ := flags.GetInt("download-concurrency"); v != 0 {
		cfg.Download.Concurrency = v
	}
	if v, _ := flags.GetInt("page-size"); v != 0 {
		cfg.Drive.PageSize = v
	}
	if v, _ := flags.GetFloat64("qps"); v != 0 {
		cfg.Drive.QueriesPerSecond = v
	}
	if v, _ := flags.GetDuration("timeout"); v != 0 {
		cfg.Drive.Timeout = v
	}
	if flags.Changed("dest") {
		cfg.Download.Dir, _ = flags.GetString("dest")
	}

	cfg.Drive.CredentialsFile = secrets.Value(loadedSecrets, secrets.KeyCredentialsFile, cfg.Drive.CredentialsFile)
	cfg.Drive.APIKey = secrets.Value(loadedSecrets, secrets.KeyAPIKey, cfg.Drive.APIKey)
	return cfg
}

func runLocate(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	doDownload, _ := cmd.Flags().GetBool("download")
	ledgerPath, _ := cmd.Flags().GetString("ledger")

	cfg := buildConfig(cmd)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()

	m, err := manifest.Load(input)
	if err != nil {
		return err
	}
	if m.Skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: skipped %d row(s) with blank filename or company\n", m.Skipped)
	}
	if len(m.Rows) == 0 {
		return fmt.Errorf("input %s contains no usable rows", input)
	}

	svc, err := drive.NewService(ctx, cfg.Drive)
	if err != nil {
		return err
	}

	resolver := match.NewResolver(svc, cfg.Match)
	results, resolveErr := resolver.ResolveAll(ctx, m.Rows, os.Stdout)
	if resolveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: run stopped early: %v; reporting %d classified row(s)\n", resolveErr, len(results))
	}

	groups := report.Build(results)
	if err := report.WriteWorkbook(groups, output); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", output)

	summary := report.NewSummary(input, output, m.Skipped, results)

	var batch download.Batch
	if doDownload && len(results) > 0 {
		batch = download.All(ctx, svc, results, cfg.Download.Dir, cfg.Download, os.Stdout)
		summary.Downloaded = batch.Downloaded
		summary.DownloadFailed = batch.Failed
	}

	if err := report.WriteSummary(summary, output+".summary.yaml"); err != nil {
		return err
	}

	if ledgerPath != "" {
		// Recorded even after an interrupt; partial runs are history too.
		if err := recordRun(context.Background(), ledgerPath, startedAt, input, output, m, summary, results, batch.Outcomes); err != nil {
			fmt.Fprintf(os.Stderr, "warning: ledger not updated: %v\n", err)
		}
	}

	return resolveErr
}

func recordRun(ctx context.Context, path string, startedAt time.Time, input, output string,
	m manifest.Manifest, summary report.Summary, results []types.MatchResult, outcomes []types.DownloadOutcome) error {
	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	run := ledger.Run{
		StartedAt:      startedAt,
		Input:          input,
		Report:         output,
		Rows:           len(results),
		Skipped:        m.Skipped,
		Found:          summary.Found,
		NotFound:       summary.NotFound,
		Downloaded:     summary.Downloaded,
		DownloadFailed: summary.DownloadFailed,
	}
	id, err := store.RecordRun(ctx, run, results, outcomes)
	if err != nil {
		return err
	}
	fmt.Printf("Run recorded in ledger as #%d\n", id)
	return nil
}
