// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/drivescout/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs or show the rows of one run",
	Long: `History reads the run ledger written by locate --ledger. Without
flags it lists recent runs; --run shows the per-row classifications of one
run; --export writes a run and its rows to a YAML file.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("ledger", "data/drivescout.db", "path of the SQLite run ledger")
	historyCmd.Flags().Int64("run", 0, "show the rows of this run ID")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("export", "", "write the selected run to this YAML file (requires --run)")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("ledger")
	runID, _ := cmd.Flags().GetInt64("run")
	limit, _ := cmd.Flags().GetInt("limit")
	exportPath, _ := cmd.Flags().GetString("export")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if exportPath != "" {
		if runID == 0 {
			return fmt.Errorf("--export requires --run")
		}
		if err := store.Export(ctx, runID, exportPath); err != nil {
			return err
		}
		fmt.Printf("Run #%d exported to %s\n", runID, exportPath)
		return nil
	}

	if runID != 0 {
		entries, err := store.RunResults(ctx, runID)
		if err != nil {
			return err
		}
		return formatEntries(entries, jsonOutput)
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return formatRuns(runs, jsonOutput)
}

func formatRuns(runs []ledger.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-5s  %-20s  %-24s  %-6s  %-6s  %-9s  %s\n",
		"Run", "Started", "Input", "Found", "Miss", "Saved", "Report")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))

	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-5d  %-20s  %-24s  %-6d  %-6d  %-9d  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), truncate(r.Input, 24),
			r.Found, r.NotFound, r.Downloaded, r.Report)
	}
	return nil
}

func formatEntries(entries []ledger.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No rows recorded for this run.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-28s  %-16s  %-10s  %-28s  %s\n",
		"Row", "Filename", "Company", "Status", "Matched", "Reason")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, e := range entries {
		fmt.Fprintf(os.Stdout, "%-4d  %-28s  %-16s  %-10s  %-28s  %s\n",
			e.RowIndex, truncate(e.Filename, 28), truncate(e.Company, 16),
			e.Status, truncate(e.FileName, 28), e.Reason)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
