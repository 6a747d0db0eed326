package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/codelens/codelens/internal/core/store"
	"github.com/codelens/codelens/internal/output"
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored rate limiter windows",
	RunE:  runRateLimitReset,
}

func runRateLimitReset(cmd *cobra.Command, args []string) error {
	format, err := tabularFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	query, err := windowQueryFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := query.Validate(); err != nil {
		return err
	}

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	if query.All && !yes && !dryRun {
		return errors.New("--all requires --yes (or use --dry-run)")
	}

	sink, err := sinkFor(outPath, outDir, "rate-limit.reset", format)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	var (
		matched int
		deleted int64
	)
	if err := withStore(cmd.Context(), func(db *store.Store) error {
		var storeErr error
		matched, storeErr = db.CountWindows(cmd.Context(), query)
		if storeErr != nil {
			return storeErr
		}
		if dryRun {
			return nil
		}
		deleted, storeErr = db.ResetWindows(cmd.Context(), query)
		return storeErr
	}); err != nil {
		return err
	}

	return writeRateLimitResetResult(format, sink, matched, deleted, dryRun)
}

func writeRateLimitResetResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"deleted": deleted,
		"dry_run": dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d window(s)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d window(s)\n", deleted, matched)
	return err
}

func init() {
	rateLimitResetCmd.Flags().Bool("all", false, "Reset all clients")
	rateLimitResetCmd.Flags().String("client", "", "Reset a single client (exact match)")
	rateLimitResetCmd.Flags().String("prefix", "", "Reset clients with matching prefix")
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Show what would be deleted")
	rateLimitResetCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	rateLimitResetCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	rateLimitResetCmd.Flags().String("out-dir", "", "Write output to a directory")
}
