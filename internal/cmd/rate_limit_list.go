package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/codelens/codelens/internal/core/store"
	"github.com/codelens/codelens/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rate limiter windows",
	RunE:  runRateLimitList,
}

func runRateLimitList(cmd *cobra.Command, args []string) error {
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
	if !query.All && query.ClientID == "" && query.Prefix == "" {
		query.All = true
	}

	var entries []store.WindowEntry
	if err := withStore(cmd.Context(), func(db *store.Store) error {
		var listErr error
		entries, listErr = db.ListWindows(cmd.Context(), query)
		return listErr
	}); err != nil {
		return err
	}

	sink, err := sinkFor(outPath, outDir, "rate-limit.list", format)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink, string(payload))
		return err
	}

	lines := []string{"Rate Limiter Windows", ""}
	if len(entries) == 0 {
		lines = append(lines, "(no stored window state)")
		_, _ = fmt.Fprint(sink, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	}

	for _, entry := range entries {
		newest := "-"
		if entry.Newest != nil {
			newest = entry.Newest.UTC().Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("%s: count=%d newest=%s updated=%s",
			entry.ClientID, entry.Count, newest, entry.UpdatedAt.UTC().Format(time.RFC3339)))
	}

	_, _ = fmt.Fprint(sink, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return nil
}

// windowQueryFromFlags builds the client selector shared by the rate-limit
// subcommands from --all, --client, and --prefix.
func windowQueryFromFlags(cmd *cobra.Command) (store.WindowQuery, error) {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return store.WindowQuery{}, err
	}
	client, err := cmd.Flags().GetString("client")
	if err != nil {
		return store.WindowQuery{}, err
	}
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return store.WindowQuery{}, err
	}

	return store.WindowQuery{
		All:      all,
		ClientID: strings.TrimSpace(client),
		Prefix:   strings.TrimSpace(prefix),
	}, nil
}

func init() {
	rateLimitListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	rateLimitListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	rateLimitListCmd.Flags().String("out-dir", "", "Write output to a directory")
	rateLimitListCmd.Flags().Bool("all", false, "List all clients")
	rateLimitListCmd.Flags().String("client", "", "List a single client (exact match)")
	rateLimitListCmd.Flags().String("prefix", "", "List clients with matching prefix")
}
