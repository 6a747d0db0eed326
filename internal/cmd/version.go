package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/codelens/codelens/internal/config"
)

var (
	versionExtended bool
	versionJSON     bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions, or --json for machine-readable output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if versionJSON {
			payload := map[string]string{
				"name":       config.AppName,
				"version":    versionInfo.Version,
				"commit":     versionInfo.Commit,
				"build_date": versionInfo.BuildDate,
				"go_version": runtime.Version(),
			}
			if versionExtended {
				cv := crucible.GetVersion()
				payload["gofulmen"] = cv.Gofulmen
				payload["crucible"] = cv.Crucible
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}

		fmt.Fprintf(out, "%s %s\n", config.AppName, versionInfo.Version)
		if !versionExtended {
			return nil
		}

		fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "Built: %s\n", versionInfo.BuildDate)
		fmt.Fprintf(out, "Go: %s\n", runtime.Version())
		fmt.Fprintln(out)

		cv := crucible.GetVersion()
		fmt.Fprintf(out, "Gofulmen: %s\n", cv.Gofulmen)
		fmt.Fprintf(out, "Crucible: %s\n", cv.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&versionExtended, "extended", "e", false, "show extended version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print version information as JSON")
}
