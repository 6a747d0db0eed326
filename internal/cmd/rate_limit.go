package cmd

import "github.com/spf13/cobra"

var rateLimitCmd = &cobra.Command{
	Use:     "rate-limit",
	Aliases: []string{"ratelimit"},
	Short:   "Manage persisted rate limiter windows",
	Long: `Inspect and reset the fixed-size request windows the server persists
per client. Window state survives restarts when a store path is configured,
so a client that was throttled stays throttled until its window expires or
is reset here.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
