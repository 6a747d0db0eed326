package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	errwrap "github.com/codelens/codelens/internal/errors"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run a quick self-check",
	Long:  "Verify the pieces the explain pipeline needs at startup: version info, logging, configuration, and the prompt registry.",
	Run: func(cmd *cobra.Command, args []string) {
		// Logger first; the remaining checks report through it.
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "CLI logger not ready", errwrap.NewConfigInvalidError("CLI logger not ready"))
			return
		}
		observability.CLILogger.Info("Running self-check...")
		observability.CLILogger.Info("✅ Logger ready")

		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: version info missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "version info missing", errwrap.NewConfigInvalidError("version info missing"))
			return
		}
		observability.CLILogger.Info("✅ Version info available", zap.String("version", versionInfo.Version))

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Error("❌ FAIL: Configuration did not load")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration did not load", errwrap.WrapConfigInvalid(cmd.Context(), err, "config load failed"))
			return
		}
		observability.CLILogger.Info("✅ Configuration loaded")

		registry, err := llm.LoadRegistry(cfg.LLM)
		if err != nil {
			observability.CLILogger.Error("❌ FAIL: Prompt registry did not load")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Prompt registry did not load", errwrap.WrapConfigInvalid(cmd.Context(), err, "prompt registry load failed"))
			return
		}
		observability.CLILogger.Info(fmt.Sprintf("✅ Prompt registry loaded (%d prompt(s))", len(registry.List())))

		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ Self-check passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
