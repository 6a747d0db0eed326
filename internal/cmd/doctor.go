package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	errwrap "github.com/codelens/codelens/internal/errors"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/llm/driver"
	"github.com/codelens/codelens/internal/observability"
)

var doctorLive bool

// doctorReport numbers check output lines and remembers whether anything
// needed attention.
type doctorReport struct {
	total  int
	n      int
	failed bool
}

func (d *doctorReport) pass(name, detail string, fields ...zap.Field) {
	d.n++
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] %s... ✅ %s", d.n, d.total, name, detail), fields...)
}

// note is a warning that does not count against overall health.
func (d *doctorReport) note(name, detail string, fields ...zap.Field) {
	d.n++
	observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] %s... ⚠️  %s", d.n, d.total, name, detail), fields...)
}

func (d *doctorReport) warn(name, detail string, fields ...zap.Field) {
	d.failed = true
	d.note(name, detail, fields...)
}

func (d *doctorReport) fail(name, detail string, fields ...zap.Field) {
	d.n++
	d.failed = true
	observability.CLILogger.Error(fmt.Sprintf("[%d/%d] %s... ❌ %s", d.n, d.total, name, detail), fields...)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the system and suggest fixes for common issues.

With --live, the configured LLM backend is probed with a minimal completion
request. This spends a small amount of upstream quota.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		total := 8
		if doctorLive {
			total++
		}
		report := &doctorReport{total: total}

		observability.CLILogger.Info("=== " + config.AppName + " doctor ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info(fmt.Sprintf("Running %d checks...", total))
		observability.CLILogger.Info("")

		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			report.pass("Go version", goVersion, zap.String("go_version", goVersion))
		} else {
			report.warn("Go version", goVersion+" (recommended: go1.23+)", zap.String("go_version", goVersion))
		}

		version := crucible.GetVersion()
		if version.Crucible != "" {
			report.pass("Crucible access", "v"+version.Crucible, zap.String("crucible_version", version.Crucible))
		} else {
			report.fail("Crucible access", "cannot access Crucible")
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible", errwrap.NewExternalServiceError("Crucible service unavailable"))
		}

		if version.Gofulmen != "" {
			report.pass("Gofulmen access", "v"+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		} else {
			report.fail("Gofulmen access", "cannot access Gofulmen")
		}

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			report.fail("Config directory", "cannot resolve config directory")
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
		} else {
			configDir := filepath.Dir(configPath)
			report.pass("Config directory", configDir, zap.String("config_dir", configDir))
		}

		report.pass("Environment", runtime.GOOS+"/"+runtime.GOARCH,
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		cfg, cfgErr := config.Load(ctx)
		switch {
		case cfgErr != nil:
			report.warn("Database", "config not loaded", zap.Error(cfgErr))
		case cfg.Store.URL != "":
			report.pass("Database", cfg.Store.URL+" (remote)", zap.String("db_url", cfg.Store.URL))
		default:
			absPath := localStorePath(cfg)
			if info, statErr := os.Stat(absPath); statErr == nil {
				report.pass("Database", fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size())),
					zap.String("db_path", absPath),
					zap.Int64("db_size", info.Size()))
			} else if os.IsNotExist(statErr) {
				report.note("Database", absPath+" (not created yet; only needed with limiter.persist)",
					zap.String("db_path", absPath))
			} else {
				report.warn("Database", fmt.Sprintf("%s (error: %v)", absPath, statErr),
					zap.String("db_path", absPath),
					zap.Error(statErr))
			}
		}

		if cfgErr == nil {
			registry, regErr := llm.LoadRegistry(cfg.LLM)
			if regErr != nil {
				report.fail("Prompt registry", regErr.Error(), zap.Error(regErr))
			} else {
				detail := fmt.Sprintf("%d prompt(s)", len(registry.List()))
				if cfg.LLM.PromptsDir != "" {
					detail += fmt.Sprintf(" (overrides from %s)", cfg.LLM.PromptsDir)
				}
				report.pass("Prompt registry", detail, zap.Int("prompt_count", len(registry.List())))
			}
		} else {
			report.note("Prompt registry", "skipped (config not loaded)")
		}

		backendConfigured := false
		if cfgErr == nil {
			if cfg.LLM.BaseURL != "" && cfg.LLM.APIKey != "" {
				backendConfigured = true
				report.pass("LLM backend", "configured ("+cfg.LLM.Provider+")")
			} else {
				report.note("LLM backend", "not configured (set llm.base_url and CODELENS_LLM_API_KEY)")
				observability.CLILogger.Info("      Code explanation requires an LLM backend.")
			}
		} else {
			report.note("LLM backend", "skipped (config not loaded)")
		}

		if doctorLive {
			if backendConfigured {
				latency, probeErr := probeUpstream(ctx, cfg.LLM)
				if probeErr != nil {
					report.fail("LLM probe", probeErr.Error(), zap.Error(probeErr))
				} else {
					report.pass("LLM probe", "responded in "+latency.Round(time.Millisecond).String(),
						zap.Duration("latency", latency))
				}
			} else {
				report.note("LLM probe", "skipped (backend not configured)")
			}
		}

		observability.CLILogger.Info("")
		if report.failed {
			observability.CLILogger.Warn("⚠️  Some checks need attention. See the lines above.")
		} else {
			observability.CLILogger.Info("✅ All checks passed. " + config.AppName + " is ready to use.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== Diagnostics complete ===")
	},
}

// probeUpstream sends a minimal completion request to verify connectivity and
// credentials. One attempt, short deadline, no retries.
func probeUpstream(ctx context.Context, cfg llm.Config) (time.Duration, error) {
	cfg.Retries = 0
	if cfg.Timeout <= 0 || cfg.Timeout > 15*time.Second {
		cfg.Timeout = 15 * time.Second
	}

	drv, err := llm.BuildDriver(cfg)
	if err != nil {
		return 0, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	maxTokens := 8
	req := &driver.Request{
		Model:     cfg.Model,
		Prompt:    "Reply with the single word OK.",
		MaxTokens: &maxTokens,
	}

	start := time.Now()
	if _, err := drv.Complete(probeCtx, req); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

var (
	doctorInitForce   bool
	doctorInitAPIKey  string
	doctorResetConfig bool
	doctorResetData   bool
	doctorResetAll    bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("cannot resolve config path")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config already exists at %s; pass --force to overwrite", configPath)
		}

		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			key, err := promptForValue("Enter LLM API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			apiKey = key
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}

		// Tighten the mode when a secret lands in the file.
		mode := os.FileMode(0644)
		if apiKey != "" {
			mode = 0600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(apiKey)), mode); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		if apiKey == "" {
			observability.CLILogger.Info("Set CODELENS_LLM_API_KEY or edit llm.api_key before the first explain request")
		}
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()

		observability.CLILogger.Info("Paths:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file: %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		logDirStatus("Data dir", config.DefaultDataDir())
		logDirStatus("Cache dir", config.DefaultCacheDir())

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return nil
		}

		if cfg.Store.URL != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Database: %s (remote)", cfg.Store.URL))
		} else {
			absPath := localStorePath(cfg)
			if info, statErr := os.Stat(absPath); statErr == nil {
				observability.CLILogger.Info(fmt.Sprintf("  Database: %s (%s)", absPath, formatFileSize(info.Size())))
			} else if os.IsNotExist(statErr) {
				observability.CLILogger.Info(fmt.Sprintf("  Database: %s (not created yet)", absPath))
			} else {
				observability.CLILogger.Warn("Database status error", zap.String("db_path", absPath), zap.Error(statErr))
			}
		}

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Environment:")
		observability.CLILogger.Info("  CODELENS_LLM_API_KEY: " + envStatus("CODELENS_LLM_API_KEY"))
		observability.CLILogger.Info("  CODELENS_LLM_BASE_URL: " + envStatus("CODELENS_LLM_BASE_URL"))

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Effective settings:")
		observability.CLILogger.Info("  llm.provider: " + cfg.LLM.Provider)
		observability.CLILogger.Info("  llm.model: " + cfg.LLM.Model)
		observability.CLILogger.Info(fmt.Sprintf("  limiter.max_requests: %d per %s", cfg.Limiter.MaxRequests, cfg.Limiter.Window))
		observability.CLILogger.Info(fmt.Sprintf("  limiter.persist: %t", cfg.Limiter.Persist))

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("nothing to reset: pass --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Cannot resolve config path; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Removed config file", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config file already absent", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("database reset only applies to a local file store")
			}

			absPath := localStorePath(cfg)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Removed database", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Database already absent", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove database: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("cannot resolve config path")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("no config file at %s", configPath)
		}

		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config loads cleanly", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorCmd.Flags().BoolVar(&doctorLive, "live", false, "probe the configured LLM backend with a real request")

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set llm api key or use 'prompt' to enter")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

// localStorePath resolves the on-disk path of the local report database.
func localStorePath(cfg *config.Config) string {
	p := cfg.Store.Path
	if p == "" {
		p = config.DefaultStorePath()
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func logDirStatus(label, dir string) {
	if dir == "" {
		observability.CLILogger.Info(fmt.Sprintf("  %s: not resolved", label))
		return
	}
	observability.CLILogger.Info(fmt.Sprintf("  %s: %s (%s)", label, dir, existenceStatus(fileExists(dir))))
}

// formatFileSize renders a byte count with a binary unit suffix.
func formatFileSize(n int64) string {
	units := []struct {
		limit int64
		name  string
	}{
		{1 << 30, "GB"},
		{1 << 20, "MB"},
		{1 << 10, "KB"},
	}
	for _, u := range units {
		if n >= u.limit {
			return fmt.Sprintf("%.1f %s", float64(n)/float64(u.limit), u.name)
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

func buildInitConfig(apiKey string) string {
	lines := []string{
		"# codelens config - created by 'codelens doctor init'",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"limiter:",
		"  max_requests: 30",
		"  window: 1h",
		"  persist: false",
		"llm:",
		"  provider: completion",
		"  base_url: https://api.openai.com/v1",
		"  model: gpt-4o-mini",
	}

	if strings.TrimSpace(apiKey) != "" {
		lines = append(lines, fmt.Sprintf("  api_key: %q", apiKey))
	} else {
		lines = append(lines, "  # api_key: \"\"  # Set via CODELENS_LLM_API_KEY or uncomment")
	}

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "present"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "set"
	}
	return "not set"
}
