package cmd

import (
	"os"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Build metadata handed over by package main.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records the ldflags build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Explain code snippets with an LLM",
	Long: `CodeLens sends Python and C++ snippets to an LLM completion API and
returns a structured explanation, likely errors, and an improved version.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics to stdout, so a disabled telemetry
	// system stands in until serve wires the real one.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/codelens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig points viper at the config file and CODELENS_ environment, then
// applies defaults. Runs once per invocation before any command body.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		addConfigSearchPaths()
	}

	viper.SetEnvPrefix(config.AppName)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		reportConfigReadError(err)
	} else if verbose {
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}

	config.SetDefaults()
}

// addConfigSearchPaths registers the XDG config dir (or a home-directory
// dotfile when XDG cannot be resolved) plus ./config for repo-local use.
func addConfigSearchPaths() {
	if dir := gfconfig.GetAppConfigDir(config.AppName); dir != "" {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
	} else {
		if verbose {
			observability.CLILogger.Warn("XDG config directory unresolved, falling back to home directory")
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName("." + config.AppName)
		}
	}

	viper.AddConfigPath("./config")
	viper.SetConfigType("yaml")
}

// A missing config file is normal; defaults and environment cover it.
func reportConfigReadError(err error) {
	if !verbose {
		return
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		return
	}
	observability.CLILogger.Warn("Error reading config file", zap.Error(err))
}
