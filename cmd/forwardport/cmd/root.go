package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/snapshot"
)

// Exit codes returned by Execute.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitUsage          = 2
	ExitNotImplemented = 99
)

// ErrUsage marks bad flags or arguments.
var ErrUsage = errors.New("usage error")

// version is set at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

var (
	cfgFile   string
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "forwardport",
	Short: "Find chisel-releases PRs that are missing forward ports",
	Long: `forwardport checks the open pull requests into the ubuntu-* release
branches of chisel-releases and reports, for every PR, whether each later
release has an open PR introducing the same slices.

Slices whose package no longer exists in a later release's archive are
treated as discontinued rather than missing.

Workflow:
  forwardport fetch snapshot.json.gz      # collect PRs, slices and packages
  forwardport analyze snapshot.json.gz    # report forward-port status`,
	Version:           version,
	Args:              usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Writes to a closed pipe return EPIPE instead of killing the process.
	signal.Notify(make(chan os.Signal, 1), syscall.SIGPIPE)

	err := rootCmd.ExecuteContext(ctx)
	syncLogger()

	code := exitCode(err)
	if err != nil && !isBrokenPipe(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case isBrokenPipe(err):
		return ExitError
	case errors.Is(err, snapshot.ErrNotImplemented):
		return ExitNotImplemented
	case errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitError
	}
}

// usageArgs marks argument validation errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
		return nil
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.forwardport.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warning, error, fatal, critical")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console, json, logfmt")
	rootCmd.PersistentFlags().String("token", "", "GitHub token (or set GITHUB_TOKEN env var)")

	// Bind flags to viper
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".forwardport")
	}

	viper.SetEnvPrefix("FORWARDPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Names used by the existing scripts.
	_ = viper.BindEnv("token", "FORWARDPORT_TOKEN", "GITHUB_TOKEN")
	_ = viper.BindEnv("repo-url", "FORWARDPORT_REPO_URL", "CHISEL_RELEASES_URL")
	_ = viper.BindEnv("archive-url", "FORWARDPORT_ARCHIVE_URL", "ARCHIVE_URL")
	_ = viper.BindEnv("old-archive-url", "FORWARDPORT_OLD_ARCHIVE_URL", "OLD_ARCHIVE_URL")
	_ = viper.BindEnv("use-cache", "FORWARDPORT_USE_CACHE", "USE_MEMORY")

	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("%w: reading config: %w", ErrUsage, err)
		}
	}
}

func setup(*cobra.Command, []string) error {
	if configErr != nil {
		return configErr
	}
	if err := initLogger(viper.GetString("log-level"), viper.GetString("log-format")); err != nil {
		return err
	}

	if used := viper.ConfigFileUsed(); used != "" {
		zap.L().Debug("using config file", zap.String("path", used))
	}
	return nil
}

// githubToken returns the configured token and logs whether one is set.
func githubToken() string {
	log := zap.L()

	token := strings.TrimSpace(viper.GetString("token"))
	_, inEnv := os.LookupEnv("GITHUB_TOKEN")
	_, inPrefixedEnv := os.LookupEnv("FORWARDPORT_TOKEN")

	switch {
	case token != "":
		log.Debug("GITHUB_TOKEN is set")
	case inEnv || inPrefixedEnv || viper.IsSet("token"):
		log.Warn("GITHUB_TOKEN is set but empty, making unauthenticated requests")
	default:
		log.Debug("GITHUB_TOKEN is not set, making unauthenticated requests")
	}
	return token
}
