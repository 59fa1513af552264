package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/liuyaboixixi/QuarkPanTool/internal/config"
	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagCookiePath string
	flagVerbose    bool
	flagQuiet      bool
)

// loadedCfg and loadedCfgPath hold the configuration resolved by
// PersistentPreRunE, available to all subcommands. Commands that change
// the save destination write back through loadedCfgPath.
var (
	loadedCfg     *config.Config
	loadedCfgPath string
)

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quarkpan",
		Short:   "Quark drive transfer and publish CLI",
		Long:    "Save shared links into your own Quark drive storage, download owned shares to disk, and bulk-publish folder trees as share links.",
		Version: version,
		// Silence Cobra's default error/usage printing, errors are
		// formatted by exitOnError.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagCookiePath, "cookie", "", "session cookie file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newMkdirCmd())

	return cmd
}

// loadConfig resolves the config file path (flag wins over the platform
// default) and loads it, falling back to defaults when no file exists.
func loadConfig() error {
	loadedCfgPath = config.DefaultConfigPath()
	if flagConfigPath != "" {
		loadedCfgPath = flagConfigPath
	}

	cfg, err := config.LoadOrDefault(loadedCfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loadedCfg = cfg

	return nil
}

// cookiePath resolves the cookie file location: flag wins over the
// platform default.
func cookiePath() string {
	if flagCookiePath != "" {
		return flagCookiePath
	}

	return config.DefaultCookiePath()
}

// buildLogger creates an slog.Logger configured by the CLI flags.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newDriveClient creates an API client backed by the stored cookie.
func newDriveClient(logger *slog.Logger) *quark.Client {
	creds := config.NewFileCookieSource(cookiePath())
	return quark.NewClient(creds, nil, logger)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	errorf("Error: %v\n", err)
	os.Exit(1)
}
