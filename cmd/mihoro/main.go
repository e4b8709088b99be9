package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/mihoro/pkg/cron"
	"github.com/cuemby/mihoro/pkg/fileutil"
	"github.com/cuemby/mihoro/pkg/installer"
	"github.com/cuemby/mihoro/pkg/log"
	"github.com/cuemby/mihoro/pkg/settings"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// skipSettings marks commands that run without a settings file.
const skipSettings = "mihoro/skip-settings"

var (
	settingsPath string
	logLevel     string
	logJSON      bool
	logFile      string

	// cfg is loaded once per invocation by the root pre-run hook.
	cfg       *settings.Settings
	logCloser io.Closer
)

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		if errors.Is(err, settings.ErrBootstrapped) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mihoro",
	Short: "Mihomo CLI client on Linux",
	Long: `mihoro installs mihomo as a user systemd service, keeps its config in
sync with a remote subscription, and overlays your local settings on top.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCloser = log.Init(log.Config{
			Level:      log.Level(logLevel),
			JSONOutput: logJSON,
			File:       logFile,
		})
		runID := log.WithRunID()
		log.Logger.Debug().Str("command", cmd.CommandPath()).Str("run_id", runID).Msg("Starting")

		if cmd.Annotations[skipSettings] == "true" {
			return nil
		}
		return loadSettings()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"mihoro version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&settingsPath, "mihoro-config", "m", settings.DefaultPath, "Path to mihoro settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated by size)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(updateGeodataCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(completionsCmd)
}

func loadSettings() error {
	s, err := settings.Load(settingsPath)
	if errors.Is(err, settings.ErrBootstrapped) {
		path, _ := fileutil.Expand(settingsPath)
		fmt.Printf("Created default settings at %s\n", path)
		fmt.Println("Edit `remote_config_url` (and `remote_mihomo_binary_url` if mihomo is not installed yet), then run:")
		fmt.Println("  mihoro setup")
		return err
	}
	if err != nil {
		return err
	}
	cfg = s
	return nil
}

func newInstaller() (*installer.Installer, error) {
	sched, err := cron.NewScheduler(cron.DefaultReferencePath())
	if err != nil {
		return nil, err
	}
	return installer.New(cfg, sched)
}
