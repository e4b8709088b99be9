package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cuemby/mihoro/pkg/health"
	"github.com/cuemby/mihoro/pkg/settings"
	"github.com/cuemby/mihoro/pkg/systemd"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start mihomo.service with systemctl",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := systemd.NewUser().Start(cmd.Context(), settings.ServiceName); err != nil {
			return err
		}
		fmt.Printf("✓ Started %s\n", settings.ServiceName)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop mihomo.service with systemctl",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := systemd.NewUser().Stop(cmd.Context(), settings.ServiceName); err != nil {
			return err
		}
		fmt.Printf("✓ Stopped %s\n", settings.ServiceName)
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart mihomo.service with systemctl",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := systemd.NewUser().Restart(cmd.Context(), settings.ServiceName); err != nil {
			return err
		}
		fmt.Printf("✓ Restarted %s\n", settings.ServiceName)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check mihomo.service status with systemctl",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := systemd.NewUser().Status(cmd.Context(), settings.ServiceName, os.Stdout)
		// systemctl status exits 3 for an inactive unit; the output already says so.
		var cmdErr *systemd.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 3 {
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println()
		for _, o := range health.CheckAll(cmd.Context(), health.Targets(cfg.Mihomo)) {
			fmt.Println(o)
		}
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Check mihomo.service logs with journalctl",
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, _ := cmd.Flags().GetInt("lines")
		noFollow, _ := cmd.Flags().GetBool("no-follow")

		return systemd.NewUser().Journal(cmd.Context(), settings.ServiceName, lines, !noFollow, os.Stdout)
	},
}

func init() {
	logCmd.Flags().IntP("lines", "n", 10, "Number of journal lines to show")
	logCmd.Flags().Bool("no-follow", false, "Print the lines and exit instead of following")
}
