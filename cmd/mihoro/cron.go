package main

import (
	"fmt"

	"github.com/cuemby/mihoro/pkg/cron"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage automatic config updates through crontab",
	Long: `Schedule ` + "`mihoro update`" + ` to run every few hours.

Note: enabling replaces the whole user crontab with the mihoro entry, and
disabling removes the user crontab entirely.`,
}

var cronEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable auto-update at auto_update_interval hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		hours := cfg.AutoUpdateInterval
		if cmd.Flags().Changed("interval") {
			hours, _ = cmd.Flags().GetUint16("interval")
		}

		sched, err := cron.NewScheduler(cron.DefaultReferencePath())
		if err != nil {
			return err
		}
		if err := sched.Enable(cmd.Context(), hours); err != nil {
			return err
		}
		if hours == 0 {
			fmt.Println("✓ Auto-update interval is 0, auto-update disabled")
			return nil
		}
		fmt.Printf("✓ Auto-update enabled with interval: %d hours\n", hours)
		fmt.Printf("  Cron entry: %s\n", cron.Entry(hours, sched.Executable))
		return nil
	},
}

var cronDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable auto-update",
	Annotations: map[string]string{
		skipSettings: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := cron.NewScheduler(cron.DefaultReferencePath())
		if err != nil {
			return err
		}
		if err := sched.Disable(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✓ Auto-update disabled")
		return nil
	},
}

var cronStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show auto-update status",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := cfg.Paths()
		if err != nil {
			return err
		}
		sched, err := cron.NewScheduler(cron.DefaultReferencePath())
		if err != nil {
			return err
		}

		st, err := sched.Status(paths.Config)
		if err != nil {
			return err
		}
		if !st.Enabled {
			fmt.Println("status: Auto-update is disabled")
			return nil
		}

		fmt.Println("status: Auto-update is enabled")
		fmt.Printf("  %s\n", st.Entry)
		if st.LastUpdate != nil {
			fmt.Printf("  Last updated: %s (%s)\n",
				st.LastUpdate.Format("2006-01-02 15:04:05"), humanize.Time(*st.LastUpdate))
		}
		return nil
	},
}

func init() {
	cronEnableCmd.Flags().Uint16("interval", 0, "Interval in hours (1-24, 0 disables); defaults to auto_update_interval")

	cronCmd.AddCommand(cronEnableCmd)
	cronCmd.AddCommand(cronDisableCmd)
	cronCmd.AddCommand(cronStatusCmd)
}
