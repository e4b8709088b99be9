package main

import (
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup mihomo by downloading the binary and remote config",
	Long: `Download the mihomo binary (unless already installed), fetch the remote
config, apply local overrides, download geo-data and install
mihomo.service as a user unit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		inst, err := newInstaller()
		if err != nil {
			return err
		}
		return inst.Setup(cmd.Context(), overwrite)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update remote config and geo-data, then restart mihomo.service",
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := newInstaller()
		if err != nil {
			return err
		}
		return inst.Update(cmd.Context())
	},
}

var updateGeodataCmd = &cobra.Command{
	Use:   "update-geodata",
	Short: "Download the geo-data files selected by geodata_mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := newInstaller()
		if err != nil {
			return err
		}
		return inst.UpdateGeodata(cmd.Context())
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply mihomo config overrides and restart mihomo.service",
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := newInstaller()
		if err != nil {
			return err
		}
		return inst.Apply(cmd.Context())
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall mihomo.service and remove the live config",
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := newInstaller()
		if err != nil {
			return err
		}
		return inst.Uninstall(cmd.Context())
	},
}

func init() {
	setupCmd.Flags().Bool("overwrite", false, "Replace an existing mihomo binary")
}
