package main

import (
	"fmt"
	"os"

	"github.com/cuemby/mihoro/pkg/log"
	"github.com/cuemby/mihoro/pkg/proxy"
	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Proxy export commands",
	Long: `Print shell commands that point the current terminal at mihomo.

Evaluate the output in your shell, for example:

  eval "$(mihoro proxy export)"`,
}

var proxyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Output proxy export shell commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := proxy.DetectShell(os.Getenv("SHELL"))
		fmt.Println(proxy.ExportCommand(shell, "127.0.0.1", cfg.Mihomo))
		return nil
	},
}

var proxyExportLANCmd = &cobra.Command{
	Use:   "export-lan",
	Short: "Output proxy export shell commands for LAN access",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Mihomo.LAN() {
			log.Logger.Warn().Msg("`allow_lan` is false, other hosts will not be able to connect; set it to true and run `mihoro apply`")
		}

		ip, err := proxy.LocalIP()
		if err != nil {
			return err
		}
		shell := proxy.DetectShell(os.Getenv("SHELL"))
		fmt.Println(proxy.ExportCommand(shell, ip.String(), cfg.Mihomo))
		return nil
	},
}

var proxyUnsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Output proxy unset shell commands",
	Annotations: map[string]string{
		skipSettings: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(proxy.UnsetCommand(proxy.DetectShell(os.Getenv("SHELL"))))
		return nil
	},
}

func init() {
	proxyCmd.AddCommand(proxyExportCmd)
	proxyCmd.AddCommand(proxyExportLANCmd)
	proxyCmd.AddCommand(proxyUnsetCmd)
}
