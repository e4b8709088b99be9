package systemd

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Unit describes a simple long-running service.
type Unit struct {
	Description string
	After       []string
	ExecStart   string
	ExecPre     string
	Restart     string
	LimitNPROC  int
	LimitNOFILE int
	WantedBy    string
}

var unitTemplate = template.Must(template.New("unit").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`[Unit]
Description={{.Description}}
After={{join .After " "}}

[Service]
Type=simple
{{- if .LimitNPROC}}
LimitNPROC={{.LimitNPROC}}
{{- end}}
{{- if .LimitNOFILE}}
LimitNOFILE={{.LimitNOFILE}}
{{- end}}
Restart={{.Restart}}
{{- if .ExecPre}}
ExecStartPre={{.ExecPre}}
{{- end}}
ExecStart={{.ExecStart}}
ExecReload=/bin/kill -HUP $MAINPID

[Install]
WantedBy={{.WantedBy}}
`))

// Render produces the unit file contents.
func (u Unit) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, u); err != nil {
		return nil, fmt.Errorf("failed to render unit: %w", err)
	}
	return buf.Bytes(), nil
}

// MihomoUnit is the user service that runs mihomo against configRoot.
func MihomoUnit(binaryPath, configRoot string) Unit {
	return Unit{
		Description: "mihomo Daemon, Another Clash Kernel.",
		After:       []string{"network.target", "NetworkManager.service", "systemd-networkd.service", "iwd.service"},
		ExecStart:   fmt.Sprintf("%s -d %s", binaryPath, configRoot),
		ExecPre:     "/usr/bin/sleep 1s",
		Restart:     "always",
		LimitNPROC:  500,
		LimitNOFILE: 1000000,
		WantedBy:    "default.target",
	}
}
