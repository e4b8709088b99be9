/*
Package systemd renders the mihomo user unit and drives the user service
manager through systemctl and journalctl.

All commands run against the per-user manager (`systemctl --user`), so no
privileges are needed. A non-zero exit is returned as *CommandError carrying
the command line, exit status and trimmed stderr.

# Unit File

MihomoUnit produces the service definition written to
<user_systemd_root>/mihomo.service:

	[Unit]
	Description=mihomo Daemon, Another Clash Kernel.
	After=network.target NetworkManager.service systemd-networkd.service iwd.service

	[Service]
	Type=simple
	LimitNPROC=500
	LimitNOFILE=1000000
	Restart=always
	ExecStartPre=/usr/bin/sleep 1s
	ExecStart=<binary> -d <config root>
	ExecReload=/bin/kill -HUP $MAINPID

	[Install]
	WantedBy=default.target

# Testing

Systemctl takes a Runner so callers can record invocations instead of
executing them.
*/
package systemd
