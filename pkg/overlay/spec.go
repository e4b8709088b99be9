package overlay

import (
	"fmt"
	"strings"
)

// Mode is the mihomo routing mode.
type Mode string

const (
	ModeGlobal Mode = "global"
	ModeRule   Mode = "rule"
	ModeDirect Mode = "direct"
)

// UnmarshalText rejects modes mihomo does not know about.
func (m *Mode) UnmarshalText(text []byte) error {
	switch v := Mode(strings.ToLower(string(text))); v {
	case ModeGlobal, ModeRule, ModeDirect:
		*m = v
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want global, rule or direct)", text)
	}
}

// LogLevel is the mihomo log verbosity.
type LogLevel string

const (
	LogSilent  LogLevel = "silent"
	LogError   LogLevel = "error"
	LogWarning LogLevel = "warning"
	LogInfo    LogLevel = "info"
	LogDebug   LogLevel = "debug"
)

// UnmarshalText rejects log levels mihomo does not know about.
func (l *LogLevel) UnmarshalText(text []byte) error {
	switch v := LogLevel(strings.ToLower(string(text))); v {
	case LogSilent, LogError, LogWarning, LogInfo, LogDebug:
		*l = v
		return nil
	default:
		return fmt.Errorf("unknown log level %q (want silent, error, warning, info or debug)", text)
	}
}

// GeoxURL lists the download sources for geo-data files.
type GeoxURL struct {
	GeoIP   string `toml:"geoip" yaml:"geoip"`
	GeoSite string `toml:"geosite" yaml:"geosite"`
	MMDB    string `toml:"mmdb" yaml:"mmdb"`
}

// Spec is the set of fields mihoro manages inside mihomo's own config. Port
// and SocksPort always carry a value; every other field is optional and, when
// nil, is removed from the document on Apply.
type Spec struct {
	Port               uint16    `toml:"port"`
	SocksPort          uint16    `toml:"socks_port"`
	MixedPort          *uint16   `toml:"mixed_port,omitempty"`
	AllowLAN           *bool     `toml:"allow_lan,omitempty"`
	BindAddress        *string   `toml:"bind_address,omitempty"`
	Mode               *Mode     `toml:"mode,omitempty"`
	LogLevel           *LogLevel `toml:"log_level,omitempty"`
	IPv6               *bool     `toml:"ipv6,omitempty"`
	ExternalController *string   `toml:"external_controller,omitempty"`
	ExternalUI         *string   `toml:"external_ui,omitempty"`
	Secret             *string   `toml:"secret,omitempty"`
	GeodataMode        *bool     `toml:"geodata_mode,omitempty"`
	GeoAutoUpdate      *bool     `toml:"geo_auto_update,omitempty"`
	GeoUpdateInterval  *uint     `toml:"geo_update_interval,omitempty"`
	GeoxURL            *GeoxURL  `toml:"geox_url,omitempty"`
}

const (
	DefaultPort      uint16 = 7891
	DefaultSocksPort uint16 = 7892
)

// DefaultSpec returns the overlay written into a freshly bootstrapped
// settings file.
func DefaultSpec() Spec {
	return Spec{
		Port:               DefaultPort,
		SocksPort:          DefaultSocksPort,
		AllowLAN:           ptr(false),
		BindAddress:        ptr("*"),
		Mode:               ptr(ModeRule),
		LogLevel:           ptr(LogInfo),
		IPv6:               ptr(false),
		ExternalController: ptr("0.0.0.0:9090"),
		ExternalUI:         ptr("ui"),
		GeodataMode:        ptr(false),
		GeoAutoUpdate:      ptr(false),
		GeoUpdateInterval:  ptr(uint(24)),
		GeoxURL: &GeoxURL{
			GeoIP:   "https://testingcf.jsdelivr.net/gh/MetaCubeX/meta-rules-dat@release/geoip.dat",
			GeoSite: "https://testingcf.jsdelivr.net/gh/MetaCubeX/meta-rules-dat@release/geosite.dat",
			MMDB:    "https://testingcf.jsdelivr.net/gh/MetaCubeX/meta-rules-dat@release/country.mmdb",
		},
	}
}

// Geodata reports whether geo-data should be fetched as the geoip/geosite
// pair rather than the single country database.
func (s Spec) Geodata() bool {
	return s.GeodataMode != nil && *s.GeodataMode
}

// LAN reports whether the daemon accepts connections from the local network.
func (s Spec) LAN() bool {
	return s.AllowLAN != nil && *s.AllowLAN
}

func ptr[T any](v T) *T {
	return &v
}
