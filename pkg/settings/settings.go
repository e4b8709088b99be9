package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/cuemby/mihoro/pkg/fileutil"
	"github.com/cuemby/mihoro/pkg/log"
	"github.com/cuemby/mihoro/pkg/overlay"
)

const (
	// DefaultPath is where mihoro looks for its settings unless told otherwise
	DefaultPath = "~/.config/mihoro.toml"

	// ServiceName is the systemd unit mihoro manages
	ServiceName = "mihomo.service"

	// DefaultAutoUpdateInterval is the cron interval, in hours, written on bootstrap
	DefaultAutoUpdateInterval = 12
)

// ErrBootstrapped is returned by Load when no settings file existed and a
// default one was just written. It is a signal, not a failure: the caller
// should tell the user to edit the file and stop this run.
var ErrBootstrapped = errors.New("created default settings")

// MissingFieldError reports the first required field found empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("`%s` undefined in settings", e.Field)
}

// MalformedError wraps the TOML decoder diagnostic for an unparsable file.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("failed to parse settings %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Settings is the user-facing mihoro configuration.
type Settings struct {
	RemoteBinaryURL    string       `toml:"remote_mihomo_binary_url"`
	RemoteConfigURL    string       `toml:"remote_config_url"`
	BinaryPath         string       `toml:"mihomo_binary_path"`
	ConfigRoot         string       `toml:"mihomo_config_root"`
	SystemdRoot        string       `toml:"user_systemd_root"`
	UserAgent          string       `toml:"mihoro_user_agent"`
	AutoUpdateInterval uint16       `toml:"auto_update_interval"`
	MetricsTextfile    string       `toml:"metrics_textfile,omitempty"`
	Mihomo             overlay.Spec `toml:"mihomo_config"`
}

// Paths are the tilde-expanded locations derived from Settings.
type Paths struct {
	Binary     string
	ConfigRoot string
	Config     string
	Unit       string
	Metrics    string
}

// Default returns the settings written on first run.
func Default() *Settings {
	return &Settings{
		BinaryPath:         "~/.local/bin/mihomo",
		ConfigRoot:         "~/.config/mihomo",
		SystemdRoot:        "~/.config/systemd/user",
		UserAgent:          "mihoro",
		AutoUpdateInterval: DefaultAutoUpdateInterval,
		Mihomo:             overlay.DefaultSpec(),
	}
}

// Load reads settings from path. If the file does not exist a default one is
// created and ErrBootstrapped is returned.
func Load(path string) (*Settings, error) {
	logger := log.WithComponent("settings")

	expanded, err := fileutil.Expand(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		if err := Save(Default(), expanded); err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		logger.Info().Str("path", expanded).Msg("Created default settings")
		return nil, ErrBootstrapped
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := Default()
	// Optional overlay fields must only be set when the file says so.
	s.Mihomo = overlay.Spec{Port: overlay.DefaultPort, SocksPort: overlay.DefaultSocksPort}
	if _, err := toml.Decode(string(data), s); err != nil {
		return nil, &MalformedError{Path: expanded, Err: err}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Str("path", expanded).Msg("Loaded settings")
	return s, nil
}

// Save encodes settings as TOML and atomically replaces path.
func Save(s *Settings, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Validate checks that every field an installer operation depends on is set.
func (s *Settings) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"remote_config_url", s.RemoteConfigURL},
		{"mihomo_binary_path", s.BinaryPath},
		{"mihomo_config_root", s.ConfigRoot},
		{"user_systemd_root", s.SystemdRoot},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingFieldError{Field: r.field}
		}
	}
	return nil
}

// Paths expands the path settings.
func (s *Settings) Paths() (Paths, error) {
	var p Paths
	var err error
	if p.Binary, err = fileutil.Expand(s.BinaryPath); err != nil {
		return Paths{}, err
	}
	if p.ConfigRoot, err = fileutil.Expand(s.ConfigRoot); err != nil {
		return Paths{}, err
	}
	systemdRoot, err := fileutil.Expand(s.SystemdRoot)
	if err != nil {
		return Paths{}, err
	}
	if s.MetricsTextfile != "" {
		if p.Metrics, err = fileutil.Expand(s.MetricsTextfile); err != nil {
			return Paths{}, err
		}
	}
	p.Config = filepath.Join(p.ConfigRoot, "config.yaml")
	p.Unit = filepath.Join(systemdRoot, ServiceName)
	return p, nil
}
