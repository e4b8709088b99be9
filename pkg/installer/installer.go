package installer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/mihoro/pkg/binary"
	"github.com/cuemby/mihoro/pkg/fetch"
	"github.com/cuemby/mihoro/pkg/fileutil"
	"github.com/cuemby/mihoro/pkg/geodata"
	"github.com/cuemby/mihoro/pkg/log"
	"github.com/cuemby/mihoro/pkg/metrics"
	"github.com/cuemby/mihoro/pkg/overlay"
	"github.com/cuemby/mihoro/pkg/settings"
	"github.com/cuemby/mihoro/pkg/systemd"
)

// ServiceManager controls the mihomo unit.
type ServiceManager interface {
	Enable(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	DaemonReload(ctx context.Context) error
	ResetFailed(ctx context.Context) error
}

// BinaryProvisioner makes sure the mihomo executable is in place.
type BinaryProvisioner interface {
	Ensure(ctx context.Context, url, target string, overwrite bool) (binary.Action, error)
}

// GeodataUpdater refreshes geo-data files in the config root.
type GeodataUpdater interface {
	Update(ctx context.Context, spec overlay.Spec, root string) error
}

// Scheduler is the part of the auto-update scheduler uninstall needs.
type Scheduler interface {
	Disable(ctx context.Context) error
}

// Installer runs the setup, update, apply and uninstall workflows.
type Installer struct {
	Settings    *settings.Settings
	Paths       settings.Paths
	Fetcher     fetch.Fetcher
	Services    ServiceManager
	Scheduler   Scheduler
	Provisioner BinaryProvisioner
	Geodata     GeodataUpdater
	Metrics     *metrics.Recorder

	// Out receives progress lines meant for the user.
	Out io.Writer
}

// New wires an installer against the real network, systemd and filesystem.
func New(s *settings.Settings, scheduler Scheduler) (*Installer, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}
	client := fetch.NewClient(s.UserAgent)
	return &Installer{
		Settings:    s,
		Paths:       paths,
		Fetcher:     client,
		Services:    systemd.NewUser(),
		Scheduler:   scheduler,
		Provisioner: &binary.Provisioner{Fetcher: client},
		Geodata:     geodata.NewUpdater(client),
		Metrics:     metrics.NewRecorder(paths.Metrics),
		Out:         os.Stdout,
	}, nil
}

func (i *Installer) printf(format string, args ...any) {
	if i.Out == nil {
		return
	}
	fmt.Fprintf(i.Out, format, args...)
}

// run executes fn and records its outcome under op.
func (i *Installer) run(op string, fn func() error) error {
	logger := log.WithComponent("installer")
	timer := metrics.NewTimer()
	err := fn()

	i.Metrics.Observe(op, timer, err)
	if werr := i.Metrics.WriteTextfile(); werr != nil {
		logger.Warn().Err(werr).Msg("Failed to write metrics textfile")
	}

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.Str("operation", op).Dur("duration", timer.Duration()).Msg("Operation finished")
	return err
}

// Setup installs the binary, config, geo-data and unit, then starts the
// service. An existing binary is kept unless overwrite is set.
func (i *Installer) Setup(ctx context.Context, overwrite bool) error {
	return i.run("setup", func() error {
		i.printf("Setting up mihomo's binary, config, and systemd service...\n")

		action, err := i.Provisioner.Ensure(ctx, i.Settings.RemoteBinaryURL, i.Paths.Binary, overwrite)
		if err != nil {
			return err
		}
		switch action {
		case binary.Skipped:
			i.printf("Assuming mihomo binary already installed at %s, skipping download (use --overwrite to replace)\n", i.Paths.Binary)
		default:
			i.printf("✓ mihomo binary %s at %s\n", action, i.Paths.Binary)
		}

		if err := i.refreshConfig(ctx); err != nil {
			return err
		}
		if err := i.Geodata.Update(ctx, i.Settings.Mihomo, i.Paths.ConfigRoot); err != nil {
			return fmt.Errorf("failed to update geo-data: %w", err)
		}

		if err := i.writeUnit(); err != nil {
			return err
		}
		if err := i.Services.DaemonReload(ctx); err != nil {
			return err
		}
		if err := i.Services.Enable(ctx, settings.ServiceName); err != nil {
			return err
		}
		if err := i.Services.Start(ctx, settings.ServiceName); err != nil {
			return err
		}
		i.printf("✓ %s enabled and started\n", settings.ServiceName)
		return nil
	})
}

// Update downloads a fresh config and geo-data, then restarts the service.
// The binary is left alone.
func (i *Installer) Update(ctx context.Context) error {
	return i.run("update", func() error {
		if err := i.refreshConfig(ctx); err != nil {
			return err
		}
		if err := i.Geodata.Update(ctx, i.Settings.Mihomo, i.Paths.ConfigRoot); err != nil {
			return fmt.Errorf("failed to update geo-data: %w", err)
		}
		if err := i.Services.Restart(ctx, settings.ServiceName); err != nil {
			return err
		}
		i.printf("✓ Restarted %s\n", settings.ServiceName)
		return nil
	})
}

// UpdateGeodata refreshes geo-data files only.
func (i *Installer) UpdateGeodata(ctx context.Context) error {
	return i.run("update-geodata", func() error {
		if err := i.Geodata.Update(ctx, i.Settings.Mihomo, i.Paths.ConfigRoot); err != nil {
			return fmt.Errorf("failed to update geo-data: %w", err)
		}
		i.printf("✓ Geo-data updated in %s\n", i.Paths.ConfigRoot)
		return nil
	})
}

// Apply re-applies the overlay to the live config without downloading and
// restarts the service.
func (i *Installer) Apply(ctx context.Context) error {
	return i.run("apply", func() error {
		if err := overlay.ApplyFile(i.Paths.Config, i.Settings.Mihomo); err != nil {
			return err
		}
		i.printf("✓ Applied mihomo config overrides\n")

		if err := i.Services.Restart(ctx, settings.ServiceName); err != nil {
			return err
		}
		i.printf("✓ Restarted %s\n", settings.ServiceName)
		return nil
	})
}

// Uninstall stops the service and removes the unit and live config. The
// binary and config root are left for the user to delete. Running it again
// after a successful uninstall is a no-op.
func (i *Installer) Uninstall(ctx context.Context) error {
	return i.run("uninstall", func() error {
		if fileutil.Exists(i.Paths.Unit) {
			if err := i.Services.Stop(ctx, settings.ServiceName); err != nil {
				return err
			}
			if err := i.Services.Disable(ctx, settings.ServiceName); err != nil {
				return err
			}
		}

		for _, path := range []string{i.Paths.Unit, i.Paths.Config} {
			removed, err := fileutil.RemoveIfExists(path)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", path, err)
			}
			if removed {
				i.printf("✓ Deleted %s\n", path)
			}
		}

		if err := i.Services.DaemonReload(ctx); err != nil {
			return err
		}
		if err := i.Services.ResetFailed(ctx); err != nil {
			return err
		}
		i.printf("✓ Disabled and reloaded systemd services\n")

		if i.Scheduler != nil {
			if err := i.Scheduler.Disable(ctx); err != nil {
				return err
			}
		}

		i.printf("You may need to remove mihomo binary and config directory manually\n")
		i.printf("  rm -R %s %s\n", i.Paths.Binary, i.Paths.ConfigRoot)
		return nil
	})
}

// refreshConfig downloads the remote config, unwraps base64 payloads and
// applies the overlay.
func (i *Installer) refreshConfig(ctx context.Context) error {
	if err := i.Fetcher.Download(ctx, i.Settings.RemoteConfigURL, i.Paths.Config); err != nil {
		return err
	}
	decoded, err := DecodeBase64File(i.Paths.Config)
	if err != nil {
		return err
	}
	if decoded {
		i.printf("✓ Decoded base64 config\n")
	}
	if err := overlay.ApplyFile(i.Paths.Config, i.Settings.Mihomo); err != nil {
		return err
	}
	i.printf("✓ Updated and applied config overrides\n")
	return nil
}

func (i *Installer) writeUnit() error {
	data, err := systemd.MihomoUnit(i.Paths.Binary, i.Paths.ConfigRoot).Render()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(i.Paths.Unit, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", i.Paths.Unit, err)
	}
	i.printf("✓ Created %s at %s\n", settings.ServiceName, i.Paths.Unit)
	return nil
}
