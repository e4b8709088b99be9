// Package geodata refreshes the IP and site classification databases mihomo
// uses for routing decisions.
package geodata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/mihoro/pkg/fetch"
	"github.com/cuemby/mihoro/pkg/log"
	"github.com/cuemby/mihoro/pkg/overlay"
	"github.com/oschwald/maxminddb-golang"
)

const (
	GeoIPFile   = "geoip.dat"
	GeoSiteFile = "geosite.dat"
	MMDBFile    = "country.mmdb"

	docsURL = "https://wiki.metacubex.one/config/general/#geo_3"
)

// ValidateFunc checks a freshly downloaded file before it replaces the
// current one.
type ValidateFunc func(name, path string) error

// Updater downloads geo-data files selected by the overlay spec.
type Updater struct {
	Fetcher  fetch.Fetcher
	Validate ValidateFunc
}

// NewUpdater creates an updater that validates country.mmdb with maxminddb.
func NewUpdater(f fetch.Fetcher) *Updater {
	return &Updater{Fetcher: f, Validate: ValidateMMDB}
}

// Files returns the geo-data files to fetch for spec, keyed by file name.
// geodata-mode selects the geoip/geosite pair, otherwise the single
// country database is used.
func Files(spec overlay.Spec) map[string]string {
	if spec.GeoxURL == nil {
		return nil
	}
	if spec.Geodata() {
		return map[string]string{
			GeoIPFile:   spec.GeoxURL.GeoIP,
			GeoSiteFile: spec.GeoxURL.GeoSite,
		}
	}
	return map[string]string{MMDBFile: spec.GeoxURL.MMDB}
}

// Update downloads the geo-data files into root.
func (u *Updater) Update(ctx context.Context, spec overlay.Spec, root string) error {
	logger := log.WithComponent("geodata")

	files := Files(spec)
	if files == nil {
		logger.Warn().Str("docs", docsURL).Msg("`geox_url` undefined, skipping geo-data download")
		return nil
	}

	// Fixed order keeps the download sequence deterministic.
	for _, name := range []string{GeoIPFile, GeoSiteFile, MMDBFile} {
		url, ok := files[name]
		if !ok {
			continue
		}
		if url == "" {
			return fmt.Errorf("`geox_url.%s` undefined in settings", urlKey(name))
		}
		if err := u.fetchOne(ctx, name, url, root); err != nil {
			return err
		}
	}

	logger.Info().Str("root", root).Msg("Downloaded and updated geo-data")
	return nil
}

func (u *Updater) fetchOne(ctx context.Context, name, url, root string) error {
	dest := filepath.Join(root, name)
	staging := dest + ".new"
	defer os.Remove(staging)

	if err := u.Fetcher.Download(ctx, url, staging); err != nil {
		return err
	}

	if u.Validate != nil {
		if err := u.Validate(name, staging); err != nil {
			return fmt.Errorf("downloaded %s is invalid: %w", name, err)
		}
	}

	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("failed to install %s: %w", name, err)
	}
	return nil
}

// ValidateMMDB opens country.mmdb to make sure it is a MaxMind database.
// Other files are accepted as-is.
func ValidateMMDB(name, path string) error {
	if name != MMDBFile {
		return nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return err
	}
	logger := log.WithComponent("geodata")
	logger.Debug().
		Str("type", db.Metadata.DatabaseType).
		Uint("build_epoch", db.Metadata.BuildEpoch).
		Msg("Validated country database")
	return db.Close()
}

func urlKey(name string) string {
	switch name {
	case GeoIPFile:
		return "geoip"
	case GeoSiteFile:
		return "geosite"
	default:
		return "mmdb"
	}
}
