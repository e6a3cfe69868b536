package cwemap

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/cwemap/internal/indexer"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/differ"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
	"github.com/agentstation/cwemap/pkg/store"
	"github.com/agentstation/cwemap/pkg/version"
	"github.com/google/uuid"
)

// Updater rebuilds the store.
type Updater interface {
	// Update fetches the catalog and replaces the store with a fresh build
	Update(ctx context.Context) (*Result, error)

	// EnsureFresh installs or rebuilds the store when it is missing or stale
	EnsureFresh(ctx context.Context, provider version.Provider) (*Result, error)

	// NeedsUpdate reports whether remote differs from the installed version
	NeedsUpdate(remote string) bool
}

// Result describes one completed rebuild.
type Result struct {
	Source   string            `json:"source"`
	Report   *indexer.Report   `json:"report"`
	Changes  *differ.Changeset `json:"changes"`
	Duration time.Duration     `json:"duration"`
}

// Update fetches and validates a new catalog, builds it into a staging
// directory next to the data directory and swaps it into place. Any failure
// leaves the previous store untouched and queryable.
func (c *Client) Update(ctx context.Context) (*Result, error) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	start := time.Now()
	buildID := uuid.NewString()
	ctx = logging.WithOperation(logging.WithBuildID(ctx, buildID), "update")
	ctx = logging.WithSource(ctx, c.options.source.Name())
	log := logging.FromContext(ctx)

	result, err := c.update(ctx, buildID)
	elapsed := time.Since(start)

	var report *indexer.Report
	if result != nil {
		result.Duration = elapsed
		report = result.Report
	}
	c.options.metrics.ObserveBuild(report, elapsed, err)

	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("Catalog update failed")
		return nil, err
	}
	log.Info().
		Str("version", report.Version).
		Int("entities", report.Total()).
		Str("changes", result.Changes.String()).
		Dur("elapsed", elapsed).
		Msg("Catalog updated")
	return result, nil
}

func (c *Client) update(ctx context.Context, buildID string) (*Result, error) {
	log := logging.FromContext(ctx)
	fs := c.options.fs
	root := c.options.dataDir

	log.Info().Msg("Fetching catalog")
	doc, err := c.options.source.Fetch(ctx)
	if err != nil {
		return nil, errors.WrapResource("fetch", "catalog", c.options.source.Name(), err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapFetch(c.options.source.Name(), err)
	}

	parent := filepath.Dir(root)
	if err := fs.MkdirAll(parent, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", parent, err)
	}
	staging := filepath.Join(parent, filepath.Base(root)+constants.StagingPrefix+buildID)
	if err := fs.MkdirAll(staging, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", staging, err)
	}
	swapped := false
	defer func() {
		if !swapped {
			if err := fs.RemoveAll(staging); err != nil {
				log.Warn().Err(err).Str("path", staging).Msg("Failed to remove staging directory")
			}
		}
	}()

	if err := c.writeRaw(staging, doc); err != nil {
		return nil, err
	}

	report, err := indexer.New(fs, staging, indexer.WithBuildID(buildID)).Run(ctx, doc)
	if err != nil {
		return nil, errors.WrapResource("build", "store", staging, err)
	}
	if err := report.Err(); err != nil {
		log.Warn().Err(err).Int("dangling", len(report.Dangling)).Msg("Catalog declares members that do not exist")
	}

	// Read before the swap; a missing or broken previous store means a first install.
	previous, _ := store.ReadIndex(fs, root)

	if err := c.swap(ctx, staging, root); err != nil {
		return nil, err
	}
	swapped = true

	s, err := c.load()
	if err != nil {
		return nil, errors.WrapResource("load", "store", root, err)
	}
	c.mu.Lock()
	c.store = s
	c.mu.Unlock()

	return &Result{
		Source:  c.options.source.Name(),
		Report:  report,
		Changes: differ.Indexes(previous, s.Index()),
	}, nil
}

// writeRaw caches the raw document the store is built from.
func (c *Client) writeRaw(dir string, doc *catalog.Document) error {
	path := filepath.Join(dir, constants.RawCatalogFile)
	f, err := c.options.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(doc)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// swap moves the staging directory into root. The previous store is renamed
// aside first and restored if the second rename fails.
func (c *Client) swap(ctx context.Context, staging, root string) error {
	log := logging.FromContext(ctx)
	fs := c.options.fs

	backup := ""
	if _, err := fs.Stat(root); err == nil {
		backup = root + constants.BackupPrefix + uuid.NewString()
		if err := fs.Rename(root, backup); err != nil {
			return errors.WrapIO("rename", root, err)
		}
	}

	if err := fs.Rename(staging, root); err != nil {
		if backup != "" {
			if rerr := fs.Rename(backup, root); rerr != nil {
				log.Error().Err(rerr).Str("backup", backup).Msg("Failed to restore previous store")
			}
		}
		return errors.WrapIO("rename", staging, err)
	}

	if backup != "" {
		if err := fs.RemoveAll(backup); err != nil {
			log.Warn().Err(err).Str("path", backup).Msg("Failed to remove previous store")
		}
	}
	log.Debug().Str("path", root).Msg("Swapped in new store")
	return nil
}

// EnsureFresh installs the store when it is missing and rebuilds it when
// provider reports a different version. When the remote version cannot be
// determined an installed store keeps being served. The result is nil when
// no rebuild ran.
func (c *Client) EnsureFresh(ctx context.Context, provider version.Provider) (*Result, error) {
	log := logging.FromContext(ctx)

	if !c.IsInstalled() {
		log.Info().Str("path", c.options.dataDir).Msg("Catalog not installed")
		return c.Update(ctx)
	}

	if provider != nil {
		remote, err := provider.RemoteVersion(ctx)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Could not determine remote version, keeping installed catalog")
		case c.gate.NeedsUpdate(remote):
			local, _ := c.gate.Local()
			log.Info().Str("local", local).Str("remote", remote).Msg("Catalog version changed")
			return c.Update(ctx)
		default:
			log.Debug().Str("version", remote).Msg("Catalog is current")
		}
	}

	if _, err := c.Store(); err != nil {
		return nil, err
	}
	return nil, nil
}
