package cwemap

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Persistence handles the persisted artifacts.
type Persistence interface {
	// Delete removes every persisted artifact
	Delete(ctx context.Context) error
}

// artifactPattern matches every entity record below the data directory.
const artifactPattern = "{view,category,weakness,reference}/*" + constants.EntityExt

// Delete removes the store, the cached raw document and any leftover
// staging or backup directories. Missing artifacts are ignored, so calling
// it twice is fine.
func (c *Client) Delete(ctx context.Context) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	log := logging.FromContext(logging.WithOperation(ctx, "delete"))
	fs := c.options.fs
	root := c.options.dataDir

	c.mu.Lock()
	c.store = nil
	c.mu.Unlock()

	var errs []error
	errs = append(errs, c.removeLeftovers()...)

	if _, err := fs.Stat(root); os.IsNotExist(err) {
		log.Debug().Str("path", root).Msg("Nothing to delete")
		return stderrors.Join(errs...)
	}

	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(fs, root)), artifactPattern)
	if err != nil {
		errs = append(errs, errors.WrapIO("list", root, err))
	}
	for _, rel := range matches {
		errs = append(errs, remove(fs, filepath.Join(root, filepath.FromSlash(rel))))
	}
	for _, name := range []string{constants.IndexFile, constants.RawCatalogFile} {
		errs = append(errs, remove(fs, filepath.Join(root, name)))
	}

	// Directories go only when empty so unrelated files survive.
	for _, dir := range []string{"view", "category", "weakness", "reference"} {
		_ = fs.Remove(filepath.Join(root, dir))
	}
	_ = fs.Remove(root)

	log.Info().Str("path", root).Int("entities", len(matches)).Msg("Deleted catalog")
	return stderrors.Join(errs...)
}

// removeLeftovers removes staging and backup directories of interrupted updates.
func (c *Client) removeLeftovers() []error {
	fs := c.options.fs
	parent := filepath.Dir(c.options.dataDir)
	base := filepath.Base(c.options.dataDir)

	entries, err := afero.ReadDir(fs, parent)
	if err != nil {
		return nil
	}

	var errs []error
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			continue
		}
		if !strings.HasPrefix(name, base+constants.StagingPrefix) && !strings.HasPrefix(name, base+constants.BackupPrefix) {
			continue
		}
		if err := fs.RemoveAll(filepath.Join(parent, name)); err != nil {
			errs = append(errs, errors.WrapIO("delete", name, err))
		}
	}
	return errs
}

func remove(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("delete", path, err)
	}
	return nil
}
