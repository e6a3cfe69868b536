// Package version decides whether a local catalog is stale by comparing
// the version declared in the cached raw document with a remote version.
//
// Versions are compared for numeric equality only. An older remote version
// also counts as a change, so the store tracks "matches the latest published
// tag" rather than monotonic freshness.
package version

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/spf13/afero"
)

// Provider supplies the currently published catalog version.
type Provider interface {
	RemoteVersion(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// RemoteVersion calls f.
func (f ProviderFunc) RemoteVersion(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static is a Provider that always reports the same version.
type Static string

// RemoteVersion returns s.
func (s Static) RemoteVersion(context.Context) (string, error) {
	return string(s), nil
}

// Gate reads the local version from a data directory.
type Gate struct {
	fs   afero.Fs
	path string
}

// NewGate returns a gate over the raw document cached in dataDir.
func NewGate(fs afero.Fs, dataDir string) *Gate {
	return &Gate{fs: fs, path: filepath.Join(dataDir, constants.RawCatalogFile)}
}

// Local returns the declared version of the cached raw document. ok is
// false when the file or attribute is missing or not a number.
func (g *Gate) Local() (string, bool) {
	data, err := afero.ReadFile(g.fs, g.path)
	if err != nil {
		return "", false
	}

	var header struct {
		Catalog struct {
			Version any `json:"Version"`
		} `json:"Weakness_Catalog"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return "", false
	}

	c := catalog.Catalog{Version: header.Catalog.Version}
	v := c.VersionString()
	if _, ok := Parse(v); !ok {
		return "", false
	}
	return v, true
}

// NeedsUpdate reports whether the store should be rebuilt for remote.
// Without a usable local version it is always true; a remote that is not a
// number never matches.
func (g *Gate) NeedsUpdate(remote string) bool {
	local, ok := g.Local()
	if !ok {
		return true
	}
	return !Equal(local, remote)
}

// Parse reads a version as a number.
func Parse(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Equal reports whether two versions are numerically equal. Unparseable
// versions are never equal.
func Equal(a, b string) bool {
	x, ok := Parse(a)
	if !ok {
		return false
	}
	y, ok := Parse(b)
	if !ok {
		return false
	}
	return x == y
}
