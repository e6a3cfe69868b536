// Package cwemap keeps a local, queryable copy of the MITRE CWE catalog.
//
// A Client downloads the catalog, indexes it into one JSON file per view,
// category, weakness and external reference, and serves typed lookups and
// membership traversal through a store.Store.
//
// Example usage:
//
//	client, err := cwemap.New(cwemap.WithDataDir("./cwe"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Rebuild only when the published version changed
//	if _, err := client.EnsureFresh(ctx, mitre.NewVersionScraper("")); err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := client.Store()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	xss, err := s.Get(catalog.GroupWeakness, "CWE-79")
//	parents, err := s.Relationship("79", catalog.MemberOf, catalog.GroupCategory)
package cwemap

import (
	"context"
	"sync"

	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/store"
	"github.com/agentstation/cwemap/pkg/version"
	"github.com/spf13/afero"
)

// Source supplies a parsed raw catalog.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*catalog.Document, error)
}

// Compile-time interface checks to ensure proper implementation.
var (
	_ Reader      = (*Client)(nil)
	_ Updater     = (*Client)(nil)
	_ Persistence = (*Client)(nil)
)

// Reader gives access to the installed store.
type Reader interface {
	// Store returns the loaded store, loading it from disk on first use
	Store() (*store.Store, error)

	// IsInstalled reports whether a complete store is on disk
	IsInstalled() bool

	// LocalVersion returns the catalog version of the installed store
	LocalVersion() (string, bool)
}

// Client manages one data directory.
type Client struct {
	options *options
	gate    *version.Gate

	updateMu sync.Mutex // serializes Update and Delete

	mu    sync.RWMutex
	store *store.Store
}

// New creates a Client. Nothing is read or downloaded until first use.
func New(opts ...Option) (*Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	return &Client{
		options: o,
		gate:    version.NewGate(o.fs, o.dataDir),
	}, nil
}

// DataDir returns the directory holding the store.
func (c *Client) DataDir() string {
	return c.options.dataDir
}

// Fs returns the filesystem the store lives on.
func (c *Client) Fs() afero.Fs {
	return c.options.fs
}

// Store returns the current store. It fails with ErrNotInstalled when no
// complete store is on disk.
func (c *Client) Store() (*store.Store, error) {
	c.mu.RLock()
	s := c.store
	c.mu.RUnlock()
	if s != nil {
		return s, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	if err := store.Verify(c.options.fs, c.options.dataDir); err != nil {
		return nil, err
	}
	s, err := c.load()
	if err != nil {
		return nil, err
	}
	c.store = s
	return s, nil
}

func (c *Client) load() (*store.Store, error) {
	return store.Load(c.options.fs, c.options.dataDir, store.WithCacheSize(c.options.cacheSize))
}

// IsInstalled reports whether a complete store is on disk.
func (c *Client) IsInstalled() bool {
	return store.IsInstalled(c.options.fs, c.options.dataDir)
}

// LocalVersion returns the version of the cached raw catalog.
func (c *Client) LocalVersion() (string, bool) {
	return c.gate.Local()
}

// NeedsUpdate reports whether remote differs from the installed version.
func (c *Client) NeedsUpdate(remote string) bool {
	return c.gate.NeedsUpdate(remote)
}
