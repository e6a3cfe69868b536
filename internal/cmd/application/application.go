// Package application provides the application interface for cwemap commands.
//
// Commands accept an Application rather than the concrete App type, so they
// can be tested with a Mock:
//
//	mock := &application.Mock{
//	    StoreFunc: func() (*store.Store, error) {
//	        return testStore, nil
//	    },
//	}
//	cmd := list.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/cwemap"
	"github.com/agentstation/cwemap/pkg/store"
	"github.com/agentstation/cwemap/pkg/version"
)

// Client is the part of cwemap.Client that commands use.
type Client interface {
	cwemap.Reader
	cwemap.Updater
	cwemap.Persistence
	DataDir() string
}

var _ Client = (*cwemap.Client)(nil)

// Application provides the application interface that commands need.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the client for the configured data directory.
	// When called with options, a new client is created and not cached.
	Client(opts ...cwemap.Option) (Client, error)

	// Store returns the installed store of the default client.
	Store() (*store.Store, error)

	// VersionProvider returns the source of the published catalog version.
	VersionProvider() version.Provider

	// WriteMetrics exports the metrics of this run when a metrics file is configured.
	WriteMetrics() error

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
