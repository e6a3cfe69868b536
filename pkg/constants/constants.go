// Package constants provides shared constants used throughout the cwemap codebase.
// This includes timeouts, file permissions, default locations, and the names of
// the artifacts that make up a persisted catalog store.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to cwe.mitre.org
	DefaultHTTPTimeout = 30 * time.Second

	// DownloadTimeout is the timeout for downloading the full catalog archive
	DownloadTimeout = 5 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Remote locations of the published catalog
const (
	// CatalogArchiveURL is the latest CWE catalog as a zipped XML document
	CatalogArchiveURL = "https://cwe.mitre.org/data/xml/cwec_latest.xml.zip"

	// DownloadsPageURL lists the currently published catalog version
	DownloadsPageURL = "https://cwe.mitre.org/data/downloads.html"

	// DefinitionURLFormat is the web page of a view, category, or weakness
	DefinitionURLFormat = "https://cwe.mitre.org/data/definitions/%s.html"

	// ReferenceURLFormat is the web page of an external reference
	ReferenceURLFormat = "https://cwe.mitre.org/data/references/%s.html"

	// ArchiveEntryPattern matches the catalog document inside the archive
	ArchiveEntryPattern = "cwec_v*.xml"
)

// Persisted store layout
const (
	// DataDirName is the directory under the user's home that holds the store
	DataDirName = ".cwemap"

	// IndexFile maps group -> id -> entity path
	IndexFile = "index.json"

	// RawCatalogFile caches the raw catalog document the store was built from
	RawCatalogFile = "cwec.json"

	// EntityExt is the extension of persisted entity records
	EntityExt = ".json"

	// StagingPrefix marks a store being built next to the live one
	StagingPrefix = ".staging-"

	// BackupPrefix marks the previous store while it is swapped out
	BackupPrefix = ".previous-"
)

// Limit constants define various limits and capacities
const (
	// DefaultCacheSize is the number of decoded entities kept in memory by a store
	DefaultCacheSize = 1024

	// MaxArchiveEntrySize caps the uncompressed catalog document (the 4.x XML is ~15 MB)
	MaxArchiveEntrySize = 512 * 1024 * 1024
)
