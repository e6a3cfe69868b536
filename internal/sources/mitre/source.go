package mitre

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
)

// Source fetches the latest published catalog over HTTP.
type Source struct {
	downloader *Downloader
}

// NewSource creates a source for the archive at url. An empty url selects
// the official download location.
func NewSource(url string, opts ...SourceOption) *Source {
	s := &Source{downloader: NewDownloader(url)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithTempDir sets where the archive is stored while it is read.
func WithTempDir(dir string) SourceOption {
	return func(s *Source) {
		s.downloader.TempDir = dir
	}
}

// WithTimeout bounds the whole archive download.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.downloader.Client = &http.Client{Timeout: d}
		}
	}
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return s.downloader.URL
}

// Fetch downloads, extracts and converts the catalog.
func (s *Source) Fetch(ctx context.Context) (*catalog.Document, error) {
	zipPath, err := s.downloader.Download(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(zipPath) }()

	return readArchive(ctx, zipPath)
}

// FileSource loads a catalog already on disk: a zip archive as published,
// the extracted XML document, or a cached JSON document.
type FileSource struct {
	Path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Name identifies the source in logs.
func (s *FileSource) Name() string {
	return s.Path
}

// Fetch reads and converts the file according to its extension.
func (s *FileSource) Fetch(ctx context.Context) (*catalog.Document, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".zip":
		return readArchive(ctx, s.Path)
	case ".xml":
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, errors.WrapIO("read", s.Path, err)
		}
		defer func() { _ = f.Close() }()
		return readXML(ctx, f, s.Path)
	case ".json":
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, errors.WrapIO("read", s.Path, err)
		}
		defer func() { _ = f.Close() }()
		var doc catalog.Document
		if err := json.NewDecoder(f).Decode(&doc); err != nil {
			return nil, errors.WrapParse("json", s.Path, err)
		}
		return &doc, nil
	}
	return nil, errors.NewValidationError("path", s.Path, "want a .zip, .xml or .json catalog")
}

func readArchive(ctx context.Context, zipPath string) (*catalog.Document, error) {
	rc, name, err := OpenCatalogEntry(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return readXML(ctx, rc, name)
}

func readXML(ctx context.Context, r io.Reader, name string) (*catalog.Document, error) {
	m, err := DecodeXML(r, ForceList)
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.File = name
		}
		return nil, err
	}
	doc, err := DocumentFromMap(m)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("file", name).
		Str("version", doc.Catalog.VersionString()).
		Int("weaknesses", len(doc.Catalog.Weaknesses)).
		Msg("Converted catalog document")
	return doc, nil
}
