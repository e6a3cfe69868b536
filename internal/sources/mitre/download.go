// Package mitre fetches the CWE catalog published by MITRE and converts it
// into a catalog.Document. It covers the archive download, entry
// extraction, XML conversion and the downloads page version scrape.
package mitre

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
)

// Downloader retrieves the zipped catalog into a temporary file.
type Downloader struct {
	URL     string
	Client  *http.Client
	TempDir string // empty means os.TempDir
}

// NewDownloader creates a downloader for url with the default timeout.
func NewDownloader(url string) *Downloader {
	if url == "" {
		url = constants.CatalogArchiveURL
	}
	return &Downloader{
		URL:    url,
		Client: &http.Client{Timeout: constants.DownloadTimeout},
	}
}

// Download fetches the archive and returns the path of the temporary copy.
// The caller removes the file once done with it.
func (d *Downloader) Download(ctx context.Context) (string, error) {
	log := logging.FromContext(ctx).With().Str("url", d.URL).Logger()
	log.Debug().Msg("Downloading catalog archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return "", errors.WrapResource("create", "request", d.URL, err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return "", errors.WrapFetch(d.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewFetchError(d.URL, resp.StatusCode, resp.Status)
	}

	tempFile, err := os.CreateTemp(d.TempDir, "cwec_*.xml.zip")
	if err != nil {
		return "", errors.WrapIO("create", "temp file", err)
	}
	tempPath := tempFile.Name()

	n, err := io.Copy(tempFile, resp.Body)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath)
		if ctx.Err() != nil {
			return "", errors.WrapFetch(d.URL, ctx.Err())
		}
		return "", errors.WrapFetch(d.URL, err)
	}

	log.Debug().Int64("bytes", n).Str("path", tempPath).Msg("Downloaded catalog archive")
	return tempPath, nil
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: constants.DownloadTimeout}
}
