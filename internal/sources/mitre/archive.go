package mitre

import (
	"archive/zip"
	"fmt"
	"io"
	"path"

	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// entryReader closes both the entry and the archive.
type entryReader struct {
	io.Reader
	entry   io.Closer
	archive io.Closer
}

func (r *entryReader) Close() error {
	err := r.entry.Close()
	if cerr := r.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenCatalogEntry opens the single catalog document inside a zip archive.
// The entry is matched by base name against constants.ArchiveEntryPattern.
func OpenCatalogEntry(zipPath string) (io.ReadCloser, string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, "", errors.WrapParse("zip", zipPath, err)
	}

	var match *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ok, err := doublestar.Match(constants.ArchiveEntryPattern, path.Base(f.Name))
		if err != nil {
			_ = zr.Close()
			return nil, "", errors.NewConfigError("archive", "bad entry pattern", err)
		}
		if !ok {
			continue
		}
		if match != nil {
			_ = zr.Close()
			return nil, "", errors.NewParseError("zip", zipPath,
				fmt.Sprintf("archive holds more than one catalog (%s, %s)", match.Name, f.Name), nil)
		}
		match = f
	}
	if match == nil {
		_ = zr.Close()
		return nil, "", errors.NewParseError("zip", zipPath,
			fmt.Sprintf("no entry matching %s", constants.ArchiveEntryPattern), nil)
	}

	rc, err := match.Open()
	if err != nil {
		_ = zr.Close()
		return nil, "", errors.WrapParse("zip", match.Name, err)
	}
	return &entryReader{
		Reader:  io.LimitReader(rc, constants.MaxArchiveEntrySize),
		entry:   rc,
		archive: zr,
	}, match.Name, nil
}
