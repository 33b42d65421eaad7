// Package archive handles whole-archive downloads and their extraction.
// Unlike pkg/remotezip this is a plain sequential byte copy with a
// whole-file MD5 check, used when the full product is wanted anyway.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"github.com/remicres/theia-picker/pkg/fsutil"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Getter performs authenticated GET requests.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Item describes one archive to download.
type Item struct {
	// URL is the source URL of the archive.
	URL string
	// Checksum is the optional hex-encoded MD5 checksum published by the
	// catalog; if set it is verified after the download and used for the
	// idempotent skip.
	Checksum string
	// Filename is the destination file name within the download dir.
	Filename string
}

// Manager downloads and extracts whole product archives.
type Manager struct {
	client   Getter
	progress bool
}

// NewManager creates an archive manager around the given HTTP client.
func NewManager(client Getter) *Manager {
	return &Manager{client: client, progress: true}
}

// SetProgress toggles the terminal progress bar (disabled in tests).
func (m *Manager) SetProgress(enabled bool) { m.progress = enabled }

// Download fetches the archive into destDir and returns its path. When the
// destination file already matches the item checksum the download is skipped.
// The archive is written through a temp file and moved into place only after
// the checksum has been verified.
func (m *Manager) Download(ctx context.Context, item Item, destDir string) (string, error) {
	if item.Filename == "" {
		return "", fmt.Errorf("%w: item has no filename", pkgerrors.ErrInvalidPath)
	}
	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	absPath := filepath.Join(destDir, item.Filename)

	if item.Checksum != "" {
		if sum, err := fsutil.MD5File(absPath); err == nil && sum == normalizeHex(item.Checksum) {
			logger.Info("archive already downloaded, skipping", logrus.Fields{"file": absPath})
			return absPath, nil
		}
	}

	tmpPath, err := m.fetchToTemp(ctx, item, absPath)
	if err != nil {
		return "", err
	}

	if item.Checksum != "" {
		sum, err := fsutil.MD5File(tmpPath)
		if err != nil {
			_ = os.Remove(tmpPath)
			return "", pkgerrors.Wrap(err, "could not hash downloaded archive")
		}
		if sum != normalizeHex(item.Checksum) {
			_ = os.Remove(tmpPath)
			return "", fmt.Errorf("%w: archive %s has MD5 %s, expected %s",
				pkgerrors.ErrFileHashMismatch, item.Filename, sum, item.Checksum)
		}
	}

	if err := fsutil.Move(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not finalize archive")
	}
	return absPath, nil
}

func (m *Manager) fetchToTemp(ctx context.Context, item Item, absPath string) (string, error) {
	resp, err := m.client.Get(ctx, item.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	var dst io.Writer = tmp
	if m.progress && resp.ContentLength > 0 {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading "+item.Filename)
		dst = io.MultiWriter(tmp, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

// ExtractAll extracts all files from a downloaded archive into destDir.
func (m *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open archive")
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return pkgerrors.Wrap(err, "failed to create destination directory")
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return m.extractEntry(fsys, path, destDir, d)
	})
}

func (m *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	target := filepath.Join(destDir, filepath.FromSlash(path))
	if d.IsDir() {
		return os.MkdirAll(target, fsutil.DirModeDefault)
	}

	src, err := fsys.Open(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open %s in archive", path)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(target), fsutil.DirModeDefault); err != nil {
		return pkgerrors.Wrap(err, "failed to create directory")
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create %s", target)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return pkgerrors.Wrapf(err, "failed to extract %s", path)
	}
	return nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
