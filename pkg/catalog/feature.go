package catalog

import (
	"context"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/remicres/theia-picker/pkg/archive"
	"github.com/remicres/theia-picker/pkg/auth"
	"github.com/remicres/theia-picker/pkg/download"
	pkghttp "github.com/remicres/theia-picker/pkg/http"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/remicres/theia-picker/pkg/remotezip"
	"github.com/sirupsen/logrus"
)

// issuerSuffix must be appended to the catalog download URLs.
const issuerSuffix = "/?issuerId=theia"

// DownloadService describes how a product archive is fetched.
type DownloadService struct {
	URL      string `json:"url"`
	Checksum string `json:"checksum"`
}

// Services groups the per-product service descriptions.
type Services struct {
	Download DownloadService `json:"download"`
}

// Properties holds the product metadata returned by the catalog.
type Properties struct {
	Collection        string    `json:"collection"`
	ProductIdentifier string    `json:"productIdentifier"`
	Title             string    `json:"title"`
	ProductType       string    `json:"productType"`
	AcquisitionDate   time.Time `json:"startDate"`
	Level             string    `json:"processingLevel"`
	Version           string    `json:"version"`
	WaterCover        int       `json:"waterCover"`
	SnowCover         int       `json:"snowCover"`
	CloudCover        int       `json:"cloudCover"`
	Tile              string    `json:"location"`
	Services          Services  `json:"services"`

	// FileListing is an optional precomputed listing of the archive
	// contents, used as a fallback when the remote archive's central
	// directory cannot be fetched.
	FileListing []string `json:"fileListing,omitempty"`
}

// Feature is one product found in the catalog. Its remote archive index is
// built lazily on first access and cached for the lifetime of the Feature.
type Feature struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`

	client *pkghttp.RangeClient
	tokens *auth.TokenManager

	mu      sync.Mutex
	archive *remotezip.Archive
}

// bind attaches the catalog's shared client and token manager.
func (f *Feature) bind(client *pkghttp.RangeClient, tokens *auth.TokenManager) {
	f.client = client
	f.tokens = tokens
}

// ArchiveURL returns the download URL of the product archive.
func (f *Feature) ArchiveURL() string {
	return f.Properties.Services.Download.URL + issuerSuffix
}

// Archive returns the remote archive index, building it on first call.
// Failed builds are not cached; a later call retries.
func (f *Feature) Archive(ctx context.Context) (*remotezip.Archive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.archive != nil {
		return f.archive, nil
	}

	if _, err := f.tokens.Token(ctx); err != nil {
		return nil, err
	}
	a, err := remotezip.Build(ctx, f.client, f.ArchiveURL())
	if err != nil {
		return nil, err
	}
	f.archive = a
	return a, nil
}

// ListFiles returns the names of the files inside the remote archive. When
// the central directory cannot be fetched and the catalog provided a
// precomputed listing, that listing is returned instead.
func (f *Feature) ListFiles(ctx context.Context) ([]string, error) {
	a, err := f.Archive(ctx)
	if err != nil {
		if len(f.Properties.FileListing) > 0 {
			logger.Warn("falling back to catalog file listing", logrus.Fields{
				"product": f.Properties.ProductIdentifier, "error": err,
			})
			return f.Properties.FileListing, nil
		}
		return nil, err
	}
	return a.Names(), nil
}

// DownloadFiles extracts every archive entry matching one of the patterns
// into destDir, and returns the per-file outcomes.
func (f *Feature) DownloadFiles(ctx context.Context, patterns []string, destDir string, opts download.Options) ([]download.Result, error) {
	a, err := f.Archive(ctx)
	if err != nil {
		return nil, err
	}
	return download.NewManager(f.tokens).FetchMatching(ctx, a, patterns, destDir, opts)
}

// DownloadArchive downloads the whole product archive into destDir and
// returns the path of the archive file. The download is skipped when the
// destination already matches the catalog's MD5 checksum.
func (f *Feature) DownloadArchive(ctx context.Context, destDir string) (string, error) {
	if _, err := f.tokens.Token(ctx); err != nil {
		return "", err
	}
	mgr := archive.NewManager(f.client)
	return mgr.Download(ctx, archive.Item{
		URL:      f.ArchiveURL(),
		Checksum: f.Properties.Services.Download.Checksum,
		Filename: f.Properties.ProductIdentifier + ".zip",
	}, destDir)
}

// ArchiveManager returns a whole-archive manager bound to the feature's
// HTTP client, for extracting archives downloaded with DownloadArchive.
func (f *Feature) ArchiveManager() *archive.Manager {
	return archive.NewManager(f.client)
}

// atLeastVersion reports whether the product's processing version satisfies
// the given minimum. Products without a parsable version are kept.
func (f *Feature) atLeastVersion(minVersion *goversion.Version) bool {
	if f.Properties.Version == "" {
		return true
	}
	v, err := goversion.NewVersion(f.Properties.Version)
	if err != nil {
		return true
	}
	return v.GreaterThanOrEqual(minVersion)
}
