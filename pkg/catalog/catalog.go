// Package catalog implements search against the Theia product catalog and
// exposes the found products as Feature values that can list and download
// the contents of their remote archives.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/remicres/theia-picker/pkg/auth"
	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	pkghttp "github.com/remicres/theia-picker/pkg/http"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Theia distribution service root.
const DefaultBaseURL = "https://theia.cnes.fr/atdistrib"

// DefaultCollection is the collection searched when none is configured.
const DefaultCollection = "SENTINEL2"

const (
	defaultMaxRecords  = 500
	defaultHTTPTimeout = 10 * time.Second
)

// dateFormats lists the accepted input formats for search dates.
var dateFormats = []string{"2006-01-02", "02/01/2006", "02-01-2006", "20060102"}

// Options configure a Catalog.
type Options struct {
	// BaseURL overrides DefaultBaseURL (used in tests).
	BaseURL string
	// AuthEndpoint overrides the token issuance endpoint.
	AuthEndpoint string
	// Collection overrides DefaultCollection.
	Collection string
	// MaxRecords bounds the number of search results.
	MaxRecords int
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// Catalog searches the Theia catalog and hands out Features bound to the
// shared token manager and HTTP client.
type Catalog struct {
	client     *pkghttp.RangeClient
	tokens     *auth.TokenManager
	baseURL    string
	collection string
	maxRecords int
}

// New creates a catalog client for the given credentials.
func New(creds auth.Credentials, opts Options) *Catalog {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = defaultMaxRecords
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}

	tokens := auth.NewTokenManager(auth.NewRestoLogin(opts.AuthEndpoint), creds)
	return &Catalog{
		client:     pkghttp.NewRangeClient(opts.Timeout, tokens),
		tokens:     tokens,
		baseURL:    opts.BaseURL,
		collection: opts.Collection,
		maxRecords: opts.MaxRecords,
	}
}

// Tokens exposes the catalog's token manager.
func (c *Catalog) Tokens() *auth.TokenManager { return c.tokens }

// Criteria describe a product search.
type Criteria struct {
	// StartDate is required. Accepted formats: 2006-01-02, 02/01/2006,
	// 02-01-2006, 20060102.
	StartDate string
	// EndDate is optional; the day after StartDate is used when empty.
	EndDate string
	// BBox is an optional bounding box [lonmin, latmin, lonmax, latmax].
	BBox []float64
	// TileName is an optional tile name starting with "T" (e.g. T31TEJ).
	TileName string
	// Level is an optional product level (e.g. LEVEL2A).
	Level string
	// MinVersion optionally filters out products whose processing version
	// is older than the given one.
	MinVersion string
}

// Search queries the catalog and returns the matching features.
func (c *Catalog) Search(ctx context.Context, criteria Criteria) ([]*Feature, error) {
	query, minVersion, err := c.buildQuery(criteria)
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf(
		"%s/resto2/api/collections/%s/search.json?%s",
		c.baseURL, c.collection, query.Encode(),
	)
	logger.Debug("searching catalog", logrus.Fields{"url": searchURL})

	resp, err := c.client.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrSearchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var collection struct {
		Features []*Feature `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", pkgerrors.ErrSearchFailed, err)
	}

	features := collection.Features[:0:0]
	for _, feat := range collection.Features {
		if minVersion != nil && !feat.atLeastVersion(minVersion) {
			continue
		}
		feat.bind(c.client, c.tokens)
		features = append(features, feat)
	}
	logger.Info("search done", logrus.Fields{"results": len(features)})
	return features, nil
}

func (c *Catalog) buildQuery(criteria Criteria) (url.Values, *goversion.Version, error) {
	start, err := parseDate(criteria.StartDate)
	if err != nil {
		return nil, nil, err
	}
	end := start.AddDate(0, 0, 1)
	if criteria.EndDate != "" {
		if end, err = parseDate(criteria.EndDate); err != nil {
			return nil, nil, err
		}
	}

	query := url.Values{}
	query.Set("startDate", start.Format("2006-01-02"))
	query.Set("completionDate", end.Format("2006-01-02"))
	query.Set("maxRecords", strconv.Itoa(c.maxRecords))
	if criteria.Level != "" {
		query.Set("processingLevel", criteria.Level)
	}
	if len(criteria.BBox) > 0 {
		if len(criteria.BBox) != 4 {
			return nil, nil, pkgerrors.ErrInvalidBBox
		}
		coords := make([]string, 4)
		for i, coord := range criteria.BBox {
			coords[i] = strconv.FormatFloat(coord, 'f', -1, 64)
		}
		query.Set("box", strings.Join(coords, ","))
	}
	if criteria.TileName != "" {
		if !strings.HasPrefix(criteria.TileName, "T") {
			return nil, nil, fmt.Errorf("%w: got %s", pkgerrors.ErrInvalidTile, criteria.TileName)
		}
		query.Set("location", criteria.TileName)
	}

	var minVersion *goversion.Version
	if criteria.MinVersion != "" {
		if minVersion, err = goversion.NewVersion(criteria.MinVersion); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidVersion, criteria.MinVersion)
		}
	}
	return query, minVersion, nil
}

func parseDate(value string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (accepted formats: %s)",
		pkgerrors.ErrInvalidDate, value, strings.Join(dateFormats, ", "))
}
