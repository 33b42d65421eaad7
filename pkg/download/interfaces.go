//go:generate mockgen -destination=./mocks/download.go . Extractor,TokenRenewer
package download

import (
	"context"

	"github.com/remicres/theia-picker/pkg/auth"
	"github.com/remicres/theia-picker/pkg/model"
	"github.com/remicres/theia-picker/pkg/remotezip"
)

// Extractor is the subset of the remote archive used by the manager.
type Extractor interface {
	// Entries returns the directory entries in archive order.
	Entries() []model.DirectoryEntry

	// ExtractEntry extracts one entry to destPath, skipping the download
	// when the destination already holds the correct contents.
	ExtractEntry(ctx context.Context, name, destPath string) (remotezip.Outcome, error)
}

// TokenRenewer triggers a coalesced token renewal. Renewal failures are fatal
// for every pending task that needs authentication.
type TokenRenewer interface {
	Renew(ctx context.Context) (auth.Token, error)
}
