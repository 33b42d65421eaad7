package download

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/remicres/theia-picker/pkg/auth"
	mock_download "github.com/remicres/theia-picker/pkg/download/mocks"
	pkghttp "github.com/remicres/theia-picker/pkg/http"
	"github.com/remicres/theia-picker/pkg/model"
	"github.com/remicres/theia-picker/pkg/remotezip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func entries(names ...string) []model.DirectoryEntry {
	out := make([]model.DirectoryEntry, len(names))
	for i, n := range names {
		out[i] = model.DirectoryEntry{Name: n, Method: model.CompressionDeflate}
	}
	return out
}

func newFastManager(tokens TokenRenewer) *Manager {
	m := NewManager(tokens)
	m.retryDelay = time.Millisecond
	return m
}

func TestFetchMatching_SelectsInIndexOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	archive.EXPECT().Entries().Return(entries(
		"PRODUCT/A_FRE_B4.tif",
		"PRODUCT/A_FRE_B8.tif",
		"PRODUCT/A_CLM_R1.tif",
	))

	destDir := t.TempDir()
	gomock.InOrder(
		archive.EXPECT().
			ExtractEntry(gomock.Any(), "PRODUCT/A_FRE_B4.tif", filepath.Join(destDir, "PRODUCT", "A_FRE_B4.tif")).
			Return(remotezip.OutcomeDownloaded, nil),
		archive.EXPECT().
			ExtractEntry(gomock.Any(), "PRODUCT/A_FRE_B8.tif", filepath.Join(destDir, "PRODUCT", "A_FRE_B8.tif")).
			Return(remotezip.OutcomeSkipped, nil),
	)

	m := newFastManager(nil)
	results, err := m.FetchMatching(context.Background(), archive, []string{"FRE_B4.tif", "FRE_B8.tif"}, destDir, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "PRODUCT/A_FRE_B4.tif", results[0].Entry)
	assert.Equal(t, StatusDownloaded, results[0].Status)
	assert.Equal(t, 1, results[0].Attempts)

	assert.Equal(t, "PRODUCT/A_FRE_B8.tif", results[1].Entry)
	assert.Equal(t, StatusSkipped, results[1].Status)

	assert.False(t, Failed(results))
}

func TestFetchMatching_NoMatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	archive.EXPECT().Entries().Return(entries("PRODUCT/A_FRE_B4.tif"))

	m := newFastManager(nil)
	results, err := m.FetchMatching(context.Background(), archive, []string{"NOPE"}, t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestFetchMatching_RetriesTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	archive.EXPECT().Entries().Return(entries("a.tif"))

	transient := errors.New("connection reset")
	gomock.InOrder(
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.Outcome(0), transient),
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.Outcome(0), transient),
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.OutcomeDownloaded, nil),
	)

	m := newFastManager(nil)
	results, err := m.FetchMatching(context.Background(), archive, []string{"a.tif"}, t.TempDir(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusDownloaded, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestFetchMatching_ExhaustsRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	archive.EXPECT().Entries().Return(entries("a.tif"))

	transient := errors.New("connection reset")
	archive.EXPECT().
		ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).
		Return(remotezip.Outcome(0), transient).
		Times(3)

	m := newFastManager(nil)
	results, err := m.FetchMatching(context.Background(), archive, []string{"a.tif"}, t.TempDir(), Options{MaxRetries: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
	assert.ErrorIs(t, results[0].Err, transient)
	assert.True(t, Failed(results))
}

func TestFetchMatching_FatalErrorsDoNotRetry(t *testing.T) {
	fatals := []error{
		remotezip.ErrEntryNotFound,
		remotezip.ErrUnsupportedCompression,
		remotezip.ErrMalformedArchive,
		pkghttp.ErrRangeNotSatisfiable,
		auth.ErrAuthFailure,
	}
	for _, fatal := range fatals {
		t.Run(fatal.Error(), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			archive := mock_download.NewMockExtractor(ctrl)
			archive.EXPECT().Entries().Return(entries("a.tif"))
			archive.EXPECT().
				ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).
				Return(remotezip.Outcome(0), fatal).
				Times(1)

			m := newFastManager(nil)
			results, err := m.FetchMatching(context.Background(), archive, []string{"a.tif"}, t.TempDir(), Options{})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, StatusFailed, results[0].Status)
			assert.Equal(t, 1, results[0].Attempts)
			assert.ErrorIs(t, results[0].Err, fatal)
		})
	}
}

func TestFetchMatching_RenewsTokenOnceOnExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	tokens := mock_download.NewMockTokenRenewer(ctrl)

	archive.EXPECT().Entries().Return(entries("a.tif"))
	gomock.InOrder(
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.Outcome(0), pkghttp.ErrAuthExpired),
		tokens.EXPECT().Renew(gomock.Any()).Return(auth.Token{Value: "fresh"}, nil),
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.OutcomeDownloaded, nil),
	)

	m := newFastManager(tokens)
	results, err := m.FetchMatching(context.Background(), archive, []string{"a.tif"}, t.TempDir(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusDownloaded, results[0].Status)
	assert.Equal(t, 2, results[0].Attempts)
}

func TestFetchMatching_RenewsAtMostOncePerTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	tokens := mock_download.NewMockTokenRenewer(ctrl)

	archive.EXPECT().Entries().Return(entries("a.tif"))
	// The server keeps answering 401 even with a fresh token; the task
	// retries until exhaustion but renews exactly once.
	archive.EXPECT().
		ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).
		Return(remotezip.Outcome(0), pkghttp.ErrAuthExpired).
		Times(3)
	tokens.EXPECT().Renew(gomock.Any()).Return(auth.Token{Value: "fresh"}, nil).Times(1)

	m := newFastManager(tokens)
	results, err := m.FetchMatching(context.Background(), archive, []string{"a.tif"}, t.TempDir(), Options{MaxRetries: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, pkghttp.ErrAuthExpired)
}

func TestFetchMatching_RenewalFailureAbortsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	tokens := mock_download.NewMockTokenRenewer(ctrl)

	archive.EXPECT().Entries().Return(entries("a.tif", "b.tif"))
	// Only the first task reaches the archive; the renewal failure marks
	// the run as broken before the second task starts.
	archive.EXPECT().
		ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).
		Return(remotezip.Outcome(0), pkghttp.ErrAuthExpired).
		Times(1)
	tokens.EXPECT().Renew(gomock.Any()).Return(auth.Token{}, auth.ErrAuthFailure).Times(1)

	m := newFastManager(tokens)
	results, err := m.FetchMatching(context.Background(), archive, []string{".tif"}, t.TempDir(), Options{})
	require.ErrorIs(t, err, auth.ErrAuthFailure)
	require.Len(t, results, 2)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.ErrorIs(t, results[1].Err, auth.ErrAuthFailure)
}

func TestFetchMatching_RangeNotHonoredTriggersRenewal(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	tokens := mock_download.NewMockTokenRenewer(ctrl)

	// The Theia server answers a full-content 200 to range requests made
	// with a stale token, so this error also goes through renewal.
	archive.EXPECT().Entries().Return(entries("a.tif"))
	gomock.InOrder(
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.Outcome(0), pkghttp.ErrRangeNotHonored),
		tokens.EXPECT().Renew(gomock.Any()).Return(auth.Token{Value: "fresh"}, nil),
		archive.EXPECT().ExtractEntry(gomock.Any(), "a.tif", gomock.Any()).Return(remotezip.OutcomeDownloaded, nil),
	)

	m := newFastManager(tokens)
	results, err := m.FetchMatching(context.Background(), archive, []string{"a.tif"}, t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusDownloaded, results[0].Status)
}

func TestFetchMatching_Cancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)
	archive.EXPECT().Entries().Return(entries("a.tif", "b.tif"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newFastManager(nil)
	results, err := m.FetchMatching(ctx, archive, []string{".tif"}, t.TempDir(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestFetchMatching_Concurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	archive := mock_download.NewMockExtractor(ctrl)

	names := []string{"a.tif", "b.tif", "c.tif", "d.tif", "e.tif"}
	archive.EXPECT().Entries().Return(entries(names...))
	for _, n := range names {
		archive.EXPECT().
			ExtractEntry(gomock.Any(), n, gomock.Any()).
			Return(remotezip.OutcomeDownloaded, nil)
	}

	m := newFastManager(nil)
	results, err := m.FetchMatching(context.Background(), archive, []string{".tif"}, t.TempDir(), Options{Concurrency: 3})
	require.NoError(t, err)
	require.Len(t, results, len(names))
	// Results stay in index order regardless of completion order.
	for i, res := range results {
		assert.Equal(t, names[i], res.Entry)
		assert.Equal(t, StatusDownloaded, res.Status)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want verdict
	}{
		{name: "entry not found", err: remotezip.ErrEntryNotFound, want: verdictFatal},
		{name: "unsupported compression", err: remotezip.ErrUnsupportedCompression, want: verdictFatal},
		{name: "malformed archive", err: remotezip.ErrMalformedArchive, want: verdictFatal},
		{name: "range not satisfiable", err: pkghttp.ErrRangeNotSatisfiable, want: verdictFatal},
		{name: "auth failure", err: auth.ErrAuthFailure, want: verdictFatal},
		{name: "context canceled", err: context.Canceled, want: verdictFatal},
		{name: "auth expired", err: pkghttp.ErrAuthExpired, want: verdictRenewThenRetry},
		{name: "range not honored", err: pkghttp.ErrRangeNotHonored, want: verdictRenewThenRetry},
		{name: "checksum mismatch", err: remotezip.ErrChecksumMismatch, want: verdictRetry},
		{name: "truncated entry", err: remotezip.ErrTruncatedEntry, want: verdictRetry},
		{name: "unknown", err: errors.New("connection reset"), want: verdictRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
