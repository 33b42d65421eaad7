package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
credentials:
  ident: user@example.com
  pass: secret
settings:
  download_dir: /data/theia
  http_timeout: 30s
  max_concurrent: 4
  max_retries: 3
  max_records: 100
  log_level: debug
hooks:
  post_download: /etc/theia/post.tengo
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.Credentials.Ident)
	assert.Equal(t, "secret", cfg.Credentials.Password)
	assert.Equal(t, "/data/theia", cfg.Settings.DownloadDir)
	assert.Equal(t, 30*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 4, cfg.Settings.MaxConcurrent)
	assert.Equal(t, 3, cfg.Settings.MaxRetries)
	assert.Equal(t, 100, cfg.Settings.MaxRecords)
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, "/etc/theia/post.tengo", cfg.Hooks.PostDownload)

	creds, err := cfg.ToCredentials()
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", creds.Ident)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
credentials:
  ident: user@example.com
  pass: secret
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultMaxConcurrent, cfg.Settings.MaxConcurrent)
	assert.Equal(t, DefaultMaxRetries, cfg.Settings.MaxRetries)
	assert.Equal(t, DefaultMaxRecords, cfg.Settings.MaxRecords)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "empty path",
			path:    func(*testing.T) string { return "" },
			wantErr: pkgerrors.ErrEmptyConfigPath,
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: pkgerrors.ErrInvalidConfigPath,
		},
		{
			name:    "bad yaml",
			path:    func(t *testing.T) string { return writeConfig(t, "credentials: [not a map") },
			wantErr: pkgerrors.ErrConfigParse,
		},
		{
			name:    "missing credentials",
			path:    func(t *testing.T) string { return writeConfig(t, "settings:\n  log_level: info\n") },
			wantErr: pkgerrors.ErrConfigValidation,
		},
		{
			name: "non-positive timeout",
			path: func(t *testing.T) string {
				return writeConfig(t, `
credentials:
  ident: u
  pass: p
settings:
  http_timeout: -5s
`)
			},
			wantErr: pkgerrors.ErrConfigValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.path(t))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("theia-picker", "config.yaml"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
