package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")

	// Catalog errors.
	ErrSearchFailed   = fmt.Errorf("catalog search failed")
	ErrInvalidDate    = fmt.Errorf("invalid date")
	ErrInvalidBBox    = fmt.Errorf("bounding box must have 4 values")
	ErrInvalidTile    = fmt.Errorf("tile name must start with \"T\"")
	ErrInvalidVersion = fmt.Errorf("invalid version constraint")

	// Download errors.
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrFileHashMismatch = fmt.Errorf("file hash mismatch")
	ErrInvalidPath      = fmt.Errorf("invalid path")

	// Hook errors.
	ErrHookEventEmpty = fmt.Errorf("hook event cannot be empty")
	ErrHookExecution  = fmt.Errorf("error executing hook")
	ErrHookScript     = fmt.Errorf("hook script error")
	ErrHookLoad       = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
