// Package hook runs optional user-provided Tengo scripts around downloads,
// e.g. to rename or post-process files as they arrive.
package hook

// Event identifies when a hook runs.
type Event string

// Supported hook events.
const (
	// PreDownload runs before a file or archive download starts.
	PreDownload Event = "pre-download"
	// PostDownload runs after a file or archive has been downloaded and
	// verified.
	PostDownload Event = "post-download"
)

// Hook is a script bound to an event.
type Hook struct {
	Event   Event
	Content string
}

// Context carries the variables exposed to hook scripts.
type Context struct {
	// Product is the product identifier the download belongs to.
	Product string
	// Entry is the archive-relative entry name, empty for whole archives.
	Entry string
	// Path is the local destination path.
	Path string
	// Vars holds additional script variables.
	Vars map[string]interface{}
}

// Manager defines the interface for registering and running hooks.
type Manager interface {
	// Execute runs the hook registered for the event, if any.
	Execute(event Event, ctx Context) error

	// Add registers a hook script.
	Add(hook Hook) error

	// Has reports whether a hook is registered for the event.
	Has(event Event) bool
}
