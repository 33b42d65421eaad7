package download

// Status is the terminal status of one download task.
type Status string

// Task outcomes reported in Result.
const (
	// StatusDownloaded means the entry was fetched and verified.
	StatusDownloaded Status = "downloaded"
	// StatusSkipped means the destination file was already correct.
	StatusSkipped Status = "skipped"
	// StatusFailed means all attempts were exhausted or the failure was
	// not retriable.
	StatusFailed Status = "failed"
)

// state tracks a task through its lifecycle. Transitions are driven solely
// by the manager: Pending -> Fetching -> Verifying -> Done | Retrying |
// Failed, with Retrying feeding back into Fetching.
type state int

const (
	statePending state = iota
	stateFetching
	stateRetrying
	stateDone
	stateFailed
)

// task is one requested extraction. Created per selected entry, mutated only
// by the manager, reported as a Result once resolved.
type task struct {
	entry    string
	dest     string
	attempts int
	state    state
	skipped  bool
	err      error
}

// Result reports the outcome of one download task.
type Result struct {
	// Entry is the archive-relative name of the requested entry.
	Entry string
	// Dest is the destination path the entry was written to.
	Dest string
	// Status distinguishes skipped, downloaded and failed tasks.
	Status Status
	// Attempts is the number of extraction attempts made.
	Attempts int
	// Err holds the final error for failed tasks.
	Err error
}

// Options control a FetchMatching run.
type Options struct {
	// MaxRetries bounds the number of extraction attempts per task.
	// Values below 1 select DefaultMaxRetries.
	MaxRetries int
	// Concurrency is the number of parallel tasks; if <=0 tasks run
	// sequentially.
	Concurrency int
}

// Failed reports whether any task in results failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}
