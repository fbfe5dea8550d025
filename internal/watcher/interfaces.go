package watcher

import "context"

// FileWatcher reports batches of changed source files.
type FileWatcher interface {
	// Start watches the configured directories and calls callback with each
	// debounced batch of changed paths. It returns once watching has begun.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop ends watching and waits for the event loop to exit.
	Stop() error

	// Pause suppresses callbacks; changes keep accumulating.
	Pause()

	// Resume re-enables callbacks and flushes anything accumulated while paused.
	Resume()
}
