// Package watcher provides file system watching with debouncing for the
// agent worker program. A running agent keeps executing its old code after
// an edit, so the server surfaces changes as a restart hint.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the worker program file for changes and sends notifications.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	programPath string
	debounce    time.Duration
	onChange    chan struct{}
	done        chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	ProgramPath string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(programPath string) Config {
	return Config{
		ProgramPath: programPath,
		DebounceDur: 1 * time.Second,
	}
}

// New creates a new worker program watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher:   fsw,
		programPath: cfg.ProgramPath,
		debounce:    cfg.DebounceDur,
		onChange:    make(chan struct{}, 1),
		done:        make(chan struct{}),
	}, nil
}

// Start begins watching the directory containing the worker program.
// Returns a channel that receives a signal when the program file changes.
// Watching the directory rather than the file keeps notifications working
// when editors replace the file on save.
func (w *Watcher) Start() (<-chan struct{}, error) {
	dir := filepath.Dir(w.programPath)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isRelevantEvent(event) {
				continue
			}

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = true
			} else {
				if !timer.Stop() {
					// Drain the timer channel if it already fired
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
				pending = true
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Non-blocking send - drop if channel full
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			// Errors are non-fatal; keep watching. Callers can wrap the
			// watcher if they need error visibility.

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent checks if the event should trigger a notification.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	// Writes and creates both matter: editors often save by replacing the file
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	return filepath.Base(event.Name) == filepath.Base(w.programPath)
}
