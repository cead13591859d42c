// Package watch monitors the framework master template for changes and
// triggers redeployment to managed directories.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"claudepm/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// RedeployFunc is invoked with the template path once a change settles.
type RedeployFunc func(ctx context.Context, templatePath string)

// TemplateWatcher watches the framework template file's directory and
// calls a redeploy callback after edits settle. Rapid save bursts are
// debounced so a redeploy runs once per edit session.
type TemplateWatcher struct {
	mu           sync.RWMutex
	watcher      *fsnotify.Watcher
	templatePath string
	templateDir  string
	redeploy     RedeployFunc
	debounceMap  map[string]time.Time
	debounceDur  time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	running      bool

	stats Stats
}

// Stats tracks watcher activity for status reporting and debugging.
type Stats struct {
	TemplateModified   int
	RedeploysTriggered int
	Errors             int
	LastEventTime      time.Time
	LastRedeployTime   time.Time
}

// NewTemplateWatcher creates a watcher for the given template file.
// The callback fires after the debounce window with no further writes.
func NewTemplateWatcher(templatePath string, redeploy RedeployFunc) (*TemplateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &TemplateWatcher{
		watcher:      watcher,
		templatePath: templatePath,
		templateDir:  filepath.Dir(templatePath),
		redeploy:     redeploy,
		debounceMap:  make(map[string]time.Time),
		debounceDur:  500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or context cancellation.
func (tw *TemplateWatcher) Start(ctx context.Context) error {
	tw.mu.Lock()
	if tw.running {
		tw.mu.Unlock()
		return nil
	}
	tw.running = true
	tw.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save
	// and a file-level watch would be lost after the first rename.
	if err := tw.watcher.Add(tw.templateDir); err != nil {
		logging.Get(logging.CategoryWatch).Warn("watch failed for %s: %v", tw.templateDir, err)
	} else {
		logging.Watch("watching template directory: %s", tw.templateDir)
	}

	go tw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (tw *TemplateWatcher) Stop() {
	tw.mu.Lock()
	if !tw.running {
		tw.mu.Unlock()
		return
	}
	tw.running = false
	tw.mu.Unlock()

	close(tw.stopCh)
	<-tw.doneCh

	if err := tw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("template watcher stopped")
}

// Snapshot returns a copy of the current watcher statistics.
func (tw *TemplateWatcher) Snapshot() Stats {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.stats
}

func (tw *TemplateWatcher) run(ctx context.Context) {
	defer close(tw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-tw.stopCh:
			return

		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			tw.handleEvent(event)

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			tw.mu.Lock()
			tw.stats.Errors++
			tw.mu.Unlock()

		case <-debounceTicker.C:
			tw.processDebounced(ctx)
		}
	}
}

func (tw *TemplateWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(tw.templatePath) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	logging.WatchDebug("template event %s for %s", event.Op, event.Name)

	tw.mu.Lock()
	tw.stats.TemplateModified++
	tw.stats.LastEventTime = time.Now()
	tw.debounceMap[event.Name] = time.Now()
	tw.mu.Unlock()
}

func (tw *TemplateWatcher) processDebounced(ctx context.Context) {
	tw.mu.Lock()
	now := time.Now()
	settled := false
	for path, eventTime := range tw.debounceMap {
		if now.Sub(eventTime) >= tw.debounceDur {
			delete(tw.debounceMap, path)
			settled = true
		}
	}
	if settled {
		tw.stats.RedeploysTriggered++
		tw.stats.LastRedeployTime = now
	}
	tw.mu.Unlock()

	if settled && tw.redeploy != nil {
		logging.Watch("template changed, triggering redeploy")
		tw.redeploy(ctx, tw.templatePath)
	}
}
