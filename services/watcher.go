package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reingestDelay batches the burst of events an editor or multi-file
// upload produces into a single re-ingestion per user.
const reingestDelay = 2 * time.Second

// UploadWatcher watches the per-user docs tree and re-ingests a user's
// whole directory when files inside it change out of band. A rebuild
// replaces the user's artifact, same as an explicit upload.
type UploadWatcher struct {
	ingest *IngestService
	root   string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewUploadWatcher(ingest *IngestService, root string) *UploadWatcher {
	return &UploadWatcher{
		ingest: ingest,
		root:   root,
		timers: make(map[string]*time.Timer),
	}
}

// Watch blocks until the context is cancelled, re-indexing users whose
// directories see create/write events for supported files.
func (w *UploadWatcher) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		log.Printf("WATCHER ERROR: Failed to create docs root: %v", err)
		return
	}
	if err := watcher.Add(w.root); err != nil {
		log.Printf("WATCHER ERROR: Failed to watch docs root: %v", err)
		return
	}
	// Pick up user directories that already exist.
	entries, _ := os.ReadDir(w.root)
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(w.root, entry.Name())); err != nil {
				log.Printf("WATCHER WARN: Could not watch %s: %v", entry.Name(), err)
			}
		}
	}

	log.Printf("WATCHER: Watching docs root: %s", w.root)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WATCHER ERROR: %v", err)
		case <-ctx.Done():
			log.Println("WATCHER: Context cancelled, shutting down watcher.")
			return
		}
	}
}

func (w *UploadWatcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	// A new user directory appears when that user's first upload lands.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && filepath.Dir(event.Name) == w.root {
			if err := watcher.Add(event.Name); err != nil {
				log.Printf("WATCHER WARN: Could not watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !isSupportedUpload(event.Name) {
		return
	}
	userID := w.userFor(event.Name)
	if userID == "" {
		return
	}

	w.scheduleReingest(ctx, userID)
}

func (w *UploadWatcher) scheduleReingest(ctx context.Context, userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[userID]; ok {
		timer.Reset(reingestDelay)
		return
	}
	w.timers[userID] = time.AfterFunc(reingestDelay, func() {
		w.mu.Lock()
		delete(w.timers, userID)
		w.mu.Unlock()
		w.runReingest(ctx, userID)
	})
}

// runReingest re-indexes a user's directory unless the ingestion
// pipeline itself is the source of the events: every upload writes its
// files back into the watched tree, so a run that is still in flight or
// finished within the debounce window means the change was our own.
// The in-flight check also keeps two re-ingestions for one user from
// ever running concurrently.
func (w *UploadWatcher) runReingest(ctx context.Context, userID string) {
	if w.ingest.RecentlyActive(userID, reingestDelay) {
		log.Printf("WATCHER: Skipping re-index for user %s, ingestion in flight or just finished.", userID)
		return
	}

	log.Printf("WATCHER: Changes detected for user %s. Re-indexing...", userID)
	if err := w.ingest.ReingestDirectory(ctx, userID); err != nil {
		log.Printf("WATCHER ERROR: Failed to re-index user %s: %v", userID, err)
	}
}

// userFor maps an event path to the owning user directory, or "" when
// the path is not inside one.
func (w *UploadWatcher) userFor(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.SplitN(rel, string(filepath.Separator), 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func isSupportedUpload(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}
