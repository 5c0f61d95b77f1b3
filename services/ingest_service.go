package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docuchat/server/models"
)

// IngestService orchestrates one upload batch: save files, split,
// embed, build and persist the user's index. The batch is a single
// logical unit of work for indexing: a per-file decode failure only
// skips that file, but an embedding or index failure aborts the whole
// batch with no artifact persisted.
type IngestService struct {
	docsDir  string
	chunker  *Chunker
	embedder Embedder
	index    *IndexStore

	mu       sync.Mutex
	active   map[string]int
	lastDone map[string]time.Time
}

func NewIngestService(docsDir string, chunker *Chunker, embedder Embedder, index *IndexStore) *IngestService {
	return &IngestService{
		docsDir:  docsDir,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		active:   make(map[string]int),
		lastDone: make(map[string]time.Time),
	}
}

func (s *IngestService) beginRun(userID string) {
	s.mu.Lock()
	s.active[userID]++
	s.mu.Unlock()
}

func (s *IngestService) endRun(userID string) {
	s.mu.Lock()
	s.active[userID]--
	s.lastDone[userID] = time.Now()
	s.mu.Unlock()
}

// RecentlyActive reports whether an ingestion run for userID is in
// flight or finished within the last window. The upload watcher uses it
// to tell the pipeline's own file writes apart from out-of-band changes.
func (s *IngestService) RecentlyActive(userID string, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[userID] > 0 {
		return true
	}
	last, ok := s.lastDone[userID]
	return ok && time.Since(last) < window
}

// DocsDirFor returns the directory where a user's raw uploads are kept.
func (s *IngestService) DocsDirFor(userID string) string {
	return filepath.Join(s.docsDir, userID)
}

// Ingest processes the batch for userID and returns a progress feed of
// human-readable "<stage>... <percent>%" lines, terminated by a success
// or error line. Percent is monotonically non-decreasing within one call.
func (s *IngestService) Ingest(ctx context.Context, userID string, files []models.UploadFile) <-chan string {
	out := make(chan string, 4)

	s.beginRun(userID)
	go func() {
		// endRun before close, so a consumer that drains the feed sees
		// the run already marked finished.
		defer close(out)
		defer s.endRun(userID)

		emit := func(line string) bool {
			select {
			case out <- line:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit("Starting processing... 0%") {
			return
		}

		userDir := s.DocsDirFor(userID)
		if err := os.MkdirAll(userDir, 0o755); err != nil {
			emit(fmt.Sprintf("Error: could not create upload directory: %v 0%%", err))
			return
		}

		var allChunks []models.Chunk
		totalFiles := len(files)
		processed := 0

		// File save + split covers the first 30% of the feed.
		for _, file := range files {
			progress := fileProgress(processed, totalFiles)

			path := filepath.Join(userDir, filepath.Base(file.Filename))
			if err := os.WriteFile(path, file.Content, 0o644); err != nil {
				emit(fmt.Sprintf("Error: could not save %s: %v %d%%", file.Filename, err, progress))
				return
			}
			if !emit(fmt.Sprintf("Saved %s... %d%%", file.Filename, progress)) {
				return
			}

			text, err := ExtractText(file.Filename, file.Content)
			if err != nil {
				if errors.Is(err, ErrUnsupportedFile) {
					if !emit(fmt.Sprintf("Unsupported file type: %s %d%%", file.Filename, progress)) {
						return
					}
				} else {
					log.Printf("INGEST WARN: could not extract %s for user %s: %v", file.Filename, userID, err)
					if !emit(fmt.Sprintf("Could not read %s, skipping... %d%%", file.Filename, progress)) {
						return
					}
				}
				continue
			}

			chunks, err := s.chunker.Split(text, file.Filename)
			if err != nil {
				emit(fmt.Sprintf("Error: could not split %s: %v %d%%", file.Filename, err, progress))
				return
			}
			allChunks = append(allChunks, chunks...)

			processed++
			if !emit(fmt.Sprintf("Split %s into %d chunks... %d%%", file.Filename, len(chunks), fileProgress(processed, totalFiles))) {
				return
			}
		}

		if len(allChunks) == 0 {
			emit("No valid documents to index. 30%")
			return
		}

		if !emit("Generating embeddings... 40%") {
			return
		}
		texts := make([]string, len(allChunks))
		for i, ch := range allChunks {
			texts[i] = ch.Text
		}
		if !emit(fmt.Sprintf("Generating %d embeddings... 50%%", len(texts))) {
			return
		}
		vectors, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			emit(fmt.Sprintf("Error: %v 50%%", err))
			return
		}

		if !emit("Creating index... 80%") {
			return
		}
		if !emit("Saving index... 90%") {
			return
		}
		if err := s.index.Build(userID, allChunks, vectors); err != nil {
			emit(fmt.Sprintf("Error: %v 90%%", err))
			return
		}

		emit("All documents processed and indexed successfully. 100%")
	}()

	return out
}

// ReingestDirectory re-runs the pipeline over whatever is currently in a
// user's docs directory, preserving replace semantics for the artifact.
// Used by the upload watcher.
func (s *IngestService) ReingestDirectory(ctx context.Context, userID string) error {
	userDir := s.DocsDirFor(userID)
	entries, err := os.ReadDir(userDir)
	if err != nil {
		return fmt.Errorf("could not read docs directory for user %s: %w", userID, err)
	}

	var files []models.UploadFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(userDir, entry.Name()))
		if err != nil {
			log.Printf("INGEST WARN: could not read %s: %v", entry.Name(), err)
			continue
		}
		files = append(files, models.UploadFile{Filename: entry.Name(), Content: content})
	}
	if len(files) == 0 {
		return nil
	}

	for line := range s.Ingest(ctx, userID, files) {
		log.Printf("INGEST [%s]: %s", userID, line)
	}
	return nil
}

// fileProgress maps per-file completion onto the 0-30% save/split band.
func fileProgress(processed, total int) int {
	if total == 0 {
		return 30
	}
	return int(float64(processed) / float64(total) * 30)
}
