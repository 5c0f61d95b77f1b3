package services

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/docuchat/server/models"
)

// ErrNothingToIndex is returned by Build when the batch produced no chunks.
var ErrNothingToIndex = errors.New("nothing to index")

const (
	indexFileExt  = ".vec"
	chunksFileExt = ".chunks"
)

// indexArtifact is the in-memory form of one user's knowledge base:
// a flat vector index plus the parallel chunk lookup. Vectors[i] always
// corresponds to Chunks[i]; the two are only ever persisted and loaded
// as a pair.
type indexArtifact struct {
	Dim     int
	Vectors [][]float32
	Chunks  []models.Chunk
}

// IndexStore keeps one exact flat L2 nearest-neighbor index per user,
// persisted as two co-located files under its data directory. A new
// Build for a user replaces the previous artifact wholesale.
//
// Concurrency: any number of searches may run against a user's artifact
// while at most one rebuild is in flight for that user. Readers observe
// either the old or the new pair, never a half-written one.
type IndexStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
	cache map[string]*indexArtifact
}

// NewIndexStore creates an index store rooted at dir, creating it if needed.
func NewIndexStore(dir string) (*IndexStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create index directory: %w", err)
	}
	return &IndexStore{
		dir:   dir,
		locks: make(map[string]*sync.RWMutex),
		cache: make(map[string]*indexArtifact),
	}, nil
}

func (s *IndexStore) userLock(userID string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[userID] = l
	}
	return l
}

// Build constructs and persists the index and chunk lookup for userID,
// overwriting any previous artifact. Requires len(chunks) == len(vectors);
// an empty batch reports ErrNothingToIndex and leaves any existing
// artifact untouched.
func (s *IndexStore) Build(userID string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return ErrNothingToIndex
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	art := &indexArtifact{Dim: dim, Vectors: vectors, Chunks: chunks}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.persist(userID, art); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[userID] = art
	s.mu.Unlock()

	log.Printf("INDEXER: Built index for user %s with %d chunks (dim %d)", userID, len(chunks), dim)
	return nil
}

// persist writes both artifact files to temp files first and renames
// them into place, so a crash mid-write never leaves a mismatched pair
// visible under the final names. Caller holds the user's write lock.
func (s *IndexStore) persist(userID string, art *indexArtifact) error {
	indexPath := filepath.Join(s.dir, userID+indexFileExt)
	chunksPath := filepath.Join(s.dir, userID+chunksFileExt)

	vecArt := indexArtifact{Dim: art.Dim, Vectors: art.Vectors}
	if err := writeGob(indexPath+".tmp", &vecArt); err != nil {
		return fmt.Errorf("could not write vector index: %w", err)
	}
	if err := writeGob(chunksPath+".tmp", art.Chunks); err != nil {
		os.Remove(indexPath + ".tmp")
		return fmt.Errorf("could not write chunk lookup: %w", err)
	}
	if err := os.Rename(indexPath+".tmp", indexPath); err != nil {
		os.Remove(chunksPath + ".tmp")
		return fmt.Errorf("could not replace vector index: %w", err)
	}
	if err := os.Rename(chunksPath+".tmp", chunksPath); err != nil {
		return fmt.Errorf("could not replace chunk lookup: %w", err)
	}
	return nil
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

// load returns the user's artifact from cache or disk, or nil when the
// user has no knowledge base yet. Caller holds at least the read lock.
func (s *IndexStore) load(userID string) (*indexArtifact, error) {
	s.mu.Lock()
	art, ok := s.cache[userID]
	s.mu.Unlock()
	if ok {
		return art, nil
	}

	indexPath := filepath.Join(s.dir, userID+indexFileExt)
	chunksPath := filepath.Join(s.dir, userID+chunksFileExt)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return nil, nil
	}

	var vecArt indexArtifact
	if err := readGob(indexPath, &vecArt); err != nil {
		return nil, fmt.Errorf("could not read vector index: %w", err)
	}
	var chunks []models.Chunk
	if err := readGob(chunksPath, &chunks); err != nil {
		return nil, fmt.Errorf("could not read chunk lookup: %w", err)
	}
	if len(chunks) != len(vecArt.Vectors) {
		return nil, fmt.Errorf("corrupt artifact for user %s: %d vectors, %d chunks", userID, len(vecArt.Vectors), len(chunks))
	}
	vecArt.Chunks = chunks

	s.mu.Lock()
	s.cache[userID] = &vecArt
	s.mu.Unlock()
	return &vecArt, nil
}

// Search returns up to topK chunk texts ordered by ascending L2 distance
// to queryVec. A user with no built index gets an empty result, not an
// error: it just means no knowledge base yet.
func (s *IndexStore) Search(userID string, queryVec []float32, topK int) ([]string, error) {
	if topK <= 0 {
		return nil, nil
	}

	lock := s.userLock(userID)
	lock.RLock()
	defer lock.RUnlock()

	art, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	if art == nil {
		return nil, nil
	}
	if len(queryVec) != art.Dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(queryVec), art.Dim)
	}

	type scored struct {
		idx  int
		dist float64
	}
	scores := make([]scored, len(art.Vectors))
	for i, v := range art.Vectors {
		scores[i] = scored{idx: i, dist: l2Distance(v, queryVec)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })

	if topK > len(scores) {
		topK = len(scores)
	}
	texts := make([]string, 0, topK)
	for i := 0; i < topK; i++ {
		texts = append(texts, art.Chunks[scores[i].idx].Text)
	}
	return texts, nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
