package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuchat/server/models"
)

// hashEmbedder is a deterministic bag-of-words embedder: identical text
// always maps to the identical normalized vector, and texts sharing
// vocabulary land near each other.
type hashEmbedder struct {
	dim int
}

func newHashEmbedder() hashEmbedder { return hashEmbedder{dim: 32} }

func (e hashEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dim)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(tok, ".,?!")))
			v[h.Sum32()%uint32(e.dim)]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range v {
				v[j] /= n
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

// failingEmbedder simulates an unreachable embedding service.
type failingEmbedder struct{}

func (failingEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service unreachable")
}

// fakeCompletion scripts the completion collaborator and records the
// last request for assertions.
type fakeCompletion struct {
	mu         sync.Mutex
	completeFn func(system string, turns []Turn) (string, error)
	streamFn   func(system string, turns []Turn) []Fragment

	lastSystem string
	lastTurns  []Turn
}

func (f *fakeCompletion) record(system string, turns []Turn) {
	f.mu.Lock()
	f.lastSystem = system
	f.lastTurns = turns
	f.mu.Unlock()
}

func (f *fakeCompletion) Complete(_ context.Context, system string, turns []Turn, _ float32) (string, error) {
	f.record(system, turns)
	if f.completeFn == nil {
		return "", errors.New("no complete behavior scripted")
	}
	return f.completeFn(system, turns)
}

func (f *fakeCompletion) StreamComplete(ctx context.Context, system string, turns []Turn, _ float32) (<-chan Fragment, error) {
	f.record(system, turns)
	if f.streamFn == nil {
		return nil, errors.New("no stream behavior scripted")
	}
	out := make(chan Fragment, 8)
	go func() {
		defer close(out)
		for _, frag := range f.streamFn(system, turns) {
			select {
			case out <- frag:
			case <-ctx.Done():
				return
			}
			if frag.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

// groundedStream answers from the context block of the grounded prompt:
// if the chunk carrying the answer keyword made it into the prompt the
// scripted answer streams out, otherwise the fallback does.
func groundedStream(keyword string, answer []string) func(system string, turns []Turn) []Fragment {
	return func(_ string, turns []Turn) []Fragment {
		prompt := turns[len(turns)-1].Text
		if strings.Contains(prompt, keyword) {
			fragments := make([]Fragment, 0, len(answer))
			for _, a := range answer {
				fragments = append(fragments, Fragment{Text: a})
			}
			return fragments
		}
		return []Fragment{{Text: DontKnowReply}}
	}
}

// memSessionStore is an in-memory SessionStore for pipeline tests.
type memSessionStore struct {
	mu       sync.Mutex
	sessions []models.Session
	logs     []models.QueryLog
}

func (m *memSessionStore) CreateSession(_ context.Context, userID string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := models.Session{ID: uuid.New().String(), UserID: userID, StartedAt: time.Now().UTC()}
	m.sessions = append(m.sessions, session)
	return session, nil
}

func (m *memSessionStore) FindRecentSession(_ context.Context, userID string, since time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Session
	for i := range m.sessions {
		s := m.sessions[i]
		if s.UserID != userID || s.StartedAt.Before(since) {
			continue
		}
		if best == nil || s.StartedAt.After(best.StartedAt) {
			best = &m.sessions[i]
		}
	}
	return best, nil
}

func (m *memSessionStore) AppendQueryLog(_ context.Context, entry models.QueryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memSessionStore) loggedEntries() []models.QueryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.QueryLog, len(m.logs))
	copy(out, m.logs)
	return out
}

func testQueryLog(userID, sessionID string) models.QueryLog {
	return models.QueryLog{
		UserID:       userID,
		SessionID:    sessionID,
		Question:     "q",
		Response:     "r",
		ResponseTime: 0.5,
	}
}

// drain collects a fragment channel into the assembled answer.
func drain(ch <-chan string) string {
	var sb strings.Builder
	for frag := range ch {
		sb.WriteString(frag)
	}
	return sb.String()
}
