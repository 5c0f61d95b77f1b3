package services

import (
	"context"
	"fmt"
	"time"

	"github.com/docuchat/server/models"
)

// SessionTimeout is how long a session stays reusable after it started.
const SessionTimeout = 5 * time.Minute

// SessionStore is the persistence collaborator contract. The relational
// schema behind it is owned by the store implementation, not the core.
type SessionStore interface {
	CreateSession(ctx context.Context, userID string) (models.Session, error)
	FindRecentSession(ctx context.Context, userID string, since time.Time) (*models.Session, error)
	AppendQueryLog(ctx context.Context, entry models.QueryLog) error
}

// SessionService decides whether a question joins the user's most recent
// session or starts a new one, and finalizes exactly one query-log
// record per completed answer.
type SessionService struct {
	store SessionStore
	now   func() time.Time
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{store: store, now: time.Now}
}

// ResolveSession reuses the most recent session started within the
// timeout window, or lazily creates a new one. Sessions are never closed
// explicitly; they go stale purely by elapsed time.
func (s *SessionService) ResolveSession(ctx context.Context, userID string) (models.Session, error) {
	threshold := s.now().Add(-SessionTimeout)
	session, err := s.store.FindRecentSession(ctx, userID, threshold)
	if err != nil {
		return models.Session{}, fmt.Errorf("could not look up recent session: %w", err)
	}
	if session != nil {
		return *session, nil
	}

	created, err := s.store.CreateSession(ctx, userID)
	if err != nil {
		return models.Session{}, fmt.Errorf("could not create session: %w", err)
	}
	return created, nil
}

// AppendLog writes the query-log record for a completed answer. Callers
// must invoke it at most once per request, and only after the final
// fragment has been delivered.
func (s *SessionService) AppendLog(ctx context.Context, entry models.QueryLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	if err := s.store.AppendQueryLog(ctx, entry); err != nil {
		return fmt.Errorf("could not append query log: %w", err)
	}
	return nil
}
