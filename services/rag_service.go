package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/docuchat/server/models"
)

// ErrEmptyQuestion is returned when a request carries a blank question.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// RAGService runs the online question path: rewrite the question into a
// standalone one, retrieve the user's relevant chunks, stream the
// grounded answer, and durably log the completed exchange exactly once.
type RAGService struct {
	rewriter  *QueryRewriter
	retriever *Retriever
	generator *AnswerGenerator
	sessions  *SessionService
	now       func() time.Time
}

// NewRAGService wires the question path from its injected collaborators.
func NewRAGService(rewriter *QueryRewriter, retriever *Retriever, generator *AnswerGenerator, sessions *SessionService) *RAGService {
	return &RAGService{
		rewriter:  rewriter,
		retriever: retriever,
		generator: generator,
		sessions:  sessions,
		now:       time.Now,
	}
}

// Ask answers one question. The returned channel yields answer fragments
// in arrival order and closes after the final one. Retrieval completes
// fully before generation starts. The query log is written only after
// the last fragment has been delivered; a mid-stream failure surfaces as
// an inline error fragment and skips the log, and cancellation abandons
// the stream without logging.
func (s *RAGService) Ask(ctx context.Context, userID, question string, history []models.ConversationTurn) (<-chan string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	start := s.now()

	session, err := s.sessions.ResolveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	standalone, err := s.rewriter.Rewrite(ctx, question, history)
	if err != nil {
		return nil, err
	}
	log.Printf("SERVICE: Rewrote question for user %s: %q", userID, standalone)

	chunks := s.retriever.RelevantChunks(ctx, userID, standalone)

	fragments, err := s.generator.Stream(ctx, standalone, chunks)
	if err != nil {
		return nil, fmt.Errorf("could not start answer generation: %w", err)
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)

		var full strings.Builder
		for frag := range fragments {
			if frag.Err != nil {
				// Partial answers are not durable: surface the error
				// inline and skip the log write.
				select {
				case out <- fmt.Sprintf("\n[Error generating answer: %v]", frag.Err):
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- frag.Text:
				full.WriteString(frag.Text)
			case <-ctx.Done():
				return
			}
		}

		if ctx.Err() != nil {
			return
		}

		elapsed := s.now().Sub(start).Seconds()
		entry := models.QueryLog{
			UserID:       userID,
			SessionID:    session.ID,
			Question:     question,
			Response:     full.String(),
			ResponseTime: elapsed,
			Timestamp:    s.now().UTC(),
		}
		// The answer is already with the caller; a failed log write is an
		// operational problem, not a user-visible one.
		if err := s.sessions.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
			log.Printf("SERVICE ERROR: %v", err)
		}
	}()

	return out, nil
}
