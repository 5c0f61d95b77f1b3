package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/docuchat/server/models"
)

// QueryRewriter turns a possibly-elliptical follow-up question plus the
// prior turns into a standalone question suitable for retrieval. This is
// a normalization step, so the completion call runs at temperature 0.
type QueryRewriter struct {
	client CompletionClient
}

func NewQueryRewriter(client CompletionClient) *QueryRewriter {
	return &QueryRewriter{client: client}
}

// Rewrite resolves pronouns and omitted subjects against the history and
// returns a context-complete question. With no history there is nothing
// to resolve, so the input comes back unchanged without a model call.
func (r *QueryRewriter) Rewrite(ctx context.Context, question string, history []models.ConversationTurn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	turns := make([]Turn, 0, len(history)*2+1)
	for _, h := range history {
		turns = append(turns, Turn{Role: RoleUser, Text: h.UserMessage})
		turns = append(turns, Turn{Role: RoleAssistant, Text: h.AssistantMessage})
	}
	turns = append(turns, Turn{Role: RoleUser, Text: question})

	standalone, err := r.client.Complete(ctx, rewriteSystemPrompt, turns, 0)
	if err != nil {
		return "", fmt.Errorf("could not rewrite question: %w", err)
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return question, nil
	}
	return standalone, nil
}
