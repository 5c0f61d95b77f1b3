package services

import "context"

// AnswerGenerator streams a grounded answer for a standalone question.
// Generation is fact-grounded QA, so it runs at temperature 0.
type AnswerGenerator struct {
	client CompletionClient
}

func NewAnswerGenerator(client CompletionClient) *AnswerGenerator {
	return &AnswerGenerator{client: client}
}

// Stream issues one streaming completion bound to the retrieved context
// and returns the fragment channel. Fragments arrive in order and the
// channel closes after the final one; a fragment with a non-nil Err is
// always last. The sequence is single-consumer and cannot be restarted.
func (g *AnswerGenerator) Stream(ctx context.Context, question string, contextChunks []string) (<-chan Fragment, error) {
	turns := []Turn{{Role: RoleUser, Text: groundedUserPrompt(question, contextChunks)}}
	return g.client.StreamComplete(ctx, groundingSystemPrompt, turns, 0)
}
