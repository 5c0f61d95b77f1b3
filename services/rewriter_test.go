package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/server/models"
)

func TestRewriteEmptyHistoryReturnsInputWithoutCall(t *testing.T) {
	client := &fakeCompletion{}
	rewriter := NewQueryRewriter(client)

	got, err := rewriter.Rewrite(context.Background(), "What is the refund window?", nil)
	require.NoError(t, err)
	assert.Equal(t, "What is the refund window?", got)
	assert.Nil(t, client.lastTurns, "no completion call expected without history")
}

func TestRewriteFollowUpReplaysHistoryAsTurns(t *testing.T) {
	client := &fakeCompletion{
		completeFn: func(_ string, _ []Turn) (string, error) {
			return "What is the refund window for electronics?", nil
		},
	}
	rewriter := NewQueryRewriter(client)

	history := []models.ConversationTurn{
		{UserMessage: "What is the refund window?", AssistantMessage: "30 days."},
	}
	got, err := rewriter.Rewrite(context.Background(), "And for electronics?", history)
	require.NoError(t, err)
	assert.Contains(t, got, "refund window")
	assert.Contains(t, got, "electronics")

	require.Len(t, client.lastTurns, 3)
	assert.Equal(t, Turn{Role: RoleUser, Text: "What is the refund window?"}, client.lastTurns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Text: "30 days."}, client.lastTurns[1])
	assert.Equal(t, Turn{Role: RoleUser, Text: "And for electronics?"}, client.lastTurns[2])
	assert.Equal(t, rewriteSystemPrompt, client.lastSystem)
}

func TestRewriteBlankModelOutputFallsBackToInput(t *testing.T) {
	client := &fakeCompletion{
		completeFn: func(_ string, _ []Turn) (string, error) { return "  \n", nil },
	}
	rewriter := NewQueryRewriter(client)

	history := []models.ConversationTurn{{UserMessage: "Hi", AssistantMessage: "Hello!"}}
	got, err := rewriter.Rewrite(context.Background(), "Thanks!", history)
	require.NoError(t, err)
	assert.Equal(t, "Thanks!", got)
}

func TestRewritePropagatesCompletionFailure(t *testing.T) {
	client := &fakeCompletion{}
	rewriter := NewQueryRewriter(client)

	history := []models.ConversationTurn{{UserMessage: "q", AssistantMessage: "a"}}
	_, err := rewriter.Rewrite(context.Background(), "And then?", history)
	assert.Error(t, err)
}
