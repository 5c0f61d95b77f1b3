package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorStreamsFragmentsInOrder(t *testing.T) {
	client := &fakeCompletion{
		streamFn: func(_ string, _ []Turn) []Fragment {
			return []Fragment{{Text: "The refund "}, {Text: "window is "}, {Text: "30 days."}}
		},
	}
	gen := NewAnswerGenerator(client)

	fragments, err := gen.Stream(context.Background(), "What is the refund window?", []string{"The refund window is 30 days."})
	require.NoError(t, err)

	var got []string
	for frag := range fragments {
		require.NoError(t, frag.Err)
		got = append(got, frag.Text)
	}
	assert.Equal(t, []string{"The refund ", "window is ", "30 days."}, got)
}

func TestGeneratorBindsContextAndQuestionIntoPrompt(t *testing.T) {
	client := &fakeCompletion{
		streamFn: func(_ string, _ []Turn) []Fragment { return []Fragment{{Text: "ok"}} },
	}
	gen := NewAnswerGenerator(client)

	fragments, err := gen.Stream(context.Background(), "What about electronics?", []string{"chunk one", "chunk two"})
	require.NoError(t, err)
	drain(mapFragments(fragments))

	require.Len(t, client.lastTurns, 1)
	prompt := client.lastTurns[0].Text
	assert.Contains(t, prompt, "Context:\nchunk one\n\nchunk two")
	assert.Contains(t, prompt, "Question: What about electronics?")
	assert.Contains(t, client.lastSystem, DontKnowReply)
}

func TestGeneratorErrorIsFinalFragment(t *testing.T) {
	client := &fakeCompletion{
		streamFn: func(_ string, _ []Turn) []Fragment {
			return []Fragment{{Text: "partial"}, {Err: assert.AnError}, {Text: "never delivered"}}
		},
	}
	gen := NewAnswerGenerator(client)

	fragments, err := gen.Stream(context.Background(), "q", nil)
	require.NoError(t, err)

	first, ok := <-fragments
	require.True(t, ok)
	assert.Equal(t, "partial", first.Text)

	second, ok := <-fragments
	require.True(t, ok)
	assert.Error(t, second.Err)

	_, ok = <-fragments
	assert.False(t, ok, "stream must close after the error fragment")
}

// mapFragments adapts a Fragment channel to a plain text channel for drain.
func mapFragments(in <-chan Fragment) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for frag := range in {
			out <- frag.Text
		}
	}()
	return out
}
