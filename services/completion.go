package services

import "context"

// Turn roles accepted by the completion service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one ordered message in a completion request.
type Turn struct {
	Role string
	Text string
}

// Fragment is one streamed piece of a completion. A non-nil Err is
// always the final fragment of its stream.
type Fragment struct {
	Text string
	Err  error
}

// CompletionClient is the text-generation collaborator. Complete issues
// a single-shot request and returns the full text; StreamComplete
// returns a lazy, finite, non-restartable sequence of fragments in
// arrival order. The channel is closed after the last fragment; if the
// context is cancelled the in-flight request is abandoned and the
// channel closed.
type CompletionClient interface {
	Complete(ctx context.Context, system string, turns []Turn, temperature float32) (string, error)
	StreamComplete(ctx context.Context, system string, turns []Turn, temperature float32) (<-chan Fragment, error)
}
