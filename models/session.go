package models

import "time"

// Session groups a user's queries in time. Sessions are created lazily
// when a question arrives and no session started within the timeout
// window; they are never mutated or closed explicitly.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

// QueryLog is the durable record of one completed question. Question is
// the original pre-rewrite input; Response is the fully assembled
// streamed answer; ResponseTime is wall-clock seconds.
type QueryLog struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	Question     string    `json:"question"`
	Response     string    `json:"response"`
	ResponseTime float64   `json:"response_time"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConversationTurn is one prior exchange supplied by the caller as
// conversation history. The core never persists turns itself.
type ConversationTurn struct {
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
}
