package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements CompletionClient on top of Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient wraps an already-constructed genai client. The genai
// client's lifecycle belongs to the composition root, not this package.
func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}
}

func toContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var role genai.Role = genai.RoleUser
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return contents
}

func (g *GeminiClient) config(system string, temperature float32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

// Complete issues a single non-streaming generation request.
func (g *GeminiClient) Complete(ctx context.Context, system string, turns []Turn, temperature float32) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, toContents(turns), g.config(system, temperature))
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

// StreamComplete issues a streaming generation request. A producer
// goroutine forwards token batches into a bounded channel as they
// arrive; a mid-stream API error becomes the final fragment.
func (g *GeminiClient) StreamComplete(ctx context.Context, system string, turns []Turn, temperature float32) (<-chan Fragment, error) {
	out := make(chan Fragment, 8)
	stream := g.client.Models.GenerateContentStream(ctx, g.model, toContents(turns), g.config(system, temperature))

	go func() {
		defer close(out)
		for resp, err := range stream {
			if err != nil {
				select {
				case out <- Fragment{Err: fmt.Errorf("gemini stream failed: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, p := range resp.Candidates[0].Content.Parts {
				if p.Text == "" {
					continue
				}
				select {
				case out <- Fragment{Text: p.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
