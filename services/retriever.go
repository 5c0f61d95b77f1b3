package services

import (
	"context"
	"log"
)

// TopKChunks is how many chunks retrieval feeds into generation.
const TopKChunks = 9

// Retriever embeds a standalone question and searches the asking user's
// index. Retrieval never fails the request: a missing knowledge base or
// a broken embedding service degrades to an empty context so generation
// can still answer with the fallback reply.
type Retriever struct {
	embedder Embedder
	index    *IndexStore
}

func NewRetriever(embedder Embedder, index *IndexStore) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// RelevantChunks returns up to TopKChunks chunk texts ordered nearest
// first, or an empty slice when nothing can be retrieved.
func (r *Retriever) RelevantChunks(ctx context.Context, userID, question string) []string {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		log.Printf("RETRIEVER WARN: could not embed question for user %s: %v", userID, err)
		return nil
	}

	chunks, err := r.index.Search(userID, vectors[0], TopKChunks)
	if err != nil {
		log.Printf("RETRIEVER WARN: search failed for user %s: %v", userID, err)
		return nil
	}
	return chunks
}
