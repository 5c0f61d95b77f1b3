package services

import (
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/docuchat/server/models"
)

// Default chunking configuration for general uploaded text.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// localeAwareSeparators extends the split order with Arabic sentence and
// clause punctuation so mixed-locale documents still break on sentence
// boundaries before falling back to whitespace.
var localeAwareSeparators = []string{"\n\n", "\n", ".", "؟", "،", " "}

// Chunker splits raw document text into overlapping bounded-size chunks.
// Splitting prefers paragraph boundaries, then lines, then sentence
// punctuation, then whitespace, with a hard cut as the last resort, so a
// chunk never exceeds the configured size. Identical input and
// configuration always produce the identical chunk sequence.
type Chunker struct {
	chunkSize int
	overlap   int
	splitter  textsplitter.RecursiveCharacter
}

// NewChunker builds a chunker with the general-text defaults (500/50).
func NewChunker() *Chunker {
	return newChunker(DefaultChunkSize, DefaultChunkOverlap, nil)
}

// NewLocaleAwareChunker builds the secondary chunker used for long-form
// mixed-locale documents: 1024-character chunks with 100 overlap and the
// locale-aware separator list.
func NewLocaleAwareChunker() *Chunker {
	return newChunker(1024, 100, localeAwareSeparators)
}

func newChunker(chunkSize, overlap int, separators []string) *Chunker {
	opts := []textsplitter.Option{
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
	}
	if separators != nil {
		opts = append(opts, textsplitter.WithSeparators(separators))
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		splitter:  textsplitter.NewRecursiveCharacter(opts...),
	}
}

// ChunkSize returns the configured maximum chunk length in characters.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks one document's text. Positions increase monotonically in
// splitter order; source names the originating file.
func (c *Chunker) Split(text, source string) ([]models.Chunk, error) {
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Text:     p,
			Source:   source,
			Position: i,
		})
	}
	return chunks, nil
}
