package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() string {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("The refund window for standard purchases is thirty days from delivery. ")
		sb.WriteString("Electronics carry a shorter fourteen day window instead.\n\n")
	}
	return sb.String()
}

func TestChunkerBoundsAndPositions(t *testing.T) {
	chunker := NewChunker()
	chunks, err := chunker.Split(sampleDocument(), "policy.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	prev := -1
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), chunker.ChunkSize())
		assert.Equal(t, "policy.txt", ch.Source)
		assert.Greater(t, ch.Position, prev)
		prev = ch.Position
	}
}

func TestChunkerDeterministic(t *testing.T) {
	chunker := NewChunker()
	text := sampleDocument()

	first, err := chunker.Split(text, "a.txt")
	require.NoError(t, err)
	second, err := chunker.Split(text, "a.txt")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestChunkerOverlapPreservesBoundaryContext(t *testing.T) {
	chunker := NewChunker()
	chunks, err := chunker.Split(sampleDocument(), "policy.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share boundary text: the head of each chunk
	// reappears at the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i].Text
		if utf8.RuneCountInString(head) > 10 {
			head = string([]rune(head)[:10])
		}
		assert.Contains(t, chunks[i-1].Text, head,
			"chunk %d does not overlap with chunk %d", i, i-1)
	}
}

func TestLocaleAwareChunkerSplitsOnArabicPunctuation(t *testing.T) {
	chunker := NewLocaleAwareChunker()
	assert.Equal(t, 1024, chunker.ChunkSize())
	assert.Equal(t, 100, chunker.Overlap())

	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("هل يمكن استرداد المبلغ؟ نعم، خلال ثلاثين يوما، ")
	}
	chunks, err := chunker.Split(sb.String(), "faq.txt")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), chunker.ChunkSize())
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	chunks, err := NewChunker().Split("", "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
