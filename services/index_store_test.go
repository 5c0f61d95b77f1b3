package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/server/models"
)

func testChunks(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Text: text, Source: "doc.txt", Position: i}
	}
	return chunks
}

func TestIndexStoreSearchOrdering(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	chunks := testChunks("a", "b", "c")
	vectors := [][]float32{{0, 0}, {3, 0}, {1, 0}}
	require.NoError(t, store.Build("u1", chunks, vectors))

	got, err := store.Search("u1", []float32{0, 0}, 2)
	require.NoError(t, err)
	// Nearest first, capped at topK.
	assert.Equal(t, []string{"a", "c"}, got)

	all, err := store.Search("u1", []float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, all)
}

func TestIndexStoreMissingUserIsEmptyNotError(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	got, err := store.Search("nobody", []float32{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexStoreBuildValidation(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	err = store.Build("u1", testChunks("a"), [][]float32{{1}, {2}})
	assert.Error(t, err)

	err = store.Build("u1", nil, nil)
	assert.ErrorIs(t, err, ErrNothingToIndex)

	err = store.Build("u1", testChunks("a", "b"), [][]float32{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestIndexStoreSelfRetrievalRoundTrip(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)
	embedder := newHashEmbedder()

	chunks := testChunks(
		"standard purchases refund within thirty days",
		"electronics refund within fourteen days only",
		"shipping is free above fifty dollars",
	)
	texts := []string{chunks[0].Text, chunks[1].Text, chunks[2].Text}
	vectors, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.NoError(t, store.Build("u1", chunks, vectors))

	queryVec, err := embedder.EmbedTexts(context.Background(), []string{chunks[1].Text})
	require.NoError(t, err)

	got, err := store.Search("u1", queryVec[0], 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, chunks[1].Text, got[0])
}

func TestIndexStorePersistsAndReloadsPair(t *testing.T) {
	dir := t.TempDir()

	store, err := NewIndexStore(dir)
	require.NoError(t, err)
	chunks := testChunks("alpha", "beta")
	vectors := [][]float32{{1, 0}, {0, 1}}
	require.NoError(t, store.Build("u1", chunks, vectors))

	// A fresh store over the same directory must serve the persisted pair.
	reopened, err := NewIndexStore(dir)
	require.NoError(t, err)
	got, err := reopened.Search("u1", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, got)
}

func TestIndexStoreRebuildReplacesArtifact(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Build("u1", testChunks("old"), [][]float32{{1, 0}}))
	require.NoError(t, store.Build("u1", testChunks("new"), [][]float32{{1, 0}}))

	got, err := store.Search("u1", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, got)
}

func TestIndexStoreIsolatesUsers(t *testing.T) {
	store, err := NewIndexStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Build("u1", testChunks("mine"), [][]float32{{1, 0}}))

	got, err := store.Search("u2", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
