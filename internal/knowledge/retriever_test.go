package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-agent/backend/internal/model"
)

type stubEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.embedding, s.err
}

type stubSearcher struct {
	snippets []model.KnowledgeSnippet
	err      error
}

func (s *stubSearcher) SearchGuidelines(ctx context.Context, embedding []float32, topK int) ([]model.KnowledgeSnippet, error) {
	return s.snippets, s.err
}

type stubCache struct {
	embeddings map[string][]float32
	sets       int
}

func (s *stubCache) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	embedding, ok := s.embeddings[textHash]
	return embedding, ok, nil
}

func (s *stubCache) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	s.sets++
	s.embeddings[textHash] = embedding
	return nil
}

func TestRetrieveWithoutBackends(t *testing.T) {
	retriever := NewRetriever(nil, nil)

	t.Run("matches fallback keywords", func(t *testing.T) {
		snippets := retriever.Retrieve(context.Background(), "chest pain and headache", model.DemographicContext{Age: 50})

		require.Len(t, snippets, 2)
		assert.Equal(t, "cardiology", snippets[0].Specialty)
		assert.Equal(t, "neurology", snippets[1].Specialty)
		for _, snippet := range snippets {
			assert.Equal(t, fallbackScore, snippet.Score)
		}
	})

	t.Run("unknown complaint still returns a snippet", func(t *testing.T) {
		snippets := retriever.Retrieve(context.Background(), "persistent hiccups", model.DemographicContext{Age: 50})

		require.Len(t, snippets, 1)
		assert.Equal(t, "General Symptom Assessment", snippets[0].Title)
		assert.Equal(t, "general_medicine", snippets[0].Specialty)
		assert.Equal(t, 0.5, snippets[0].Score)
	})
}

func TestRetrieveDegradesOnBackendFailure(t *testing.T) {
	t.Run("embedding error", func(t *testing.T) {
		retriever := NewRetriever(
			&stubEmbedder{err: errors.New("backend down")},
			&stubSearcher{},
		)

		snippets := retriever.Retrieve(context.Background(), "abdominal pain", model.DemographicContext{})

		require.Len(t, snippets, 1)
		assert.Equal(t, "general_surgery", snippets[0].Specialty)
	})

	t.Run("search error", func(t *testing.T) {
		retriever := NewRetriever(
			&stubEmbedder{embedding: []float32{0.1, 0.2}},
			&stubSearcher{err: errors.New("index unreachable")},
		)

		snippets := retriever.Retrieve(context.Background(), "chest pain", model.DemographicContext{})

		require.Len(t, snippets, 1)
		assert.Equal(t, "Chest Pain Emergency Protocol", snippets[0].Title)
	})

	t.Run("empty search result", func(t *testing.T) {
		retriever := NewRetriever(
			&stubEmbedder{embedding: []float32{0.1, 0.2}},
			&stubSearcher{snippets: []model.KnowledgeSnippet{}},
		)

		snippets := retriever.Retrieve(context.Background(), "rare complaint", model.DemographicContext{})

		assert.NotEmpty(t, snippets)
	})
}

func TestRetrievePrimaryPath(t *testing.T) {
	searcher := &stubSearcher{snippets: []model.KnowledgeSnippet{
		{Title: "A", Score: 0.4},
		{Title: "B", Score: 0.9},
		{Title: "C", Score: 0.7},
		{Title: "D", Score: 0.8},
	}}
	retriever := NewRetriever(
		&stubEmbedder{embedding: []float32{0.1}},
		searcher,
		WithTopK(3),
	)

	snippets := retriever.Retrieve(context.Background(), "chest pain", model.DemographicContext{})

	require.Len(t, snippets, 3)
	assert.Equal(t, "B", snippets[0].Title)
	assert.Equal(t, "D", snippets[1].Title)
	assert.Equal(t, "C", snippets[2].Title)
}

func TestRetrieveUsesEmbeddingCache(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{0.1, 0.2}}
	searcher := &stubSearcher{snippets: []model.KnowledgeSnippet{{Title: "Hit", Score: 0.9}}}
	cache := &stubCache{embeddings: map[string][]float32{}}

	retriever := NewRetriever(embedder, searcher, WithEmbeddingCache(cache))

	retriever.Retrieve(context.Background(), "chest pain", model.DemographicContext{})
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, cache.sets)

	// Second retrieval with identical text serves the cached vector.
	retriever.Retrieve(context.Background(), "chest pain", model.DemographicContext{})
	assert.Equal(t, 1, embedder.calls)
}
