package knowledge

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/metrics"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
	"github.com/triage-agent/backend/pkg/utils"
)

// Embedder turns free text into a fixed-dimension vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a top-k similarity search against the knowledge index.
type Searcher interface {
	SearchGuidelines(ctx context.Context, embedding []float32, topK int) ([]model.KnowledgeSnippet, error)
}

// EmbeddingCache sits in front of the embedder; a nil cache is skipped.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Retriever returns ranked knowledge snippets for a complaint. It never
// returns an empty list and never lets a backend failure escape its
// boundary: any error on the primary path degrades to the keyword table.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	cache    EmbeddingCache
	topK     int
	timeout  time.Duration
}

type Option func(*Retriever)

func WithEmbeddingCache(cache EmbeddingCache) Option {
	return func(r *Retriever) {
		r.cache = cache
	}
}

func WithTopK(topK int) Option {
	return func(r *Retriever) {
		r.topK = topK
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(r *Retriever) {
		r.timeout = timeout
	}
}

// NewRetriever accepts nil embedder/searcher; the retriever then runs in
// fallback-only mode.
func NewRetriever(embedder Embedder, searcher Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		embedder: embedder,
		searcher: searcher,
		topK:     3,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) Retrieve(ctx context.Context, queryText string, hint model.DemographicContext) []model.KnowledgeSnippet {
	logger.Debug("Retrieving medical knowledge",
		zap.String("query", queryText),
		zap.Int("patient_age", hint.Age),
	)

	if r.embedder == nil || r.searcher == nil {
		metrics.RetrievalFallbackTotal.WithLabelValues("backend_absent").Inc()
		return fallbackRetrieval(queryText)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	embedding, err := r.embed(ctx, queryText)
	if err != nil {
		logger.Warn("Embedding failed, using fallback retrieval", zap.Error(err))
		metrics.RetrievalFallbackTotal.WithLabelValues("embedding_error").Inc()
		return fallbackRetrieval(queryText)
	}

	snippets, err := r.searcher.SearchGuidelines(ctx, embedding, r.topK)
	if err != nil {
		logger.Warn("Knowledge index search failed, using fallback retrieval", zap.Error(err))
		metrics.RetrievalFallbackTotal.WithLabelValues("search_error").Inc()
		return fallbackRetrieval(queryText)
	}

	if len(snippets) == 0 {
		metrics.RetrievalFallbackTotal.WithLabelValues("no_hits").Inc()
		return fallbackRetrieval(queryText)
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})
	if len(snippets) > r.topK {
		snippets = snippets[:r.topK]
	}

	logger.Debug("Knowledge retrieved", zap.Int("snippets", len(snippets)))

	return snippets
}

func (r *Retriever) embed(ctx context.Context, queryText string) ([]float32, error) {
	if r.cache == nil {
		return r.embedder.GenerateEmbedding(ctx, queryText)
	}

	textHash := utils.HashString(queryText)

	cached, ok, err := r.cache.GetEmbedding(ctx, textHash)
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
	}
	if ok {
		metrics.CacheHits.WithLabelValues("embedding").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("embedding").Inc()

	embedding, err := r.embedder.GenerateEmbedding(ctx, queryText)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetEmbedding(ctx, textHash, embedding, time.Hour); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}

	return embedding, nil
}

// fallbackKeyword pairs a complaint keyword with the snippet served when
// the knowledge index is unreachable.
type fallbackEntry struct {
	keyword string
	snippet model.KnowledgeSnippet
}

const fallbackScore = 0.8

var fallbackTable = []fallbackEntry{
	{
		keyword: "chest pain",
		snippet: model.KnowledgeSnippet{
			Title:     "Chest Pain Emergency Protocol",
			Content:   "Immediate cardiac evaluation required. Check for STEMI, unstable angina.",
			Specialty: "cardiology",
			Urgency:   "high",
		},
	},
	{
		keyword: "headache",
		snippet: model.KnowledgeSnippet{
			Title:     "Headache Assessment",
			Content:   "Evaluate for secondary causes. Consider imaging for red flags.",
			Specialty: "neurology",
			Urgency:   "medium",
		},
	},
	{
		keyword: "abdominal pain",
		snippet: model.KnowledgeSnippet{
			Title:     "Abdominal Pain Triage",
			Content:   "Rule out surgical emergencies. Consider appendicitis, bowel obstruction.",
			Specialty: "general_surgery",
			Urgency:   "high",
		},
	},
}

// defaultSnippet is returned when no fallback keyword matches; retrieval
// must never return nothing.
var defaultSnippet = model.KnowledgeSnippet{
	Title:     "General Symptom Assessment",
	Content:   "Obtain full history and vital signs. Escalate on red flags or deterioration.",
	Specialty: "general_medicine",
	Score:     0.5,
}

func fallbackRetrieval(queryText string) []model.KnowledgeSnippet {
	logger.Debug("Using fallback knowledge retrieval")

	queryLower := strings.ToLower(queryText)

	retrieved := []model.KnowledgeSnippet{}
	for _, entry := range fallbackTable {
		if strings.Contains(queryLower, entry.keyword) {
			snippet := entry.snippet
			snippet.Score = fallbackScore
			retrieved = append(retrieved, snippet)
		}
	}

	if len(retrieved) == 0 {
		return []model.KnowledgeSnippet{defaultSnippet}
	}
	if len(retrieved) > 3 {
		retrieved = retrieved[:3]
	}

	return retrieved
}
