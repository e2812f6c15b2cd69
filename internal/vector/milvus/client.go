package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

// Client fronts the medical knowledge index. Each point carries the
// guideline payload the retriever maps into a KnowledgeSnippet.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

type Guideline struct {
	ID        string
	Embedding []float32
	Title     string
	Content   string
	Specialty string
	Urgency   string
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Clinical guideline embeddings",
		Fields: []*entity.Field{
			{
				Name:       "guideline_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "specialty",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "urgency",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, guidelines []Guideline) error {
	if len(guidelines) == 0 {
		return nil
	}

	ids := make([]string, len(guidelines))
	embeddings := make([][]float32, len(guidelines))
	titles := make([]string, len(guidelines))
	contents := make([]string, len(guidelines))
	specialties := make([]string, len(guidelines))
	urgencies := make([]string, len(guidelines))

	for i, g := range guidelines {
		ids[i] = g.ID
		embeddings[i] = g.Embedding
		titles[i] = g.Title
		contents[i] = g.Content
		specialties[i] = g.Specialty
		urgencies[i] = g.Urgency
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("guideline_id", ids),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("specialty", specialties),
		entity.NewColumnVarChar("urgency", urgencies),
	)

	if err != nil {
		return fmt.Errorf("failed to insert guidelines: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Guidelines inserted into knowledge index", zap.Int("count", len(guidelines)))

	return nil
}

// SearchGuidelines runs a top-k similarity search and maps each hit's
// payload into a KnowledgeSnippet carrying the similarity score.
func (m *Client) SearchGuidelines(ctx context.Context, queryEmbedding []float32, topK int) ([]model.KnowledgeSnippet, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		"",
		[]string{"guideline_id", "title", "content", "specialty", "urgency"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	snippets := make([]model.KnowledgeSnippet, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			titleCol := sr.Fields.GetColumn("title")
			contentCol := sr.Fields.GetColumn("content")
			specialtyCol := sr.Fields.GetColumn("specialty")
			urgencyCol := sr.Fields.GetColumn("urgency")

			title, _ := titleCol.Get(i)
			content, _ := contentCol.Get(i)
			specialty, _ := specialtyCol.Get(i)
			urgency, _ := urgencyCol.Get(i)

			snippets = append(snippets, model.KnowledgeSnippet{
				Title:     title.(string),
				Content:   content.(string),
				Specialty: specialty.(string),
				Urgency:   urgency.(string),
				Score:     float64(sr.Scores[i]),
			})
		}
	}

	logger.Debug("Knowledge index search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(snippets)),
	)

	return snippets, nil
}
