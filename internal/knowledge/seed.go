package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/vector/milvus"
	"github.com/triage-agent/backend/pkg/logger"
)

type seedGuideline struct {
	ID        string
	Title     string
	Content   string
	Specialty string
	Urgency   string
}

var seedGuidelines = []seedGuideline{
	{
		ID:        "chest_pain_1",
		Title:     "Chest Pain Assessment Protocol",
		Content:   "Acute chest pain requires immediate evaluation for cardiovascular causes. Red flags include radiation to left arm, jaw pain, shortness of breath, diaphoresis. Consider STEMI, unstable angina, aortic dissection.",
		Specialty: "cardiology",
		Urgency:   "high",
	},
	{
		ID:        "headache_1",
		Title:     "Headache Triage Guidelines",
		Content:   "Severe sudden-onset headache (thunderclap) warrants immediate imaging for subarachnoid hemorrhage. Progressive headaches with neurological symptoms require urgent evaluation.",
		Specialty: "neurology",
		Urgency:   "medium",
	},
	{
		ID:        "abdominal_1",
		Title:     "Acute Abdominal Pain Protocol",
		Content:   "Right lower quadrant pain with fever and elevated WBC suggests appendicitis. McBurney's point tenderness is classic. Requires surgical consultation.",
		Specialty: "general_surgery",
		Urgency:   "high",
	},
	{
		ID:        "dermatology_1",
		Title:     "Skin Lesion Assessment",
		Content:   "ABCDE criteria for melanoma: Asymmetry, Border irregularity, Color variation, Diameter >6mm, Evolving. Any concerning lesions require dermatology referral.",
		Specialty: "dermatology",
		Urgency:   "medium",
	},
	{
		ID:        "pediatric_1",
		Title:     "Pediatric Fever Guidelines",
		Content:   "Fever in infants <3 months requires immediate evaluation. High fever with petechial rash suggests meningococcemia. Always consider bacterial meningitis.",
		Specialty: "pediatrics",
		Urgency:   "high",
	},
}

// SeedIndex bootstraps the knowledge collection with the baseline guideline
// set. Embedding failures skip the affected guideline rather than aborting
// the seed pass.
func SeedIndex(ctx context.Context, embedder Embedder, index *milvus.Client) error {
	if err := index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	guidelines := make([]milvus.Guideline, 0, len(seedGuidelines))
	for _, g := range seedGuidelines {
		embedding, err := embedder.GenerateEmbedding(ctx, fmt.Sprintf("%s %s", g.Title, g.Content))
		if err != nil {
			logger.Warn("Failed to embed seed guideline",
				zap.String("guideline_id", g.ID),
				zap.Error(err),
			)
			continue
		}

		guidelines = append(guidelines, milvus.Guideline{
			ID:        g.ID,
			Embedding: embedding,
			Title:     g.Title,
			Content:   g.Content,
			Specialty: g.Specialty,
			Urgency:   g.Urgency,
		})
	}

	if len(guidelines) == 0 {
		logger.Warn("No seed guidelines embedded, knowledge index left empty")
		return nil
	}

	if err := index.Insert(ctx, guidelines); err != nil {
		return fmt.Errorf("failed to insert seed guidelines: %w", err)
	}

	logger.Info("Knowledge index seeded", zap.Int("guidelines", len(guidelines)))

	return nil
}
