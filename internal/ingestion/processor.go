package ingestion

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/llm"
	"github.com/triage-agent/backend/internal/metrics"
	"github.com/triage-agent/backend/internal/storage/sqlite"
	"github.com/triage-agent/backend/internal/vector/milvus"
	"github.com/triage-agent/backend/pkg/logger"
	"github.com/triage-agent/backend/pkg/utils"
)

const maxGuidelineContent = 4000

// Processor turns raw clinical guideline pages into indexed knowledge.
// Each page becomes one guideline record in SQLite plus one embedded point
// in the knowledge index.
type Processor struct {
	db        *sqlite.Client
	vectorDB  *milvus.Client
	llmClient *llm.Client
}

func NewProcessor(db *sqlite.Client, vectorDB *milvus.Client, llmClient *llm.Client) *Processor {
	return &Processor{
		db:        db,
		vectorDB:  vectorDB,
		llmClient: llmClient,
	}
}

func (p *Processor) ProcessGuideline(ctx context.Context, sourceURL, htmlContent string) error {
	logger.Info("Processing guideline", zap.String("url", sourceURL))

	content := p.cleanHTML(htmlContent)
	if content == "" {
		return fmt.Errorf("no content extracted from HTML")
	}
	if len(content) > maxGuidelineContent {
		content = content[:maxGuidelineContent]
	}

	title := p.extractTitle(htmlContent)
	specialty := classifySpecialty(title + " " + content)
	urgency := classifyUrgency(content)

	guidelineID := utils.HashString(sourceURL)

	err := p.db.InsertGuideline(guidelineID, title, content, specialty, urgency, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to store guideline: %w", err)
	}

	embedding, err := p.llmClient.GenerateEmbedding(ctx, title+" "+content)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	err = p.vectorDB.Insert(ctx, []milvus.Guideline{{
		ID:        guidelineID,
		Embedding: embedding,
		Title:     title,
		Content:   content,
		Specialty: specialty,
		Urgency:   urgency,
	}})
	if err != nil {
		return fmt.Errorf("failed to index guideline: %w", err)
	}

	metrics.GuidelinesIngested.Inc()

	logger.Info("Guideline indexed",
		zap.String("guideline_id", guidelineID),
		zap.String("title", title),
		zap.String("specialty", specialty),
		zap.String("urgency", urgency),
	)

	return nil
}

func (p *Processor) cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()

	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return text
}

func (p *Processor) extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "Untitled"
	}

	title := doc.Find("title").First().Text()
	if title == "" {
		title = doc.Find("h1").First().Text()
	}

	if title == "" {
		title = "Untitled"
	}

	return strings.TrimSpace(title)
}

var specialtyMarkers = []struct {
	specialty string
	keywords  []string
}{
	{"cardiology", []string{"chest pain", "cardiac", "heart", "palpitation", "angina"}},
	{"neurology", []string{"headache", "migraine", "seizure", "stroke", "neurological"}},
	{"gastroenterology", []string{"abdominal", "stomach", "nausea", "digestive", "bowel"}},
	{"dermatology", []string{"skin", "rash", "lesion", "dermatitis", "mole"}},
	{"orthopedics", []string{"joint", "fracture", "bone", "sprain", "musculoskeletal"}},
	{"pediatrics", []string{"pediatric", "child", "infant", "fever in children"}},
}

// classifySpecialty picks the specialty whose marker keywords occur most
// often in the text.
func classifySpecialty(text string) string {
	textLower := strings.ToLower(text)

	best := "general_medicine"
	bestCount := 0
	for _, marker := range specialtyMarkers {
		count := 0
		for _, keyword := range marker.keywords {
			count += strings.Count(textLower, keyword)
		}
		if count > bestCount {
			best = marker.specialty
			bestCount = count
		}
	}

	return best
}

func classifyUrgency(text string) string {
	textLower := strings.ToLower(text)

	highMarkers := []string{"emergency", "immediate", "life-threatening", "call 911", "urgent care"}
	for _, marker := range highMarkers {
		if strings.Contains(textLower, marker) {
			return "high"
		}
	}

	mediumMarkers := []string{"prompt evaluation", "within 24 hours", "same day", "worsening"}
	for _, marker := range mediumMarkers {
		if strings.Contains(textLower, marker) {
			return "medium"
		}
	}

	return "low"
}
