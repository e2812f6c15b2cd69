package triage

import (
	"fmt"
	"strings"

	"github.com/triage-agent/backend/internal/model"
)

// buildTriagePrompt assembles the structured prompt for the reasoning
// backend from the patient context and retrieved guideline excerpts.
func buildTriagePrompt(report model.SymptomReport, bundle model.ContextBundle, snippets []model.KnowledgeSnippet) string {
	var b strings.Builder

	b.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(&b, "- Age: %d\n", bundle.Demographic.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", bundle.Demographic.Gender)
	fmt.Fprintf(&b, "- Primary Complaint: %s\n", report.PrimaryComplaint)
	fmt.Fprintf(&b, "- Symptoms: %s\n", strings.Join(report.Symptoms, ", "))
	fmt.Fprintf(&b, "- Severity (1-10): %d\n", report.Severity)
	fmt.Fprintf(&b, "- Duration: %s\n", report.Duration)
	fmt.Fprintf(&b, "- Medical History: %s\n", strings.Join(bundle.Medical.ChronicConditions, ", "))
	fmt.Fprintf(&b, "- Current Medications: %s\n", strings.Join(bundle.Medical.CurrentMedications, ", "))
	fmt.Fprintf(&b, "- Allergies: %s\n", strings.Join(bundle.Medical.Allergies, ", "))

	b.WriteString("\nRELEVANT CLINICAL GUIDELINES:\n")
	for _, snippet := range snippets {
		fmt.Fprintf(&b, "- %s: %s\n", snippet.Title, snippet.Content)
	}

	b.WriteString("\nRISK FACTORS:\n")
	b.WriteString(strings.Join(bundle.Risk.RiskFactors, ", "))
	b.WriteString("\n")

	return b.String()
}
