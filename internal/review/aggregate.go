package review

import (
	"fmt"
	"strings"
	"time"
)

// Aggregate combines the feedback collected per agent into the final report.
// Attribution is keyed by agent id and agents are walked in their selection
// order, so the output is deterministic regardless of the order results
// arrived in. Agents without an entry in feedback (failed calls) are simply
// absent from the report; with zero successful agents the report is empty
// but well-formed.
func Aggregate(title, prompt string, agents []Agent, feedback map[string]AgentFeedback, elapsed time.Duration) *Report {
	report := &Report{
		KeyFindings:       []KeyFinding{},
		Strengths:         []string{},
		Weaknesses:        []string{},
		ComparisonAspects: []ComparisonAspect{},
		AgentResults:      []AgentResult{},
		Metadata: Metadata{
			DocumentTitle:  title,
			PromptUsed:     prompt,
			ProcessingTime: int(elapsed.Seconds()),
		},
	}

	assessments := make(map[string]string)
	confidences := make(map[string]string)
	seenStrength := make(map[string]bool)
	seenWeakness := make(map[string]bool)

	for _, agent := range agents {
		fb, ok := feedback[agent.ID]
		if !ok {
			continue
		}

		report.AgentResults = append(report.AgentResults, AgentResult{
			AgentID:    agent.ID,
			AgentName:  agent.Name,
			Feedback:   fb.Feedback,
			Confidence: fb.Confidence,
			KeyPoints:  fb.KeyPoints,
		})

		for i, s := range fb.Strengths {
			if !seenStrength[s] {
				seenStrength[s] = true
				report.Strengths = append(report.Strengths, s)
			}
			// At most two strengths per agent are promoted to key findings.
			if i < 2 {
				report.KeyFindings = append(report.KeyFindings, KeyFinding{Type: FindingStrength, Text: s})
			}
		}
		for i, w := range fb.Weaknesses {
			if !seenWeakness[w] {
				seenWeakness[w] = true
				report.Weaknesses = append(report.Weaknesses, w)
			}
			if i < 1 {
				report.KeyFindings = append(report.KeyFindings, KeyFinding{Type: FindingConcern, Text: w})
			}
		}

		assessments[agent.Name] = overallAssessment(fb)
		confidences[agent.Name] = fmt.Sprintf("%.0f%%", fb.Confidence*100)
	}

	if len(report.AgentResults) > 0 {
		report.ComparisonAspects = append(report.ComparisonAspects,
			ComparisonAspect{Name: "Overall Assessment", Values: assessments},
			ComparisonAspect{Name: "Confidence", Values: confidences},
		)
	}

	report.Summary = buildSummary(agents, report.AgentResults)
	return report
}

// overallAssessment picks a one-line assessment for the comparison table.
func overallAssessment(fb AgentFeedback) string {
	if fb.Assessment != "" {
		return fb.Assessment
	}
	if len(fb.KeyPoints) > 0 {
		return fb.KeyPoints[0]
	}
	return firstSentence(fb.Feedback)
}

func buildSummary(agents []Agent, results []AgentResult) string {
	if len(results) == 0 {
		return "No agent completed the review; no feedback is available for this document."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d agents completed the review.", len(results), len(agents))
	for _, r := range results {
		lead := firstSentence(r.Feedback)
		if lead == "" {
			continue
		}
		fmt.Fprintf(&b, " %s: %s", r.AgentName, lead)
	}
	return b.String()
}

// firstSentence returns the text up to and including the first period, or
// the whole trimmed text when it contains none.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, ". "); idx >= 0 {
		return text[:idx+1]
	}
	return text
}
