package review

// FindingType classifies a key finding in the aggregated report.
type FindingType string

// Finding type constants
const (
	FindingStrength FindingType = "strength"
	FindingConcern  FindingType = "concern"
)

// KeyFinding is a single highlighted observation in the aggregated report.
type KeyFinding struct {
	Type FindingType `json:"type"`
	Text string      `json:"text"`
}

// ComparisonAspect compares the agents along one dimension, keyed by agent
// display name.
type ComparisonAspect struct {
	Name   string            `json:"name"`
	Values map[string]string `json:"values"`
}

// AgentFeedback is the raw outcome of one agent's analysis, as returned by
// the document analyzer.
type AgentFeedback struct {
	Feedback   string   `json:"feedback"`
	Confidence float64  `json:"confidence"`
	Assessment string   `json:"assessment"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	KeyPoints  []string `json:"keyPoints"`
}

// AgentResult is one agent's contribution as it appears in the final report.
type AgentResult struct {
	AgentID    string   `json:"agentId"`
	AgentName  string   `json:"agentName"`
	Feedback   string   `json:"feedback"`
	Confidence float64  `json:"confidence"`
	KeyPoints  []string `json:"keyPoints,omitempty"`
}

// Metadata describes the reviewed document and how the review was run.
type Metadata struct {
	DocumentTitle  string `json:"documentTitle"`
	PromptUsed     string `json:"promptUsed"`
	ProcessingTime int    `json:"processingTime"`
}

// Report is the aggregated, user-facing output of a completed review.
type Report struct {
	Summary           string             `json:"summary"`
	KeyFindings       []KeyFinding       `json:"keyFindings"`
	Strengths         []string           `json:"strengths"`
	Weaknesses        []string           `json:"weaknesses"`
	ComparisonAspects []ComparisonAspect `json:"comparisonAspects"`
	AgentResults      []AgentResult      `json:"agentResults"`
	Metadata          Metadata           `json:"metadata"`
}
