// Package analyzer defines the document-analysis collaborator the job
// runner invokes once per selected agent.
package analyzer

import (
	"context"

	"github.com/deepcritic/deepcritic/internal/review"
)

// Document is the uploaded document handed to an agent for analysis.
type Document struct {
	Title   string
	Content []byte
}

// Analyzer produces one agent's feedback for a document. Implementations
// may block on network I/O; callers bound each invocation with the context.
type Analyzer interface {
	Analyze(ctx context.Context, agent review.Agent, doc Document, prompt string) (review.AgentFeedback, error)
}
