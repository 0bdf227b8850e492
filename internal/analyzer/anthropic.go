package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deepcritic/deepcritic/internal/review"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultTimeout   = 120 * time.Second
	apiVersion       = "2023-06-01"
	maxOutputTokens  = 2048
	reviewDirections = "Respond with a JSON object with the fields feedback (string), " +
		"confidence (number between 0 and 1), assessment (one-line string), " +
		"strengths (array of strings), weaknesses (array of strings) and keyPoints (array of strings)."
)

// AnthropicOptions configures the Anthropic-backed analyzer.
type AnthropicOptions struct {
	// APIKey authenticates against the messages endpoint
	APIKey string
	// BaseURL overrides the API host, mainly for tests
	BaseURL string
	// Timeout bounds a single analysis call when the context carries no deadline
	Timeout time.Duration
}

// Anthropic calls the Anthropic messages API with the document attached and
// parses the model's JSON reply into agent feedback.
type Anthropic struct {
	apiKey  string
	baseURL string
	timeout time.Duration
}

// NewAnthropic creates an Anthropic-backed analyzer.
func NewAnthropic(opts AnthropicOptions) *Anthropic {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	return &Anthropic{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		timeout: opts.Timeout,
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the document and prompt to the agent's model and parses the
// structured feedback out of the reply.
func (a *Anthropic) Analyze(ctx context.Context, agent review.Agent, doc Document, prompt string) (review.AgentFeedback, error) {
	req := messagesRequest{
		Model:     agent.Model,
		MaxTokens: maxOutputTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "document",
					Source: &documentSource{
						Type:      "base64",
						MediaType: "application/pdf",
						Data:      base64.StdEncoding.EncodeToString(doc.Content),
					},
				},
				{Type: "text", Text: prompt + "\n\n" + reviewDirections},
			},
		}},
	}

	agentReq := fiber.Post(a.baseURL + "/v1/messages")
	if deadline, ok := ctx.Deadline(); ok {
		agentReq.Timeout(time.Until(deadline))
	} else {
		agentReq.Timeout(a.timeout)
	}
	agentReq.Set("x-api-key", a.apiKey)
	agentReq.Set("anthropic-version", apiVersion)
	agentReq.Set("Content-Type", "application/json")
	agentReq.JSON(req)

	code, body, errs := agentReq.Bytes()
	if len(errs) > 0 {
		return review.AgentFeedback{}, fmt.Errorf("analysis request failed: %w", errs[0])
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return review.AgentFeedback{}, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	if code != http.StatusOK {
		if resp.Error != nil {
			return review.AgentFeedback{}, fmt.Errorf("analysis failed (%d): %s", code, resp.Error.Message)
		}
		return review.AgentFeedback{}, fmt.Errorf("analysis failed with status %d", code)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return review.AgentFeedback{}, fmt.Errorf("analysis response contained no text content")
	}

	return parseFeedback(text)
}

// parseFeedback decodes the model reply, stripping a markdown code fence if
// the model wrapped its JSON in one. A reply that is not valid JSON is kept
// as free-form feedback rather than treated as a failure.
func parseFeedback(text string) (review.AgentFeedback, error) {
	payload := strings.TrimSpace(text)
	if idx := strings.Index(payload, "```json"); idx >= 0 {
		payload = payload[idx+len("```json"):]
		if end := strings.Index(payload, "```"); end >= 0 {
			payload = payload[:end]
		}
	}

	var fb review.AgentFeedback
	if err := json.Unmarshal([]byte(payload), &fb); err != nil {
		return review.AgentFeedback{Feedback: text, Confidence: 0.5}, nil
	}
	if fb.Feedback == "" {
		fb.Feedback = text
	}
	return fb, nil
}
