// Package client provides a typed HTTP client for the review API, used by
// the CLI and by integration tests.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// DefaultBaseURL is the default address of a locally running server
const DefaultBaseURL = "http://localhost:8080"

// Client defines the interface for interacting with the review API
type Client interface {
	// SubmitReview uploads a document for review and returns the job id
	SubmitReview(ctx context.Context, filename string, document []byte, prompt string, agents []string) (string, error)
	// GetStatus returns the current snapshot of a job
	GetStatus(ctx context.Context, jobID string) (*JobStatus, error)
	// GetResults returns the final report, or the interim state while the job runs
	GetResults(ctx context.Context, jobID string) (*Results, error)
	// ListAgents returns the configured agents
	ListAgents(ctx context.Context) ([]Agent, error)
	// HealthCheck verifies the server is reachable
	HealthCheck(ctx context.Context) error
}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string
	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// New creates a new API client with the given options
func New(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
	}, nil
}

// createAgent creates a fiber Agent for the given method and endpoint with
// the timeout taken from the context deadline when one is set.
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Accept", "application/json")
	return agent, nil
}

// SubmitReview uploads a document for review and returns the job id.
func (c *APIClient) SubmitReview(ctx context.Context, filename string, document []byte, prompt string, agents []string) (string, error) {
	agentsJSON, err := json.Marshal(agents)
	if err != nil {
		return "", fmt.Errorf("failed to encode agents: %w", err)
	}

	agent, err := c.createAgent(ctx, http.MethodPost, "/api/review")
	if err != nil {
		return "", err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("prompt", prompt)
	args.Set("agents", string(agentsJSON))

	agent.FileData(&fiber.FormFile{
		Fieldname: "file",
		Name:      filename,
		Content:   document,
	})
	agent.MultipartForm(args)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("submit request failed: %w", errs[0])
	}
	if code != http.StatusAccepted {
		return "", decodeError(code, body)
	}

	var out submitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	return out.JobID, nil
}

// GetStatus returns the current snapshot of a job.
func (c *APIClient) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	code, body, err := c.get(ctx, "/api/review/"+url.PathEscape(jobID))
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, decodeError(code, body)
	}

	var status JobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}

// GetResults returns the final report, or the interim state while the job
// is still processing.
func (c *APIClient) GetResults(ctx context.Context, jobID string) (*Results, error) {
	code, body, err := c.get(ctx, "/api/review/"+url.PathEscape(jobID)+"/results")
	if err != nil {
		return nil, err
	}

	switch code {
	case http.StatusOK:
		return &Results{Report: json.RawMessage(body)}, nil
	case http.StatusAccepted:
		var interim processingResponse
		if err := json.Unmarshal(body, &interim); err != nil {
			return nil, fmt.Errorf("failed to decode interim response: %w", err)
		}
		return &Results{Processing: &JobStatus{
			JobID:    jobID,
			Status:   interim.Status,
			Progress: interim.Progress,
		}}, nil
	default:
		return nil, decodeError(code, body)
	}
}

// ListAgents returns the configured agents.
func (c *APIClient) ListAgents(ctx context.Context) ([]Agent, error) {
	code, body, err := c.get(ctx, "/api/agents")
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, decodeError(code, body)
	}

	var out agentsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode agents response: %w", err)
	}
	return out.Agents, nil
}

// HealthCheck verifies the server is reachable.
func (c *APIClient) HealthCheck(ctx context.Context) error {
	code, _, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", code)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, endpoint string) (int, []byte, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, endpoint)
	if err != nil {
		return 0, nil, err
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("request failed: %w", errs[0])
	}
	return code, body, nil
}

func decodeError(code int, body []byte) error {
	var out errorResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Message != "" {
		return fmt.Errorf("%s (status %d)", out.Message, code)
	}
	return fmt.Errorf("request failed with status %d", code)
}
