package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/deepcritic/deepcritic/internal/db/models"
	"github.com/deepcritic/deepcritic/internal/db/repos"
	"github.com/deepcritic/deepcritic/internal/jobs"
	"github.com/deepcritic/deepcritic/internal/logger"
	"github.com/deepcritic/deepcritic/internal/review"
)

// Limits are the ingress validation constraints. Requests violating them are
// rejected before a job is created.
type Limits struct {
	MaxUploadBytes int
	MaxPromptChars int
}

// ReviewHandler handles HTTP requests for review operations.
type ReviewHandler struct {
	store   *jobs.Store
	runner  *jobs.Runner
	reviews *repos.ReviewRepository // nil when no archive is configured
	limits  Limits
}

// NewReviewHandler creates a new review handler instance
func NewReviewHandler(store *jobs.Store, runner *jobs.Runner, reviews *repos.ReviewRepository, limits Limits) *ReviewHandler {
	return &ReviewHandler{store: store, runner: runner, reviews: reviews, limits: limits}
}

// Submit handles the request to start a new document review. It validates
// the multipart form, creates the job and schedules the runner, returning
// the job id before any agent work begins.
func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("No file uploaded"))
	}
	if fileHeader.Size > int64(h.limits.MaxUploadBytes) {
		return c.Status(fiber.StatusBadRequest).
			JSON(errMessage(fmt.Sprintf("File exceeds the %d byte limit", h.limits.MaxUploadBytes)))
	}
	if !isPDF(fileHeader.Header.Get("Content-Type"), fileHeader.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("Only PDF files are allowed"))
	}

	prompt := c.FormValue("prompt")
	if prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("Prompt is required"))
	}
	// The limit is in characters; multibyte prompts must not be penalized.
	if utf8.RuneCountInString(prompt) > h.limits.MaxPromptChars {
		return c.Status(fiber.StatusBadRequest).
			JSON(errMessage(fmt.Sprintf("Prompt exceeds %d characters", h.limits.MaxPromptChars)))
	}

	var agentIDs []string
	if err := json.Unmarshal([]byte(c.FormValue("agents")), &agentIDs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("Invalid agents format"))
	}
	if len(agentIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("At least one agent must be selected"))
	}
	agents := review.Resolve(agentIDs)
	if len(agents) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("No valid agents selected"))
	}
	// The job tracks exactly the agents that will run; unknown ids and
	// duplicates are dropped here so no status entry stays waiting forever.
	resolvedIDs := make([]string, len(agents))
	for i, agent := range agents {
		resolvedIDs[i] = agent.ID
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("Failed to read uploaded file"))
	}
	defer func() { _ = file.Close() }()
	content, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errMessage("Failed to read uploaded file"))
	}

	snap := h.store.Create(resolvedIDs)
	h.runner.Schedule(jobs.Request{
		JobID:         snap.JobID,
		DocumentTitle: fileHeader.Filename,
		Document:      content,
		Prompt:        prompt,
		AgentIDs:      resolvedIDs,
	})

	logger.InfoWithFields("Review submitted", map[string]interface{}{
		"job_id": snap.JobID,
		"agents": resolvedIDs,
		"size":   fileHeader.Size,
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId":   snap.JobID,
		"message": "Document submitted for processing",
	})
}

// Status handles the polling request for a job's current snapshot.
func (h *ReviewHandler) Status(c *fiber.Ctx) error {
	snap, err := h.store.Get(c.Params("jobId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errMessage("Job not found"))
	}
	return c.JSON(snap)
}

// Results handles the request for a job's final report. While the job is
// still running it answers 202 so the caller knows to retry, which is not an
// error. Jobs unknown to the in-memory store are looked up in the archive.
func (h *ReviewHandler) Results(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	snap, err := h.store.Get(jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		return h.archivedResult(c, jobID)
	}

	if snap.Status != jobs.StatusCompleted {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message":  "Job is still processing",
			"status":   snap.Status,
			"progress": snap.Progress,
		})
	}

	report, err := h.store.Result(jobID)
	if err != nil || report == nil {
		return c.Status(fiber.StatusNotFound).JSON(errMessage("Job not found"))
	}
	return c.JSON(report)
}

// ListReviews handles the request to list archived reviews.
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	if h.reviews == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errMessage("Review archive is not configured"))
	}

	opts := &models.ListOptions{
		Limit:  c.QueryInt("limit", 10),
		Offset: c.QueryInt("offset", 0),
	}
	reviews, err := h.reviews.List(c.Context(), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errMessage("Failed to list reviews"))
	}
	return c.JSON(reviews)
}

func (h *ReviewHandler) archivedResult(c *fiber.Ctx, jobID string) error {
	if h.reviews == nil {
		return c.Status(fiber.StatusNotFound).JSON(errMessage("Job not found"))
	}
	archived, err := h.reviews.GetByJobID(c.Context(), jobID)
	if err != nil || archived.Status != jobs.StatusCompleted.String() || len(archived.Result) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(errMessage("Job not found"))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(archived.Result)
}

func isPDF(contentType, filename string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return contentType == "" && strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
