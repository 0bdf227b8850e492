// Package app assembles the fiber application from its injected
// dependencies so tests can build isolated instances.
package app

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/deepcritic/deepcritic/internal/api/v1/handlers"
	"github.com/deepcritic/deepcritic/internal/api/v1/middleware"
	"github.com/deepcritic/deepcritic/internal/api/v1/routes"
	dbmodels "github.com/deepcritic/deepcritic/internal/db/models"
	"github.com/deepcritic/deepcritic/internal/db/repos"
	"github.com/deepcritic/deepcritic/internal/jobs"
	"github.com/deepcritic/deepcritic/internal/notify"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Store  *jobs.Store
	Runner *jobs.Runner
	Hub    *notify.Hub
	// Reviews is nil when no archive database is configured
	Reviews *repos.ReviewRepository
	Limits  handlers.Limits
}

// New creates the fiber application with all routes registered.
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		// Leave headroom above the document cap for the rest of the form.
		BodyLimit:    deps.Limits.MaxUploadBytes + 1024*1024,
		ErrorHandler: errorHandler,
	})

	app.Use(middleware.Logger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	reviewHandler := handlers.NewReviewHandler(deps.Store, deps.Runner, deps.Reviews, deps.Limits)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)
	routes.Register(app, reviewHandler, wsHandler)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}

// ReviewArchiver adapts the review repository to the runner's archiver.
type ReviewArchiver struct {
	repo *repos.ReviewRepository
}

// NewReviewArchiver creates an archiver writing into the given repository.
func NewReviewArchiver(repo *repos.ReviewRepository) *ReviewArchiver {
	return &ReviewArchiver{repo: repo}
}

// Save persists a terminal job outcome as an archived review.
func (a *ReviewArchiver) Save(ctx context.Context, entry jobs.ArchiveEntry) error {
	record := &dbmodels.Review{
		JobID:         entry.JobID,
		DocumentTitle: entry.DocumentTitle,
		Prompt:        entry.Prompt,
		Status:        entry.Status.String(),
		Error:         entry.Error,
	}
	if entry.Report != nil {
		result, err := json.Marshal(entry.Report)
		if err != nil {
			return err
		}
		record.Result = result
	}
	return a.repo.Create(ctx, record)
}
