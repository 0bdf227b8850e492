package main

import (
	"github.com/joho/godotenv"

	"github.com/deepcritic/deepcritic/config"
	"github.com/deepcritic/deepcritic/internal/analyzer"
	"github.com/deepcritic/deepcritic/internal/api/v1/handlers"
	"github.com/deepcritic/deepcritic/internal/app"
	"github.com/deepcritic/deepcritic/internal/db"
	"github.com/deepcritic/deepcritic/internal/db/repos"
	"github.com/deepcritic/deepcritic/internal/jobs"
	"github.com/deepcritic/deepcritic/internal/logger"
	"github.com/deepcritic/deepcritic/internal/notify"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	logger.Initialize()
	cfg := config.Load()

	var reviews *repos.ReviewRepository
	var archiver jobs.Archiver
	if cfg.Database.Enabled() {
		database, err := db.New(db.Options{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
		})
		if err != nil {
			logger.Fatal("failed to connect to review archive: ", err)
		}
		reviews = repos.NewReviewRepository(database)
		archiver = app.NewReviewArchiver(reviews)
		logger.Info("review archive enabled")
	} else {
		logger.Info("no database configured, running with in-memory job state only")
	}

	store := jobs.NewStore()
	hub := notify.NewHub(store)
	runner := jobs.NewRunner(jobs.RunnerOptions{
		Store:    store,
		Notifier: hub,
		Analyzer: analyzer.NewAnthropic(analyzer.AnthropicOptions{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
		}),
		Archiver:     archiver,
		AgentTimeout: cfg.AgentTimeout,
	})

	fiberApp := app.New(app.Deps{
		Store:   store,
		Runner:  runner,
		Hub:     hub,
		Reviews: reviews,
		Limits: handlers.Limits{
			MaxUploadBytes: cfg.MaxUploadBytes,
			MaxPromptChars: cfg.MaxPromptChars,
		},
	})

	logger.Infof("listening on :%s", cfg.Port)
	logger.Fatal(fiberApp.Listen(":" + cfg.Port))
}
