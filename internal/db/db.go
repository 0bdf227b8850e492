// Package db provides database connectivity for the review archive.
package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deepcritic/deepcritic/internal/db/models"
)

// Options represents database connection configuration options
type Options struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     int
	SSLMode  string
	LogLevel logger.LogLevel
}

func setDefaults(opts Options) Options {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 5432
	}
	if opts.User == "" {
		opts.User = "postgres"
	}
	if opts.DBName == "" {
		opts.DBName = "deepcritic"
	}
	if opts.SSLMode == "" {
		opts.SSLMode = "disable"
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	return opts
}

// New creates a new database connection with the given options and migrates
// the archive schema.
func New(opts Options) (*gorm.DB, error) {
	opts = setDefaults(opts)
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		opts.Host, opts.User, opts.Password, opts.DBName, opts.Port, opts.SSLMode)

	// Ignore record-not-found noise; repositories surface those themselves.
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(&models.Review{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return database, nil
}
