// Package repos provides data access for the review archive.
package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/deepcritic/deepcritic/internal/db/models"
)

// ErrReviewNotFound is returned when no archived review matches the job id.
var ErrReviewNotFound = errors.New("review not found")

// ReviewRepository provides access to archived reviews.
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository instance
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create persists an archived review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	return r.db.WithContext(ctx).Create(review).Error
}

// GetByJobID retrieves an archived review by its job id.
func (r *ReviewRepository) GetByJobID(ctx context.Context, jobID string) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Where(&models.Review{JobID: jobID}).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// List returns archived reviews, newest first.
func (r *ReviewRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Review, error) {
	limit := 10
	offset := 0
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		offset = opts.Offset
	}

	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
