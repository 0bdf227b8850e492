package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/deepcritic/deepcritic/internal/db/models"
)

type ReviewRepoTestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Repo *ReviewRepository
}

func (s *ReviewRepoTestSuite) SetupTest() {
	var err error
	s.DB, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		s.T().Fatal("failed to connect database")
	}

	err = s.DB.AutoMigrate(&models.Review{})
	if err != nil {
		s.T().Fatal("failed to migrate database schema")
	}

	s.Repo = NewReviewRepository(s.DB)
}

func (s *ReviewRepoTestSuite) TearDownTest() {
	sqlDB, err := s.DB.DB()
	if err == nil {
		s.NoError(sqlDB.Close())
	}
}

func TestReviewRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ReviewRepoTestSuite))
}

func (s *ReviewRepoTestSuite) TestCreateAndGetByJobID() {
	result, err := json.Marshal(map[string]string{"summary": "solid paper"})
	s.Require().NoError(err)

	review := &models.Review{
		JobID:         "job-1",
		DocumentTitle: "paper.pdf",
		Prompt:        "review this",
		Status:        "completed",
		Result:        result,
	}
	s.Require().NoError(s.Repo.Create(context.Background(), review))

	got, err := s.Repo.GetByJobID(context.Background(), "job-1")
	s.Require().NoError(err)
	s.Equal("paper.pdf", got.DocumentTitle)
	s.Equal("completed", got.Status)
	s.JSONEq(`{"summary":"solid paper"}`, string(got.Result))
}

func (s *ReviewRepoTestSuite) TestCreateRequiresJobID() {
	err := s.Repo.Create(context.Background(), &models.Review{Status: "completed"})
	s.Error(err)
}

func (s *ReviewRepoTestSuite) TestGetByJobIDNotFound() {
	_, err := s.Repo.GetByJobID(context.Background(), "missing")
	s.ErrorIs(err, ErrReviewNotFound)
}

func (s *ReviewRepoTestSuite) TestListNewestFirstWithPagination() {
	for i := 1; i <= 5; i++ {
		s.Require().NoError(s.Repo.Create(context.Background(), &models.Review{
			JobID:  fmt.Sprintf("job-%d", i),
			Status: "completed",
		}))
	}

	page, err := s.Repo.List(context.Background(), &models.ListOptions{Limit: 2})
	s.Require().NoError(err)
	s.Len(page, 2)

	rest, err := s.Repo.List(context.Background(), &models.ListOptions{Limit: 10, Offset: 2})
	s.Require().NoError(err)
	s.Len(rest, 3)

	// Defaults apply when no options are given.
	all, err := s.Repo.List(context.Background(), nil)
	s.Require().NoError(err)
	s.Len(all, 5)
}
