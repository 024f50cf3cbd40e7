package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bookify/internal/domain"
)

type ReviewService struct {
	repo    domain.Repository
	queries *QueryService
	now     func() time.Time
}

func NewReviewService(r domain.Repository, q *QueryService) *ReviewService {
	return &ReviewService{repo: r, queries: q, now: time.Now}
}

// SubmitReview stores a guest review and drops cached review pages so the
// new entry shows up immediately.
func (s *ReviewService) SubmitReview(ctx context.Context, userID string, rating int, description string) (domain.Review, error) {
	rv := domain.Review{
		UserID:      userID,
		Rating:      rating,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := rv.Validate(); err != nil {
		return domain.Review{}, err
	}
	out, err := s.repo.InsertReview(ctx, rv)
	if err != nil {
		return domain.Review{}, err
	}
	if s.queries != nil {
		s.queries.InvalidateReviews(ctx)
	}
	log.Info().Int64("review_id", out.ID).Int("rating", out.Rating).Msg("review submitted")
	return out, nil
}
