package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinRating            = 1
	MaxRating            = 5
	MaxReviewDescription = 500
)

type Review struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Rating      int       `json:"rating"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r Review) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidReview)
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidReview, MinRating, MaxRating)
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Description)) > MaxReviewDescription {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidReview, MaxReviewDescription)
	}
	return nil
}
