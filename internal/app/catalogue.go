package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bookify/internal/domain"
)

// CatalogueService loads room types and rooms and keeps the read cache in
// step with what was written.
type CatalogueService struct {
	w       domain.CatalogueWriter
	queries *QueryService
}

func NewCatalogueService(w domain.CatalogueWriter, q *QueryService) *CatalogueService {
	return &CatalogueService{w: w, queries: q}
}

// Import upserts room types first, then rooms, and invalidates the cached
// catalogue. Nothing is written when any entry is invalid. The cache is
// invalidated even when a write fails part way.
func (s *CatalogueService) Import(ctx context.Context, c domain.Catalogue) error {
	if err := c.Validate(); err != nil {
		return err
	}

	written := make([]int64, 0, len(c.Rooms))
	err := func() error {
		for _, t := range c.RoomTypes {
			if err := s.w.UpsertRoomType(ctx, t); err != nil {
				return fmt.Errorf("room type %d: %w", t.ID, err)
			}
		}
		for _, r := range c.Rooms {
			if err := s.w.UpsertRoom(ctx, r); err != nil {
				return fmt.Errorf("room %d: %w", r.ID, err)
			}
			written = append(written, r.ID)
		}
		return nil
	}()

	if ierr := s.queries.InvalidateCatalogue(ctx, written...); ierr != nil {
		log.Warn().Err(ierr).Msg("catalogue cache invalidation failed")
		if err == nil {
			err = ierr
		}
	}
	if err != nil {
		return err
	}
	log.Info().Int("room_types", len(c.RoomTypes)).Int("rooms", len(c.Rooms)).Msg("catalogue imported")
	return nil
}
