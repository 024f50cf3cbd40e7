package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// CompleteDueStays completes up to batch due stays with at most workers
// transactions in flight and returns how many changed state. Individual
// failures are logged and skipped.
func (s *BookingService) CompleteDueStays(ctx context.Context, workers, batch int) (int, error) {
	due, err := s.DueForCompletion(ctx, batch)
	if err != nil {
		return 0, err
	}
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)
	for _, b := range due {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer sem.Release(1)

			ok, err := s.CompleteStay(ctx, id)
			switch {
			case err != nil:
				log.Warn().Int64("booking_id", id).Err(err).Msg("complete failed")
			case ok:
				done.Add(1)
				log.Info().Int64("booking_id", id).Msg("stay completed")
			}
		}(b.ID)
	}
	wg.Wait()
	return int(done.Load()), ctx.Err()
}
