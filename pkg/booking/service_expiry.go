package booking

import (
	"context"
	"time"
)

// ExpirePending cancels every pending booking older than the hold TTL and releases its seats.
// The whole batch shares one transaction; a store failure aborts the sweep so the next tick retries it.
// Bookings settled by another writer after selection are skipped.
func (service *Service) ExpirePending(ctx context.Context) (int, error) {
	cutoff := service.nowFn().UTC().Add(-service.holdTTL)
	type expiredBooking struct {
		booking Booking
		seatIDs []SeatID
	}
	var expired []expiredBooking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		expired = nil
		candidates, err := transactionStore.ListExpiredPending(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, candidate := range candidates {
			if candidate.CreatedAt.After(cutoff) {
				continue
			}
			decision, err := Transition(candidate.State, EventExpire)
			if err != nil {
				return err
			}
			applied, seatIDs, err := service.applyDecision(ctx, transactionStore, candidate, decision, nil)
			if err != nil {
				return err
			}
			if !applied {
				continue
			}
			candidate.State = decision.Next
			candidate.UpdatedAt = service.nowFn().UTC()
			expired = append(expired, expiredBooking{booking: candidate, seatIDs: seatIDs})
		}
		return nil
	})
	count := len(expired)
	if operationError != nil {
		count = 0
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationExpireBooking,
		Outcome:   OutcomeExpired,
		Count:     count,
		Error:     operationError,
	})
	if operationError != nil {
		return 0, operationError
	}
	for _, item := range expired {
		service.publish(ctx, LifecycleExpired, item.booking, item.seatIDs)
	}
	return count, nil
}

// CloseElapsedShowtimes marks active showtimes inactive once two thirds of the movie runtime has passed.
func (service *Service) CloseElapsedShowtimes(ctx context.Context) (int, error) {
	now := service.nowFn().UTC()
	var closed []ShowtimeID
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		closed = nil
		showtimes, err := transactionStore.ListActiveShowtimes(ctx)
		if err != nil {
			return err
		}
		for _, showtime := range showtimes {
			if ShowtimeElapsed(showtime, now) {
				closed = append(closed, showtime.ID)
			}
		}
		if len(closed) == 0 {
			return nil
		}
		return transactionStore.DeactivateShowtimes(ctx, closed)
	})
	count := len(closed)
	if operationError != nil {
		count = 0
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationCloseShowtimes,
		Count:     count,
		Error:     operationError,
	})
	if operationError != nil {
		return 0, operationError
	}
	return count, nil
}

// ShowtimeElapsed reports whether two thirds of the movie runtime has passed since the showtime started.
func ShowtimeElapsed(showtime Showtime, now time.Time) bool {
	if showtime.MovieDurationMn <= 0 {
		return false
	}
	threshold := time.Duration(showtime.MovieDurationMn) * time.Minute * 2 / 3
	return !now.Before(showtime.StartTime.Add(threshold))
}
