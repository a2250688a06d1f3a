package domain

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"example.com/fitsync/internal/observability"
)

// workoutSessionsTable is the sync table whose inserts trigger a streak recompute.
const workoutSessionsTable = "workout_sessions"

var errMissingID = errors.New("missing id in change data")

// SyncStore applies user-scoped mutations and backs the streak calculator.
// Every write re-asserts user_id = userID server-side; payload contents can
// never redirect a mutation to another user's rows.
type SyncStore interface {
	Insert(ctx context.Context, table, userID string, data map[string]any) (map[string]any, error)
	// Update returns a nil row and nil error when no row matched the id/user pair.
	Update(ctx context.Context, table, userID string, id any, data map[string]any) (map[string]any, error)
	Delete(ctx context.Context, table, userID string, id any) error

	RecentSessionStarts(ctx context.Context, userID string, limit int) ([]time.Time, error)
	StreakCounters(ctx context.Context, userID string) (current, longest int, err error)
	// SetStreak updates current_streak, and longest_streak when longest is non-nil.
	SetStreak(ctx context.Context, userID string, current int, longest *int) error
}

// SyncOutcome accumulates per-change results and errors for one batch.
type SyncOutcome struct {
	Results []SyncItemResult
	Errors  []SyncItemError
}

// SyncService applies offline-recorded client change batches.
type SyncService struct {
	store SyncStore
	now   func() time.Time
}

// NewSyncService constructs a SyncService.
func NewSyncService(store SyncStore) *SyncService {
	return &SyncService{store: store, now: time.Now}
}

// Apply processes changes strictly in order so a later change can depend on an
// earlier one in the same batch. A failing item is recorded and processing
// continues. When the batch contains a workout-session insert the user's
// streak is recomputed once, best-effort.
func (s *SyncService) Apply(ctx context.Context, userID string, changes []SyncChange) SyncOutcome {
	outcome := SyncOutcome{
		Results: make([]SyncItemResult, 0, len(changes)),
		Errors:  make([]SyncItemError, 0),
	}

	for _, change := range changes {
		row, err := s.applyChange(ctx, userID, change)
		observability.RecordSyncChange(string(change.Operation), err == nil)
		if err != nil {
			outcome.Errors = append(outcome.Errors, SyncItemError{
				LocalID: change.LocalID,
				Table:   change.Table,
				Error:   err.Error(),
			})
			continue
		}
		outcome.Results = append(outcome.Results, SyncItemResult{
			LocalID:    change.LocalID,
			Table:      change.Table,
			ServerData: row,
			Success:    true,
		})
	}

	for _, change := range changes {
		if change.Table == workoutSessionsTable && change.Operation == SyncOpInsert {
			if err := s.updateStreak(ctx, userID); err != nil {
				log.Printf("failed to update streak for user %s: %v", userID, err)
			}
			break
		}
	}

	return outcome
}

func (s *SyncService) applyChange(ctx context.Context, userID string, change SyncChange) (map[string]any, error) {
	switch change.Operation {
	case SyncOpInsert:
		return s.store.Insert(ctx, change.Table, userID, change.Data)
	case SyncOpUpdate:
		id, ok := change.Data["id"]
		if !ok {
			return nil, errMissingID
		}
		// A zero-row match comes back as a nil row with no error and is
		// reported as a nominal success; clients rely on this.
		return s.store.Update(ctx, change.Table, userID, id, change.Data)
	case SyncOpDelete:
		id, ok := change.Data["id"]
		if !ok {
			return nil, errMissingID
		}
		return nil, s.store.Delete(ctx, change.Table, userID, id)
	default:
		return nil, errors.New("unknown operation: " + string(change.Operation))
	}
}

// updateStreak recomputes the daily workout streak from the two most recent
// session start times. Same-day sessions leave the streak alone, a one-day gap
// increments it, anything else resets it to 1 without touching the longest
// streak.
func (s *SyncService) updateStreak(ctx context.Context, userID string) error {
	starts, err := s.store.RecentSessionStarts(ctx, userID, 2)
	if err != nil {
		return err
	}
	if len(starts) == 0 {
		return nil
	}

	daysDiff := int(math.Floor(s.now().Sub(starts[0]).Hours() / 24))

	switch {
	case daysDiff == 0:
		return nil
	case daysDiff == 1:
		current, longest, err := s.store.StreakCounters(ctx, userID)
		if err != nil {
			return err
		}
		newStreak := current + 1
		newLongest := longest
		if newStreak > newLongest {
			newLongest = newStreak
		}
		if err := s.store.SetStreak(ctx, userID, newStreak, &newLongest); err != nil {
			return err
		}
	default:
		if err := s.store.SetStreak(ctx, userID, 1, nil); err != nil {
			return err
		}
	}

	observability.RecordStreakUpdate()
	return nil
}
