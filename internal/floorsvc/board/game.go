package board

import (
	"time"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
	log "github.com/sirupsen/logrus"
)

// Phase is the lifecycle state of one table.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseReady
	PhasePlaying
)

// Phase derives the table's lifecycle state from its roster.
func (t *TableState) Phase() Phase {
	if t.IsPlaying {
		return PhasePlaying
	}
	if len(t.Occupants) > 0 {
		return PhaseReady
	}
	return PhaseEmpty
}

// MinPlayersToStart is the smallest group a game can start with.
const MinPlayersToStart = 2

// StartGame moves every ready occupant into the playing state and bumps
// their session game counter. Returns nothing when fewer than two players
// are ready: a game never starts solo.
//
// The per-occupant changes go out as independent remote updates. A partial
// failure leaves the table transiently mixed until the next refetch, there
// is no compensating rollback across the batch.
func StartGame(t *TableState, now time.Time) []Change {
	if t.ReadyCount < MinPlayersToStart {
		return nil
	}

	changes := make([]Change, 0, t.ReadyCount)
	for _, u := range t.Occupants {
		if status.Parse(u.Status).Kind != status.Ready {
			continue
		}
		s := status.ForPlaying(t.TableNumber)
		games := u.SessionGameCount + 1
		changes = append(changes, Change{
			UserID: u.ID,
			Patch: models.UserPatch{
				Status:           &s,
				SessionGameCount: &games,
				UpdatedAt:        &now,
			},
		})
	}
	return changes
}

// EndGame clears every occupant back to the wait queue and immediately
// promotes from the waitlist so freed seats backfill in the same action.
// Ending is also allowed on a ready table that never started, which disbands
// the group. Returns the cleared occupants and the promoted waitlisters as
// separate batches.
func EndGame(t *TableState, now time.Time) (cleared, promoted []Change) {
	if t.Phase() == PhaseEmpty {
		log.Warnf("end game on empty table %d ignored", t.TableNumber)
		return nil, nil
	}

	cleared = make([]Change, 0, len(t.Occupants))
	for _, u := range t.Occupants {
		cleared = append(cleared, ReleaseToWait(u, now))
	}

	// promotion sees the table as emptied
	freed := &TableState{
		TableNumber: t.TableNumber,
		Waitlist:    t.Waitlist,
	}
	promoted = PromoteWaitlist(freed, now)
	return cleared, promoted
}
