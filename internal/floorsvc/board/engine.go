package board

import (
	"sort"
	"time"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
	log "github.com/sirupsen/logrus"
)

// Capacity is the fixed number of seats per table. The per-table waitlist is
// bounded by the same number to keep promotion cheap.
const (
	Capacity    = 6
	WaitlistCap = 6
)

// TableState is the derived roster of one table. It is recomputed from the
// flat user list on every change, never cached, so it cannot drift from the
// per-user status field that stays authoritative.
type TableState struct {
	TableNumber int
	Occupants   []models.User
	Waitlist    []models.User
	IsPlaying   bool
	ReadyCount  int
}

// DropTarget is where a dragged user would land on a given table.
type DropTarget int

const (
	DropReject DropTarget = iota
	DropTable
	DropWaitlist
)

// Change is one user mutation produced by an engine operation. The caller
// owns applying it optimistically and committing it remotely.
type Change struct {
	UserID string
	Patch  models.UserPatch
}

// ComputeAssignments derives the full per-table roster from the user list.
// Offline users never appear: going offline forces status back to wait.
func ComputeAssignments(users []models.User) map[int]*TableState {
	tables := make(map[int]*TableState, status.MaxTable)
	for n := status.MinTable; n <= status.MaxTable; n++ {
		tables[n] = &TableState{TableNumber: n}
	}

	for _, u := range users {
		if !u.IsOnline {
			continue
		}
		st := status.Parse(u.Status)
		switch st.Kind {
		case status.Ready:
			t := tables[st.Table]
			t.Occupants = append(t.Occupants, u)
			t.ReadyCount++
		case status.Playing:
			t := tables[st.Table]
			t.Occupants = append(t.Occupants, u)
			t.IsPlaying = true
		case status.TableWait:
			tables[st.Table].Waitlist = append(tables[st.Table].Waitlist, u)
		}
	}

	// waitlist is first-in-first-out by last mutation time
	for _, t := range tables {
		sort.SliceStable(t.Waitlist, func(i, j int) bool {
			return t.Waitlist[i].UpdatedAt.Before(t.Waitlist[j].UpdatedAt)
		})
	}

	return tables
}

// CanAcceptDrop resolves where a dragged user would land on this table.
// A playing table redirects to its waitlist, a full table rejects, and a
// user already seated here has nowhere to go.
func (t *TableState) CanAcceptDrop(user models.User) DropTarget {
	if status.Parse(user.Status).OccupiesTable(t.TableNumber) {
		return DropReject
	}
	if t.IsPlaying {
		if len(t.Waitlist) < WaitlistCap {
			return DropWaitlist
		}
		return DropReject
	}
	if len(t.Occupants) < Capacity {
		return DropTable
	}
	return DropReject
}

// AssignToTable seats a user at a table in the ready state. The wait-time
// display resets the moment a user leaves the wait queue, so OnlineAt moves
// to now.
func AssignToTable(user models.User, tableNumber int, now time.Time) (Change, bool) {
	if !status.ValidTable(tableNumber) {
		log.Errorf("assign to invalid table %d for user %s", tableNumber, user.ID)
		return Change{}, false
	}
	s := status.ForReady(tableNumber)
	return Change{
		UserID: user.ID,
		Patch: models.UserPatch{
			Status:    &s,
			OnlineAt:  &now,
			UpdatedAt: &now,
		},
	}, true
}

// AssignToWaitlist queues a user for a busy table. OnlineAt is left alone:
// the wait-time display keeps running while queued, and the UpdatedAt stamp
// fixes the user's position in the FIFO.
func AssignToWaitlist(user models.User, tableNumber int, now time.Time) (Change, bool) {
	if !status.ValidTable(tableNumber) {
		log.Errorf("waitlist on invalid table %d for user %s", tableNumber, user.ID)
		return Change{}, false
	}
	s := status.ForTableWait(tableNumber)
	return Change{
		UserID: user.ID,
		Patch: models.UserPatch{
			Status:    &s,
			UpdatedAt: &now,
		},
	}, true
}

// ReleaseToWait sends a user back to the general wait queue with a fresh
// wait timer.
func ReleaseToWait(user models.User, now time.Time) Change {
	s := status.ForWait()
	return Change{
		UserID: user.ID,
		Patch: models.UserPatch{
			Status:    &s,
			OnlineAt:  &now,
			UpdatedAt: &now,
		},
	}
}

// PromoteWaitlist moves waitlisted users into freed seats after a game ends.
// First queued, first served: oldest UpdatedAt wins the tie for a seat.
func PromoteWaitlist(t *TableState, now time.Time) []Change {
	available := Capacity - len(t.Occupants)
	if available <= 0 || len(t.Waitlist) == 0 {
		return nil
	}
	if available > len(t.Waitlist) {
		available = len(t.Waitlist)
	}

	changes := make([]Change, 0, available)
	for _, u := range t.Waitlist[:available] {
		ch, ok := AssignToTable(u, t.TableNumber, now)
		if !ok {
			continue
		}
		changes = append(changes, ch)
	}
	return changes
}
