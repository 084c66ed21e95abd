package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/hyunwoo-dev/billiard-services/internal/comm"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/board"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
)

// TableMirror is the store surface for the s_table read mirror.
type TableMirror interface {
	Sync(ctx context.Context, t models.Table) error
	StartGame(ctx context.Context, tableNumber int, playerIDs []string, startedAt time.Time) error
	EndGame(ctx context.Context, tableNumber int) error
	EndAllGames(ctx context.Context) error
}

// FloorService binds the engines to the stores: it resolves gestures into
// status mutations, commits them through the optimistic overlay, mirrors
// the derived table state and fans out snapshots and history events.
type FloorService struct {
	overlay      *board.Overlay
	interactions *board.Interactions
	mirror       TableMirror
	pub          Publisher
	instanceId   string
	feePerMinute decimal.Decimal

	mu            sync.Mutex
	gameStartedAt map[int]time.Time

	now func() time.Time
}

func NewFloorService(overlay *board.Overlay, mirror TableMirror, pub Publisher,
	instanceId string, feePerMinute decimal.Decimal) *FloorService {
	return &FloorService{
		overlay:       overlay,
		interactions:  board.NewInteractions(),
		mirror:        mirror,
		pub:           pub,
		instanceId:    instanceId,
		feePerMinute:  feePerMinute,
		gameStartedAt: make(map[int]time.Time),
		now:           time.Now,
	}
}

// Interactions exposes the gesture state container to the transport layer.
func (s *FloorService) Interactions() *board.Interactions {
	return s.interactions
}

// Refresh pulls a fresh authoritative user list.
func (s *FloorService) Refresh(ctx context.Context) error {
	return s.overlay.Refresh(ctx)
}

// Snapshot derives the complete board view from the overlay.
func (s *FloorService) Snapshot(ctx context.Context) (comm.BoardSnapshot, error) {
	users := s.overlay.Users()
	tables := board.ComputeAssignments(users)

	snapshot := comm.BoardSnapshot{GeneratedAt: s.now()}
	s.mu.Lock()
	for n := status.MinTable; n <= status.MaxTable; n++ {
		t := tables[n]
		data := comm.TableData{
			TableNumber: n,
			Occupants:   t.Occupants,
			Waitlist:    t.Waitlist,
			IsPlaying:   t.IsPlaying,
			ReadyCount:  t.ReadyCount,
		}
		if startedAt, ok := s.gameStartedAt[n]; ok {
			at := startedAt
			data.GameStartedAt = &at
		}
		snapshot.Tables = append(snapshot.Tables, data)
	}
	s.mu.Unlock()

	for _, u := range users {
		if !u.IsOnline {
			continue
		}
		switch status.Parse(u.Status).Kind {
		case status.Wait:
			snapshot.WaitUsers = append(snapshot.WaitUsers, u)
		case status.Outing:
			snapshot.OutingUsers = append(snapshot.OutingUsers, u)
		}
	}

	counts, err := s.overlay.Counts(ctx)
	if err != nil {
		return comm.BoardSnapshot{}, err
	}
	snapshot.Counts = counts
	return snapshot, nil
}

// DropUser resolves a completed drag for a user onto the given target.
// A rejected drop is a no-op, not an error: the board simply stays put.
func (s *FloorService) DropUser(ctx context.Context, userID string, target board.Target) error {
	target, ok := board.NormalizeTarget(target)
	if !ok {
		log.Errorf("drop for user %s on malformed target ignored", userID)
		return nil
	}

	user, found := s.overlay.User(userID)
	if !found {
		log.Errorf("drop for unknown user %s ignored", userID)
		return nil
	}

	now := s.now()
	switch target.Kind {
	case board.TargetTable:
		return s.dropOnTable(ctx, user, target.Table, now)
	case board.TargetOuting:
		outing := status.Status{Kind: status.Outing}.Format()
		if err := s.commitAndLog(ctx, user, models.UserPatch{Status: &outing, UpdatedAt: &now},
			models.ActionOuting, 0, nil, now); err != nil {
			return err
		}
	default:
		// background or mid-air release both kick the user back to wait
		ch := board.ReleaseToWait(user, now)
		if err := s.commitAndLog(ctx, user, ch.Patch, models.ActionWait, 0, nil, now); err != nil {
			return err
		}
	}

	s.afterMutation(ctx)
	return nil
}

func (s *FloorService) dropOnTable(ctx context.Context, user models.User, tableNumber int, now time.Time) error {
	tables := board.ComputeAssignments(s.overlay.Users())
	t := tables[tableNumber]

	switch t.CanAcceptDrop(user) {
	case board.DropTable:
		ch, ok := board.AssignToTable(user, tableNumber, now)
		if !ok {
			return nil
		}
		if err := s.commitAndLog(ctx, user, ch.Patch, models.ActionTableJoin, tableNumber, nil, now); err != nil {
			return err
		}
	case board.DropWaitlist:
		ch, ok := board.AssignToWaitlist(user, tableNumber, now)
		if !ok {
			return nil
		}
		if err := s.commitAndLog(ctx, user, ch.Patch, models.ActionTableWait, tableNumber, nil, now); err != nil {
			return err
		}
	default:
		log.Infof("drop rejected for user %s on table %d", user.ID, tableNumber)
		return nil
	}

	s.afterMutation(ctx)
	return nil
}

// EndDrag completes the live drag gesture against a resolved target.
func (s *FloorService) EndDrag(ctx context.Context, target board.Target) error {
	userID, ok := s.interactions.EndDrag()
	if !ok {
		return nil
	}
	return s.DropUser(ctx, userID, target)
}

// TapAssign completes a touch tap-to-assign for the armed user.
func (s *FloorService) TapAssign(ctx context.Context, target board.Target) error {
	userID, ok := s.interactions.TapTarget()
	if !ok {
		return nil
	}
	return s.DropUser(ctx, userID, target)
}

// StartGame races every ready occupant into the playing state. Needs at
// least two ready players, otherwise nothing moves.
func (s *FloorService) StartGame(ctx context.Context, tableNumber int) error {
	if !status.ValidTable(tableNumber) {
		log.Errorf("start game on invalid table %d ignored", tableNumber)
		return nil
	}

	now := s.now()
	tables := board.ComputeAssignments(s.overlay.Users())
	t := tables[tableNumber]

	changes := board.StartGame(t, now)
	if len(changes) == 0 {
		return nil
	}

	// independent per-occupant commits: one failing leaves the table mixed
	// until the next refetch, there is no batch rollback
	playerIDs := make([]string, 0, len(changes))
	for _, ch := range changes {
		user, _ := s.overlay.User(ch.UserID)
		if err := s.commitAndLog(ctx, user, ch.Patch, models.ActionGameStart, tableNumber, nil, now); err != nil {
			log.Errorf("Error committing game start for user %s: %s", ch.UserID, err)
			continue
		}
		playerIDs = append(playerIDs, ch.UserID)
	}

	s.mu.Lock()
	s.gameStartedAt[tableNumber] = now
	s.mu.Unlock()

	if err := s.mirror.StartGame(ctx, tableNumber, playerIDs, now); err != nil {
		log.Errorf("Error mirroring game start on table %d: %s", tableNumber, err)
	}

	s.afterMutation(ctx)
	return nil
}

// EndGame clears the table back to the wait queue, promotes the waitlist
// into the freed seats and records the played duration plus table fee.
func (s *FloorService) EndGame(ctx context.Context, tableNumber int) error {
	if !status.ValidTable(tableNumber) {
		log.Errorf("end game on invalid table %d ignored", tableNumber)
		return nil
	}

	now := s.now()
	tables := board.ComputeAssignments(s.overlay.Users())
	t := tables[tableNumber]

	cleared, promoted := board.EndGame(t, now)
	if len(cleared) == 0 {
		return nil
	}

	s.mu.Lock()
	startedAt, hadClock := s.gameStartedAt[tableNumber]
	delete(s.gameStartedAt, tableNumber)
	s.mu.Unlock()

	var metadata map[string]string
	if hadClock {
		minutes := now.Sub(startedAt).Minutes()
		fee := s.feePerMinute.Mul(decimal.NewFromFloat(minutes))
		metadata = map[string]string{
			"game_duration_minutes": decimal.NewFromFloat(minutes).StringFixed(0),
			"table_fee":             fee.StringFixed(2),
		}
	}

	for _, ch := range cleared {
		user, _ := s.overlay.User(ch.UserID)
		if err := s.commitAndLog(ctx, user, ch.Patch, models.ActionGameEnd, tableNumber, metadata, now); err != nil {
			log.Errorf("Error committing game end for user %s: %s", ch.UserID, err)
		}
	}
	for _, ch := range promoted {
		user, _ := s.overlay.User(ch.UserID)
		if err := s.commitAndLog(ctx, user, ch.Patch, models.ActionTableJoin, tableNumber, nil, now); err != nil {
			log.Errorf("Error committing promotion for user %s: %s", ch.UserID, err)
		}
	}

	if err := s.mirror.EndGame(ctx, tableNumber); err != nil {
		log.Errorf("Error mirroring game end on table %d: %s", tableNumber, err)
	}

	s.afterMutation(ctx)
	return nil
}

// EndAllGames is the closing-time sweep over every active table.
func (s *FloorService) EndAllGames(ctx context.Context) error {
	tables := board.ComputeAssignments(s.overlay.Users())
	for n := status.MinTable; n <= status.MaxTable; n++ {
		if tables[n].Phase() == board.PhaseEmpty {
			continue
		}
		if err := s.EndGame(ctx, n); err != nil {
			log.Errorf("Error ending game on table %d: %s", n, err)
		}
	}
	if err := s.mirror.EndAllGames(ctx); err != nil {
		log.Errorf("Error sweeping table mirror: %s", err)
	}
	return nil
}

// commitAndLog runs one mutation through the overlay and fires its audit
// event. A failed commit is surfaced to the caller; a failed history write
// never is.
func (s *FloorService) commitAndLog(ctx context.Context, user models.User, patch models.UserPatch,
	action string, tableNumber int, metadata map[string]string, now time.Time) error {
	if err := s.overlay.Commit(ctx, user.ID, patch); err != nil {
		return err
	}

	newStatus := user.Status
	if patch.Status != nil {
		newStatus = *patch.Status
	}
	publishHistory(s.pub, s.instanceId, models.HistoryRecord{
		UserID:         user.ID,
		Action:         action,
		PreviousStatus: user.Status,
		NewStatus:      newStatus,
		TableNumber:    tableNumber,
		Metadata:       metadata,
		CreatedAt:      now,
	})
	return nil
}

// afterMutation re-derives the board, pushes the mirror and broadcasts the
// snapshot. All of it is best effort on top of an already-committed change.
func (s *FloorService) afterMutation(ctx context.Context) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		log.Errorf("Error building board snapshot: %s", err)
		return
	}

	for _, data := range snapshot.Tables {
		mirrorStatus := models.TableAvailable
		if data.IsPlaying {
			mirrorStatus = models.TablePlaying
		} else if len(data.Occupants) > 0 {
			mirrorStatus = models.TableOccupied
		}

		t := models.Table{
			TableNumber:    data.TableNumber,
			Status:         mirrorStatus,
			GameStartedAt:  data.GameStartedAt,
			CurrentPlayers: userIDs(data.Occupants),
			WaitingPlayers: userIDs(data.Waitlist),
		}
		if err := s.mirror.Sync(ctx, t); err != nil {
			log.Errorf("Error syncing table %d mirror: %s", data.TableNumber, err)
		}
	}

	publishBoard(s.pub, snapshot)
}

func userIDs(users []models.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
