package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/board"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
)

// UserRecords is the store surface the user service needs beyond what the
// overlay covers.
type UserRecords interface {
	Create(ctx context.Context, id, name string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService handles patron lifecycle: arrival, presence toggling and
// removal. Board moves live in FloorService.
type UserService struct {
	records    UserRecords
	overlay    *board.Overlay
	pub        Publisher
	instanceId string
	now        func() time.Time
}

func NewUserService(records UserRecords, overlay *board.Overlay, pub Publisher, instanceId string) *UserService {
	return &UserService{
		records:    records,
		overlay:    overlay,
		pub:        pub,
		instanceId: instanceId,
		now:        time.Now,
	}
}

// Create registers a new patron. New users start offline in the wait queue.
func (s *UserService) Create(ctx context.Context, name string) (*models.User, error) {
	user, err := s.records.Create(ctx, uuid.New().String(), name)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.overlay.Refresh(ctx); err != nil {
		return user, err
	}
	return user, nil
}

// Delete removes a patron record entirely.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return s.overlay.Refresh(ctx)
}

// ToggleOnline flips a patron's presence. Coming online starts a fresh
// visit: the wait timer starts and the lifetime online counter bumps. Going
// offline drops every table affiliation, status snaps back to wait and the
// session game counter resets.
func (s *UserService) ToggleOnline(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.overlay.User(id)
	if !ok {
		return nil, fmt.Errorf("toggle online: user %s not found", id)
	}

	now := s.now()
	previous := user.Status
	var patch models.UserPatch
	action := models.ActionOnline

	if user.IsOnline {
		offline := false
		wait := status.ForWait()
		zero := 0
		patch = models.UserPatch{
			IsOnline:         &offline,
			Status:           &wait,
			SessionGameCount: &zero,
			ClearOnlineAt:    true,
			UpdatedAt:        &now,
		}
		action = models.ActionOffline
	} else {
		online := true
		count := user.OnlineCount + 1
		patch = models.UserPatch{
			IsOnline:    &online,
			OnlineAt:    &now,
			OnlineCount: &count,
			UpdatedAt:   &now,
		}
	}

	if err := s.overlay.Commit(ctx, id, patch); err != nil {
		return nil, err
	}

	newStatus := previous
	if patch.Status != nil {
		newStatus = *patch.Status
	}
	publishHistory(s.pub, s.instanceId, models.HistoryRecord{
		UserID:         id,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      newStatus,
		CreatedAt:      now,
	})

	updated, _ := s.overlay.User(id)
	return &updated, nil
}

// SetStatus is the front-desk override for the stateless kinds: wait,
// outing and entrance. Table moves go through the board instead.
func (s *UserService) SetStatus(ctx context.Context, id string, kind status.Kind) error {
	if kind != status.Wait && kind != status.Outing && kind != status.Entrance {
		return fmt.Errorf("set status: kind %d is not a manual status", kind)
	}

	user, ok := s.overlay.User(id)
	if !ok {
		return fmt.Errorf("set status: user %s not found", id)
	}

	now := s.now()
	wire := status.Status{Kind: kind}.Format()
	patch := models.UserPatch{Status: &wire, UpdatedAt: &now}
	if kind == status.Wait {
		patch.OnlineAt = &now
	}

	if err := s.overlay.Commit(ctx, id, patch); err != nil {
		return err
	}

	action := map[status.Kind]string{
		status.Wait:     models.ActionWait,
		status.Outing:   models.ActionOuting,
		status.Entrance: models.ActionEntrance,
	}[kind]

	publishHistory(s.pub, s.instanceId, models.HistoryRecord{
		UserID:         id,
		Action:         action,
		PreviousStatus: user.Status,
		NewStatus:      wire,
		CreatedAt:      now,
	})
	return nil
}
