package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	log "github.com/sirupsen/logrus"
)

// UserAPI is the slice of the remote record store the overlay needs. The
// pgx-backed store in internal/floorsvc/store satisfies it.
type UserAPI interface {
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	CountsByOnlineStatus(ctx context.Context) (models.UserCounts, error)
}

// Overlay keeps the last authoritative user list plus pending local
// mutations, so the board reflects an interaction immediately while the
// remote write is still in flight. A fresh authoritative list always wins:
// on commit failure the pending patches for that user are simply dropped
// and the view snaps back on the next refresh.
type Overlay struct {
	mu            sync.Mutex
	api           UserAPI
	authoritative []models.User
	pending       map[string][]models.UserPatch
	counts        *models.UserCounts
}

func NewOverlay(api UserAPI) *Overlay {
	return &Overlay{
		api:     api,
		pending: make(map[string][]models.UserPatch),
	}
}

// Refresh fetches the authoritative list. The server snapshot supersedes
// every pending mutation.
func (o *Overlay) Refresh(ctx context.Context) error {
	users, err := o.api.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh user list: %w", err)
	}

	o.mu.Lock()
	o.authoritative = users
	o.pending = make(map[string][]models.UserPatch)
	o.mu.Unlock()
	return nil
}

// Users returns the derived view: authoritative records with pending patches
// merged left to right, later patches winning per field.
func (o *Overlay) Users() []models.User {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.User, len(o.authoritative))
	copy(out, o.authoritative)
	for i := range out {
		for _, p := range o.pending[out[i].ID] {
			applyPatch(&out[i], p)
		}
	}
	return out
}

// User returns the derived view of a single user.
func (o *Overlay) User(id string) (models.User, bool) {
	for _, u := range o.Users() {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// ApplyOptimistic records a local mutation so consumers see it before the
// remote write lands.
func (o *Overlay) ApplyOptimistic(userID string, patch models.UserPatch) {
	o.mu.Lock()
	o.pending[userID] = append(o.pending[userID], patch)
	o.mu.Unlock()
}

// Commit applies the patch optimistically, sends it to the remote store and
// refetches the authoritative list on success. On failure the user's pending
// patches are discarded so the view reverts to last-known-authoritative; no
// manual rollback merge, a fresh fetch is the source of truth. Either way
// the cached aggregate counts are invalidated.
func (o *Overlay) Commit(ctx context.Context, userID string, patch models.UserPatch) error {
	o.ApplyOptimistic(userID, patch)
	o.invalidateCounts()

	if _, err := o.api.Update(ctx, userID, patch); err != nil {
		o.mu.Lock()
		delete(o.pending, userID)
		o.mu.Unlock()
		return fmt.Errorf("commit user %s: %w", userID, err)
	}

	if err := o.Refresh(ctx); err != nil {
		// the write landed; the stale view self-heals on the next poll
		log.Warnf("refresh after commit failed: %v", err)
	}
	return nil
}

// Counts returns the online/offline totals, cached until the next commit so
// counts never go stale relative to status.
func (o *Overlay) Counts(ctx context.Context) (models.UserCounts, error) {
	o.mu.Lock()
	if o.counts != nil {
		c := *o.counts
		o.mu.Unlock()
		return c, nil
	}
	o.mu.Unlock()

	c, err := o.api.CountsByOnlineStatus(ctx)
	if err != nil {
		return models.UserCounts{}, fmt.Errorf("count users: %w", err)
	}

	o.mu.Lock()
	o.counts = &c
	o.mu.Unlock()
	return c, nil
}

func (o *Overlay) invalidateCounts() {
	o.mu.Lock()
	o.counts = nil
	o.mu.Unlock()
}

func applyPatch(u *models.User, p models.UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.IsOnline != nil {
		u.IsOnline = *p.IsOnline
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.OnlineAt != nil {
		u.OnlineAt = p.OnlineAt
	}
	if p.ClearOnlineAt {
		u.OnlineAt = nil
	}
	if p.OnlineCount != nil {
		u.OnlineCount = *p.OnlineCount
	}
	if p.SessionGameCount != nil {
		u.SessionGameCount = *p.SessionGameCount
	}
	if p.UpdatedAt != nil {
		u.UpdatedAt = *p.UpdatedAt
	}
}
