package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/board"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/status"
)

type fakeRecords struct {
	api *fakeUserAPI
}

func (f *fakeRecords) Create(ctx context.Context, id, name string) (*models.User, error) {
	u := models.User{ID: id, Name: name, Status: "wait", CreatedAt: testTime, UpdatedAt: testTime}
	f.api.mu.Lock()
	f.api.users = append(f.api.users, u)
	f.api.mu.Unlock()
	return &u, nil
}

func (f *fakeRecords) Delete(ctx context.Context, id string) error {
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	for i, u := range f.api.users {
		if u.ID == id {
			f.api.users = append(f.api.users[:i], f.api.users[i+1:]...)
			return nil
		}
	}
	return nil
}

func newUserFixture(t *testing.T, users ...models.User) (*UserService, *fakeUserAPI, *fakePublisher) {
	t.Helper()
	api := &fakeUserAPI{users: users, failUpdate: map[string]bool{}}
	overlay := board.NewOverlay(api)
	require.NoError(t, overlay.Refresh(context.Background()))

	pub := newFakePublisher()
	svc := NewUserService(&fakeRecords{api: api}, overlay, pub, "test-instance")
	svc.now = func() time.Time { return testTime }
	return svc, api, pub
}

func TestCreateStartsOfflineInWaitQueue(t *testing.T) {
	svc, api, _ := newUserFixture(t)

	user, err := svc.Create(context.Background(), "민수")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "wait", user.Status)
	assert.False(t, user.IsOnline)
	assert.Equal(t, "wait", api.get(user.ID).Status)
}

func TestToggleOnline(t *testing.T) {
	u := models.User{ID: "a", Name: "user-a", Status: "wait", OnlineCount: 3}
	svc, api, pub := newUserFixture(t, u)

	updated, err := svc.ToggleOnline(context.Background(), "a")
	require.NoError(t, err)

	assert.True(t, updated.IsOnline)
	assert.Equal(t, 4, updated.OnlineCount)
	assert.Equal(t, testTime, *api.get("a").OnlineAt)

	records := pub.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionOnline, records[0].Action)
}

// Going offline drops every table affiliation and resets the session
// counter: status g_3 with four games played snaps back to wait with zero.
func TestToggleOfflineForcesWaitAndResetsSession(t *testing.T) {
	u := testUser("a", "g_3")
	u.SessionGameCount = 4
	svc, api, pub := newUserFixture(t, u)

	updated, err := svc.ToggleOnline(context.Background(), "a")
	require.NoError(t, err)

	assert.False(t, updated.IsOnline)
	assert.Equal(t, "wait", updated.Status)
	assert.Equal(t, 0, updated.SessionGameCount)
	assert.Nil(t, api.get("a").OnlineAt)

	records := pub.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionOffline, records[0].Action)
	assert.Equal(t, "g_3", records[0].PreviousStatus)
	assert.Equal(t, "wait", records[0].NewStatus)
}

func TestSetStatusEntrance(t *testing.T) {
	svc, api, pub := newUserFixture(t, testUser("a", "wait"))

	require.NoError(t, svc.SetStatus(context.Background(), "a", status.Entrance))

	assert.Equal(t, "entrance", api.get("a").Status)
	records := pub.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionEntrance, records[0].Action)
}

func TestSetStatusRejectsTableKinds(t *testing.T) {
	svc, api, _ := newUserFixture(t, testUser("a", "wait"))

	assert.Error(t, svc.SetStatus(context.Background(), "a", status.Ready))
	assert.Error(t, svc.SetStatus(context.Background(), "a", status.Playing))
	assert.Equal(t, "wait", api.get("a").Status)
}

func TestDeleteRemovesUser(t *testing.T) {
	svc, api, _ := newUserFixture(t, testUser("a", "wait"))

	require.NoError(t, svc.Delete(context.Background(), "a"))
	assert.Empty(t, api.get("a").ID)
}
