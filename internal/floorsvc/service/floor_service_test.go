package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunwoo-dev/billiard-services/internal/comm"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/board"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
)

var testTime = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

type fakeUserAPI struct {
	mu         sync.Mutex
	users      []models.User
	failUpdate map[string]bool
}

func (f *fakeUserAPI) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, len(f.users))
	copy(out, f.users)
	return out, nil
}

func (f *fakeUserAPI) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate[id] {
		return nil, errors.New("connection refused")
	}
	for i := range f.users {
		if f.users[i].ID != id {
			continue
		}
		u := &f.users[i]
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.IsOnline != nil {
			u.IsOnline = *patch.IsOnline
		}
		if patch.Status != nil {
			u.Status = *patch.Status
		}
		if patch.OnlineAt != nil {
			u.OnlineAt = patch.OnlineAt
		}
		if patch.ClearOnlineAt {
			u.OnlineAt = nil
		}
		if patch.OnlineCount != nil {
			u.OnlineCount = *patch.OnlineCount
		}
		if patch.SessionGameCount != nil {
			u.SessionGameCount = *patch.SessionGameCount
		}
		if patch.UpdatedAt != nil {
			u.UpdatedAt = *patch.UpdatedAt
		}
		copied := *u
		return &copied, nil
	}
	return nil, errors.New("no rows")
}

func (f *fakeUserAPI) CountsByOnlineStatus(ctx context.Context) (models.UserCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := models.UserCounts{Total: len(f.users)}
	for _, u := range f.users {
		if u.IsOnline {
			c.Online++
		} else {
			c.Offline++
		}
	}
	return c, nil
}

func (f *fakeUserAPI) get(id string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return models.User{}
}

type fakeMirror struct {
	mu      sync.Mutex
	synced  map[int]models.Table
	started []int
	ended   []int
	sweeps  int
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{synced: make(map[int]models.Table)}
}

func (m *fakeMirror) Sync(ctx context.Context, t models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced[t.TableNumber] = t
	return nil
}

func (m *fakeMirror) StartGame(ctx context.Context, tableNumber int, playerIDs []string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, tableNumber)
	return nil
}

func (m *fakeMirror) EndGame(ctx context.Context, tableNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, tableNumber)
	return nil
}

func (m *fakeMirror) EndAllGames(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	fail     bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{messages: make(map[string][][]byte)}
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("nats: connection closed")
	}
	p.messages[subject] = append(p.messages[subject], data)
	return nil
}

func (p *fakePublisher) history(t *testing.T) []models.HistoryRecord {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var records []models.HistoryRecord
	for _, raw := range p.messages[comm.TopicHistory] {
		var event comm.HistoryEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		records = append(records, event.Record)
	}
	return records
}

func testUser(id, st string) models.User {
	online := testTime.Add(-time.Hour)
	return models.User{
		ID:       id,
		Name:     "user-" + id,
		IsOnline: true,
		Status:   st,
		OnlineAt: &online,
	}
}

func newFloorFixture(t *testing.T, users ...models.User) (*FloorService, *fakeUserAPI, *fakeMirror, *fakePublisher) {
	t.Helper()
	api := &fakeUserAPI{users: users, failUpdate: map[string]bool{}}
	overlay := board.NewOverlay(api)
	require.NoError(t, overlay.Refresh(context.Background()))

	mirror := newFakeMirror()
	pub := newFakePublisher()
	svc := NewFloorService(overlay, mirror, pub, "test-instance", decimal.NewFromInt(300))
	svc.now = func() time.Time { return testTime }
	return svc, api, mirror, pub
}

func TestDropUserOntoOpenTable(t *testing.T) {
	svc, api, mirror, pub := newFloorFixture(t, testUser("a", "wait"))
	ctx := context.Background()

	require.NoError(t, svc.DropUser(ctx, "a", board.Target{Kind: board.TargetTable, Table: 2}))

	assert.Equal(t, "g_2", api.get("a").Status)
	assert.Equal(t, models.TableOccupied, mirror.synced[2].Status)
	assert.Equal(t, []string{"a"}, mirror.synced[2].CurrentPlayers)

	records := pub.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionTableJoin, records[0].Action)
	assert.Equal(t, 2, records[0].TableNumber)
	assert.Len(t, pub.messages[comm.TopicBoard], 1)
}

func TestDropUserOntoFullTableRejected(t *testing.T) {
	users := []models.User{testUser("u", "wait")}
	for i := 0; i < board.Capacity; i++ {
		users = append(users, testUser(fmt.Sprintf("o%d", i), "g_2"))
	}
	svc, api, _, pub := newFloorFixture(t, users...)

	require.NoError(t, svc.DropUser(context.Background(), "u", board.Target{Kind: board.TargetTable, Table: 2}))

	assert.Equal(t, "wait", api.get("u").Status)
	assert.Empty(t, pub.history(t))
}

func TestDropUserOntoPlayingTableJoinsWaitlist(t *testing.T) {
	users := []models.User{
		testUser("u", "wait"),
		testUser("p1", "playing_5"),
		testUser("p2", "playing_5"),
		testUser("w1", "table_wait_5"),
		testUser("w2", "table_wait_5"),
		testUser("w3", "table_wait_5"),
	}
	svc, api, _, pub := newFloorFixture(t, users...)

	require.NoError(t, svc.DropUser(context.Background(), "u", board.Target{Kind: board.TargetTable, Table: 5}))

	assert.Equal(t, "table_wait_5", api.get("u").Status)
	records := pub.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionTableWait, records[0].Action)
}

func TestDropUserMidAirReleasesToWait(t *testing.T) {
	svc, api, _, _ := newFloorFixture(t, testUser("a", "g_3"))

	require.NoError(t, svc.DropUser(context.Background(), "a", board.Target{Kind: board.TargetNone}))

	u := api.get("a")
	assert.Equal(t, "wait", u.Status)
	assert.Equal(t, testTime, *u.OnlineAt)
}

func TestDropUserOntoOutingRail(t *testing.T) {
	svc, api, _, pub := newFloorFixture(t, testUser("a", "wait"))

	require.NoError(t, svc.DropUser(context.Background(), "a", board.Target{Kind: board.TargetOuting}))

	assert.Equal(t, "outing", api.get("a").Status)
	records := pub.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.ActionOuting, records[0].Action)
}

func TestCommitFailureLeavesAuthoritativeState(t *testing.T) {
	svc, api, _, pub := newFloorFixture(t, testUser("a", "wait"))
	api.failUpdate["a"] = true

	err := svc.DropUser(context.Background(), "a", board.Target{Kind: board.TargetTable, Table: 1})
	require.Error(t, err)

	// the failed write never landed and no history fired for it
	assert.Equal(t, "wait", api.get("a").Status)
	assert.Empty(t, pub.history(t))
}

func TestStartGame(t *testing.T) {
	svc, api, mirror, pub := newFloorFixture(t,
		testUser("a", "g_4"), testUser("b", "g_4"), testUser("c", "wait"))
	ctx := context.Background()

	require.NoError(t, svc.StartGame(ctx, 4))

	assert.Equal(t, "playing_4", api.get("a").Status)
	assert.Equal(t, "playing_4", api.get("b").Status)
	assert.Equal(t, 1, api.get("a").SessionGameCount)
	assert.Equal(t, "wait", api.get("c").Status)
	assert.Equal(t, []int{4}, mirror.started)

	records := pub.history(t)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, models.ActionGameStart, rec.Action)
	}
}

func TestStartGameRequiresTwoReady(t *testing.T) {
	svc, api, mirror, _ := newFloorFixture(t, testUser("a", "g_4"))

	require.NoError(t, svc.StartGame(context.Background(), 4))

	assert.Equal(t, "g_4", api.get("a").Status)
	assert.Empty(t, mirror.started)
}

func TestEndGamePromotesWaitlistAndBillsFee(t *testing.T) {
	svc, api, mirror, pub := newFloorFixture(t,
		testUser("a", "g_6"), testUser("b", "g_6"),
		testUser("c", "table_wait_6"), testUser("d", "table_wait_6"))
	ctx := context.Background()

	require.NoError(t, svc.StartGame(ctx, 6))

	// the game ran for half an hour
	svc.now = func() time.Time { return testTime.Add(30 * time.Minute) }
	require.NoError(t, svc.EndGame(ctx, 6))

	assert.Equal(t, "wait", api.get("a").Status)
	assert.Equal(t, "wait", api.get("b").Status)
	assert.Equal(t, "g_6", api.get("c").Status)
	assert.Equal(t, "g_6", api.get("d").Status)
	assert.Equal(t, []int{6}, mirror.ended)

	var ends []models.HistoryRecord
	for _, rec := range pub.history(t) {
		if rec.Action == models.ActionGameEnd {
			ends = append(ends, rec)
		}
	}
	require.Len(t, ends, 2)
	assert.Equal(t, "30", ends[0].Metadata["game_duration_minutes"])
	assert.Equal(t, "9000.00", ends[0].Metadata["table_fee"])
}

func TestEndGameOnReadyTableDisbands(t *testing.T) {
	svc, api, _, _ := newFloorFixture(t, testUser("a", "g_3"), testUser("b", "g_3"))

	require.NoError(t, svc.EndGame(context.Background(), 3))

	assert.Equal(t, "wait", api.get("a").Status)
	assert.Equal(t, "wait", api.get("b").Status)
}

func TestEndAllGames(t *testing.T) {
	svc, api, mirror, _ := newFloorFixture(t,
		testUser("a", "playing_1"), testUser("b", "playing_1"),
		testUser("c", "g_7"), testUser("d", "g_7"))

	require.NoError(t, svc.EndAllGames(context.Background()))

	assert.Equal(t, "wait", api.get("a").Status)
	assert.Equal(t, "wait", api.get("c").Status)
	assert.Equal(t, 1, mirror.sweeps)
}

func TestTapAssignUsesArmedUser(t *testing.T) {
	svc, api, _, _ := newFloorFixture(t, testUser("a", "wait"))

	svc.Interactions().Arm("a")
	require.NoError(t, svc.TapAssign(context.Background(), board.Target{Kind: board.TargetTable, Table: 1}))

	assert.Equal(t, "g_1", api.get("a").Status)

	// selection was consumed, a second tap does nothing
	require.NoError(t, svc.TapAssign(context.Background(), board.Target{Kind: board.TargetTable, Table: 2}))
	assert.Equal(t, "g_1", api.get("a").Status)
}

func TestEndDragResolvesGesture(t *testing.T) {
	svc, api, _, _ := newFloorFixture(t, testUser("a", "wait"))

	require.True(t, svc.Interactions().BeginDrag("a"))
	require.NoError(t, svc.EndDrag(context.Background(), board.Target{Kind: board.TargetTable, Table: 8}))

	assert.Equal(t, "g_8", api.get("a").Status)
}

func TestHistoryPublishFailureDoesNotBlockTransition(t *testing.T) {
	svc, api, _, pub := newFloorFixture(t, testUser("a", "wait"))
	pub.fail = true

	require.NoError(t, svc.DropUser(context.Background(), "a", board.Target{Kind: board.TargetTable, Table: 1}))

	assert.Equal(t, "g_1", api.get("a").Status)
}

func TestSnapshot(t *testing.T) {
	svc, _, _, _ := newFloorFixture(t,
		testUser("a", "wait"),
		testUser("b", "outing"),
		testUser("c", "g_2"),
		models.User{ID: "d", Status: "wait", IsOnline: false})

	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Tables, 8)
	assert.Len(t, snapshot.WaitUsers, 1)
	assert.Len(t, snapshot.OutingUsers, 1)
	assert.Equal(t, 4, snapshot.Counts.Total)
	assert.Equal(t, 3, snapshot.Counts.Online)
	assert.Len(t, snapshot.Tables[1].Occupants, 1)
}
