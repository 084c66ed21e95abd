package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
)

func TestPhase(t *testing.T) {
	assert.Equal(t, PhaseEmpty, (&TableState{TableNumber: 1}).Phase())
	assert.Equal(t, PhaseReady, (&TableState{TableNumber: 1,
		Occupants: []models.User{onlineUser("a", "g_1", baseTime)}, ReadyCount: 1}).Phase())
	assert.Equal(t, PhasePlaying, (&TableState{TableNumber: 1,
		Occupants: []models.User{onlineUser("a", "playing_1", baseTime)}, IsPlaying: true}).Phase())
}

func TestStartGame(t *testing.T) {
	u1 := onlineUser("a", "g_4", baseTime)
	u1.SessionGameCount = 4
	u2 := onlineUser("b", "g_4", baseTime)

	tbl := &TableState{TableNumber: 4, Occupants: []models.User{u1, u2}, ReadyCount: 2}

	changes := StartGame(tbl, baseTime)
	require.Len(t, changes, 2)

	assert.Equal(t, "playing_4", *changes[0].Patch.Status)
	assert.Equal(t, 5, *changes[0].Patch.SessionGameCount)
	assert.Equal(t, 1, *changes[1].Patch.SessionGameCount)
}

func TestStartGameNeedsTwoReady(t *testing.T) {
	tbl := &TableState{
		TableNumber: 4,
		Occupants:   []models.User{onlineUser("a", "g_4", baseTime)},
		ReadyCount:  1,
	}
	assert.Nil(t, StartGame(tbl, baseTime))
	assert.Nil(t, StartGame(&TableState{TableNumber: 4}, baseTime))
}

func TestStartGameSkipsAlreadyPlaying(t *testing.T) {
	tbl := &TableState{
		TableNumber: 2,
		Occupants: []models.User{
			onlineUser("a", "g_2", baseTime),
			onlineUser("b", "g_2", baseTime),
			onlineUser("c", "playing_2", baseTime),
		},
		ReadyCount: 2,
		IsPlaying:  true,
	}

	changes := StartGame(tbl, baseTime)
	require.Len(t, changes, 2)
	for _, ch := range changes {
		assert.NotEqual(t, "c", ch.UserID)
	}
}

func TestEndGamePromotesWaitlist(t *testing.T) {
	tbl := &TableState{
		TableNumber: 6,
		Occupants: []models.User{
			onlineUser("a", "playing_6", baseTime),
			onlineUser("b", "playing_6", baseTime),
		},
		IsPlaying: true,
		Waitlist: []models.User{
			onlineUser("c", "table_wait_6", baseTime.Add(1*time.Minute)),
			onlineUser("d", "table_wait_6", baseTime.Add(2*time.Minute)),
		},
	}

	now := baseTime.Add(45 * time.Minute)
	cleared, promoted := EndGame(tbl, now)

	require.Len(t, cleared, 2)
	for _, ch := range cleared {
		assert.Equal(t, "wait", *ch.Patch.Status)
		assert.Equal(t, now, *ch.Patch.OnlineAt)
	}

	// capacity 6 with the table emptied, both waitlisters take a seat
	require.Len(t, promoted, 2)
	assert.Equal(t, "c", promoted[0].UserID)
	assert.Equal(t, "d", promoted[1].UserID)
	assert.Equal(t, "g_6", *promoted[0].Patch.Status)
}

func TestEndGameDisbandsReadyGroup(t *testing.T) {
	tbl := &TableState{
		TableNumber: 3,
		Occupants: []models.User{
			onlineUser("a", "g_3", baseTime),
			onlineUser("b", "g_3", baseTime),
		},
		ReadyCount: 2,
	}

	cleared, promoted := EndGame(tbl, baseTime)
	assert.Len(t, cleared, 2)
	assert.Empty(t, promoted)
}

func TestEndGameOnEmptyTable(t *testing.T) {
	cleared, promoted := EndGame(&TableState{TableNumber: 1}, baseTime)
	assert.Nil(t, cleared)
	assert.Nil(t, promoted)
}
