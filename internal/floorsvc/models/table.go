package models

import (
	"time"
)

// Table mirror statuses pushed to the s_table side table. The mirror is a
// read optimization for shared timers, the per-user status field stays
// authoritative for assignment.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TablePlaying   = "playing"
)

// Table represents the s_table mirror record for one physical table.
type Table struct {
	TableNumber    int        `json:"table_number"`
	Status         string     `json:"status"`
	GameStartedAt  *time.Time `json:"game_started_at"`
	CurrentPlayers []string   `json:"current_players"`
	WaitingPlayers []string   `json:"waiting_players"`
	LastUpdated    time.Time  `json:"last_updated"`
}
