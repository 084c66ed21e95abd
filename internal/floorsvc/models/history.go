package models

import (
	"time"
)

// History actions logged for every board transition.
const (
	ActionOnline    = "online"
	ActionOffline   = "offline"
	ActionEntrance  = "entrance"
	ActionWait      = "wait"
	ActionOuting    = "outing"
	ActionTableJoin = "table_join"
	ActionTableWait = "table_wait"
	ActionGameStart = "game_start"
	ActionGameEnd   = "game_end"
)

// HistoryRecord is one audit entry for a user state transition. Logging is
// best effort and never blocks or reverses the transition itself.
type HistoryRecord struct {
	UserID         string            `json:"user_id"`
	Action         string            `json:"action"`
	PreviousStatus string            `json:"previous_status"`
	NewStatus      string            `json:"new_status"`
	TableNumber    int               `json:"table_number,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
