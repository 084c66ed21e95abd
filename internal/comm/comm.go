package comm

import (
	"encoding/json"
	"time"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
)

// Topics the services meet on.
const (
	TopicBoard   = "floor.board"
	TopicHistory = "floor.history"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "board-snapshot"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// TableData is one table's derived roster as shown on the board.
type TableData struct {
	TableNumber   int           `json:"table_number"`
	Occupants     []models.User `json:"occupants"`
	Waitlist      []models.User `json:"waitlist"`
	IsPlaying     bool          `json:"is_playing"`
	ReadyCount    int           `json:"ready_count"`
	GameStartedAt *time.Time    `json:"game_started_at,omitempty"`
}

// BoardSnapshot is the full floor state published on floor.board after
// every mutation and broadcast to connected viewers.
type BoardSnapshot struct {
	Tables      []TableData       `json:"tables"`
	WaitUsers   []models.User     `json:"wait_users"`
	OutingUsers []models.User     `json:"outing_users"`
	Counts      models.UserCounts `json:"counts"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// HistoryEvent is the fire-and-forget audit payload on floor.history.
type HistoryEvent struct {
	Record     models.HistoryRecord `json:"record"`
	InstanceId string               `json:"instanceid"`
}
