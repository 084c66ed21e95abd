package models

import (
	"time"
)

// User represents the s_user table in the database.
// Status carries the wire-encoded board position, see the status package.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	IsOnline         bool       `json:"is_online"`
	Status           string     `json:"status"`
	OnlineAt         *time.Time `json:"online_at"`
	OnlineCount      int        `json:"online_count"`
	SessionGameCount int        `json:"session_game_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// UserPatch is a partial update for a user record. Nil fields are left
// untouched by the store.
type UserPatch struct {
	Name             *string    `json:"name,omitempty"`
	IsOnline         *bool      `json:"is_online,omitempty"`
	Status           *string    `json:"status,omitempty"`
	OnlineAt         *time.Time `json:"online_at,omitempty"`
	ClearOnlineAt    bool       `json:"-"`
	OnlineCount      *int       `json:"online_count,omitempty"`
	SessionGameCount *int       `json:"session_game_count,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// UserCounts is the aggregate online/offline breakdown for the floor.
type UserCounts struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
}
