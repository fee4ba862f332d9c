package models

// Player is a first-join ledger entry. Timestamps are unix milliseconds.
type Player struct {
	UID           string `json:"uid"`
	Name          string `json:"name"`
	FirstJoinedAt int64  `json:"first_joined_at"`
	LastJoinedAt  int64  `json:"last_joined_at"`
}
