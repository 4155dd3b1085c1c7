package domain

import "time"

// Holding is one portfolio entry. Entries are append-only.
type Holding struct {
	CoinID  string    `json:"id"`
	Qty     float64   `json:"qty"`
	EntryID string    `json:"entry_id,omitempty"`
	AddedAt time.Time `json:"added_at"`
}
