package user

import "time"

type Profile struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	HasAvatar   bool         `json:"has_avatar"`
	FoundCaches []FoundCache `json:"found_caches"`
	CreatedAt   time.Time    `json:"created_at"`
}

// FoundCache is one entry of a user's found list, the per-user mirror of a
// geocache finding.
type FoundCache struct {
	GeocacheID string    `json:"geocache_id"`
	Comment    string    `json:"comment,omitempty"`
	FoundAt    time.Time `json:"found_at"`
}

type RankingEntry struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FoundCount int    `json:"found_count"`
	HasAvatar  bool   `json:"has_avatar"`
}
