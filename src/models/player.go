package models

// MPlayer represents a roster entry.
type MPlayer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Position string `json:"position"`
}
