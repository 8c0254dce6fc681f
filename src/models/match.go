package models

// MMatch represents a match record.
type MMatch struct {
	ID        string `json:"id"`
	Opponent  string `json:"opponent"`
	MatchDate string `json:"match_date"`
	Location  string `json:"location"`
	CreatedBy string `json:"created_by,omitempty"`
}
