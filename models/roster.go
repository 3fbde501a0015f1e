// File: models/roster.go
package models

import "time"

// RosterEntry: строка match_players: игрок в заявке матча, с командой и позицией после композиции.
type RosterEntry struct {
	MatchID   string    `json:"match_id" db:"match_id"`
	PlayerID  string    `json:"player_id" db:"player_id"`
	Team      *Team     `json:"team" db:"team"`
	Position  *int      `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	FirstName string `json:"first_name,omitempty" db:"-"`
	LastName  string `json:"last_name,omitempty" db:"-"`
}

// Assignment is one validated composition slot.
type Assignment struct {
	PlayerID string `json:"player_id"`
	Team     Team   `json:"team"`
	Position int    `json:"position"`
}

// Lineup is a validated two-team composition.
type Lineup struct {
	TeamA []Assignment `json:"teamA"`
	TeamB []Assignment `json:"teamB"`
}

// All returns team A slots followed by team B slots.
func (l Lineup) All() []Assignment {
	all := make([]Assignment, 0, len(l.TeamA)+len(l.TeamB))
	all = append(all, l.TeamA...)
	return append(all, l.TeamB...)
}
