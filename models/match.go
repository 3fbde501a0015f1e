package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusPlayed    MatchStatus = "played"
)

// Team is one side of a match. A roster entry without a team is registered but not yet assigned.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Match: агрегат матча: расписание, счёт и состав.
type Match struct {
	ID             string      `json:"id" db:"id"`
	PlayedAt       time.Time   `json:"played_at" db:"played_at"`
	Location       string      `json:"location" db:"location"`
	ReservationURL *string     `json:"reservation_url" db:"reservation_url"`
	Status         MatchStatus `json:"status" db:"status"`
	TeamAScore     *int        `json:"team_a_score" db:"team_a_score"`
	TeamBScore     *int        `json:"team_b_score" db:"team_b_score"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`

	Roster     []MatchPlayer `json:"roster" db:"-"`
	TeamA      []MatchPlayer `json:"teamA" db:"-"`
	TeamB      []MatchPlayer `json:"teamB" db:"-"`
	CompoReady bool          `json:"compo_ready" db:"-"`
	SheetURL   *string       `json:"sheet_url,omitempty" db:"-"`
}

// IsScored reports whether both scores are set.
func (m *Match) IsScored() bool {
	return m.TeamAScore != nil && m.TeamBScore != nil
}

// MatchPlayer is a roster entry joined with the player's name, as shown in match views.
type MatchPlayer struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Team      *Team  `json:"team"`
	Position  *int   `json:"position"`
}

// SetRoster splits roster entries into the roster/teamA/teamB views.
func (m *Match) SetRoster(entries []*RosterEntry) {
	m.Roster = make([]MatchPlayer, 0, len(entries))
	m.TeamA = make([]MatchPlayer, 0)
	m.TeamB = make([]MatchPlayer, 0)
	for _, e := range entries {
		if e == nil {
			continue
		}
		p := MatchPlayer{
			ID:        e.PlayerID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Team:      e.Team,
			Position:  e.Position,
		}
		m.Roster = append(m.Roster, p)
		if e.Team == nil {
			continue
		}
		switch *e.Team {
		case TeamA:
			m.TeamA = append(m.TeamA, p)
		case TeamB:
			m.TeamB = append(m.TeamB, p)
		}
	}
	m.CompoReady = len(m.TeamA)+len(m.TeamB) > 0
}

// Winner returns "A", "B", "D" for a draw, or "UNKNOWN" when no composition was recorded.
func (m *Match) Winner() string {
	if !m.CompoReady || !m.IsScored() {
		return "UNKNOWN"
	}
	switch {
	case *m.TeamAScore == *m.TeamBScore:
		return "D"
	case *m.TeamAScore > *m.TeamBScore:
		return string(TeamA)
	default:
		return string(TeamB)
	}
}

// PlayedMatch is a played match list item.
type PlayedMatch struct {
	*Match
	Winner string `json:"winner"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type PlayedMatchPage struct {
	Items      []PlayedMatch `json:"items"`
	Pagination Pagination    `json:"pagination"`
}
