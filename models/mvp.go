package models

import "time"

// MvpVote: голос игрока за MVP матча. Не изменяется после создания.
type MvpVote struct {
	ID         string    `json:"id" db:"id"`
	MatchID    string    `json:"match_id" db:"match_id"`
	VoterID    string    `json:"voter_id" db:"voter_id"`
	VotedForID string    `json:"voted_for_id" db:"voted_for_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// VoteCount is the number of votes a player received in one match.
type VoteCount struct {
	MatchID   string
	PlayerID  string
	FirstName string
	LastName  string
	Votes     int
}

type MvpResult struct {
	PlayerID  string `json:"player_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Votes     int    `json:"votes"`
	Rank      int    `json:"rank"`
	IsMVP     bool   `json:"is_mvp"`
}

type MvpWinner struct {
	PlayerID  string `json:"player_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Votes     int    `json:"votes"`
}

// MvpTally is the ranked result of one match's vote.
type MvpTally struct {
	MatchID        string      `json:"match_id"`
	TotalVotes     int         `json:"total_votes"`
	EligibleVoters int         `json:"eligible_voters"`
	Results        []MvpResult `json:"results"`
	MVP            *MvpWinner  `json:"mvp"`
	MVPs           []MvpWinner `json:"mvps"`
}

type VoteStatus struct {
	MatchID    string     `json:"match_id"`
	VoterID    string     `json:"voter_id"`
	HasVoted   bool       `json:"has_voted"`
	VotedForID *string    `json:"voted_for_id"`
	CreatedAt  *time.Time `json:"created_at"`
}

type PlayerMvpStats struct {
	Player     PlayerRef `json:"player"`
	MvpCount   int       `json:"mvp_count"`
	TotalVotes int       `json:"total_votes"`
}
