package services

import (
	"sort"
	"strings"

	"github.com/Dosada05/matchday/models"
)

// RankResults orders vote counts by votes descending, then last name, first name
// and player id, and assigns competition ranks (1, 1, 3).
func RankResults(counts []models.VoteCount) []models.MvpResult {
	sorted := make([]models.VoteCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return voteCountLess(sorted[i], sorted[j])
	})

	results := make([]models.MvpResult, 0, len(sorted))
	for i, c := range sorted {
		rank := i + 1
		if i > 0 && c.Votes == sorted[i-1].Votes {
			rank = results[i-1].Rank
		}
		results = append(results, models.MvpResult{
			PlayerID:  c.PlayerID,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Votes:     c.Votes,
			Rank:      rank,
			IsMVP:     rank == 1,
		})
	}
	return results
}

func voteCountLess(a, b models.VoteCount) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	if c := compareFold(a.LastName, b.LastName); c != 0 {
		return c < 0
	}
	if c := compareFold(a.FirstName, b.FirstName); c != 0 {
		return c < 0
	}
	return a.PlayerID < b.PlayerID
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// BuildTally derives mvp and mvps from the same ranked list:
// mvps is every rank 1 entry and mvp is the first of them.
func BuildTally(matchID string, counts []models.VoteCount, eligibleVoters int) *models.MvpTally {
	tally := emptyTally(matchID, eligibleVoters)
	tally.Results = RankResults(counts)
	for _, r := range tally.Results {
		tally.TotalVotes += r.Votes
		if !r.IsMVP {
			continue
		}
		tally.MVPs = append(tally.MVPs, models.MvpWinner{
			PlayerID:  r.PlayerID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Votes:     r.Votes,
		})
	}
	if len(tally.MVPs) > 0 {
		first := tally.MVPs[0]
		tally.MVP = &first
	}
	return tally
}

func emptyTally(matchID string, eligibleVoters int) *models.MvpTally {
	return &models.MvpTally{
		MatchID:        matchID,
		EligibleVoters: eligibleVoters,
		Results:        []models.MvpResult{},
		MVPs:           []models.MvpWinner{},
	}
}

// BuildLeaderboard aggregates per-match vote counts into the cross-match leaderboard.
// A player's mvp_count is the number of matches where they ranked first.
func BuildLeaderboard(counts []models.VoteCount) []models.PlayerMvpStats {
	byMatch := make(map[string][]models.VoteCount)
	var matchOrder []string
	for _, c := range counts {
		if _, ok := byMatch[c.MatchID]; !ok {
			matchOrder = append(matchOrder, c.MatchID)
		}
		byMatch[c.MatchID] = append(byMatch[c.MatchID], c)
	}

	stats := make(map[string]*models.PlayerMvpStats)
	for _, matchID := range matchOrder {
		for _, r := range RankResults(byMatch[matchID]) {
			st, ok := stats[r.PlayerID]
			if !ok {
				st = &models.PlayerMvpStats{Player: models.PlayerRef{ID: r.PlayerID, FirstName: r.FirstName, LastName: r.LastName}}
				stats[r.PlayerID] = st
			}
			st.TotalVotes += r.Votes
			if r.IsMVP {
				st.MvpCount++
			}
		}
	}

	board := make([]models.PlayerMvpStats, 0, len(stats))
	for _, st := range stats {
		board = append(board, *st)
	}
	sort.Slice(board, func(i, j int) bool {
		a, b := board[i], board[j]
		if a.MvpCount != b.MvpCount {
			return a.MvpCount > b.MvpCount
		}
		if a.TotalVotes != b.TotalVotes {
			return a.TotalVotes > b.TotalVotes
		}
		if c := compareFold(a.Player.LastName, b.Player.LastName); c != 0 {
			return c < 0
		}
		if c := compareFold(a.Player.FirstName, b.Player.FirstName); c != 0 {
			return c < 0
		}
		return a.Player.ID < b.Player.ID
	})
	return board
}
