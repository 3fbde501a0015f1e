package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/Dosada05/matchday/models"
)

// ValidateComposition checks a two-team lineup. Roster membership is checked
// separately by MatchService against the persisted roster.
func ValidateComposition(teamA, teamB []models.LineupEntry) (models.Lineup, error) {
	if len(teamA)+len(teamB) < 1 {
		return models.Lineup{}, ErrCompositionEmpty
	}

	seen := make(map[string]struct{}, len(teamA)+len(teamB))
	for _, entry := range append(append([]models.LineupEntry{}, teamA...), teamB...) {
		id := entry.PlayerID.String()
		if id == "" {
			return models.Lineup{}, ErrCompositionBlankID
		}
		if _, dup := seen[id]; dup {
			return models.Lineup{}, ErrCompositionDuplicate
		}
		seen[id] = struct{}{}
	}

	a, err := validateTeamPositions(models.TeamA, teamA)
	if err != nil {
		return models.Lineup{}, err
	}
	b, err := validateTeamPositions(models.TeamB, teamB)
	if err != nil {
		return models.Lineup{}, err
	}
	return models.Lineup{TeamA: a, TeamB: b}, nil
}

func validateTeamPositions(team models.Team, entries []models.LineupEntry) ([]models.Assignment, error) {
	out := make([]models.Assignment, 0, len(entries))
	positions := make(map[int]struct{}, len(entries))
	for _, entry := range entries {
		pos, ok := parsePosition(entry.Position.String())
		if !ok {
			return nil, positionError(string(team), "positive integers")
		}
		if _, dup := positions[pos]; dup {
			return nil, positionError(string(team), "unique")
		}
		positions[pos] = struct{}{}
		out = append(out, models.Assignment{
			PlayerID: entry.PlayerID.String(),
			Team:     team,
			Position: pos,
		})
	}
	return out, nil
}

// parsePosition accepts integral numbers such as "3" or "3.0".
func parsePosition(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
