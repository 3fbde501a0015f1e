// File: repositories/roster_repository.go
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday/models"
	"github.com/lib/pq"
)

var (
	ErrRosterEntryNotFound    = errors.New("roster entry not found")
	ErrRosterEntryConflict    = errors.New("player is already in the match roster")
	ErrRosterPlayerInvalid    = errors.New("roster player conflict or invalid")
	ErrRosterPositionConflict = errors.New("position already taken in this team")
)

// RosterRepository manages match_players rows: roster membership plus team/position.
type RosterRepository interface {
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID string) ([]*models.RosterEntry, error)
	ListByMatches(ctx context.Context, matchIDs []string) (map[string][]*models.RosterEntry, error)
	Add(ctx context.Context, exec SQLExecutor, entries []*models.RosterEntry) error
	Remove(ctx context.Context, exec SQLExecutor, matchID string, playerIDs []string) error
	ClearComposition(ctx context.Context, exec SQLExecutor, matchID string) error
	Assign(ctx context.Context, exec SQLExecutor, matchID string, assignment models.Assignment) error
	Count(ctx context.Context, exec SQLExecutor, matchID string) (int, error)
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID string) error
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const rosterSelect = `
	SELECT mp.match_id, mp.player_id, mp.team, mp.position, mp.created_at, p.first_name, p.last_name
	FROM match_players mp
	JOIN players p ON p.id = mp.player_id`

const rosterOrder = ` ORDER BY mp.team ASC NULLS LAST, mp.position ASC NULLS LAST, p.last_name ASC`

func scanRosterRows(rows *sql.Rows) ([]*models.RosterEntry, error) {
	defer rows.Close()
	entries := make([]*models.RosterEntry, 0)
	for rows.Next() {
		var (
			entry    models.RosterEntry
			team     sql.NullString
			position sql.NullInt64
		)
		if err := rows.Scan(&entry.MatchID, &entry.PlayerID, &team, &position, &entry.CreatedAt, &entry.FirstName, &entry.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		if team.Valid {
			t := models.Team(team.String)
			entry.Team = &t
		}
		if position.Valid {
			pos := int(position.Int64)
			entry.Position = &pos
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *postgresRosterRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID string) ([]*models.RosterEntry, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, rosterSelect+` WHERE mp.match_id = $1`+rosterOrder, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster for match %s: %w", matchID, err)
	}
	return scanRosterRows(rows)
}

func (r *postgresRosterRepository) ListByMatches(ctx context.Context, matchIDs []string) (map[string][]*models.RosterEntry, error) {
	result := make(map[string][]*models.RosterEntry, len(matchIDs))
	if len(matchIDs) == 0 {
		return result, nil
	}
	rows, err := r.db.QueryContext(ctx, rosterSelect+` WHERE mp.match_id = ANY($1)`+rosterOrder, pq.Array(matchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list rosters: %w", err)
	}
	entries, err := scanRosterRows(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		result[e.MatchID] = append(result[e.MatchID], e)
	}
	return result, nil
}

func (r *postgresRosterRepository) Add(ctx context.Context, exec SQLExecutor, entries []*models.RosterEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_players (match_id, player_id, team, position)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	for _, entry := range entries {
		var team *string
		if entry.Team != nil {
			t := string(*entry.Team)
			team = &t
		}
		err := executor.QueryRowContext(ctx, query, entry.MatchID, entry.PlayerID, team, entry.Position).Scan(&entry.CreatedAt)
		if err != nil {
			return r.handleRosterError(err, entry.PlayerID)
		}
	}
	return nil
}

func (r *postgresRosterRepository) Remove(ctx context.Context, exec SQLExecutor, matchID string, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	query := `DELETE FROM match_players WHERE match_id = $1 AND player_id = ANY($2)`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, matchID, pq.Array(playerIDs)); err != nil {
		return fmt.Errorf("failed to remove players from match %s: %w", matchID, err)
	}
	return nil
}

func (r *postgresRosterRepository) ClearComposition(ctx context.Context, exec SQLExecutor, matchID string) error {
	query := `UPDATE match_players SET team = NULL, position = NULL WHERE match_id = $1`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, matchID); err != nil {
		return fmt.Errorf("failed to clear composition for match %s: %w", matchID, err)
	}
	return nil
}

func (r *postgresRosterRepository) Assign(ctx context.Context, exec SQLExecutor, matchID string, assignment models.Assignment) error {
	query := `
		UPDATE match_players
		SET team = $1, position = $2
		WHERE match_id = $3 AND player_id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, string(assignment.Team), assignment.Position, matchID, assignment.PlayerID)
	if err != nil {
		return r.handleRosterError(err, assignment.PlayerID)
	}
	return checkAffectedRows(result, ErrRosterEntryNotFound)
}

func (r *postgresRosterRepository) Count(ctx context.Context, exec SQLExecutor, matchID string) (int, error) {
	var total int
	err := r.getExecutor(exec).QueryRowContext(ctx, `SELECT COUNT(*) FROM match_players WHERE match_id = $1`, matchID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count roster for match %s: %w", matchID, err)
	}
	return total, nil
}

func (r *postgresRosterRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID string) error {
	if _, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM match_players WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to delete roster for match %s: %w", matchID, err)
	}
	return nil
}

func (r *postgresRosterRepository) handleRosterError(err error, playerID string) error {
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "match_players_team_position_key" {
				return ErrRosterPositionConflict
			}
			return ErrRosterEntryConflict
		case pqForeignKeyViolation:
			if pqErr.Constraint == "match_players_player_id_fkey" {
				return ErrRosterPlayerInvalid
			}
		}
	}
	return fmt.Errorf("roster write failed for player %s: %w", playerID, err)
}
