package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/matchday/models"
	"github.com/google/uuid"
)

var ErrMatchNotFound = errors.New("match not found")

// PlayedMatchFilter selects a page of played matches, optionally for one player.
type PlayedMatchFilter struct {
	PlayerID *string
	Limit    int
	Offset   int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error)
	// GetForUpdate locks the match row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	ListPlayed(ctx context.Context, filter PlayedMatchFilter) ([]*models.Match, int, error)
	UpdateDetails(ctx context.Context, exec SQLExecutor, match *models.Match) error
	SetScore(ctx context.Context, exec SQLExecutor, id string, teamAScore, teamBScore int) error
	ClearScore(ctx context.Context, exec SQLExecutor, id string) error
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `m.id, m.played_at, m.location, m.reservation_url, m.status, m.team_a_score, m.team_b_score, m.created_at, m.updated_at`

func scanMatch(row interface{ Scan(dest ...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID,
		&m.PlayedAt,
		&m.Location,
		&m.ReservationURL,
		&m.Status,
		&m.TeamAScore,
		&m.TeamBScore,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}
	query := `
		INSERT INTO matches (id, played_at, location, reservation_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.ID,
		match.PlayedAt,
		match.Location,
		match.ReservationURL,
		match.Status,
	).Scan(&match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query, id string) (*models.Match, error) {
	m := &models.Match{}
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1`, id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m ORDER BY m.played_at DESC, m.created_at DESC`
	return r.queryMatches(ctx, query)
}

func (r *postgresMatchRepository) ListPlayed(ctx context.Context, filter PlayedMatchFilter) ([]*models.Match, int, error) {
	var where strings.Builder
	where.WriteString(` WHERE m.status = 'played'`)
	args := []interface{}{}
	if filter.PlayerID != nil {
		args = append(args, *filter.PlayerID)
		where.WriteString(fmt.Sprintf(`
			AND EXISTS (
				SELECT 1 FROM match_players mp
				WHERE mp.match_id = m.id AND mp.player_id = $%d
			)`, len(args)))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM matches m` + where.String()
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count played matches: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM matches m%s ORDER BY m.played_at DESC, m.created_at DESC LIMIT $%d OFFSET $%d`,
		matchColumns, where.String(), len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	matches, err := r.queryMatches(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return matches, total, nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateDetails(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET played_at = $1, location = $2, reservation_url = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.PlayedAt,
		match.Location,
		match.ReservationURL,
		match.ID,
	).Scan(&match.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to update match %s: %w", match.ID, err)
	}
	return nil
}

func (r *postgresMatchRepository) SetScore(ctx context.Context, exec SQLExecutor, id string, teamAScore, teamBScore int) error {
	query := `
		UPDATE matches
		SET team_a_score = $1, team_b_score = $2, status = 'played', updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamAScore, teamBScore, id)
	if err != nil {
		return fmt.Errorf("failed to set score for match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ClearScore(ctx context.Context, exec SQLExecutor, id string) error {
	query := `
		UPDATE matches
		SET team_a_score = NULL, team_b_score = NULL, status = 'scheduled', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear score for match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
