package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday/models"
	"github.com/google/uuid"
)

var (
	ErrVoteNotFound           = errors.New("mvp vote not found")
	ErrVoteConflict           = errors.New("voter already voted for this match")
	ErrVoteParticipantInvalid = errors.New("mvp vote participant conflict or invalid")
)

type MvpVoteRepository interface {
	// Create relies on the (match_id, voter_id) unique constraint: a concurrent second vote yields ErrVoteConflict.
	Create(ctx context.Context, exec SQLExecutor, vote *models.MvpVote) error
	FindByVoter(ctx context.Context, exec SQLExecutor, matchID, voterID string) (*models.MvpVote, error)
	DeleteByVoter(ctx context.Context, exec SQLExecutor, matchID, voterID string) error
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID string) (int64, error)
	// CountsByMatch returns per-player vote counts for one match.
	CountsByMatch(ctx context.Context, matchID string) ([]models.VoteCount, error)
	// CountsForPlayedMatches returns per-match, per-player vote counts over all played matches.
	CountsForPlayedMatches(ctx context.Context) ([]models.VoteCount, error)
}

type postgresMvpVoteRepository struct {
	db *sql.DB
}

func NewPostgresMvpVoteRepository(db *sql.DB) MvpVoteRepository {
	return &postgresMvpVoteRepository{db: db}
}

func (r *postgresMvpVoteRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMvpVoteRepository) Create(ctx context.Context, exec SQLExecutor, vote *models.MvpVote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	query := `
		INSERT INTO match_mvp_votes (id, match_id, voter_id, voted_for_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, vote.ID, vote.MatchID, vote.VoterID, vote.VotedForID).Scan(&vote.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				if pqErr.Constraint == "match_mvp_votes_match_id_voter_id_key" {
					return ErrVoteConflict
				}
			case pqForeignKeyViolation:
				return ErrVoteParticipantInvalid
			}
		}
		return fmt.Errorf("failed to create mvp vote: %w", err)
	}
	return nil
}

func (r *postgresMvpVoteRepository) FindByVoter(ctx context.Context, exec SQLExecutor, matchID, voterID string) (*models.MvpVote, error) {
	query := `
		SELECT id, match_id, voter_id, voted_for_id, created_at
		FROM match_mvp_votes
		WHERE match_id = $1 AND voter_id = $2`

	var v models.MvpVote
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, voterID).Scan(&v.ID, &v.MatchID, &v.VoterID, &v.VotedForID, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to find mvp vote: %w", err)
	}
	return &v, nil
}

func (r *postgresMvpVoteRepository) DeleteByVoter(ctx context.Context, exec SQLExecutor, matchID, voterID string) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM match_mvp_votes WHERE match_id = $1 AND voter_id = $2`, matchID, voterID)
	if err != nil {
		return fmt.Errorf("failed to delete mvp vote: %w", err)
	}
	return checkAffectedRows(result, ErrVoteNotFound)
}

func (r *postgresMvpVoteRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID string) (int64, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM match_mvp_votes WHERE match_id = $1`, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete mvp votes for match %s: %w", matchID, err)
	}
	return result.RowsAffected()
}

const voteCountSelect = `
	SELECT v.match_id, v.voted_for_id, p.first_name, p.last_name, COUNT(*) AS vote_count
	FROM match_mvp_votes v
	JOIN players p ON p.id = v.voted_for_id`

func (r *postgresMvpVoteRepository) CountsByMatch(ctx context.Context, matchID string) ([]models.VoteCount, error) {
	query := voteCountSelect + `
		WHERE v.match_id = $1
		GROUP BY v.match_id, v.voted_for_id, p.first_name, p.last_name`
	return r.queryCounts(ctx, query, matchID)
}

func (r *postgresMvpVoteRepository) CountsForPlayedMatches(ctx context.Context) ([]models.VoteCount, error) {
	query := voteCountSelect + `
		JOIN matches m ON m.id = v.match_id
		WHERE m.status = 'played'
		GROUP BY v.match_id, v.voted_for_id, p.first_name, p.last_name`
	return r.queryCounts(ctx, query)
}

func (r *postgresMvpVoteRepository) queryCounts(ctx context.Context, query string, args ...interface{}) ([]models.VoteCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count mvp votes: %w", err)
	}
	defer rows.Close()

	counts := make([]models.VoteCount, 0)
	for rows.Next() {
		var c models.VoteCount
		if err := rows.Scan(&c.MatchID, &c.PlayerID, &c.FirstName, &c.LastName, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan mvp vote count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
