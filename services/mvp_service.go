package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
	"golang.org/x/sync/errgroup"
)

// MvpService: голосование за MVP: допуск голосов и подсчёт итогов.
type MvpService interface {
	CastVote(ctx context.Context, matchID string, input VoteInput) (*models.MvpVote, error)
	RetractVote(ctx context.Context, matchID, voterID string) error
	VoteStatus(ctx context.Context, matchID, voterID string) (*models.VoteStatus, error)
	MatchTally(ctx context.Context, matchID string) (*models.MvpTally, error)
	Leaderboard(ctx context.Context) ([]models.PlayerMvpStats, error)
}

type VoteInput struct {
	VoterID    models.FlexID `json:"voter_id"`
	VotedForID models.FlexID `json:"voted_for_id"`
}

type mvpService struct {
	tx         repositories.Transactor
	matchRepo  repositories.MatchRepository
	rosterRepo repositories.RosterRepository
	voteRepo   repositories.MvpVoteRepository
	events     EventPublisher
	logger     *slog.Logger
}

func NewMvpService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	rosterRepo repositories.RosterRepository,
	voteRepo repositories.MvpVoteRepository,
	events EventPublisher,
	logger *slog.Logger,
) MvpService {
	if events == nil {
		events = noopPublisher{}
	}
	return &mvpService{
		tx:         tx,
		matchRepo:  matchRepo,
		rosterRepo: rosterRepo,
		voteRepo:   voteRepo,
		events:     events,
		logger:     logger,
	}
}

func (s *mvpService) CastVote(ctx context.Context, matchID string, input VoteInput) (*models.MvpVote, error) {
	voterID, votedForID := input.VoterID.String(), input.VotedForID.String()
	if voterID == "" || votedForID == "" {
		return nil, ErrVoteParticipantsRequired
	}

	vote := &models.MvpVote{MatchID: matchID, VoterID: voterID, VotedForID: votedForID}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetForUpdate(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusPlayed || !match.IsScored() {
			return ErrMatchNotPlayed
		}

		roster, err := s.rosterRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		members := make(map[string]struct{}, len(roster))
		for _, e := range roster {
			members[e.PlayerID] = struct{}{}
		}
		if _, ok := members[voterID]; !ok {
			return ErrVoterNotInRoster
		}
		if _, ok := members[votedForID]; !ok {
			return ErrVotedForNotInRoster
		}

		// Быстрая проверка; окончательно дубль отсекает уникальный индекс (match_id, voter_id).
		if _, err := s.voteRepo.FindByVoter(ctx, exec, matchID, voterID); err == nil {
			return ErrAlreadyVoted
		} else if !errors.Is(err, repositories.ErrVoteNotFound) {
			return err
		}

		return s.voteRepo.Create(ctx, exec, vote)
	})
	if err != nil {
		return nil, s.mapVoteError(ctx, "cast vote", err)
	}

	s.publishTally(ctx, matchID)
	return vote, nil
}

func (s *mvpService) RetractVote(ctx context.Context, matchID, voterID string) error {
	voterID = models.FlexID(voterID).String()
	if voterID == "" {
		return ErrVoterRequired
	}
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return s.mapVoteError(ctx, "retract vote", err)
	}
	if err := s.voteRepo.DeleteByVoter(ctx, nil, matchID, voterID); err != nil {
		return s.mapVoteError(ctx, "retract vote", err)
	}

	s.publishTally(ctx, matchID)
	return nil
}

func (s *mvpService) VoteStatus(ctx context.Context, matchID, voterID string) (*models.VoteStatus, error) {
	voterID = models.FlexID(voterID).String()
	if voterID == "" {
		return nil, ErrVoterRequired
	}
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return nil, s.mapVoteError(ctx, "get vote status", err)
	}

	status := &models.VoteStatus{MatchID: matchID, VoterID: voterID}
	vote, err := s.voteRepo.FindByVoter(ctx, nil, matchID, voterID)
	switch {
	case errors.Is(err, repositories.ErrVoteNotFound):
		return status, nil
	case err != nil:
		return nil, s.mapVoteError(ctx, "get vote status", err)
	}
	status.HasVoted = true
	status.VotedForID = &vote.VotedForID
	status.CreatedAt = &vote.CreatedAt
	return status, nil
}

// MatchTally is recomputed from stored votes on every read.
func (s *mvpService) MatchTally(ctx context.Context, matchID string) (*models.MvpTally, error) {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return nil, s.mapVoteError(ctx, "get mvp tally", err)
	}

	var (
		counts   []models.VoteCount
		eligible int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.voteRepo.CountsByMatch(gctx, matchID)
		return err
	})
	g.Go(func() error {
		var err error
		eligible, err = s.rosterRepo.Count(gctx, nil, matchID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.mapVoteError(ctx, "get mvp tally", err)
	}

	// total_votes is the sum of counts, so it always agrees with results.
	return BuildTally(matchID, counts, eligible), nil
}

func (s *mvpService) Leaderboard(ctx context.Context) ([]models.PlayerMvpStats, error) {
	counts, err := s.voteRepo.CountsForPlayedMatches(ctx)
	if err != nil {
		return nil, s.mapVoteError(ctx, "build mvp leaderboard", err)
	}
	return BuildLeaderboard(counts), nil
}

func (s *mvpService) publishTally(ctx context.Context, matchID string) {
	tally, err := s.MatchTally(ctx, matchID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to compute tally for live update", slog.String("match_id", matchID), slog.Any("error", err))
		return
	}
	s.events.Publish(EventMvpUpdated, matchID, tally)
}

func (s *mvpService) mapVoteError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrVoteConflict):
		return ErrAlreadyVoted
	case errors.Is(err, repositories.ErrVoteNotFound):
		return ErrVoteNotFound
	case errors.Is(err, repositories.ErrVoteParticipantInvalid):
		return ErrVoterNotInRoster
	case isDomainError(err):
		return err
	}
	s.logger.ErrorContext(ctx, "mvp storage failure", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("failed to %s: %w", op, err)
}
