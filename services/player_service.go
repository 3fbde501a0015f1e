package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type PlayerService interface {
	CreatePlayer(ctx context.Context, input PlayerInput) (*models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, id string, input PlayerInput) (*models.Player, error)
	DeletePlayer(ctx context.Context, id string) error
}

// PlayerInput используется и для создания, и для полного обновления игрока.
type PlayerInput struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
}

func NewPlayerService(playerRepo repositories.PlayerRepository, logger *slog.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		logger:     logger,
	}
}

func validatePlayerInput(input PlayerInput) (*models.Player, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" || last == "" {
		return nil, ErrPlayerNameRequired
	}

	email := normalizeOptional(input.Email)
	if email != nil && !emailPattern.MatchString(*email) {
		return nil, ErrPlayerEmailInvalid
	}

	return &models.Player{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     normalizeOptional(input.Phone),
	}, nil
}

func (s *playerService) CreatePlayer(ctx context.Context, input PlayerInput) (*models.Player, error) {
	player, err := validatePlayerInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, s.storageError(ctx, "create player", err)
	}
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, s.storageError(ctx, "get player", err)
	}
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "list players", err)
	}
	if players == nil {
		return []*models.Player{}, nil
	}
	return players, nil
}

func (s *playerService) UpdatePlayer(ctx context.Context, id string, input PlayerInput) (*models.Player, error) {
	player, err := validatePlayerInput(input)
	if err != nil {
		return nil, err
	}
	player.ID = id

	if err := s.playerRepo.Update(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, s.storageError(ctx, "update player", err)
	}
	return player, nil
}

func (s *playerService) DeletePlayer(ctx context.Context, id string) error {
	err := s.playerRepo.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrPlayerReferenced):
		return ErrPlayerInUse
	default:
		return s.storageError(ctx, "delete player", err)
	}
}

func (s *playerService) storageError(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "player storage failure", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("failed to %s: %w", op, err)
}
