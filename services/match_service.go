package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
	"github.com/Dosada05/matchday/storage"
)

const (
	defaultPlayedPageLimit = 10
	sheetContentType       = "application/json"
)

// MatchService: машина состояний матча: scheduled <-> played, состав и счёт.
type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	ListPlayedMatches(ctx context.Context, input ListPlayedMatchesInput) (*models.PlayedMatchPage, error)
	UpdateMatch(ctx context.Context, id string, input UpdateMatchInput) (*models.Match, error)
	AssignComposition(ctx context.Context, id string, input CompositionInput) (*models.Match, error)
	EnterScore(ctx context.Context, id string, input ScoreInput) (*models.Match, error)
	ResetScore(ctx context.Context, id string) (*models.Match, error)
	DeleteMatch(ctx context.Context, id string) error
}

type CreateMatchInput struct {
	PlayedAt       string               `json:"played_at"`
	Location       string               `json:"location"`
	ReservationURL *string              `json:"reservation_url"`
	Players        models.IDList        `json:"players"`
	TeamA          []models.LineupEntry `json:"teamA"`
	TeamB          []models.LineupEntry `json:"teamB"`
}

// UpdateMatchInput replaces the match details. A nil Players keeps the roster;
// a non-nil (possibly empty) list replaces it.
type UpdateMatchInput struct {
	PlayedAt       string        `json:"played_at"`
	Location       string        `json:"location"`
	ReservationURL *string       `json:"reservation_url"`
	Players        models.IDList `json:"players"`
}

type CompositionInput struct {
	TeamA []models.LineupEntry `json:"teamA"`
	TeamB []models.LineupEntry `json:"teamB"`
}

type ScoreInput struct {
	TeamAScore json.Number `json:"team_a_score"`
	TeamBScore json.Number `json:"team_b_score"`
}

// ListPlayedMatchesInput holds raw query values; empty means default.
type ListPlayedMatchesInput struct {
	Limit    string
	Offset   string
	PlayerID string
}

type matchService struct {
	tx         repositories.Transactor
	matchRepo  repositories.MatchRepository
	rosterRepo repositories.RosterRepository
	voteRepo   repositories.MvpVoteRepository
	playerRepo repositories.PlayerRepository
	policy     MatchPolicy
	events     EventPublisher
	uploader   storage.FileUploader
	logger     *slog.Logger
}

// NewMatchService wires the match state machine. events and uploader may be nil.
func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	rosterRepo repositories.RosterRepository,
	voteRepo repositories.MvpVoteRepository,
	playerRepo repositories.PlayerRepository,
	policy MatchPolicy,
	events EventPublisher,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	if events == nil {
		events = noopPublisher{}
	}
	return &matchService{
		tx:         tx,
		matchRepo:  matchRepo,
		rosterRepo: rosterRepo,
		voteRepo:   voteRepo,
		playerRepo: playerRepo,
		policy:     policy,
		events:     events,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	playedAt, location, err := validateMatchDetails(input.PlayedAt, input.Location)
	if err != nil {
		return nil, err
	}

	entries, err := s.initialRoster(input)
	if err != nil {
		return nil, err
	}

	match := &models.Match{
		PlayedAt:       playedAt,
		Location:       location,
		ReservationURL: normalizeOptional(input.ReservationURL),
		Status:         models.MatchStatusScheduled,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.ensurePlayersExist(ctx, exec, rosterIDs(entries)); err != nil {
			return err
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return err
		}
		for _, e := range entries {
			e.MatchID = match.ID
		}
		return s.mapRosterError(s.rosterRepo.Add(ctx, exec, entries))
	})
	if err != nil {
		return nil, s.wrapStorageError(ctx, "create match", err)
	}

	created, err := s.loadMatch(ctx, nil, match.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(EventMatchUpdated, created.ID, created)
	return created, nil
}

// initialRoster builds the roster rows for a new match according to the policy.
func (s *matchService) initialRoster(input CreateMatchInput) ([]*models.RosterEntry, error) {
	if !s.policy.RequireFullTeamsAtCreation {
		if len(input.TeamA)+len(input.TeamB) > 0 {
			return nil, ErrCompositionAtCreation
		}
		ids, err := ValidateRoster(input.Players.Strings(), s.policy.capacity())
		if err != nil {
			return nil, err
		}
		entries := make([]*models.RosterEntry, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, &models.RosterEntry{PlayerID: id})
		}
		return entries, nil
	}

	size := s.policy.teamSize()
	if len(input.TeamA) != size || len(input.TeamB) != size {
		return nil, fmt.Errorf("%w: each team needs exactly %d players", ErrIncompleteTeams, size)
	}
	lineup, err := ValidateComposition(input.TeamA, input.TeamB)
	if err != nil {
		return nil, err
	}
	all := lineup.All()
	if len(all) > s.policy.capacity() {
		return nil, ErrRosterTooLarge
	}
	if len(input.Players) > 0 {
		// Явно переданный список игроков должен совпадать с составом команд.
		ids, err := ValidateRoster(input.Players.Strings(), s.policy.capacity())
		if err != nil {
			return nil, err
		}
		if !sameIDSet(ids, assignmentIDs(all)) {
			return nil, ErrCompositionNotInRoster
		}
	}

	entries := make([]*models.RosterEntry, 0, len(all))
	for _, a := range all {
		team, position := a.Team, a.Position
		entries = append(entries, &models.RosterEntry{PlayerID: a.PlayerID, Team: &team, Position: &position})
	}
	return entries, nil
}

func (s *matchService) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	return s.loadMatch(ctx, nil, id)
}

func (s *matchService) ListMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, s.wrapStorageError(ctx, "list matches", err)
	}
	if err := s.attachRosters(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *matchService) ListPlayedMatches(ctx context.Context, input ListPlayedMatchesInput) (*models.PlayedMatchPage, error) {
	limit := defaultPlayedPageLimit
	if raw := strings.TrimSpace(input.Limit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, ErrInvalidLimit
		}
		limit = n
	}
	offset := 0
	if raw := strings.TrimSpace(input.Offset); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, ErrInvalidOffset
		}
		offset = n
	}

	filter := repositories.PlayedMatchFilter{Limit: limit, Offset: offset}
	if playerID := strings.TrimSpace(input.PlayerID); playerID != "" {
		filter.PlayerID = &playerID
	}

	matches, total, err := s.matchRepo.ListPlayed(ctx, filter)
	if err != nil {
		return nil, s.wrapStorageError(ctx, "list played matches", err)
	}
	if err := s.attachRosters(ctx, matches); err != nil {
		return nil, err
	}

	items := make([]models.PlayedMatch, 0, len(matches))
	for _, m := range matches {
		items = append(items, models.PlayedMatch{Match: m, Winner: m.Winner()})
	}
	return &models.PlayedMatchPage{
		Items:      items,
		Pagination: models.Pagination{Limit: limit, Offset: offset, Total: total},
	}, nil
}

func (s *matchService) UpdateMatch(ctx context.Context, id string, input UpdateMatchInput) (*models.Match, error) {
	playedAt, location, err := validateMatchDetails(input.PlayedAt, input.Location)
	if err != nil {
		return nil, err
	}

	var newRoster []string
	if input.Players != nil {
		newRoster, err = ValidateRoster(input.Players.Strings(), s.policy.capacity())
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.lockMutable(ctx, exec, id)
		if err != nil {
			return err
		}

		match.PlayedAt = playedAt
		match.Location = location
		match.ReservationURL = normalizeOptional(input.ReservationURL)
		if err := s.matchRepo.UpdateDetails(ctx, exec, match); err != nil {
			return err
		}

		if newRoster == nil {
			return nil
		}
		return s.replaceRoster(ctx, exec, id, newRoster)
	})
	if err != nil {
		return nil, s.wrapStorageError(ctx, "update match", err)
	}

	updated, err := s.loadMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(EventMatchUpdated, id, updated)
	return updated, nil
}

// replaceRoster applies the difference between the stored roster and ids:
// retained players keep their team and position.
func (s *matchService) replaceRoster(ctx context.Context, exec repositories.SQLExecutor, matchID string, ids []string) error {
	current, err := s.rosterRepo.ListByMatch(ctx, exec, matchID)
	if err != nil {
		return err
	}

	existing := make(map[string]struct{}, len(current))
	for _, e := range current {
		existing[e.PlayerID] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var removed []string
	for _, e := range current {
		if _, keep := wanted[e.PlayerID]; !keep {
			removed = append(removed, e.PlayerID)
		}
	}
	var added []*models.RosterEntry
	var addedIDs []string
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			added = append(added, &models.RosterEntry{MatchID: matchID, PlayerID: id})
			addedIDs = append(addedIDs, id)
		}
	}

	if err := s.ensurePlayersExist(ctx, exec, addedIDs); err != nil {
		return err
	}
	if err := s.rosterRepo.Remove(ctx, exec, matchID, removed); err != nil {
		return err
	}
	return s.mapRosterError(s.rosterRepo.Add(ctx, exec, added))
}

func (s *matchService) AssignComposition(ctx context.Context, id string, input CompositionInput) (*models.Match, error) {
	lineup, err := ValidateComposition(input.TeamA, input.TeamB)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.lockMutable(ctx, exec, id); err != nil {
			return err
		}

		roster, err := s.rosterRepo.ListByMatch(ctx, exec, id)
		if err != nil {
			return err
		}
		members := make(map[string]struct{}, len(roster))
		for _, e := range roster {
			members[e.PlayerID] = struct{}{}
		}
		var outsiders []string
		for _, a := range lineup.All() {
			if _, ok := members[a.PlayerID]; !ok {
				outsiders = append(outsiders, a.PlayerID)
			}
		}
		if len(outsiders) > 0 {
			return fmt.Errorf("%w: %s", ErrCompositionNotInRoster, strings.Join(outsiders, ", "))
		}

		// Очистка и повторное назначение в одной транзакции: читатели не видят пустой состав.
		if err := s.rosterRepo.ClearComposition(ctx, exec, id); err != nil {
			return err
		}
		for _, a := range lineup.All() {
			if err := s.rosterRepo.Assign(ctx, exec, id, a); err != nil {
				return s.mapRosterError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapStorageError(ctx, "assign composition", err)
	}

	updated, err := s.loadMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(EventMatchUpdated, id, updated)
	return updated, nil
}

func (s *matchService) EnterScore(ctx context.Context, id string, input ScoreInput) (*models.Match, error) {
	teamA, okA := parseScore(input.TeamAScore)
	teamB, okB := parseScore(input.TeamBScore)
	if !okA || !okB {
		return nil, ErrScoreInvalid
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.matchRepo.GetForUpdate(ctx, exec, id); err != nil {
			return err
		}
		players, err := s.rosterRepo.Count(ctx, exec, id)
		if err != nil {
			return err
		}
		if players == 0 {
			return ErrScoreWithoutRoster
		}
		return s.matchRepo.SetScore(ctx, exec, id, teamA, teamB)
	})
	if err != nil {
		return nil, s.wrapStorageError(ctx, "enter score", err)
	}

	played, err := s.loadMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	s.archiveSheet(ctx, played)
	s.events.Publish(EventMatchUpdated, id, played)
	return played, nil
}

// ResetScore returns the match to scheduled and retracts its MVP votes in the same transaction.
func (s *matchService) ResetScore(ctx context.Context, id string) (*models.Match, error) {
	var retracted int64
	var unchanged bool
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		// Счёт не записан: сбрасывать нечего, событий не будет.
		if match.Status != models.MatchStatusPlayed {
			unchanged = true
			return nil
		}
		if err := s.matchRepo.ClearScore(ctx, exec, id); err != nil {
			return err
		}
		n, err := s.voteRepo.DeleteByMatch(ctx, exec, id)
		retracted = n
		return err
	})
	if err != nil {
		return nil, s.wrapStorageError(ctx, "reset score", err)
	}
	if unchanged {
		return s.loadMatch(ctx, nil, id)
	}

	if retracted > 0 {
		s.logger.InfoContext(ctx, "mvp votes retracted on score reset", slog.String("match_id", id), slog.Int64("votes", retracted))
	}
	s.removeSheet(ctx, id)

	match, err := s.loadMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(EventMatchUpdated, id, match)
	if retracted > 0 {
		s.events.Publish(EventMvpUpdated, id, emptyTally(id, len(match.Roster)))
	}
	return match, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, id string) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.matchRepo.GetForUpdate(ctx, exec, id); err != nil {
			return err
		}
		if _, err := s.voteRepo.DeleteByMatch(ctx, exec, id); err != nil {
			return err
		}
		if err := s.rosterRepo.DeleteByMatch(ctx, exec, id); err != nil {
			return err
		}
		return s.matchRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return s.wrapStorageError(ctx, "delete match", err)
	}

	s.removeSheet(ctx, id)
	s.events.Publish(EventMatchDeleted, id, MatchDeletedPayload{MatchID: id})
	return nil
}

// lockMutable locks the match row and rejects changes to a played match.
func (s *matchService) lockMutable(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Match, error) {
	match, err := s.matchRepo.GetForUpdate(ctx, exec, id)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusPlayed {
		return nil, ErrMatchFrozen
	}
	return match, nil
}

func (s *matchService) loadMatch(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, id)
	if err != nil {
		return nil, s.wrapStorageError(ctx, "get match", err)
	}
	roster, err := s.rosterRepo.ListByMatch(ctx, exec, id)
	if err != nil {
		return nil, s.wrapStorageError(ctx, "get match roster", err)
	}
	match.SetRoster(roster)
	s.populateSheetURL(match)
	return match, nil
}

func (s *matchService) attachRosters(ctx context.Context, matches []*models.Match) error {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	rosters, err := s.rosterRepo.ListByMatches(ctx, ids)
	if err != nil {
		return s.wrapStorageError(ctx, "list match rosters", err)
	}
	for _, m := range matches {
		m.SetRoster(rosters[m.ID])
		s.populateSheetURL(m)
	}
	return nil
}

func (s *matchService) ensurePlayersExist(ctx context.Context, exec repositories.SQLExecutor, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	existing, err := s.playerRepo.FilterExisting(ctx, exec, ids)
	if err != nil {
		return err
	}
	if len(existing) == len(ids) {
		return nil
	}
	found := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return fmt.Errorf("%w: %s", ErrRosterUnknownPlayer, strings.Join(missing, ", "))
}

func (s *matchService) mapRosterError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrRosterPlayerInvalid):
		return ErrRosterUnknownPlayer
	case errors.Is(err, repositories.ErrRosterEntryConflict):
		return ErrRosterDuplicate
	case errors.Is(err, repositories.ErrRosterPositionConflict):
		return ErrCompositionPosition
	case errors.Is(err, repositories.ErrRosterEntryNotFound):
		return ErrCompositionNotInRoster
	default:
		return err
	}
}

// wrapStorageError passes domain errors through and logs everything else.
func (s *matchService) wrapStorageError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case isDomainError(err):
		return err
	}
	s.logger.ErrorContext(ctx, "match storage failure", slog.String("op", op), slog.Any("error", err))
	return fmt.Errorf("failed to %s: %w", op, err)
}

func sheetKey(matchID string) string {
	return fmt.Sprintf("matches/%s/sheet.json", matchID)
}

func (s *matchService) populateSheetURL(m *models.Match) {
	if s.uploader == nil || m.Status != models.MatchStatusPlayed {
		m.SheetURL = nil
		return
	}
	if u := s.uploader.GetPublicURL(sheetKey(m.ID)); u != "" {
		m.SheetURL = &u
	}
}

// archiveSheet uploads the played match as a JSON sheet. Failures are logged only.
func (s *matchService) archiveSheet(ctx context.Context, m *models.Match) {
	if s.uploader == nil {
		return
	}
	body, err := json.Marshal(m)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode match sheet", slog.String("match_id", m.ID), slog.Any("error", err))
		return
	}
	if _, err := s.uploader.Upload(ctx, sheetKey(m.ID), sheetContentType, bytes.NewReader(body)); err != nil {
		s.logger.WarnContext(ctx, "failed to archive match sheet", slog.String("match_id", m.ID), slog.Any("error", err))
	}
}

func (s *matchService) removeSheet(ctx context.Context, matchID string) {
	if s.uploader == nil {
		return
	}
	if err := s.uploader.Delete(ctx, sheetKey(matchID)); err != nil {
		s.logger.WarnContext(ctx, "failed to delete match sheet", slog.String("match_id", matchID), slog.Any("error", err))
	}
}

var matchTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseMatchTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range matchTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func validateMatchDetails(playedAt, location string) (time.Time, string, error) {
	t, ok := parseMatchTime(playedAt)
	if !ok {
		return time.Time{}, "", ErrMatchDateInvalid
	}
	loc := strings.TrimSpace(location)
	if loc == "" {
		return time.Time{}, "", ErrMatchLocationRequired
	}
	return t, loc, nil
}

// parseScore accepts non-negative integral numbers such as "2" or "2.0".
func parseScore(n json.Number) (int, bool) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func rosterIDs(entries []*models.RosterEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PlayerID)
	}
	return ids
}

func assignmentIDs(all []models.Assignment) []string {
	ids := make([]string, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.PlayerID)
	}
	return ids
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
