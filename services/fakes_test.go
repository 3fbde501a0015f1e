package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
	"github.com/Dosada05/matchday/storage"
)

// fakeDB is an in-memory stand-in for the Postgres schema shared by the fake repositories.
type fakeDB struct {
	mu      sync.Mutex
	seq     int
	now     time.Time
	players map[string]models.Player
	matches map[string]models.Match
	roster  map[string][]models.RosterEntry
	votes   []models.MvpVote

	failOn map[string]error
	// hideVotes makes FindByVoter miss, as if a concurrent request passed the pre-check.
	hideVotes bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		now:     time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC),
		players: make(map[string]models.Player),
		matches: make(map[string]models.Match),
		roster:  make(map[string][]models.RosterEntry),
		failOn:  make(map[string]error),
	}
}

func (db *fakeDB) fail(op string) error {
	return db.failOn[op]
}

func (db *fakeDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s%d", prefix, db.seq)
}

func (db *fakeDB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

type fakeSnapshot struct {
	players map[string]models.Player
	matches map[string]models.Match
	roster  map[string][]models.RosterEntry
	votes   []models.MvpVote
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTeamPtr(p *models.Team) *models.Team {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyMatch(m models.Match) models.Match {
	m.TeamAScore = copyIntPtr(m.TeamAScore)
	m.TeamBScore = copyIntPtr(m.TeamBScore)
	m.Roster, m.TeamA, m.TeamB = nil, nil, nil
	return m
}

func copyEntry(e models.RosterEntry) models.RosterEntry {
	e.Team = copyTeamPtr(e.Team)
	e.Position = copyIntPtr(e.Position)
	return e
}

func (db *fakeDB) snapshot() fakeSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := fakeSnapshot{
		players: make(map[string]models.Player, len(db.players)),
		matches: make(map[string]models.Match, len(db.matches)),
		roster:  make(map[string][]models.RosterEntry, len(db.roster)),
		votes:   append([]models.MvpVote(nil), db.votes...),
	}
	for k, v := range db.players {
		s.players[k] = v
	}
	for k, v := range db.matches {
		s.matches[k] = copyMatch(v)
	}
	for k, entries := range db.roster {
		cp := make([]models.RosterEntry, 0, len(entries))
		for _, e := range entries {
			cp = append(cp, copyEntry(e))
		}
		s.roster[k] = cp
	}
	return s
}

func (db *fakeDB) restore(s fakeSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.players, db.matches, db.roster, db.votes = s.players, s.matches, s.roster, s.votes
}

func snapshotsEqual(a, b fakeSnapshot) bool {
	return reflect.DeepEqual(a, b)
}

func (db *fakeDB) addPlayer(id, first, last string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.players[id] = models.Player{ID: id, FirstName: first, LastName: last, CreatedAt: db.tick()}
}

// fakeTx restores the snapshot taken before fn when fn fails.
type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	before := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(before)
		return err
	}
	return nil
}

type fakePlayerRepo struct{ db *fakeDB }

func (r *fakePlayerRepo) Create(ctx context.Context, p *models.Player) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("players.Create"); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = r.db.nextID("p")
	}
	p.CreatedAt = r.db.tick()
	p.UpdatedAt = p.CreatedAt
	r.db.players[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id string) (*models.Player, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *fakePlayerRepo) List(ctx context.Context) ([]*models.Player, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Player, 0, len(r.db.players))
	for _, p := range r.db.players {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakePlayerRepo) Update(ctx context.Context, p *models.Player) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.players[p.ID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.db.tick()
	r.db.players[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.players[id]; !ok {
		return repositories.ErrPlayerNotFound
	}
	for _, entries := range r.db.roster {
		for _, e := range entries {
			if e.PlayerID == id {
				return repositories.ErrPlayerReferenced
			}
		}
	}
	delete(r.db.players, id)
	return nil
}

func (r *fakePlayerRepo) FilterExisting(ctx context.Context, exec repositories.SQLExecutor, ids []string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []string{}
	for _, id := range ids {
		if _, ok := r.db.players[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeMatchRepo struct{ db *fakeDB }

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("matches.Create"); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = r.db.nextID("m")
	}
	if m.Status == "" {
		m.Status = models.MatchStatusScheduled
	}
	m.CreatedAt = r.db.tick()
	m.UpdatedAt = m.CreatedAt
	r.db.matches[m.ID] = copyMatch(*m)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := copyMatch(m)
	return &cp, nil
}

func (r *fakeMatchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) sorted(filter func(models.Match) bool) []*models.Match {
	out := []*models.Match{}
	for _, m := range r.db.matches {
		if filter(m) {
			cp := copyMatch(m)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlayedAt.Equal(out[j].PlayedAt) {
			return out[i].PlayedAt.After(out[j].PlayedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *fakeMatchRepo) List(ctx context.Context) ([]*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.sorted(func(models.Match) bool { return true }), nil
}

func (r *fakeMatchRepo) ListPlayed(ctx context.Context, f repositories.PlayedMatchFilter) ([]*models.Match, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.sorted(func(m models.Match) bool {
		if m.Status != models.MatchStatusPlayed {
			return false
		}
		if f.PlayerID == nil {
			return true
		}
		for _, e := range r.db.roster[m.ID] {
			if e.PlayerID == *f.PlayerID {
				return true
			}
		}
		return false
	})
	total := len(all)
	if f.Offset >= total {
		return []*models.Match{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r *fakeMatchRepo) UpdateDetails(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("matches.UpdateDetails"); err != nil {
		return err
	}
	stored, ok := r.db.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.PlayedAt, stored.Location, stored.ReservationURL = m.PlayedAt, m.Location, m.ReservationURL
	stored.UpdatedAt = r.db.tick()
	m.UpdatedAt = stored.UpdatedAt
	r.db.matches[m.ID] = stored
	return nil
}

func (r *fakeMatchRepo) SetScore(ctx context.Context, exec repositories.SQLExecutor, id string, a, b int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("matches.SetScore"); err != nil {
		return err
	}
	stored, ok := r.db.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.TeamAScore, stored.TeamBScore = &a, &b
	stored.Status = models.MatchStatusPlayed
	stored.UpdatedAt = r.db.tick()
	r.db.matches[id] = stored
	return nil
}

func (r *fakeMatchRepo) ClearScore(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.TeamAScore, stored.TeamBScore = nil, nil
	stored.Status = models.MatchStatusScheduled
	stored.UpdatedAt = r.db.tick()
	r.db.matches[id] = stored
	return nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("matches.Delete"); err != nil {
		return err
	}
	if _, ok := r.db.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.db.matches, id)
	return nil
}

type fakeRosterRepo struct{ db *fakeDB }

func (r *fakeRosterRepo) joined(matchID string) []*models.RosterEntry {
	out := []*models.RosterEntry{}
	for _, e := range r.db.roster[matchID] {
		cp := copyEntry(e)
		p := r.db.players[e.PlayerID]
		cp.FirstName, cp.LastName = p.FirstName, p.LastName
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Team == nil) != (b.Team == nil) {
			return a.Team != nil
		}
		if a.Team != nil && *a.Team != *b.Team {
			return *a.Team < *b.Team
		}
		if (a.Position == nil) != (b.Position == nil) {
			return a.Position != nil
		}
		if a.Position != nil && *a.Position != *b.Position {
			return *a.Position < *b.Position
		}
		return a.LastName < b.LastName
	})
	return out
}

func (r *fakeRosterRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string) ([]*models.RosterEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.joined(matchID), nil
}

func (r *fakeRosterRepo) ListByMatches(ctx context.Context, matchIDs []string) (map[string][]*models.RosterEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[string][]*models.RosterEntry, len(matchIDs))
	for _, id := range matchIDs {
		if entries := r.joined(id); len(entries) > 0 {
			out[id] = entries
		}
	}
	return out, nil
}

func (r *fakeRosterRepo) positionTaken(matchID string, team models.Team, position int, except string) bool {
	for _, e := range r.db.roster[matchID] {
		if e.PlayerID != except && e.Team != nil && *e.Team == team && e.Position != nil && *e.Position == position {
			return true
		}
	}
	return false
}

func (r *fakeRosterRepo) Add(ctx context.Context, exec repositories.SQLExecutor, entries []*models.RosterEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range entries {
		if err := r.db.fail("roster.Add"); err != nil {
			return err
		}
		if _, ok := r.db.players[e.PlayerID]; !ok {
			return repositories.ErrRosterPlayerInvalid
		}
		for _, existing := range r.db.roster[e.MatchID] {
			if existing.PlayerID == e.PlayerID {
				return repositories.ErrRosterEntryConflict
			}
		}
		if e.Team != nil && e.Position != nil && r.positionTaken(e.MatchID, *e.Team, *e.Position, "") {
			return repositories.ErrRosterPositionConflict
		}
		e.CreatedAt = r.db.tick()
		r.db.roster[e.MatchID] = append(r.db.roster[e.MatchID], copyEntry(*e))
	}
	return nil
}

func (r *fakeRosterRepo) Remove(ctx context.Context, exec repositories.SQLExecutor, matchID string, playerIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	drop := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		drop[id] = true
	}
	kept := []models.RosterEntry{}
	for _, e := range r.db.roster[matchID] {
		if !drop[e.PlayerID] {
			kept = append(kept, e)
		}
	}
	r.db.roster[matchID] = kept
	return nil
}

func (r *fakeRosterRepo) ClearComposition(ctx context.Context, exec repositories.SQLExecutor, matchID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("roster.ClearComposition"); err != nil {
		return err
	}
	entries := r.db.roster[matchID]
	for i := range entries {
		entries[i].Team, entries[i].Position = nil, nil
	}
	return nil
}

func (r *fakeRosterRepo) Assign(ctx context.Context, exec repositories.SQLExecutor, matchID string, a models.Assignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("roster.Assign"); err != nil {
		return err
	}
	if r.positionTaken(matchID, a.Team, a.Position, a.PlayerID) {
		return repositories.ErrRosterPositionConflict
	}
	entries := r.db.roster[matchID]
	for i := range entries {
		if entries[i].PlayerID == a.PlayerID {
			team, pos := a.Team, a.Position
			entries[i].Team, entries[i].Position = &team, &pos
			return nil
		}
	}
	return repositories.ErrRosterEntryNotFound
}

func (r *fakeRosterRepo) Count(ctx context.Context, exec repositories.SQLExecutor, matchID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.roster[matchID]), nil
}

func (r *fakeRosterRepo) DeleteByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("roster.DeleteByMatch"); err != nil {
		return err
	}
	delete(r.db.roster, matchID)
	return nil
}

type fakeVoteRepo struct{ db *fakeDB }

func (r *fakeVoteRepo) inRoster(matchID, playerID string) bool {
	for _, e := range r.db.roster[matchID] {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (r *fakeVoteRepo) Create(ctx context.Context, exec repositories.SQLExecutor, v *models.MvpVote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.votes {
		if existing.MatchID == v.MatchID && existing.VoterID == v.VoterID {
			return repositories.ErrVoteConflict
		}
	}
	if !r.inRoster(v.MatchID, v.VoterID) || !r.inRoster(v.MatchID, v.VotedForID) {
		return repositories.ErrVoteParticipantInvalid
	}
	if v.ID == "" {
		v.ID = r.db.nextID("v")
	}
	v.CreatedAt = r.db.tick()
	r.db.votes = append(r.db.votes, *v)
	return nil
}

func (r *fakeVoteRepo) FindByVoter(ctx context.Context, exec repositories.SQLExecutor, matchID, voterID string) (*models.MvpVote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.hideVotes {
		return nil, repositories.ErrVoteNotFound
	}
	for _, v := range r.db.votes {
		if v.MatchID == matchID && v.VoterID == voterID {
			cp := v
			return &cp, nil
		}
	}
	return nil, repositories.ErrVoteNotFound
}

func (r *fakeVoteRepo) DeleteByVoter(ctx context.Context, exec repositories.SQLExecutor, matchID, voterID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, v := range r.db.votes {
		if v.MatchID == matchID && v.VoterID == voterID {
			r.db.votes = append(r.db.votes[:i:i], r.db.votes[i+1:]...)
			return nil
		}
	}
	return repositories.ErrVoteNotFound
}

func (r *fakeVoteRepo) DeleteByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("votes.DeleteByMatch"); err != nil {
		return 0, err
	}
	kept := []models.MvpVote{}
	var removed int64
	for _, v := range r.db.votes {
		if v.MatchID == matchID {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	r.db.votes = kept
	return removed, nil
}

func (r *fakeVoteRepo) counts(include func(matchID string) bool) []models.VoteCount {
	type key struct{ match, player string }
	agg := map[key]int{}
	var order []key
	for _, v := range r.db.votes {
		if !include(v.MatchID) {
			continue
		}
		k := key{v.MatchID, v.VotedForID}
		if _, ok := agg[k]; !ok {
			order = append(order, k)
		}
		agg[k]++
	}
	out := []models.VoteCount{}
	for _, k := range order {
		p := r.db.players[k.player]
		out = append(out, models.VoteCount{MatchID: k.match, PlayerID: k.player, FirstName: p.FirstName, LastName: p.LastName, Votes: agg[k]})
	}
	return out
}

func (r *fakeVoteRepo) CountsByMatch(ctx context.Context, matchID string) ([]models.VoteCount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.counts(func(id string) bool { return id == matchID }), nil
}

func (r *fakeVoteRepo) CountsForPlayedMatches(ctx context.Context) ([]models.VoteCount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.counts(func(id string) bool {
		m, ok := r.db.matches[id]
		return ok && m.Status == models.MatchStatusPlayed
	}), nil
}

type publishedEvent struct {
	Type    string
	MatchID string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(eventType, matchID string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, MatchID: matchID})
}

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	failErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.failErr != nil {
		return nil, u.failErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + strings.TrimPrefix(key, "/")
}

type testEnv struct {
	db       *fakeDB
	matches  MatchService
	mvp      MvpService
	players  PlayerService
	events   *fakePublisher
	uploader *fakeUploader
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(policy MatchPolicy) *testEnv {
	db := newFakeDB()
	tx := &fakeTx{db: db}
	players := &fakePlayerRepo{db: db}
	matches := &fakeMatchRepo{db: db}
	roster := &fakeRosterRepo{db: db}
	votes := &fakeVoteRepo{db: db}
	events := &fakePublisher{}
	uploader := newFakeUploader()
	logger := discardLogger()

	return &testEnv{
		db:       db,
		matches:  NewMatchService(tx, matches, roster, votes, players, policy, events, uploader, logger),
		mvp:      NewMvpService(tx, matches, roster, votes, events, logger),
		players:  NewPlayerService(players, logger),
		events:   events,
		uploader: uploader,
	}
}
