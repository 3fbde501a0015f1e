package services

import (
	"context"
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCreatePlayer(t *testing.T) {
	tests := []struct {
		name    string
		input   PlayerInput
		wantErr error
	}{
		{name: "valid", input: PlayerInput{FirstName: " Gianluigi ", LastName: "Buffon", Email: strPtr("gigi@example.com")}},
		{name: "blank email treated as absent", input: PlayerInput{FirstName: "Gianluigi", LastName: "Buffon", Email: strPtr("  ")}},
		{name: "missing first name", input: PlayerInput{LastName: "Buffon"}, wantErr: ErrPlayerNameRequired},
		{name: "blank last name", input: PlayerInput{FirstName: "Gianluigi", LastName: "   "}, wantErr: ErrPlayerNameRequired},
		{name: "invalid email", input: PlayerInput{FirstName: "Gianluigi", LastName: "Buffon", Email: strPtr("not-an-email")}, wantErr: ErrPlayerEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(DefaultMatchPolicy())
			p, err := env.players.CreatePlayer(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreatePlayer() error = %v, want %v", err, tt.wantErr)
				}
				if len(env.db.players) != 0 {
					t.Error("invalid player must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePlayer() error: %v", err)
			}
			if p.ID == "" || p.FirstName != "Gianluigi" || p.LastName != "Buffon" {
				t.Errorf("player = %+v", p)
			}
			if tt.input.Email != nil && *tt.input.Email == "  " && p.Email != nil {
				t.Errorf("Email = %q, want nil", *p.Email)
			}
		})
	}
}

func TestCreatePlayerStorageFailure(t *testing.T) {
	env := newTestEnv(DefaultMatchPolicy())
	boom := errors.New("connection refused")
	env.db.failOn["players.Create"] = boom

	_, err := env.players.CreatePlayer(context.Background(), PlayerInput{FirstName: "Dino", LastName: "Zoff"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped storage error", err)
	}
	if isDomainError(err) {
		t.Error("storage error must map to a server error")
	}
}

func TestUpdateAndGetPlayer(t *testing.T) {
	env := newTestEnv(DefaultMatchPolicy())
	ctx := context.Background()
	env.db.addPlayer("p1", "Fabio", "Cannavaro")

	updated, err := env.players.UpdatePlayer(ctx, "p1", PlayerInput{FirstName: "Fabio", LastName: "Cannavaro", Phone: strPtr("+39 000")})
	if err != nil {
		t.Fatalf("UpdatePlayer() error: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != "+39 000" {
		t.Errorf("Phone = %v", updated.Phone)
	}

	got, err := env.players.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPlayer() error: %v", err)
	}
	if got.Phone == nil || *got.Phone != "+39 000" {
		t.Errorf("stored Phone = %v", got.Phone)
	}

	if _, err := env.players.UpdatePlayer(ctx, "missing", PlayerInput{FirstName: "A", LastName: "B"}); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("UpdatePlayer(missing) error = %v, want ErrPlayerNotFound", err)
	}
	if _, err := env.players.GetPlayer(ctx, "missing"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("GetPlayer(missing) error = %v, want ErrPlayerNotFound", err)
	}
}

func TestListPlayersEmpty(t *testing.T) {
	env := newTestEnv(DefaultMatchPolicy())
	players, err := env.players.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("ListPlayers() error: %v", err)
	}
	if players == nil || len(players) != 0 {
		t.Errorf("players = %v, want empty non-nil list", players)
	}
}

func TestDeletePlayer(t *testing.T) {
	env := newTestEnv(DefaultMatchPolicy())
	ctx := context.Background()
	env.db.addPlayer("p1", "Alessandro", "Nesta")
	env.db.addPlayer("p2", "Gennaro", "Gattuso")
	createMatch(t, env, "p1")

	if err := env.players.DeletePlayer(ctx, "p1"); !errors.Is(err, ErrPlayerInUse) || !errors.Is(err, ErrConflict) {
		t.Errorf("DeletePlayer(rostered) error = %v, want ErrPlayerInUse", err)
	}
	if err := env.players.DeletePlayer(ctx, "p2"); err != nil {
		t.Fatalf("DeletePlayer() error: %v", err)
	}
	if err := env.players.DeletePlayer(ctx, "p2"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("second DeletePlayer() error = %v, want ErrPlayerNotFound", err)
	}
}
