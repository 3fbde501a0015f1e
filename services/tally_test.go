package services

import (
	"testing"

	"github.com/Dosada05/matchday/models"
)

func TestRankResultsSharedFirstPlace(t *testing.T) {
	counts := []models.VoteCount{
		{PlayerID: "p3", LastName: "Zidane", Votes: 1},
		{PlayerID: "p2", LastName: "Pirlo", Votes: 3},
		{PlayerID: "p1", LastName: "baggio", Votes: 3},
	}

	results := RankResults(counts)
	want := []struct {
		id   string
		rank int
		mvp  bool
	}{
		{"p1", 1, true},
		{"p2", 1, true},
		{"p3", 3, false},
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, w := range want {
		r := results[i]
		if r.PlayerID != w.id || r.Rank != w.rank || r.IsMVP != w.mvp {
			t.Errorf("result %d = %+v, want id=%s rank=%d mvp=%v", i, r, w.id, w.rank, w.mvp)
		}
	}
}

func TestRankResultsTieBreakIsDeterministic(t *testing.T) {
	a := []models.VoteCount{
		{PlayerID: "x", FirstName: "Ann", LastName: "Smith", Votes: 2},
		{PlayerID: "y", FirstName: "Bob", LastName: "smith", Votes: 2},
		{PlayerID: "z", FirstName: "Bob", LastName: "Smith", Votes: 2},
	}
	b := []models.VoteCount{a[2], a[0], a[1]}

	ra, rb := RankResults(a), RankResults(b)
	for i := range ra {
		if ra[i].PlayerID != rb[i].PlayerID {
			t.Fatalf("order depends on input: %v vs %v", ra, rb)
		}
	}
	if ra[0].PlayerID != "x" || ra[1].PlayerID != "y" || ra[2].PlayerID != "z" {
		t.Errorf("unexpected order: %s %s %s", ra[0].PlayerID, ra[1].PlayerID, ra[2].PlayerID)
	}
}

func TestBuildTallyMvpConsistency(t *testing.T) {
	counts := []models.VoteCount{
		{PlayerID: "p1", LastName: "Baggio", Votes: 3},
		{PlayerID: "p2", LastName: "Pirlo", Votes: 3},
		{PlayerID: "p3", LastName: "Zidane", Votes: 1},
	}
	tally := BuildTally("m1", counts, 8)

	if tally.TotalVotes != 7 {
		t.Errorf("TotalVotes = %d, want 7", tally.TotalVotes)
	}
	if tally.EligibleVoters != 8 {
		t.Errorf("EligibleVoters = %d, want 8", tally.EligibleVoters)
	}
	if len(tally.MVPs) != 2 {
		t.Fatalf("len(MVPs) = %d, want 2", len(tally.MVPs))
	}
	for _, r := range tally.Results {
		inMVPs := false
		for _, m := range tally.MVPs {
			if m.PlayerID == r.PlayerID {
				inMVPs = true
			}
		}
		if inMVPs != (r.Rank == 1) {
			t.Errorf("player %s: rank %d but inMVPs=%v", r.PlayerID, r.Rank, inMVPs)
		}
	}
	if tally.MVP == nil || tally.MVP.PlayerID != "p1" {
		t.Errorf("MVP = %+v, want p1", tally.MVP)
	}
}

func TestBuildTallyNoVotes(t *testing.T) {
	tally := BuildTally("m1", nil, 4)
	if tally.MVP != nil || len(tally.MVPs) != 0 || len(tally.Results) != 0 {
		t.Errorf("empty tally = %+v", tally)
	}
	if tally.Results == nil || tally.MVPs == nil {
		t.Error("empty tally should encode lists as [] not null")
	}
}

func TestBuildLeaderboard(t *testing.T) {
	counts := []models.VoteCount{
		// m1: p1 wins alone
		{MatchID: "m1", PlayerID: "p1", LastName: "Baggio", Votes: 3},
		{MatchID: "m1", PlayerID: "p2", LastName: "Pirlo", Votes: 1},
		// m2: p1 and p2 share first
		{MatchID: "m2", PlayerID: "p1", LastName: "Baggio", Votes: 2},
		{MatchID: "m2", PlayerID: "p2", LastName: "Pirlo", Votes: 2},
		// m3: p3 wins
		{MatchID: "m3", PlayerID: "p3", LastName: "Albertini", Votes: 4},
	}

	board := BuildLeaderboard(counts)
	want := []struct {
		id       string
		mvpCount int
		total    int
	}{
		{"p1", 2, 5},
		{"p3", 1, 4},
		{"p2", 1, 3},
	}
	if len(board) != len(want) {
		t.Fatalf("got %d rows, want %d", len(board), len(want))
	}
	for i, w := range want {
		row := board[i]
		if row.Player.ID != w.id || row.MvpCount != w.mvpCount || row.TotalVotes != w.total {
			t.Errorf("row %d = %+v, want %s mvp=%d total=%d", i, row, w.id, w.mvpCount, w.total)
		}
	}
}
