package cup

import (
	"context"
	"errors"
	"testing"
)

func TestAddTeamIdempotent(t *testing.T) {
	store := newTestStore(t)
	roster := NewDirectory(store)
	ctx := context.Background()

	if err := store.SavePlayer(ctx, &Player{ID: "p1", Name: "Alice"}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	p, err := roster.AddTeam(ctx, "p1", "BOS")
	if err != nil {
		t.Fatalf("AddTeam: %v", err)
	}
	if len(p.Teams) != 1 || p.Teams[0] != "BOS" {
		t.Fatalf("unexpected teams: %v", p.Teams)
	}

	p, err = roster.AddTeam(ctx, "p1", "BOS")
	if err != nil {
		t.Fatalf("AddTeam repeat: %v", err)
	}
	if len(p.Teams) != 1 {
		t.Fatalf("duplicate add must be a no-op: %v", p.Teams)
	}
}

func TestRemoveTeamIdempotent(t *testing.T) {
	store := newTestStore(t)
	roster := NewDirectory(store)
	ctx := context.Background()

	if err := store.SavePlayer(ctx, &Player{ID: "p1", Name: "Alice", Teams: []string{"BOS", "TOR"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	p, err := roster.RemoveTeam(ctx, "p1", "BOS")
	if err != nil {
		t.Fatalf("RemoveTeam: %v", err)
	}
	if len(p.Teams) != 1 || p.Teams[0] != "TOR" {
		t.Fatalf("unexpected teams: %v", p.Teams)
	}

	p, err = roster.RemoveTeam(ctx, "p1", "BOS")
	if err != nil {
		t.Fatalf("RemoveTeam repeat: %v", err)
	}
	if len(p.Teams) != 1 {
		t.Fatalf("removing an unowned team must be a no-op: %v", p.Teams)
	}
}

func TestRosterUnknownPlayer(t *testing.T) {
	store := newTestStore(t)
	roster := NewDirectory(store)
	ctx := context.Background()

	if _, err := roster.AddTeam(ctx, "ghost", "BOS"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("AddTeam: expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := roster.RemoveTeam(ctx, "ghost", "BOS"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("RemoveTeam: expected ErrPlayerNotFound, got %v", err)
	}
}

func TestFindOwnerOfTeam(t *testing.T) {
	store := newTestStore(t)
	roster := NewDirectory(store)
	ctx := context.Background()

	if err := store.SavePlayer(ctx, &Player{ID: "b2", Name: "Bob", Teams: []string{"BOS"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	if err := store.SavePlayer(ctx, &Player{ID: "a1", Name: "Alice", Teams: []string{"TOR"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	owner, err := roster.FindOwnerOfTeam(ctx, "BOS")
	if err != nil {
		t.Fatalf("FindOwnerOfTeam: %v", err)
	}
	if owner == nil || owner.ID != "b2" {
		t.Fatalf("expected b2, got %+v", owner)
	}

	owner, err = roster.FindOwnerOfTeam(ctx, "SEA")
	if err != nil {
		t.Fatalf("FindOwnerOfTeam: %v", err)
	}
	if owner != nil {
		t.Fatalf("expected no owner, got %+v", owner)
	}
}

func TestFindOwnerOfTeamDuplicatePicksFirstByID(t *testing.T) {
	store := newTestStore(t)
	roster := NewDirectory(store)
	ctx := context.Background()

	if err := store.SavePlayer(ctx, &Player{ID: "b2", Name: "Bob", Teams: []string{"BOS"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	if err := store.SavePlayer(ctx, &Player{ID: "a1", Name: "Alice", Teams: []string{"BOS"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	owner, err := roster.FindOwnerOfTeam(ctx, "BOS")
	if err != nil {
		t.Fatalf("FindOwnerOfTeam: %v", err)
	}
	if owner == nil || owner.ID != "a1" {
		t.Fatalf("expected a1 (first ascending id), got %+v", owner)
	}
}

func TestResetAllTeams(t *testing.T) {
	store := newTestStore(t)
	roster := NewDirectory(store)
	ctx := context.Background()

	if err := store.SavePlayer(ctx, &Player{ID: "a1", Name: "Alice", Teams: []string{"BOS", "TOR"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	if err := store.SavePlayer(ctx, &Player{ID: "b2", Name: "Bob", Teams: []string{"NYR"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	if err := roster.ResetAllTeams(ctx); err != nil {
		t.Fatalf("ResetAllTeams: %v", err)
	}

	players, err := store.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	for _, p := range players {
		if len(p.Teams) != 0 {
			t.Fatalf("player %s still owns teams: %v", p.ID, p.Teams)
		}
	}
}
