package cup

import (
	"context"
	"fmt"

	"github.com/inseasoncup/cup-server/internal/obslog"
	"go.uber.org/zap"
)

// Directory maps participants to the teams they own. Ownership is assigned
// at draft time; settlement only reads it to credit title defenses.
type Directory struct {
	store *Store
}

func NewDirectory(store *Store) *Directory { return &Directory{store: store} }

// FindOwnerOfTeam returns the first participant (ascending id) whose team
// set contains team, or nil when nobody owns it. More than one owner is a
// data-integrity gap and gets logged, with the first match used.
func (d *Directory) FindOwnerOfTeam(ctx context.Context, team string) (*Player, error) {
	players, err := d.store.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	var owner *Player
	for _, p := range players {
		if !hasTeam(p.Teams, team) {
			continue
		}
		if owner == nil {
			owner = p
			continue
		}
		obslog.L().Warn("duplicate_owner",
			zap.String("team", team),
			zap.String("owner", owner.ID),
			zap.String("also", p.ID),
		)
	}
	return owner, nil
}

// AddTeam adds team to a player's set. Adding an already-owned team is a
// no-op.
func (d *Directory) AddTeam(ctx context.Context, playerID, team string) (*Player, error) {
	p, err := d.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if hasTeam(p.Teams, team) {
		return p, nil
	}
	p.Teams = append(p.Teams, team)
	if err := d.store.SavePlayer(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveTeam removes team from a player's set. Removing an unowned team is
// a no-op.
func (d *Directory) RemoveTeam(ctx context.Context, playerID, team string) (*Player, error) {
	p, err := d.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if !hasTeam(p.Teams, team) {
		return p, nil
	}
	next := make([]string, 0, len(p.Teams)-1)
	for _, t := range p.Teams {
		if t != team {
			next = append(next, t)
		}
	}
	p.Teams = next
	if err := d.store.SavePlayer(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ResetAllTeams clears every participant's team set. Used by draft/admin
// flows only.
func (d *Directory) ResetAllTeams(ctx context.Context) error {
	players, err := d.store.ListPlayers(ctx)
	if err != nil {
		return err
	}
	for _, p := range players {
		p.Teams = nil
		if err := d.store.SavePlayer(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func hasTeam(teams []string, team string) bool {
	for _, t := range teams {
		if t == team {
			return true
		}
	}
	return false
}
