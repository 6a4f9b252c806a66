package cup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPlayerNotFound   = errors.New("player not found")
)

// Store is the persistent-state adapter. GameOptions lives in a hash so
// clearing the tracked game id removes the field outright; game records are
// created with SetNX, which is the at-most-once settlement boundary.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyOptions() string          { return "cup:options" }
func (s *Store) keyRecord(id int64) string   { return "cup:record:" + strconv.FormatInt(id, 10) }
func (s *Store) keyRecordIdx() string        { return "cup:records" }
func (s *Store) keyPlayer(id string) string  { return "cup:player:" + id }
func (s *Store) keyPlayerIdx() string        { return "cup:players" }
func (s *Store) keyPlayerNameIdx() string    { return "cup:players:byname" }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// Options reads the singleton champion/tracked-game record. Absent fields
// decode to zero values.
func (s *Store) Options(ctx context.Context) (GameOptions, error) {
	m, err := s.rdb.HGetAll(ctx, s.keyOptions()).Result()
	if err != nil {
		return GameOptions{}, storeErr("options get", err)
	}
	opts := GameOptions{Champion: m["champion"]}
	if v := m["gameID"]; v != "" {
		opts.GameID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := m["updatedAt"]; v != "" {
		opts.UpdatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return opts, nil
}

// SetGameID stores the tracked game id. A zero id deletes the field so
// downstream reads uniformly see "no game tracked".
func (s *Store) SetGameID(ctx context.Context, id int64) error {
	if id == 0 {
		if err := s.rdb.HDel(ctx, s.keyOptions(), "gameID").Err(); err != nil {
			return storeErr("gameID clear", err)
		}
		return nil
	}
	err := s.rdb.HSet(ctx, s.keyOptions(),
		"gameID", strconv.FormatInt(id, 10),
		"updatedAt", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return storeErr("gameID set", err)
	}
	return nil
}

func (s *Store) SetChampion(ctx context.Context, team string) error {
	err := s.rdb.HSet(ctx, s.keyOptions(),
		"champion", team,
		"updatedAt", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return storeErr("champion set", err)
	}
	return nil
}

// GetRecord returns the settled record for a game id, or nil when the game
// has not been settled.
func (s *Store) GetRecord(ctx context.Context, id int64) (*GameRecord, error) {
	raw, err := s.rdb.Get(ctx, s.keyRecord(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("record get", err)
	}
	var rec GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, storeErr("record decode", err)
	}
	return &rec, nil
}

// CreateRecord writes a settled game record only if none exists for the id.
// Returns false when a prior or concurrent invocation got there first.
func (s *Store) CreateRecord(ctx context.Context, rec *GameRecord) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, storeErr("record encode", err)
	}
	created, err := s.rdb.SetNX(ctx, s.keyRecord(rec.ID), raw, 0).Result()
	if err != nil {
		return false, storeErr("record create", err)
	}
	if !created {
		return false, nil
	}
	if err := s.rdb.SAdd(ctx, s.keyRecordIdx(), strconv.FormatInt(rec.ID, 10)).Err(); err != nil {
		// record exists; a failed index add is retried as "already
		// processed" on the next tick
		return true, storeErr("record index", err)
	}
	return true, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]*GameRecord, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyRecordIdx()).Result()
	if err != nil {
		return nil, storeErr("records list", err)
	}
	out := make([]*GameRecord, 0, len(ids))
	for _, v := range ids {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		rec, err := s.GetRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*Player, error) {
	raw, err := s.rdb.Get(ctx, s.keyPlayer(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("player get", err)
	}
	var p Player
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, storeErr("player decode", err)
	}
	return &p, nil
}

// GetPlayerByName resolves a player through the name index.
func (s *Store) GetPlayerByName(ctx context.Context, name string) (*Player, error) {
	id, err := s.rdb.HGet(ctx, s.keyPlayerNameIdx(), name).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("player name index", err)
	}
	return s.GetPlayer(ctx, id)
}

func (s *Store) SavePlayer(ctx context.Context, p *Player) error {
	p.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return storeErr("player encode", err)
	}
	if err := s.rdb.Set(ctx, s.keyPlayer(p.ID), raw, 0).Err(); err != nil {
		return storeErr("player set", err)
	}
	if err := s.rdb.SAdd(ctx, s.keyPlayerIdx(), p.ID).Err(); err != nil {
		return storeErr("player index", err)
	}
	if p.Name != "" {
		if err := s.rdb.HSet(ctx, s.keyPlayerNameIdx(), p.Name, p.ID).Err(); err != nil {
			return storeErr("player name index", err)
		}
	}
	return nil
}

// ListPlayers returns every participant in ascending id order, which keeps
// owner scans deterministic.
func (s *Store) ListPlayers(ctx context.Context) ([]*Player, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyPlayerIdx()).Result()
	if err != nil {
		return nil, storeErr("players list", err)
	}
	sort.Strings(ids)
	out := make([]*Player, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPlayer(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// IncrementDefenses credits one title defense to a player.
func (s *Store) IncrementDefenses(ctx context.Context, id string) error {
	p, err := s.GetPlayer(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	p.TitleDefenses++
	return s.SavePlayer(ctx, p)
}
