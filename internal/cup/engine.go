package cup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inseasoncup/cup-server/internal/nhl"
	"github.com/inseasoncup/cup-server/internal/obslog"
	"go.uber.org/zap"
)

// ErrAmbiguousResult fires when a finished game reports equal scores.
// Regulation ties do not occur upstream, so a tie means bad data and is
// never settled by guessing.
var ErrAmbiguousResult = errors.New("ambiguous result: tied score at final state")

var finishedStates = map[string]struct{}{
	"OFF":       {},
	"FINAL":     {},
	"COMPLETED": {},
	"OVER":      {},
}

func isFinished(gameState string) bool {
	_, ok := finishedStates[strings.ToUpper(strings.TrimSpace(gameState))]
	return ok
}

// Engine runs the settlement state machine. Each tick re-derives its
// inputs from the store, so overlapping or interrupted ticks resume
// safely; the conditional record create is the only exactly-once boundary.
type Engine struct {
	store    *Store
	resolver *Resolver
	api      *nhl.Client
	roster   *Directory
	archive  *Repository
}

func NewEngine(store *Store, resolver *Resolver, api *nhl.Client, roster *Directory) *Engine {
	return &Engine{store: store, resolver: resolver, api: api, roster: roster}
}

// AttachArchive wires an optional Postgres mirror for settled records.
func (e *Engine) AttachArchive(r *Repository) {
	if e != nil {
		e.archive = r
	}
}

// Tick checks the tracked game once: resolve a game for the champion when
// none is tracked, then settle it if it has finished. Every handled outcome
// returns a TickResult; an error aborts the tick with persisted state
// unchanged since the last completed step.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	log := obslog.L()

	opts, err := e.store.Options(ctx)
	if err != nil {
		return TickResult{}, err
	}

	gameID := opts.GameID
	if gameID == 0 {
		if opts.Champion == "" {
			log.Info("tick_noop", zap.String("reason", "no champion set"))
			return TickResult{Message: "No champion to check"}, nil
		}

		id, date, err := e.resolver.ResolveGameID(ctx, opts.Champion)
		if err != nil {
			return TickResult{}, err
		}
		if id == 0 {
			log.Info("tick_noop", zap.String("reason", "no champion game found"), zap.String("champion", opts.Champion))
			return TickResult{Message: "No champion game found"}, nil
		}
		if err := e.store.SetGameID(ctx, id); err != nil {
			return TickResult{}, err
		}
		log.Info("game_tracked",
			zap.String("champion", opts.Champion),
			zap.Int64("game_id", id),
			zap.String("date", date),
		)
		gameID = id
	}

	raw, err := e.api.Boxscore(ctx, gameID)
	if err != nil {
		return TickResult{}, err
	}
	box := raw.Normalize()
	log.Info("game_state",
		zap.Int64("game_id", gameID),
		zap.String("state", box.GameState),
		zap.Int("type", box.GameType),
		zap.String("matchup", box.HomeAbbrev+" vs "+box.AwayAbbrev),
		zap.String("score", fmt.Sprintf("%d-%d", box.HomeScore, box.AwayScore)),
	)

	if box.GameType != 0 && box.GameType != nhl.GameTypeRegular {
		// Only regular season games count; stop tracking this one.
		if err := e.store.SetGameID(ctx, 0); err != nil {
			return TickResult{}, err
		}
		log.Info("game_discarded", zap.Int64("game_id", gameID), zap.Int("type", box.GameType))
		return TickResult{Message: "Not a regular season game", GameID: gameID}, nil
	}

	if !isFinished(box.GameState) {
		return TickResult{
			Message: fmt.Sprintf("Game %d not finished (%s)", gameID, box.GameState),
			GameID:  gameID,
		}, nil
	}

	if box.HomeScore == box.AwayScore {
		return TickResult{}, fmt.Errorf("%w: game %d %s %d-%d %s",
			ErrAmbiguousResult, gameID, box.HomeAbbrev, box.HomeScore, box.AwayScore, box.AwayAbbrev)
	}

	wTeam, lTeam := box.AwayAbbrev, box.HomeAbbrev
	wScore, lScore := box.AwayScore, box.HomeScore
	if box.HomeScore > box.AwayScore {
		wTeam, lTeam = box.HomeAbbrev, box.AwayAbbrev
		wScore, lScore = box.HomeScore, box.AwayScore
	}

	existing, err := e.store.GetRecord(ctx, gameID)
	if err != nil {
		return TickResult{}, err
	}
	if existing != nil {
		// A prior or concurrent tick already settled this game.
		if err := e.store.SetGameID(ctx, 0); err != nil {
			return TickResult{}, err
		}
		log.Info("game_already_settled", zap.Int64("game_id", gameID))
		return TickResult{Message: "Game already processed", GameID: gameID}, nil
	}

	rec := &GameRecord{
		ID:      gameID,
		WTeam:   wTeam,
		WScore:  wScore,
		LTeam:   lTeam,
		LScore:  lScore,
		SavedAt: time.Now().UTC(),
	}
	created, err := e.store.CreateRecord(ctx, rec)
	if err != nil {
		return TickResult{}, err
	}
	if !created {
		// Lost the race to another invocation; same as already settled.
		if err := e.store.SetGameID(ctx, 0); err != nil {
			return TickResult{}, err
		}
		log.Info("game_already_settled", zap.Int64("game_id", gameID), zap.Bool("race", true))
		return TickResult{Message: "Game already processed", GameID: gameID}, nil
	}
	log.Info("record_saved",
		zap.Int64("game_id", gameID),
		zap.String("w_team", wTeam), zap.Int("w_score", wScore),
		zap.String("l_team", lTeam), zap.Int("l_score", lScore),
	)

	if e.archive != nil {
		// The Redis record is authoritative; the archive mirror is best
		// effort and recoverable from the record set.
		if aerr := e.archive.SaveRecord(ctx, rec); aerr != nil {
			log.Warn("archive_save_failed", zap.Int64("game_id", gameID), zap.Error(aerr))
		}
	}

	if err := e.store.SetChampion(ctx, wTeam); err != nil {
		return TickResult{}, err
	}
	if err := e.store.SetGameID(ctx, 0); err != nil {
		return TickResult{}, err
	}
	log.Info("champion_updated", zap.String("champion", wTeam))

	result := TickResult{
		Message: fmt.Sprintf("Winner %s saved", wTeam),
		GameID:  gameID,
		Settled: true,
		Winner:  wTeam,
	}

	owner, err := e.roster.FindOwnerOfTeam(ctx, wTeam)
	if err != nil {
		return TickResult{}, err
	}
	if owner == nil {
		log.Warn("no_owner_for_winner", zap.String("team", wTeam))
		result.Anomaly = fmt.Sprintf("no owner recorded for winning team %s", wTeam)
		return result, nil
	}
	if err := e.store.IncrementDefenses(ctx, owner.ID); err != nil {
		return TickResult{}, err
	}
	log.Info("defense_credited", zap.String("player", owner.ID), zap.String("team", wTeam))

	return result, nil
}
