package live

import (
	"context"

	"github.com/inseasoncup/cup-server/internal/cup"
	"github.com/inseasoncup/cup-server/internal/nhl"
	"github.com/inseasoncup/cup-server/internal/obslog"
	"go.uber.org/zap"
)

// Broadcaster pushes live score updates for the tracked game to every
// open subscription. It runs independently of settlement and only shares
// the tracked game id with it.
type Broadcaster struct {
	api   *nhl.Client
	store *cup.Store
	hub   *Hub
}

func NewBroadcaster(api *nhl.Client, store *cup.Store, hub *Hub) *Broadcaster {
	return &Broadcaster{api: api, store: store, hub: hub}
}

// BroadcastCurrentGame fetches the raw boxscore of the tracked game and
// fans it out. No tracked game is a no-op, not an error.
func (b *Broadcaster) BroadcastCurrentGame(ctx context.Context) (BroadcastResult, error) {
	opts, err := b.store.Options(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}
	if opts.GameID == 0 {
		return BroadcastResult{}, nil
	}

	payload, err := b.api.BoxscoreRaw(ctx, opts.GameID)
	if err != nil {
		return BroadcastResult{}, err
	}

	result := b.hub.Broadcast(ctx, "liveGameUpdate", payload)
	obslog.L().Info("live_broadcast",
		zap.Int64("game_id", opts.GameID),
		zap.Int("sent", result.Sent),
		zap.Int("pruned", result.Pruned),
	)
	return result, nil
}
