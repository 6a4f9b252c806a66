package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/inseasoncup/cup-server/internal/config"
	"github.com/inseasoncup/cup-server/internal/cup"
	"github.com/inseasoncup/cup-server/internal/httpapi"
	"github.com/inseasoncup/cup-server/internal/live"
	"github.com/inseasoncup/cup-server/internal/nhl"
	"github.com/inseasoncup/cup-server/internal/obslog"
	"github.com/inseasoncup/cup-server/internal/teamcat"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone error: %v", err)
	}

	teams, err := teamcat.New(cfg.TeamCatalogDir)
	if err != nil {
		log.Fatalf("team catalog error: %v", err)
	}

	ropts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	store := cup.NewStore(rdb)
	roster := cup.NewDirectory(store)
	api := nhl.NewClient(cfg.NHLAPIBase, nhl.WithTimeout(cfg.UpstreamTimeout))
	resolver := cup.NewResolver(api, loc)
	engine := cup.NewEngine(store, resolver, api, roster)

	if cfg.DatabaseURL != "" {
		repo, err := cup.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer repo.Close()
		engine.AttachArchive(repo)
	}

	hub := live.NewHub()
	bcaster := live.NewBroadcaster(api, store, hub)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewServer(engine, store, roster, resolver, bcaster, hub, teams).Routes(),
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go settleLoop(rootCtx, engine, cfg.CheckInterval)
	go broadcastLoop(rootCtx, bcaster, cfg.BroadcastInterval)

	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("http_server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	_ = rdb.Close()
}

// settleLoop triggers the settlement engine on a fixed interval. Each tick
// is independent; a failed tick is logged and retried by the next one.
func settleLoop(ctx context.Context, engine *cup.Engine, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tctx, cancel := context.WithTimeout(ctx, time.Minute)
			result, err := engine.Tick(tctx)
			cancel()
			if err != nil {
				obslog.L().Error("settle_tick_failed", zap.Error(err))
				continue
			}
			obslog.L().Info("settle_tick", zap.String("message", result.Message))
		}
	}
}

func broadcastLoop(ctx context.Context, bcaster *live.Broadcaster, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if _, err := bcaster.BroadcastCurrentGame(tctx); err != nil {
				obslog.L().Error("broadcast_tick_failed", zap.Error(err))
			}
			cancel()
		}
	}
}
