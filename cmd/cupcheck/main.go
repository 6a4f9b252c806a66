package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inseasoncup/cup-server/internal/cup"
	"github.com/inseasoncup/cup-server/internal/nhl"
)

// cupcheck probes the upstream schedule API and Redis so a deploy can be
// verified without waiting for the first settlement tick.
func main() {
	apiBase := strings.TrimSpace(os.Getenv("NHL_API_BASE"))
	if apiBase == "" {
		apiBase = "https://api-web.nhle.com/v1"
	}
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	tz := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if tz == "" {
		tz = "America/New_York"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}

	api := nhl.NewClient(apiBase, nhl.WithTimeout(8*time.Second))
	resolver := cup.NewResolver(api, loc)
	today := resolver.CandidateDates()[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched, err := api.Schedule(ctx, today)
	if err != nil {
		log.Printf("schedule %s error: %v", today, err)
	} else {
		games := 0
		for _, day := range sched.GameWeek {
			if day.Date == today {
				games = len(day.Games)
			}
		}
		log.Printf("schedule %s ok: %d games today", today, games)
	}

	if redisURL == "" {
		log.Println("REDIS_URL not set; skipping store check")
		return
	}
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(ropts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	opts, err := cup.NewStore(rdb).Options(ctx)
	if err != nil {
		log.Fatalf("options read: %v", err)
	}
	log.Printf("store ok: champion=%q gameID=%d", opts.Champion, opts.GameID)

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		repo, err := cup.NewRepository(dbURL)
		if err != nil {
			log.Fatalf("archive connect: %v", err)
		}
		defer repo.Close()
		records, err := repo.RecentRecords(ctx, 5)
		if err != nil {
			log.Fatalf("archive read: %v", err)
		}
		log.Printf("archive ok: %d recent records", len(records))
	}
}
