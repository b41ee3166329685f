// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"marketplace-spotlight/internal/config"
	"marketplace-spotlight/internal/domain/model"
	pg "marketplace-spotlight/internal/infra/db/postgres"
)

// Seeds a handful of demo spotlight requests so the admin UI and the
// availability endpoint have something to show on a fresh database.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	repo := pg.NewRequestRepo(pool)

	existing, err := repo.ListNonTerminal(ctx, nil)
	if err != nil {
		log.Fatalf("list requests: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d open requests already present. No changes.\n", len(existing))
		return
	}

	pricing := model.NewPricing(cfg.Spotlight.UnitPrice, cfg.Spotlight.MinorUnitsPerUnit)
	now := time.Now().UTC()
	day := func(offset int) time.Time {
		return model.Day(now.AddDate(0, 0, offset))
	}

	seeds := []struct {
		project   string
		requester string
		start     time.Time
		end       time.Time
		message   string
	}{
		{"proj-meadow", "user-ava", day(2), day(4), "Launch week push"},
		{"proj-lighthouse", "user-bruno", day(6), day(6), "One-day teaser"},
		{"proj-quartz", "user-chen", day(9), day(13), "Full five-day takeover"},
	}

	created := 0
	for _, s := range seeds {
		req, err := model.NewSpotlightRequest(
			uuid.NewString(), s.project, s.requester,
			s.start, s.end, "", s.message, pricing, now,
		)
		if err != nil {
			log.Fatalf("build request for %s: %v", s.project, err)
		}
		if err := repo.Save(ctx, nil, req); err != nil {
			log.Fatalf("save request for %s: %v", s.project, err)
		}
		created++
	}
	fmt.Printf("Seeded %d demo requests.\n", created)
}
