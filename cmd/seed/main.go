// Command seed fills the configured post store with demo posts.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"postdesk/internal/bootstrap"
	"postdesk/internal/config"
	"postdesk/internal/observability"
	"postdesk/internal/query"
	"postdesk/internal/seed"
)

func main() {
	count := flag.Int("posts", 13, "Number of fake posts to generate")
	authors := flag.Int("authors", 4, "Number of distinct fake authors")
	fixture := flag.String("fixture", "", "YAML fixture with drafts to load instead of generating")
	seedValue := flag.Int64("seed", 0, "Random seed for generated posts (0 = random)")
	dryRun := flag.Bool("dry-run", false, "Validate drafts without storing them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start runtime: %v", err)
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			observability.GlobalLogger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}()

	opts := seed.Options{Count: *count, Authors: *authors, Seed: *seedValue, DryRun: *dryRun}

	drafts := seed.NewFactory(opts).BuildDrafts(opts.Count)
	if *fixture != "" {
		drafts, err = seed.LoadFixtureFile(*fixture)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
	}

	res, err := seed.NewSeeder(rt.Posts, opts).Run(ctx, drafts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	view := query.NewBrowser(cfg.PageSize).View(rt.Posts.Snapshot())
	observability.GlobalLogger.Info("store summary",
		slog.String("backend", rt.Backend.Name()),
		slog.Int("created", len(res.Created)),
		slog.Int("rejected", len(res.Rejected)),
		slog.Int("total_posts", view.Matches),
		slog.Int("total_pages", view.TotalPages),
		slog.Any("authors", view.Authors),
	)
}
