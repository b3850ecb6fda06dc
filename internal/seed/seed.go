package seed

import (
	"context"
	"log/slog"

	"postdesk/internal/models"
	"postdesk/internal/observability"
	"postdesk/internal/repository"
	"postdesk/internal/validation"
)

// Result summarizes one seeding run.
type Result struct {
	Created  []models.Post
	Rejected map[int]map[string]string
}

// Seeder validates drafts and stores the valid ones.
type Seeder struct {
	repo repository.PostRepository
	opts Options
}

func NewSeeder(repo repository.PostRepository, opts Options) *Seeder {
	return &Seeder{repo: repo, opts: opts}
}

// Run stores every valid draft in order. Invalid drafts are reported by their
// index and skipped. In dry-run mode nothing is stored.
func (s *Seeder) Run(ctx context.Context, drafts []models.Draft) (Result, error) {
	res := Result{Rejected: map[int]map[string]string{}}
	for i, d := range drafts {
		if errs := validation.ValidatePost(d); len(errs) > 0 {
			res.Rejected[i] = errs
			observability.GlobalLogger.WarnContext(ctx, "skipping invalid seed draft",
				slog.Int("index", i),
				slog.Any("errors", errs),
			)
			continue
		}
		if s.opts.DryRun {
			continue
		}
		post, err := s.repo.Create(ctx, d)
		if err != nil {
			return res, err
		}
		res.Created = append(res.Created, *post)
	}

	observability.NewStructuredLogger().LogWithCorrelation(ctx, "seed finished", map[string]interface{}{
		"created":  len(res.Created),
		"rejected": len(res.Rejected),
		"dry_run":  s.opts.DryRun,
	})
	return res, nil
}
