// Package seed provides helpers to create demo posts for development and
// testing, either generated with gofakeit or read from YAML fixtures.
package seed

import (
	"strings"

	"postdesk/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configures the seeder.
type Options struct {
	// Count is the number of generated drafts.
	Count int
	// Authors is the size of the author pool drafts are spread over.
	Authors int
	// Seed makes generation reproducible; 0 picks a random seed.
	Seed int64
	// DryRun validates drafts without creating posts.
	DryRun bool
}

// Factory builds post drafts with realistic filler content.
type Factory struct {
	faker   *gofakeit.Faker
	authors []string
}

var tagPool = []string{
	"react", "crud", "go", "testing", "design", "release", "howto",
	"performance", "security", "frontend", "backend", "notes",
}

// NewFactory creates a Factory. Authors are drawn once so generated posts
// share a small, filterable set of names.
func NewFactory(opts Options) *Factory {
	f := &Factory{faker: gofakeit.New(opts.Seed)}
	n := opts.Authors
	if n <= 0 {
		n = 4
	}
	seen := map[string]bool{}
	for len(f.authors) < n {
		name := f.faker.Name()
		if seen[name] {
			continue
		}
		seen[name] = true
		f.authors = append(f.authors, name)
	}
	return f
}

// Authors returns the author pool.
func (f *Factory) Authors() []string {
	return append([]string(nil), f.authors...)
}

// BuildDraft returns a draft that passes validation unless an override breaks it.
func (f *Factory) BuildDraft(overrides ...func(*models.Draft)) models.Draft {
	tagCount := f.faker.Number(1, 3)
	tags := make([]string, 0, tagCount)
	for i := 0; i < tagCount; i++ {
		tags = append(tags, tagPool[f.faker.Number(0, len(tagPool)-1)])
	}

	d := models.Draft{
		Title:   strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), "."),
		Author:  f.authors[f.faker.Number(0, len(f.authors)-1)],
		Content: f.faker.Paragraph(1, f.faker.Number(2, 4), 12, " "),
		Tags:    models.TagText(strings.Join(tags, ", ")),
	}
	for _, override := range overrides {
		override(&d)
	}
	return d
}

// BuildDrafts returns n drafts.
func (f *Factory) BuildDrafts(n int) []models.Draft {
	drafts := make([]models.Draft, 0, n)
	for i := 0; i < n; i++ {
		drafts = append(drafts, f.BuildDraft())
	}
	return drafts
}
