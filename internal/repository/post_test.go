package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"postdesk/internal/featureflags"
	"postdesk/internal/models"
	"postdesk/internal/storage"
	"postdesk/internal/testutil"
	"postdesk/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	repo    PostRepository
	backend *testutil.RecordingBackend
	clock   *testutil.Clock
}

func newFixture(t *testing.T, flags string) *fixture {
	t.Helper()
	backend := testutil.NewRecordingBackend()
	clock := testutil.NewClock(epoch, time.Minute)
	repo := NewPostRepository(context.Background(), storage.NewStore[[]models.Post](backend), Options{
		IDs:   testutil.NewSequentialIDs("post"),
		Clock: clock,
		Flags: featureflags.NewManager(flags),
	})
	return &fixture{repo: repo, backend: backend, clock: clock}
}

func draft(title, author, tags string) models.Draft {
	return models.Draft{
		Title:   title,
		Author:  author,
		Content: strings.Repeat("x", 25),
		Tags:    models.TagText(tags),
	}
}

func reload(t *testing.T, f *fixture) []models.Post {
	t.Helper()
	return storage.NewStore[[]models.Post](f.backend).Load(context.Background(), DefaultStoreKey, nil)
}

func TestPostRepository_Create(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	post, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a, b, a"))
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, "post-1", post.ID)
	assert.Equal(t, post.CreatedAt, post.UpdatedAt)
	assert.Equal(t, epoch, post.CreatedAt)
	assert.Equal(t, []string{"a", "b", "a"}, post.Tags)
	assert.Equal(t, 1, f.backend.Writes())
	assert.Equal(t, []models.Post{*post}, f.repo.Snapshot())
}

func TestPostRepository_CreateTrimsAndAppends(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	first, err := f.repo.Create(ctx, draft("  First  ", " Ann ", "go"))
	require.NoError(t, err)
	second, err := f.repo.Create(ctx, models.Draft{
		Title:   "Second",
		Author:  "Bo",
		Content: "  " + strings.Repeat("y", 20) + "\n",
		Tags:    models.TagList(" x ", "", "y"),
	})
	require.NoError(t, err)

	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "Ann", first.Author)
	assert.Equal(t, strings.Repeat("y", 20), second.Content)
	assert.Equal(t, []string{"x", "y"}, second.Tags)
	assert.NotEqual(t, first.ID, second.ID)

	ids := []string{}
	for _, p := range f.repo.Snapshot() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{first.ID, second.ID}, ids)
}

// The validator rejects an empty tag field while the repository repairs it.
func TestPostRepository_DefaultTagsDivergeFromValidation(t *testing.T) {
	f := newFixture(t, "")
	d := draft("Hello World", "Jane Doe", "")

	errs := validation.ValidatePost(d)
	assert.Equal(t, validation.MsgTagsRequired, errs[validation.FieldTags])

	post, err := f.repo.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "crud"}, post.Tags)

	post, err = f.repo.Create(context.Background(), draft("Hello World", "Jane Doe", " , ,"))
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "crud"}, post.Tags)
}

func TestPostRepository_StrictTagsRejects(t *testing.T) {
	f := newFixture(t, "strict_tags=on")
	ctx := context.Background()

	post, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", ""))
	assert.Nil(t, post)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, validation.MsgTagsRequired, appErr.Fields[validation.FieldTags])
	assert.Empty(t, f.repo.Snapshot())
	assert.Equal(t, 0, f.backend.Writes())

	created, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "go"))
	require.NoError(t, err)
	_, err = f.repo.Update(ctx, created.ID, draft("Hello World", "Jane Doe", ""))
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Equal(t, []string{"go"}, f.repo.GetByID(created.ID).Tags)
}

func TestPostRepository_Update(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	orig, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)

	updated, err := f.repo.Update(ctx, orig.ID, draft(" Changed ", "John", "b, c"))
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(orig.UpdatedAt))
	assert.Equal(t, "Changed", updated.Title)
	assert.Equal(t, "John", updated.Author)
	assert.Equal(t, []string{"b", "c"}, updated.Tags)
	assert.Equal(t, 2, f.backend.Writes())
	assert.Equal(t, *updated, *f.repo.GetByID(orig.ID))
}

func TestPostRepository_UpdateRefreshesEvenWithStoppedClock(t *testing.T) {
	backend := testutil.NewRecordingBackend()
	repo := NewPostRepository(context.Background(), storage.NewStore[[]models.Post](backend), Options{
		IDs:   testutil.NewSequentialIDs("post"),
		Clock: testutil.NewClock(epoch, 0),
	})
	ctx := context.Background()

	orig, err := repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)
	updated, err := repo.Update(ctx, orig.ID, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)

	assert.True(t, updated.UpdatedAt.After(orig.UpdatedAt))
}

func TestPostRepository_MissingIDIsNoop(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)

	before := f.repo.Snapshot()
	writes := f.backend.Writes()

	updated, err := f.repo.Update(ctx, "nonexistent", draft("Other", "Other", "b"))
	assert.NoError(t, err)
	assert.Nil(t, updated)

	deleted, err := f.repo.Delete(ctx, "nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, deleted)

	assert.Nil(t, f.repo.GetByID("nonexistent"))
	assert.Equal(t, before, f.repo.Snapshot())
	assert.Equal(t, writes, f.backend.Writes())
}

func TestPostRepository_DeletePreservesOrder(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	var ids []string
	for _, title := range []string{"One", "Two", "Three"} {
		p, err := f.repo.Create(ctx, draft(title, "Ann", "a"))
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	removed, err := f.repo.Delete(ctx, ids[1])
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "Two", removed.Title)

	snap := f.repo.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, ids[0], snap[0].ID)
	assert.Equal(t, ids[2], snap[1].ID)
	assert.Equal(t, snap, reload(t, f))
}

func TestPostRepository_StaleSnapshotIsNotDelivered(t *testing.T) {
	f := newFixture(t, "")
	repo := f.repo.(*postRepository)

	var seen [][]models.Post
	repo.Subscribe(func(posts []models.Post) {
		seen = append(seen, posts)
	})

	older := []models.Post{{ID: "a"}}
	newer := []models.Post{{ID: "a"}, {ID: "b"}}
	repo.publish(2, newer)
	repo.publish(1, older)
	repo.publish(2, newer)

	require.Len(t, seen, 1)
	assert.Equal(t, newer, seen[0])
}

func TestPostRepository_RoundTrip(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a, b"))
	require.NoError(t, err)
	p, err := f.repo.Create(ctx, draft("Ünïcode title", "Zoë", ""))
	require.NoError(t, err)
	_, err = f.repo.Update(ctx, p.ID, draft("Ünïcode title 2", "Zoë", "ü"))
	require.NoError(t, err)

	assert.Equal(t, f.repo.Snapshot(), reload(t, f))

	reopened := NewPostRepository(ctx, storage.NewStore[[]models.Post](f.backend), Options{})
	assert.Equal(t, f.repo.Snapshot(), reopened.Snapshot())
}

func TestPostRepository_RoundTripWithWallClock(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := storage.NewStore[[]models.Post](backend)
	repo := NewPostRepository(context.Background(), store, Options{})

	_, err := repo.Create(context.Background(), draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)

	assert.Equal(t, repo.Snapshot(), store.Load(context.Background(), DefaultStoreKey, nil))
}

func TestPostRepository_LoadsPersistedCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("absent document", func(t *testing.T) {
		repo := NewPostRepository(ctx, storage.NewStore[[]models.Post](storage.NewMemoryBackend()), Options{})
		assert.NotNil(t, repo.Snapshot())
		assert.Empty(t, repo.Snapshot())
	})

	t.Run("malformed document", func(t *testing.T) {
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Set(ctx, DefaultStoreKey, []byte(`{"broken"`)))
		repo := NewPostRepository(ctx, storage.NewStore[[]models.Post](backend), Options{})
		assert.Empty(t, repo.Snapshot())
	})

	t.Run("null document", func(t *testing.T) {
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Set(ctx, DefaultStoreKey, []byte(`null`)))
		repo := NewPostRepository(ctx, storage.NewStore[[]models.Post](backend), Options{})
		assert.NotNil(t, repo.Snapshot())
		assert.Empty(t, repo.Snapshot())
	})

	t.Run("custom key", func(t *testing.T) {
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Set(ctx, "other", []byte(`[{"id":"x","title":"T","author":"A","content":"C","tags":["t"],"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`)))
		repo := NewPostRepository(ctx, storage.NewStore[[]models.Post](backend), Options{Key: "other"})
		require.NotNil(t, repo.GetByID("x"))
		assert.Equal(t, []string{"t"}, repo.GetByID("x").Tags)
	})
}

func TestPostRepository_SaveFailureKeepsMemoryState(t *testing.T) {
	f := newFixture(t, "")
	f.backend.FailWrites(errors.New("quota exceeded"))

	post, err := f.repo.Create(context.Background(), draft("Hello World", "Jane Doe", "a"))

	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Len(t, f.repo.Snapshot(), 1)
	assert.Empty(t, reload(t, f))
}

func TestPostRepository_DuplicateIDsAreRetried(t *testing.T) {
	backend := testutil.NewRecordingBackend()
	repo := NewPostRepository(context.Background(), storage.NewStore[[]models.Post](backend), Options{
		IDs: testutil.FixedIDs("same"),
	})
	ctx := context.Background()

	_, err := repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)

	post, err := repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	assert.Nil(t, post)
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.Len(t, repo.Snapshot(), 1)
	assert.Equal(t, 1, backend.Writes())
}

func TestPostRepository_ReturnedValuesAreIsolated(t *testing.T) {
	f := newFixture(t, "")
	post, err := f.repo.Create(context.Background(), draft("Hello World", "Jane Doe", "a, b"))
	require.NoError(t, err)

	post.Tags[0] = "mutated"
	post.Title = "mutated"
	got := f.repo.GetByID(post.ID)
	got.Tags[1] = "mutated"

	fresh := f.repo.GetByID(post.ID)
	assert.Equal(t, "Hello World", fresh.Title)
	assert.Equal(t, []string{"a", "b"}, fresh.Tags)
}

func TestPostRepository_Subscribe(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	var sizes []int
	unsubscribe := f.repo.Subscribe(func(posts []models.Post) {
		sizes = append(sizes, len(posts))
	})

	p, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)
	_, err = f.repo.Update(ctx, p.ID, draft("Hello World", "Jane Doe", "b"))
	require.NoError(t, err)
	_, err = f.repo.Update(ctx, "missing", draft("Hello World", "Jane Doe", "b"))
	require.NoError(t, err)
	_, err = f.repo.Delete(ctx, p.ID)
	require.NoError(t, err)

	unsubscribe()
	_, err = f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 0}, sizes)
}

func TestPostRepository_ConcurrentWritersAndReaders(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	const writers = 8
	const perWriter = 10

	var (
		last  []models.Post
		calls int
	)
	f.repo.Subscribe(func(posts []models.Post) {
		last = posts
		calls++
	})

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := f.repo.Create(ctx, draft("Hello World", "Jane Doe", "a"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			for _, p := range f.repo.Snapshot() {
				assert.NotEmpty(t, p.ID)
			}
		}
	}()
	wg.Wait()

	snap := f.repo.Snapshot()
	assert.Len(t, snap, writers*perWriter)
	seen := map[string]bool{}
	for _, p := range snap {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Equal(t, snap, reload(t, f))
	assert.Equal(t, snap, last)
	assert.LessOrEqual(t, calls, writers*perWriter)
}
