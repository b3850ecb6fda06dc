package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"postdesk/internal/featureflags"
	"postdesk/internal/models"
	"postdesk/internal/observability"
	"postdesk/internal/storage"
	"postdesk/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultStoreKey is the document key the collection is persisted under.
const DefaultStoreKey = "post-management-system::posts"

const (
	collectionName = "posts"
	maxIDAttempts  = 16
)

// PostRepository defines the interface for post data operations.
// Update and Delete return (nil, nil) when no post has the given id.
type PostRepository interface {
	Create(ctx context.Context, draft models.Draft) (*models.Post, error)
	Update(ctx context.Context, id string, draft models.Draft) (*models.Post, error)
	Delete(ctx context.Context, id string) (*models.Post, error)
	GetByID(id string) *models.Post
	// Snapshot returns the current collection in insertion order. Tag slices
	// are shared with the repository and must be treated as read-only.
	Snapshot() []models.Post
	// Subscribe registers fn to receive new snapshots after mutations. A
	// snapshot older than one already delivered is skipped, so the last call
	// always carries the latest collection. fn must not mutate the repository.
	Subscribe(fn func([]models.Post)) (unsubscribe func())
}

// Options configures a post repository. Zero values select the production
// defaults.
type Options struct {
	Key   string
	IDs   IDGenerator
	Clock Clock
	Flags *featureflags.Manager
}

// postRepository implements PostRepository
type postRepository struct {
	store *storage.Store[[]models.Post]
	key   string
	ids   IDGenerator
	clock Clock
	flags *featureflags.Manager

	logger *observability.RepoLogger
	traces *observability.TraceLayer

	// mu serializes writers; readers only load posts.
	mu      sync.Mutex
	posts   atomic.Pointer[[]models.Post]
	version uint64

	// pubMu orders deliveries; delivered is the newest version handed out.
	pubMu     sync.Mutex
	delivered uint64

	subMu   sync.Mutex
	subs    map[int]func([]models.Post)
	nextSub int
}

// NewPostRepository loads the persisted collection (empty when absent or
// unreadable) and returns a repository over it.
func NewPostRepository(ctx context.Context, store *storage.Store[[]models.Post], opts Options) PostRepository {
	if opts.Key == "" {
		opts.Key = DefaultStoreKey
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}

	r := &postRepository{
		store:  store,
		key:    opts.Key,
		ids:    opts.IDs,
		clock:  opts.Clock,
		flags:  opts.Flags,
		logger: observability.NewRepoLogger(collectionName),
		traces: observability.GetTraceLayer(),
		subs:   make(map[int]func([]models.Post)),
	}

	initial := store.Load(ctx, opts.Key, []models.Post{})
	if initial == nil {
		initial = []models.Post{}
	}
	r.posts.Store(&initial)
	r.logger.LogRead(ctx, map[string]interface{}{"key": opts.Key, "count": len(initial)})
	return r
}

func (r *postRepository) current() []models.Post {
	return *r.posts.Load()
}

func (r *postRepository) Snapshot() []models.Post {
	return slices.Clone(r.current())
}

func (r *postRepository) GetByID(id string) *models.Post {
	posts := r.current()
	if i := indexOf(posts, id); i >= 0 {
		p := posts[i].Clone()
		return &p
	}
	return nil
}

func (r *postRepository) Subscribe(fn func([]models.Post)) func() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

func (r *postRepository) Create(ctx context.Context, draft models.Draft) (*models.Post, error) {
	ctx, span := r.traces.TraceRepositoryMethod(ctx, "Create", collectionName)
	defer span.End()

	tags, err := r.tags(ctx, "create", draft.Tags)
	if err != nil {
		observability.RecordSpanError(span, err)
		return nil, err
	}

	r.mu.Lock()
	posts := r.current()
	id, err := r.freshID(posts)
	if err != nil {
		r.mu.Unlock()
		r.logger.LogError(ctx, err, "create")
		observability.RecordSpanError(span, err)
		return nil, err
	}
	now := r.now()
	post := models.Post{
		ID:        id,
		Title:     strings.TrimSpace(draft.Title),
		Author:    strings.TrimSpace(draft.Author),
		Content:   strings.TrimSpace(draft.Content),
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	next := make([]models.Post, len(posts), len(posts)+1)
	copy(next, posts)
	next = append(next, post)
	version := r.commit(ctx, next)
	r.mu.Unlock()

	r.publish(version, next)
	observability.PostMutations.WithLabelValues("create", observability.ResultOK).Inc()
	span.SetAttributes(attribute.String("post.id", id), attribute.String("post.result", observability.ResultOK))
	r.logger.LogCreate(ctx, map[string]interface{}{"post_id": id, "author": post.Author, "tags": len(tags)})

	out := post.Clone()
	return &out, nil
}

func (r *postRepository) Update(ctx context.Context, id string, draft models.Draft) (*models.Post, error) {
	ctx, span := r.traces.TraceRepositoryMethod(ctx, "Update", collectionName)
	defer span.End()
	span.SetAttributes(attribute.String("post.id", id))

	tags, err := r.tags(ctx, "update", draft.Tags)
	if err != nil {
		observability.RecordSpanError(span, err)
		return nil, err
	}

	r.mu.Lock()
	posts := r.current()
	i := indexOf(posts, id)
	if i < 0 {
		r.mu.Unlock()
		r.missing(ctx, span, "update", id)
		return nil, nil
	}

	updated := posts[i]
	updated.Title = strings.TrimSpace(draft.Title)
	updated.Author = strings.TrimSpace(draft.Author)
	updated.Content = strings.TrimSpace(draft.Content)
	updated.Tags = tags
	now := r.now()
	if !now.After(updated.UpdatedAt) {
		now = updated.UpdatedAt.Add(time.Millisecond)
	}
	updated.UpdatedAt = now

	next := slices.Clone(posts)
	next[i] = updated
	version := r.commit(ctx, next)
	r.mu.Unlock()

	r.publish(version, next)
	observability.PostMutations.WithLabelValues("update", observability.ResultOK).Inc()
	span.SetAttributes(attribute.String("post.result", observability.ResultOK))
	r.logger.LogUpdate(ctx, map[string]interface{}{"post_id": id})

	out := updated.Clone()
	return &out, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) (*models.Post, error) {
	ctx, span := r.traces.TraceRepositoryMethod(ctx, "Delete", collectionName)
	defer span.End()
	span.SetAttributes(attribute.String("post.id", id))

	r.mu.Lock()
	posts := r.current()
	i := indexOf(posts, id)
	if i < 0 {
		r.mu.Unlock()
		r.missing(ctx, span, "delete", id)
		return nil, nil
	}

	removed := posts[i]
	next := make([]models.Post, 0, len(posts)-1)
	next = append(next, posts[:i]...)
	next = append(next, posts[i+1:]...)
	version := r.commit(ctx, next)
	r.mu.Unlock()

	r.publish(version, next)
	observability.PostMutations.WithLabelValues("delete", observability.ResultOK).Inc()
	span.SetAttributes(attribute.String("post.result", observability.ResultOK))
	r.logger.LogDelete(ctx, map[string]interface{}{"post_id": id})

	out := removed.Clone()
	return &out, nil
}

// tags normalizes draft tags. Under the strict_tags flag an empty result is
// rejected instead of replaced by the default pair.
func (r *postRepository) tags(ctx context.Context, operation string, in models.TagInput) ([]string, error) {
	if r.flags.On(featureflags.StrictTags) && len(validation.SplitTags(in)) == 0 {
		observability.PostMutations.WithLabelValues(operation, observability.ResultRejected).Inc()
		err := models.NewFieldValidationError(map[string]string{
			validation.FieldTags: validation.MsgTagsRequired,
		})
		r.logger.LogWarn(ctx, err, operation, nil)
		return nil, err
	}
	return validation.NormalizeTags(in), nil
}

func (r *postRepository) missing(ctx context.Context, span trace.Span, operation, id string) {
	observability.PostMutations.WithLabelValues(operation, observability.ResultNotFound).Inc()
	span.SetAttributes(attribute.String("post.result", observability.ResultNotFound))
	r.logger.LogRead(ctx, map[string]interface{}{"post_id": id, "found": false, "operation": operation})
}

// commit publishes next to readers and writes the full snapshot. Must hold mu.
func (r *postRepository) commit(ctx context.Context, next []models.Post) uint64 {
	r.posts.Store(&next)
	r.store.Save(ctx, r.key, next)
	r.version++
	return r.version
}

// publish hands snapshot to subscribers unless a newer version already went out.
func (r *postRepository) publish(version uint64, snapshot []models.Post) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	if version <= r.delivered {
		return
	}
	r.delivered = version

	r.subMu.Lock()
	fns := make([]func([]models.Post), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(snapshot))
	}
}

// now is truncated to milliseconds in UTC, the precision of the stored
// ISO-8601 timestamps, so a saved collection loads back equal.
func (r *postRepository) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Millisecond)
}

func (r *postRepository) freshID(posts []models.Post) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := r.ids.NewID()
		if id != "" && indexOf(posts, id) < 0 {
			return id, nil
		}
	}
	return "", models.NewInternalError(fmt.Errorf("no unused post id after %d attempts", maxIDAttempts))
}

func indexOf(posts []models.Post, id string) int {
	return slices.IndexFunc(posts, func(p models.Post) bool { return p.ID == id })
}
