// Package service implements the create/edit/delete page flow on top of the
// repository: validate, mutate, then confirm with a toast.
package service

import (
	"context"

	"postdesk/internal/models"
	"postdesk/internal/observability"
	"postdesk/internal/query"
	"postdesk/internal/repository"
	"postdesk/internal/validation"

	"github.com/google/uuid"
)

// Confirmation messages shown after a successful mutation.
const (
	MsgCreated = "Post created successfully."
	MsgUpdated = "Post updated successfully."
	MsgDeleted = "Post deleted."
)

// Toaster shows a status message.
type Toaster interface {
	NotifyContext(ctx context.Context, message string, tone models.Tone) models.Toast
}

type PostService struct {
	postRepo repository.PostRepository
	toasts   Toaster
	logger   *observability.StructuredLogger
}

func NewPostService(postRepo repository.PostRepository, toasts Toaster) *PostService {
	return &PostService{
		postRepo: postRepo,
		toasts:   toasts,
		logger:   observability.NewStructuredLogger(),
	}
}

func withCorrelation(ctx context.Context) context.Context {
	if observability.ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return observability.WithCorrelationID(ctx, uuid.NewString())
}

// CreatePost validates draft and stores it. Invalid drafts return a
// VALIDATION_ERROR AppError carrying the field messages.
func (s *PostService) CreatePost(ctx context.Context, draft models.Draft) (*models.Post, error) {
	ctx = withCorrelation(ctx)
	s.logger.LogServiceCall(ctx, "PostService", "CreatePost", nil)

	if errs := validation.ValidatePost(draft); len(errs) > 0 {
		return nil, models.NewFieldValidationError(errs)
	}
	post, err := s.postRepo.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.toasts.NotifyContext(ctx, MsgCreated, models.ToneSuccess)
	return post, nil
}

// UpdatePost validates draft and applies it to post id. A missing id returns
// NOT_FOUND and shows nothing.
func (s *PostService) UpdatePost(ctx context.Context, id string, draft models.Draft) (*models.Post, error) {
	ctx = withCorrelation(ctx)
	s.logger.LogServiceCall(ctx, "PostService", "UpdatePost", map[string]interface{}{"post_id": id})

	if errs := validation.ValidatePost(draft); len(errs) > 0 {
		return nil, models.NewFieldValidationError(errs)
	}
	post, err := s.postRepo.Update(ctx, id, draft)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	s.toasts.NotifyContext(ctx, MsgUpdated, models.ToneSuccess)
	return post, nil
}

// DeletePost removes post id. A missing id returns NOT_FOUND and shows nothing.
func (s *PostService) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	ctx = withCorrelation(ctx)
	s.logger.LogServiceCall(ctx, "PostService", "DeletePost", map[string]interface{}{"post_id": id})

	post, err := s.postRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	s.toasts.NotifyContext(ctx, MsgDeleted, models.ToneSuccess)
	return post, nil
}

// GetPost looks up a single post for the detail and edit pages.
func (s *PostService) GetPost(id string) (*models.Post, error) {
	post := s.postRepo.GetByID(id)
	if post == nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// SubmitForm runs the form's submit step and, when it passes, creates a post
// (editID empty) or updates editID. A blocked submit returns the form errors.
func (s *PostService) SubmitForm(ctx context.Context, form *validation.FormSession, editID string) (*models.Post, error) {
	draft, ok := form.Submit()
	if !ok {
		return nil, models.NewFieldValidationError(form.Errors())
	}
	if editID == "" {
		return s.CreatePost(ctx, draft)
	}
	return s.UpdatePost(ctx, editID, draft)
}

// EditForm opens a form session pre-filled from post id.
func (s *PostService) EditForm(id string) (*validation.FormSession, error) {
	post, err := s.GetPost(id)
	if err != nil {
		return nil, err
	}
	return validation.NewEditSession(*post), nil
}

// Browse renders the listing for browser over the current collection.
func (s *PostService) Browse(browser *query.Browser) query.View {
	return browser.View(s.postRepo.Snapshot())
}
