package validation

import (
	"fmt"
	"strings"

	"postdesk/internal/models"
)

// FormSession tracks one draft being edited. Validation stays silent until the
// first Submit; after that every Change and Blur re-validates immediately.
type FormSession struct {
	title     string
	author    string
	content   string
	tagsInput string
	errors    map[string]string
	submitted bool
}

// NewFormSession starts a session for a new post. Tags start as the default pair.
func NewFormSession() *FormSession {
	s := &FormSession{}
	s.Reset(nil)
	return s
}

// NewEditSession starts a session pre-filled from an existing post.
func NewEditSession(p models.Post) *FormSession {
	s := &FormSession{}
	s.Reset(&p)
	return s
}

// Reset reloads the initial values and forgets errors and the submitted state.
func (s *FormSession) Reset(initial *models.Post) {
	tags := models.DefaultTags
	s.title, s.author, s.content = "", "", ""
	if initial != nil {
		s.title, s.author, s.content = initial.Title, initial.Author, initial.Content
		if len(initial.Tags) > 0 {
			tags = initial.Tags
		}
	}
	s.tagsInput = strings.Join(tags, ", ")
	s.errors = map[string]string{}
	s.submitted = false
}

// Change sets one field to the raw input value.
func (s *FormSession) Change(field, value string) error {
	switch field {
	case FieldTitle:
		s.title = value
	case FieldAuthor:
		s.author = value
	case FieldContent:
		s.content = value
	case FieldTags:
		s.tagsInput = value
	default:
		return fmt.Errorf("unknown form field %q", field)
	}
	if s.submitted {
		s.validate()
	}
	return nil
}

// Blur handles focus leaving any field.
func (s *FormSession) Blur() {
	if s.submitted {
		s.validate()
	}
}

// Submit validates the current values. On success it returns the draft with
// trimmed text fields and the raw tags string; otherwise ok is false and the
// caller must not mutate anything.
func (s *FormSession) Submit() (draft models.Draft, ok bool) {
	s.submitted = true
	if errs := s.validate(); len(errs) > 0 {
		return models.Draft{}, false
	}
	return models.Draft{
		Title:   strings.TrimSpace(s.title),
		Author:  strings.TrimSpace(s.author),
		Content: strings.TrimSpace(s.content),
		Tags:    models.TagText(s.tagsInput),
	}, true
}

// Submitted reports whether Submit has been called since the last Reset.
func (s *FormSession) Submitted() bool { return s.submitted }

// Values returns the raw, untrimmed field values.
func (s *FormSession) Values() models.Draft {
	return models.Draft{
		Title:   s.title,
		Author:  s.author,
		Content: s.content,
		Tags:    models.TagText(s.tagsInput),
	}
}

// Errors returns a copy of the current field errors.
func (s *FormSession) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

func (s *FormSession) validate() map[string]string {
	s.errors = ValidatePost(s.Values())
	return s.errors
}
