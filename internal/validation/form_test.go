package validation

import (
	"strings"
	"testing"

	"postdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSession_SilentUntilFirstSubmit(t *testing.T) {
	s := NewFormSession()

	require.NoError(t, s.Change(FieldTitle, "x"))
	s.Blur()
	assert.Empty(t, s.Errors())
	assert.False(t, s.Submitted())
}

func TestFormSession_DefaultTags(t *testing.T) {
	s := NewFormSession()
	assert.Equal(t, "react, crud", s.Values().Tags.Text())

	edit := NewEditSession(models.Post{Title: "T", Tags: nil})
	assert.Equal(t, "react, crud", edit.Values().Tags.Text())

	edit = NewEditSession(models.Post{Title: "T", Tags: []string{"go", "db"}})
	assert.Equal(t, "go, db", edit.Values().Tags.Text())
}

func TestFormSession_SubmitBlockedThenLiveRevalidation(t *testing.T) {
	s := NewFormSession()

	_, ok := s.Submit()
	assert.False(t, ok)
	assert.True(t, s.Submitted())
	assert.Contains(t, s.Errors(), FieldTitle)
	assert.Contains(t, s.Errors(), FieldAuthor)
	assert.Contains(t, s.Errors(), FieldContent)
	assert.NotContains(t, s.Errors(), FieldTags)

	require.NoError(t, s.Change(FieldTitle, "Hello World"))
	assert.NotContains(t, s.Errors(), FieldTitle)

	require.NoError(t, s.Change(FieldTags, " , "))
	assert.Equal(t, "Provide at least one tag.", s.Errors()[FieldTags])

	require.NoError(t, s.Change(FieldTags, "go"))
	require.NoError(t, s.Change(FieldAuthor, "Jane Doe"))
	require.NoError(t, s.Change(FieldContent, strings.Repeat("c", 30)))
	assert.Empty(t, s.Errors())
}

func TestFormSession_BlurRevalidatesAfterSubmit(t *testing.T) {
	s := NewFormSession()
	s.Blur()
	assert.Empty(t, s.Errors())

	_, _ = s.Submit()
	require.NoError(t, s.Change(FieldAuthor, "Jane Doe"))
	s.Blur()
	assert.NotContains(t, s.Errors(), FieldAuthor)
	assert.Contains(t, s.Errors(), FieldTitle)
}

func TestFormSession_SubmitTrimsTextFields(t *testing.T) {
	s := NewFormSession()
	require.NoError(t, s.Change(FieldTitle, "  Hello World "))
	require.NoError(t, s.Change(FieldAuthor, " Jane Doe"))
	require.NoError(t, s.Change(FieldContent, strings.Repeat("y", 25)+"  "))
	require.NoError(t, s.Change(FieldTags, "a, b, a"))

	draft, ok := s.Submit()
	require.True(t, ok)
	assert.Equal(t, "Hello World", draft.Title)
	assert.Equal(t, "Jane Doe", draft.Author)
	assert.Equal(t, strings.Repeat("y", 25), draft.Content)
	assert.Equal(t, "a, b, a", draft.Tags.Text())
}

func TestFormSession_ResetClearsState(t *testing.T) {
	s := NewFormSession()
	_, _ = s.Submit()
	require.NotEmpty(t, s.Errors())

	s.Reset(&models.Post{Title: "Existing", Author: "Ann", Content: "body"})
	assert.Empty(t, s.Errors())
	assert.False(t, s.Submitted())
	assert.Equal(t, "Existing", s.Values().Title)
}

func TestFormSession_UnknownField(t *testing.T) {
	assert.Error(t, NewFormSession().Change("subtitle", "x"))
}
