// Package validation holds the field rules for post drafts and the tag parsing
// shared with the repository.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"postdesk/internal/models"
)

// Draft field names used as keys of the error map.
const (
	FieldTitle   = "title"
	FieldAuthor  = "author"
	FieldContent = "content"
	FieldTags    = "tags"
)

// MsgTagsRequired is reported when a draft has no usable tags.
const MsgTagsRequired = "Provide at least one tag."

const (
	minTitleLen   = 3
	minAuthorLen  = 2
	minContentLen = 20
)

// SplitTags parses tags the same way for validation and storage: a string is
// split on commas, every piece is trimmed and empty pieces are dropped. List
// items are trimmed and filtered but not split again.
func SplitTags(in models.TagInput) []string {
	var pieces []string
	if in.IsList() {
		pieces = in.Items()
	} else {
		pieces = strings.Split(in.Text(), ",")
	}
	tags := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// NormalizeTags is SplitTags with the default pair substituted for an empty
// result. It never fails.
func NormalizeTags(in models.TagInput) []string {
	tags := SplitTags(in)
	if len(tags) == 0 {
		return append([]string(nil), models.DefaultTags...)
	}
	return tags
}

// ValidatePost returns a message per invalid field. An empty map means the
// draft is valid. Every rule runs; the tag default is never applied here.
func ValidatePost(d models.Draft) map[string]string {
	errs := make(map[string]string)

	if msg := checkText(d.Title, minTitleLen, "Title is required.",
		fmt.Sprintf("Title should be at least %d characters.", minTitleLen)); msg != "" {
		errs[FieldTitle] = msg
	}
	if msg := checkText(d.Author, minAuthorLen, "Author name is required.",
		fmt.Sprintf("Author name should be at least %d characters.", minAuthorLen)); msg != "" {
		errs[FieldAuthor] = msg
	}
	if msg := checkText(d.Content, minContentLen, "Content is required.",
		fmt.Sprintf("Content must be at least %d characters.", minContentLen)); msg != "" {
		errs[FieldContent] = msg
	}
	if len(SplitTags(d.Tags)) == 0 {
		errs[FieldTags] = MsgTagsRequired
	}

	return errs
}

func checkText(value string, minLen int, requiredMsg, shortMsg string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return requiredMsg
	}
	if utf8.RuneCountInString(trimmed) < minLen {
		return shortMsg
	}
	return ""
}
