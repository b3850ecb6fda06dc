// Package models contains data structures for the post store's domain.
package models

import "time"

// DefaultTags replaces an empty tag list when a post is stored.
var DefaultTags = []string{"react", "crud"}

// Post is the only persisted entity. ID and CreatedAt are fixed at creation.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy of p that shares no memory with it.
func (p Post) Clone() Post {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	return out
}

// Draft holds unpersisted field values coming from a form.
type Draft struct {
	Title   string   `json:"title" yaml:"title"`
	Author  string   `json:"author" yaml:"author"`
	Content string   `json:"content" yaml:"content"`
	Tags    TagInput `json:"tags" yaml:"tags"`
}
