// Package query derives the read-side views of the post collection: the
// author facet, search/author filtering and fixed-size pages.
package query

import (
	"slices"
	"strings"

	"postdesk/internal/models"
)

// AllAuthors is the author filter value that matches every post.
const AllAuthors = "all"

// DefaultPageSize is the number of posts per page on the listing.
const DefaultPageSize = 6

// Page is one slice of a filtered collection.
type Page struct {
	Items      []models.Post
	TotalPages int
}

// AuthorFacet returns the distinct authors, sorted ascending by byte order.
func AuthorFacet(posts []models.Post) []string {
	seen := make(map[string]struct{}, len(posts))
	authors := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.Author]; ok {
			continue
		}
		seen[p.Author] = struct{}{}
		authors = append(authors, p.Author)
	}
	slices.Sort(authors)
	return authors
}

// Filter keeps posts by author (exact match unless author is AllAuthors) whose
// title, content or any tag contains search, case-insensitively. A blank
// search matches everything. Source order is preserved.
func Filter(posts []models.Post, search, author string) []models.Post {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if author != AllAuthors && p.Author != author {
			continue
		}
		if term != "" && !matches(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p models.Post, term string) bool {
	if strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// TotalPages is max(1, ceil(count/size)). A non-positive size counts as 1.
func TotalPages(count, size int) int {
	if size < 1 {
		size = 1
	}
	if count <= 0 {
		return 1
	}
	pages := count / size
	if count%size != 0 {
		pages++
	}
	return pages
}

// Paginate returns the 1-based page of posts. Pages outside the collection
// yield no items rather than an error.
func Paginate(posts []models.Post, page, size int) Page {
	if size < 1 {
		size = 1
	}
	result := Page{Items: []models.Post{}, TotalPages: TotalPages(len(posts), size)}
	if page < 1 || len(posts) == 0 || page-1 > (len(posts)-1)/size {
		return result
	}
	start := (page - 1) * size
	end := start + min(size, len(posts)-start)
	result.Items = posts[start:end:end]
	return result
}
