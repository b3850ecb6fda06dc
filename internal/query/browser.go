package query

import "postdesk/internal/models"

// Browser holds the listing state of one viewer: search term, author filter
// and current page. It is not safe for concurrent use.
type Browser struct {
	search   string
	author   string
	page     int
	pageSize int
	size     int
	sized    bool
}

// NewBrowser starts on page 1 showing every author.
func NewBrowser(pageSize int) *Browser {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Browser{author: AllAuthors, page: 1, pageSize: pageSize}
}

// View is what a listing renders for one collection snapshot.
type View struct {
	Search     string
	Author     string
	Authors    []string
	Page       int
	TotalPages int
	Items      []models.Post
	Matches    int
}

// Search returns the current search term.
func (b *Browser) Search() string { return b.search }

// Author returns the author filter, AllAuthors when unfiltered.
func (b *Browser) Author() string { return b.author }

// Page returns the current 1-based page.
func (b *Browser) Page() int { return b.page }

// PageSize returns the number of posts per page.
func (b *Browser) PageSize() int { return b.pageSize }

// SetSearch changes the search term and returns to page 1 when it differs.
func (b *Browser) SetSearch(term string) {
	if term != b.search {
		b.search = term
		b.page = 1
	}
}

// SetAuthor changes the author filter and returns to page 1 when it differs.
// An empty value selects AllAuthors.
func (b *Browser) SetAuthor(author string) {
	if author == "" {
		author = AllAuthors
	}
	if author != b.author {
		b.author = author
		b.page = 1
	}
}

// Observe records the size of the underlying collection and returns to
// page 1 when it changed since the last call.
func (b *Browser) Observe(posts []models.Post) {
	if b.sized && len(posts) == b.size {
		return
	}
	if b.sized {
		b.page = 1
	}
	b.size = len(posts)
	b.sized = true
}

// GoTo moves to page when it lies in [1, totalPages] for posts and reports
// whether it moved. Anything else leaves the current page alone.
func (b *Browser) GoTo(posts []models.Post, page int) bool {
	b.Observe(posts)
	total := TotalPages(len(Filter(posts, b.search, b.author)), b.pageSize)
	if page < 1 || page > total {
		return false
	}
	b.page = page
	return true
}

// Next moves forward one page if there is one.
func (b *Browser) Next(posts []models.Post) bool { return b.GoTo(posts, b.page+1) }

// Prev moves back one page if there is one.
func (b *Browser) Prev(posts []models.Post) bool { return b.GoTo(posts, b.page-1) }

// View filters and paginates posts with the current state.
func (b *Browser) View(posts []models.Post) View {
	b.Observe(posts)
	filtered := Filter(posts, b.search, b.author)
	page := Paginate(filtered, b.page, b.pageSize)
	return View{
		Search:     b.search,
		Author:     b.author,
		Authors:    AuthorFacet(posts),
		Page:       b.page,
		TotalPages: page.TotalPages,
		Items:      page.Items,
		Matches:    len(filtered),
	}
}
