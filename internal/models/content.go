package models

import "time"

// ContentKind distinguishes the two content categories the CMS serves.
type ContentKind string

const (
	KindPost ContentKind = "post"
	KindPage ContentKind = "page"
)

// ContentItem is a publishable piece of content (post or page).
// The search core only ever reads these; ownership stays with the store.
type ContentItem struct {
	ID        string      `json:"id"`
	Kind      ContentKind `json:"kind"`
	Title     string      `json:"title"`
	Slug      string      `json:"slug"`
	Body      string      `json:"body"`    // may contain HTML
	Summary   string      `json:"summary"` // optional, empty when absent
	Visible   bool        `json:"visible"` // published vs. draft
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SearchResult pairs a matched item with its rendered excerpt.
type SearchResult struct {
	Item      ContentItem `json:"item"`
	Excerpt   string      `json:"excerpt"`
	Truncated bool        `json:"truncated"`
	Title     string      `json:"title_highlighted,omitempty"`
}

// Keyword is a significant term with its occurrence count.
type Keyword struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}
