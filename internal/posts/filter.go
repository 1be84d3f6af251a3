package posts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// FilterCriteria narrows a listing. Nil fields impose no constraint; the rest are ANDed.
type FilterCriteria struct {
	AuthorID      *uuid.UUID
	TopicID       *uuid.UUID
	TitleContains *string
	MinLikes      *int
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
}

// Filter returns the posts matching every supplied criterion, in their original order.
// The input slice is not modified.
func Filter(posts []Post, c FilterCriteria) []Post {
	var needle string
	if c.TitleContains != nil {
		needle = cases.Fold().String(*c.TitleContains)
	}

	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if c.matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func (c FilterCriteria) matches(p Post, foldedTitle string) bool {
	if c.AuthorID != nil && p.AuthorID != *c.AuthorID {
		return false
	}
	if c.TopicID != nil && (p.TopicID == nil || *p.TopicID != *c.TopicID) {
		return false
	}
	if c.TitleContains != nil && !strings.Contains(cases.Fold().String(p.Title), foldedTitle) {
		return false
	}
	if c.MinLikes != nil && p.Likes < *c.MinLikes {
		return false
	}
	if c.CreatedAtFrom != nil || c.CreatedAtTo != nil {
		if p.CreatedAt.IsZero() {
			return false
		}
		if c.CreatedAtFrom != nil && p.CreatedAt.Before(*c.CreatedAtFrom) {
			return false
		}
		if c.CreatedAtTo != nil && p.CreatedAt.After(*c.CreatedAtTo) {
			return false
		}
	}
	return true
}
