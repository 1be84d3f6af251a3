package topics

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Filter returns the topics matching every set criterion. Title matches as a
// case-insensitive substring, author as a case-insensitive equality.
func Filter(all []Topic, c FilterCriteria) []Topic {
	fold := cases.Fold()
	var title, author string
	if c.Title != nil {
		title = fold.String(*c.Title)
	}
	if c.Author != nil {
		author = fold.String(*c.Author)
	}

	out := []Topic{}
	for _, t := range all {
		if c.Title != nil && !strings.Contains(fold.String(t.Title), title) {
			continue
		}
		if c.Author != nil && fold.String(t.Author) != author {
			continue
		}
		if c.Pinned != nil && t.Pinned != *c.Pinned {
			continue
		}
		if c.Closed != nil && t.Closed != *c.Closed {
			continue
		}
		if c.Deleted != nil && t.Deleted != *c.Deleted {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Order puts pinned topics first, then newest first. Ties break on id.
func Order(topics []Topic) {
	slices.SortStableFunc(topics, func(a, b Topic) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
