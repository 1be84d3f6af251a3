package topics

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"forum/internal/posts"
)

// DefaultAuthor is recorded when a topic is created without an author.
const DefaultAuthor = "system"

type Topic struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Author      string       `json:"author"`
	ViewCount   int          `json:"viewCount"`
	ReplyCount  int          `json:"replyCount"`
	Pinned      bool         `json:"pinned"`
	Closed      bool         `json:"closed"`
	Tags        []string     `json:"tags"`
	Deleted     bool         `json:"deleted"`
	LastPostAt  *time.Time   `json:"lastPostAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Posts       []posts.Post `json:"posts,omitempty"`
}

func (t Topic) Clone() Topic {
	t.Tags = slices.Clone(t.Tags)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.LastPostAt != nil {
		at := *t.LastPostAt
		t.LastPostAt = &at
	}
	if t.Posts != nil {
		cloned := make([]posts.Post, len(t.Posts))
		for i, p := range t.Posts {
			cloned[i] = p.Clone()
		}
		t.Posts = cloned
	}
	return t
}

type CreateTopicRequest struct {
	Title       string   `json:"title" binding:"required,notblank,max=200"`
	Description string   `json:"description"`
	Author      string   `json:"author" binding:"max=100"`
	Pinned      *bool    `json:"pinned"`
	Closed      *bool    `json:"closed"`
	Tags        []string `json:"tags"`
}

// UpdateTopicRequest is the body of PUT /topics/:id. Title and description are always
// overwritten; absent flags and tags are left alone.
type UpdateTopicRequest struct {
	Title       string   `json:"title" binding:"required,notblank,max=200"`
	Description string   `json:"description"`
	Pinned      *bool    `json:"pinned"`
	Closed      *bool    `json:"closed"`
	Tags        []string `json:"tags"`
	Deleted     *bool    `json:"deleted"`
}

// FilterCriteria narrows a topic listing. Nil fields match everything.
type FilterCriteria struct {
	Title   *string
	Author  *string
	Pinned  *bool
	Closed  *bool
	Deleted *bool
}

// CleanTags trims every tag, drops blanks and keeps the first occurrence of duplicates.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}
