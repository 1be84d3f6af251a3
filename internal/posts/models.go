package posts

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Post is a forum post. A zero CreatedAt or UpdatedAt means the timestamp was never set.
type Post struct {
	ID        uuid.UUID  `json:"id"`
	AuthorID  uuid.UUID  `json:"authorId"`
	TopicID   *uuid.UUID `json:"topicId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Likes     int        `json:"likes"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Clone returns a copy of p that shares no pointers with it.
func (p Post) Clone() Post {
	if p.TopicID != nil {
		id := *p.TopicID
		p.TopicID = &id
	}
	return p
}

// CreatePostRequest is the body of POST /posts.
type CreatePostRequest struct {
	AuthorID *uuid.UUID `json:"authorId" binding:"required"`
	TopicID  *uuid.UUID `json:"topicId"`
	Title    string     `json:"title" binding:"required,notblank,max=200"`
	Content  string     `json:"content" binding:"required,notblank"`
}

// ReplacePostRequest is the body of PUT /posts/:id. Absent topicId detaches the post.
type ReplacePostRequest struct {
	TopicID *uuid.UUID `json:"topicId"`
	Title   string     `json:"title" binding:"required,notblank,max=200"`
	Content string     `json:"content" binding:"required,notblank"`
}

// MergePatch is the body of a merge-patch PATCH. Only these members can change;
// anything else in the document is ignored.
type MergePatch struct {
	TopicID OptionalUUID `json:"topicId"`
	Title   *string      `json:"title"`
	Content *string      `json:"content"`
}

// OptionalUUID tells apart a missing member, an explicit null and a value.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the member is present.
func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// Links maps link names to URLs. A nil value marks an absent link.
type Links map[string]*string

// Page is one page of a listing.
type Page[T any] struct {
	Content       []T    `json:"content"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
	Sort          string `json:"sort"`
	Links         Links  `json:"links"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
