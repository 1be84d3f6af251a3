package posts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forum/internal/jsonpatch"
)

// ErrPatchFailed wraps every reason a structural patch is rejected.
var ErrPatchFailed = errors.New("patch could not be applied")

// ApplyJSONPatch applies an RFC 6902 patch to a copy of original. On any failure the
// returned error wraps ErrPatchFailed and original is left untouched. On success the
// immutable fields are restored, likes is clamped at zero and UpdatedAt is stamped.
func ApplyJSONPatch(original Post, patch jsonpatch.Patch, now time.Time) (Post, error) {
	data, err := json.Marshal(original)
	if err != nil {
		return Post{}, fmt.Errorf("encode post: %w", err)
	}
	doc, err := jsonpatch.Parse(data)
	if err != nil {
		return Post{}, fmt.Errorf("encode post: %w", err)
	}

	patched, err := patch.Apply(doc)
	if err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrPatchFailed, err)
	}
	if patched.Kind() != jsonpatch.KindObject {
		return Post{}, fmt.Errorf("%w: document must remain an object, got %s", ErrPatchFailed, patched.Kind())
	}

	raw, err := json.Marshal(patched)
	if err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrPatchFailed, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var result Post
	if err := dec.Decode(&result); err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrPatchFailed, err)
	}

	result.ID = original.ID
	result.AuthorID = original.AuthorID
	result.CreatedAt = original.CreatedAt
	result.Likes = max(result.Likes, 0)
	result.UpdatedAt = stamp(original.UpdatedAt, now)
	return result, nil
}

// ApplyMergePatch overwrites the members present in patch. An explicit null clears
// topicId; null for title or content leaves them unchanged.
func ApplyMergePatch(original Post, patch MergePatch, now time.Time) Post {
	result := original.Clone()
	if patch.TopicID.Set {
		result.TopicID = patch.TopicID.Value
	}
	if patch.Title != nil {
		result.Title = *patch.Title
	}
	if patch.Content != nil {
		result.Content = *patch.Content
	}
	result.UpdatedAt = stamp(original.UpdatedAt, now)
	return result
}

// stamp keeps UpdatedAt from moving backwards when clocks disagree.
func stamp(previous, now time.Time) time.Time {
	if now.Before(previous) {
		return previous
	}
	return now
}
