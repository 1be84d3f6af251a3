package posts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum/internal/jsonpatch"
)

func decodePatch(t *testing.T, s string) jsonpatch.Patch {
	t.Helper()
	p, err := jsonpatch.DecodePatch([]byte(s))
	require.NoError(t, err)
	return p
}

func TestApplyJSONPatch_ReplacesEditableFields(t *testing.T) {
	original := fixture("old", 3, 0)
	now := base.Add(24 * time.Hour)

	got, err := ApplyJSONPatch(original, decodePatch(t, `[
		{"op":"test","path":"/title","value":"old"},
		{"op":"replace","path":"/title","value":"new"},
		{"op":"replace","path":"/content","value":"body"}
	]`), now)

	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "body", got.Content)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, 3, got.Likes)
}

func TestApplyJSONPatch_RestoresImmutableFields(t *testing.T) {
	original := fixture("title", 3, 0)
	now := base.Add(time.Hour)

	got, err := ApplyJSONPatch(original, decodePatch(t, `[
		{"op":"replace","path":"/id","value":"`+uuid.NewString()+`"},
		{"op":"replace","path":"/authorId","value":"`+uuid.NewString()+`"},
		{"op":"replace","path":"/createdAt","value":"1999-01-01T00:00:00Z"}
	]`), now)

	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.AuthorID, got.AuthorID)
	assert.True(t, original.CreatedAt.Equal(got.CreatedAt))
}

func TestApplyJSONPatch_ClampsLikes(t *testing.T) {
	got, err := ApplyJSONPatch(fixture("t", 3, 0), decodePatch(t, `[{"op":"replace","path":"/likes","value":-5}]`), base)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)
}

func TestApplyJSONPatch_TopicCanBeSetAndCleared(t *testing.T) {
	topic := uuid.New()
	got, err := ApplyJSONPatch(fixture("t", 0, 0), decodePatch(t, `[{"op":"replace","path":"/topicId","value":"`+topic.String()+`"}]`), base)
	require.NoError(t, err)
	require.NotNil(t, got.TopicID)
	assert.Equal(t, topic, *got.TopicID)

	got, err = ApplyJSONPatch(got, decodePatch(t, `[{"op":"replace","path":"/topicId","value":null}]`), base)
	require.NoError(t, err)
	assert.Nil(t, got.TopicID)
}

func TestApplyJSONPatch_Failures(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"failed test", `[{"op":"test","path":"/title","value":"other"}]`},
		{"missing path", `[{"op":"remove","path":"/nothing"}]`},
		{"type mismatch", `[{"op":"replace","path":"/likes","value":"many"}]`},
		{"unknown member", `[{"op":"add","path":"/color","value":"red"}]`},
		{"root replaced by scalar", `[{"op":"replace","path":"","value":42}]`},
		{"unknown op", `[{"op":"explode","path":"/title"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := fixture("title", 1, 0)
			snapshot, _ := json.Marshal(original)

			_, err := ApplyJSONPatch(original, decodePatch(t, tt.patch), base.Add(time.Hour))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPatchFailed)

			after, _ := json.Marshal(original)
			assert.JSONEq(t, string(snapshot), string(after))
		})
	}
}

func TestApplyMergePatch(t *testing.T) {
	topic := uuid.New()
	original := fixture("title", 4, 0)
	original.TopicID = &topic
	now := base.Add(time.Hour)

	var patch MergePatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"renamed","likes":100,"id":"`+uuid.NewString()+`"}`), &patch))

	got := ApplyMergePatch(original, patch, now)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, original.Content, got.Content)
	require.NotNil(t, got.TopicID)
	assert.Equal(t, topic, *got.TopicID)
	assert.Equal(t, 4, got.Likes)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestApplyMergePatch_NullHandling(t *testing.T) {
	topic := uuid.New()
	original := fixture("title", 0, 0)
	original.TopicID = &topic

	var patch MergePatch
	require.NoError(t, json.Unmarshal([]byte(`{"topicId":null,"title":null}`), &patch))

	got := ApplyMergePatch(original, patch, base)
	assert.Nil(t, got.TopicID)
	assert.Equal(t, "title", got.Title)
	require.NotNil(t, original.TopicID, "original must not be modified")
}

func TestApplyMergePatch_UpdatedAtNeverMovesBackwards(t *testing.T) {
	original := fixture("title", 0, time.Hour)
	got := ApplyMergePatch(original, MergePatch{Title: ptr("x")}, base)
	assert.Equal(t, original.UpdatedAt, got.UpdatedAt)
}
