package entities_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/internal/notes/domain/entities"
)

func TestNoteJSONShape(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	note := entities.Note{
		ID:           "n1",
		Title:        "Groceries",
		BodyMarkdown: "- milk",
		Tags:         []string{"home"},
		CreatedAt:    &created,
	}

	raw, err := json.Marshal(note)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "n1",
		"title": "Groceries",
		"body_markdown": "- milk",
		"tags": ["home"],
		"created_at": "2024-03-01T10:00:00Z"
	}`, string(raw))
}

func TestNotePatchSerializesOnlySetFields(t *testing.T) {
	title := "New title"
	raw, err := json.Marshal(entities.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "New title"}`, string(raw))

	assert.True(t, entities.NotePatch{}.IsEmpty())
	assert.False(t, entities.NotePatch{Title: &title}.IsEmpty())
}

func TestNormalizeTags(t *testing.T) {
	got := entities.NormalizeTags([]string{" work ", "Home", "", "work", "home", "ideas"})
	assert.Equal(t, []string{"Home", "ideas", "work"}, got)
	assert.Empty(t, entities.NormalizeTags(nil))
}

func TestDraftValidate(t *testing.T) {
	assert.ErrorIs(t, entities.NewDraft("  ", "\n", nil).Validate(), entities.ErrEmptyNote)
	assert.NoError(t, entities.NewDraft("title", "", nil).Validate())
	assert.NoError(t, entities.NewDraft("", "body", nil).Validate())
}

func TestApply(t *testing.T) {
	note := entities.Note{ID: "n1", Title: "a", BodyMarkdown: "b", Tags: []string{"x"}}
	body := "changed"
	tags := []string{"y", "y", "z"}

	got := note.Apply(entities.NotePatch{BodyMarkdown: &body, Tags: &tags})

	assert.Equal(t, "a", got.Title)
	assert.Equal(t, "changed", got.BodyMarkdown)
	assert.Equal(t, []string{"y", "z"}, got.Tags)
	assert.Equal(t, "b", note.BodyMarkdown, "original must not change")
}

func TestHasTagAndDisplayTitle(t *testing.T) {
	note := entities.Note{Tags: []string{"Work"}, BodyMarkdown: "\n# Heading line\nrest"}

	assert.True(t, note.HasTag("work"))
	assert.False(t, note.HasTag("home"))
	assert.Equal(t, "Heading line", note.DisplayTitle())
	assert.Equal(t, "Untitled", entities.Note{}.DisplayTitle())
}

func TestLastModified(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	assert.True(t, entities.Note{}.LastModified().IsZero())
	assert.Equal(t, created, entities.Note{CreatedAt: &created}.LastModified())
	assert.Equal(t, updated, entities.Note{CreatedAt: &created, UpdatedAt: &updated}.LastModified())
}
