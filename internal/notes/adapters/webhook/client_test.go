package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/internal/notes/adapters/webhook"
	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/internal/notes/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *webhook.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := webhook.NewClient(&config.APIConfig{
		BaseURL:   srv.URL + "/",
		Timeout:   time.Second,
		UserAgent: "test",
	})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := webhook.NewClient(&config.APIConfig{})
	assert.ErrorIs(t, err, config.ErrMissingBaseURL)
}

func TestList(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/notes", r.URL.Path)
			writeJSON(t, w, http.StatusOK, []map[string]any{
				{"id": "1", "title": "one", "body_markdown": "# one", "tags": []string{"b", "a", "a"}},
				{"id": "2", "title": "two", "body_markdown": "", "tags": nil},
			})
		})

		notes, err := c.List(context.Background())
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "1", notes[0].ID)
		assert.Equal(t, []string{"a", "b"}, notes[0].Tags)
		assert.Empty(t, notes[1].Tags)
	})

	t.Run("envelope", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"notes": []map[string]any{{"id": "7", "title": "seven"}},
			})
		})

		notes, err := c.List(context.Background())
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "seven", notes[0].Title)
	})

	t.Run("empty body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		notes, err := c.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notes/a b":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id": "a b", "title": "spaced", "created_at": "2024-05-01T12:00:00Z",
			})
		default:
			writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "no such note"})
		}
	})

	note, err := c.Get(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "spaced", note.Title)
	require.NotNil(t, note.CreatedAt)
	assert.Nil(t, note.UpdatedAt)

	_, err = c.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, webhook.IsNotFound(err))
	assert.False(t, resilience.IsTransient(err))

	var apiErr *webhook.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "no such note", apiErr.Message)

	_, err = c.Get(context.Background(), " ")
	assert.ErrorIs(t, err, entities.ErrEmptyID)
}

func TestCreate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/notes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var draft entities.NoteDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, []string{"x"}, draft.Tags)

		writeJSON(t, w, http.StatusCreated, map[string]any{
			"id": "server-id", "title": draft.Title, "body_markdown": draft.BodyMarkdown, "tags": draft.Tags,
		})
	})

	note, err := c.Create(context.Background(), entities.NewDraft("hello", "body", []string{"x", " x "}))
	require.NoError(t, err)
	assert.Equal(t, "server-id", note.ID)

	_, err = c.Create(context.Background(), entities.NoteDraft{})
	assert.ErrorIs(t, err, entities.ErrEmptyNote)
}

func TestCreateWithoutIDIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, map[string]any{"title": "no id"})
	})

	_, err := c.Create(context.Background(), entities.NewDraft("t", "", nil))
	assert.ErrorIs(t, err, webhook.ErrUnexpectedReply)
}

func TestUpdate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/notes/n1", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"renamed"}`, string(raw))

		writeJSON(t, w, http.StatusOK, map[string]any{"note": map[string]any{"id": "n1", "title": "renamed"}})
	})

	title := "renamed"
	note, err := c.Update(context.Background(), "n1", entities.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", note.Title)

	_, err = c.Update(context.Background(), "n1", entities.NotePatch{})
	assert.ErrorIs(t, err, entities.ErrEmptyPatch)
}

func TestUpdateWithEmptyReplyRefetches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "n1", "title": "fresh"})
	})

	title := "fresh"
	note, err := c.Update(context.Background(), "n1", entities.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "fresh", note.Title)
}

func TestDeleteUsesNotePath(t *testing.T) {
	var path atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Delete(context.Background(), "n9"))
	assert.Equal(t, "/notes/n9", path.Load())
}

func TestServerErrorsAreTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusServiceUnavailable, map[string]string{"message": "maintenance"})
	})

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "maintenance")
}

func TestClientErrorsAreTerminal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	})

	title := "x"
	_, err := c.Update(context.Background(), "n1", entities.NotePatch{Title: &title})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.False(t, webhook.IsNotFound(err))
}

func TestLongErrorBodyIsCutOnRuneBoundary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "xx"+strings.Repeat("ошибка ", 100))
	})

	_, err := c.List(context.Background())
	require.Error(t, err)

	var apiErr *webhook.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.LessOrEqual(t, len(apiErr.Message), 256)
	assert.True(t, strings.HasPrefix(apiErr.Message, "xxошибка"))
}

func TestTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := webhook.NewClient(&config.APIConfig{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.List(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestCanceledContextIsTerminal(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, resilience.IsTransient(err))
}
