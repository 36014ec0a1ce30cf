package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/internal/notes/adapters/http/mockapi"
	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/domain/entities"
)

func startMockAPI(t *testing.T) (*mockapi.Store, string) {
	t.Helper()

	store := mockapi.NewStore()
	srv := mockapi.NewServer(&config.HTTPConfig{Host: "127.0.0.1"}, store)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = srv.App().Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return store, "http://" + ln.Addr().String()
}

func setupEnv(t *testing.T) *mockapi.Store {
	t.Helper()
	store, baseURL := startMockAPI(t)

	t.Setenv("NOTES_API_BASE_URL", baseURL)
	t.Setenv("NOTES_API_RETRY_COUNT", "0")
	t.Setenv("NOTES_CACHE_BACKEND", config.CacheBackendMemory)
	t.Setenv("NOTES_LOGGER_LEVEL", "error")
	return store
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	c := newCLI(&stdout, &stderr)
	defer c.close(context.Background())

	root := c.root()
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCreateListDelete(t *testing.T) {
	store := setupEnv(t)

	out, _, err := run(t, "create", "--title", "First", "--body", "hello *world*", "--tag", "go", "--tag", "notes")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, store.Len())

	out, _, err = run(t, "list", "--json", "--tag", "go")
	require.NoError(t, err)
	var notes []entities.Note
	require.NoError(t, json.Unmarshal([]byte(out), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, id, notes[0].ID)

	out, _, err = run(t, "list", "--refresh", "--query", "nothing-matches")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	out, _, err = run(t, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "notes")

	_, _, err = run(t, "delete", id)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestUpdateOnlyChangedFields(t *testing.T) {
	store := setupEnv(t)
	store.Put(entities.Note{ID: "n1", Title: "Old", BodyMarkdown: "keep me", Tags: []string{"a"}})

	_, _, err := run(t, "update", "n1", "--title", "New")
	require.NoError(t, err)

	note, err := store.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, "New", note.Title)
	assert.Equal(t, "keep me", note.BodyMarkdown)
	assert.Equal(t, []string{"a"}, note.Tags)

	_, _, err = run(t, "update", "n1")
	assert.ErrorIs(t, err, entities.ErrEmptyPatch)

	_, _, err = run(t, "update", "n1", "--body", "x", "--file", "y.md")
	assert.ErrorIs(t, err, ErrBodyAndFile)
}

func TestGetMissingNote(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, "get", "nope")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestBuildAndExport(t *testing.T) {
	store := setupEnv(t)
	store.Put(entities.Note{ID: "n1", Title: "Hello", BodyMarkdown: "# Hello", Tags: []string{"greeting"}})

	out := filepath.Join(t.TempDir(), "site")
	stdout, _, err := run(t, "build", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "built 1 notes")
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "notes", "n1", "index.html"))

	backup := filepath.Join(t.TempDir(), "backup")
	_, _, err = run(t, "export", backup)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(backup, "n1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Hello")
}

func TestDeployDryRun(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>x</h1>"), 0o644))

	t.Setenv("NOTES_DEPLOY_BUCKET", "site")
	t.Setenv("NOTES_DEPLOY_PREFIX", "blog")

	stdout, _, err := run(t, "deploy", "--dry-run", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "s3://site/blog/index.html")
	assert.Contains(t, stdout, "would upload 1 files")
}

func TestMissingAPIURL(t *testing.T) {
	t.Setenv("NOTES_API_BASE_URL", "")
	t.Setenv("NOTES_CACHE_BACKEND", config.CacheBackendMemory)

	_, _, err := run(t, "list")
	assert.ErrorIs(t, err, config.ErrMissingBaseURL)
}

func TestCacheClearMemory(t *testing.T) {
	setupEnv(t)

	stdout, _, err := run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cache cleared (memory)")
}

func TestCachePurgeSQLite(t *testing.T) {
	setupEnv(t)
	t.Setenv("NOTES_CACHE_BACKEND", config.CacheBackendSQLite)
	t.Setenv("NOTES_CACHE_SQLITE_PATH", filepath.Join(t.TempDir(), "cache.db"))

	stdout, _, err := run(t, "cache", "purge")
	require.NoError(t, err)
	assert.Contains(t, stdout, "purged 0 expired entries (sqlite)")
}

func TestDeleteMissingNoteSucceeds(t *testing.T) {
	store := setupEnv(t)
	store.Put(entities.Note{ID: "n1", Title: "Keep"})

	_, _, err := run(t, "delete", "no-such-id")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestListIDs(t *testing.T) {
	store := setupEnv(t)
	store.Put(entities.Note{ID: "n1", Title: "One"})
	store.Put(entities.Note{ID: "n2", Title: "Two"})

	out, _, err := run(t, "list", "--ids")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1", "n2"}, strings.Fields(out))

	_, _, err = run(t, "list", "--ids", "--json")
	assert.Error(t, err)
}

func TestRetryCountBoundsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("NOTES_API_BASE_URL", srv.URL)
	t.Setenv("NOTES_API_RETRY_COUNT", "2")
	t.Setenv("NOTES_API_INITIAL_BACKOFF", "1ms")
	t.Setenv("NOTES_API_MAX_BACKOFF", "1ms")
	t.Setenv("NOTES_CACHE_BACKEND", config.CacheBackendMemory)
	t.Setenv("NOTES_LOGGER_LEVEL", "error")

	_, _, err := run(t, "get", "n1")
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}
