// Package app содержит прикладную логику работы с заметками.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/internal/notes/ports/api"
	"staticnotes/internal/notes/ports/cache"
	"staticnotes/internal/notes/ports/services"
	"staticnotes/internal/notes/resilience"
	"staticnotes/pkg/logger"
)

// Константы для логирования.
const (
	LogServiceCreateNote = "notes service: create note"
	LogServiceGetNote    = "notes service: get note"
	LogServiceListNotes  = "notes service: list notes"
	LogServiceUpdateNote = "notes service: update note"
	LogServiceDeleteNote = "notes service: delete note"
	LogServiceInvalidate = "notes service: invalidate cache"

	LogCacheHit       = "cache hit"
	LogServedStale    = "api unavailable, serving stale cached copy"
	LogCacheReadFail  = "cache read failed"
	LogCacheWriteFail = "cache write failed"
	LogCacheDecode    = "cached entry is corrupt, ignoring"

	ErrorCreateNoteFailed = "failed to create note"
	ErrorGetNoteFailed    = "failed to get note"
	ErrorListNotesFailed  = "failed to list notes"
	ErrorUpdateNoteFailed = "failed to update note"
	ErrorDeleteNoteFailed = "failed to delete note"
	ErrorInvalidateFailed = "failed to invalidate cache"
)

const (
	listKey       = "notes:list"
	noteKeyPrefix = "notes:note:"
)

func noteKey(id string) string {
	return noteKeyPrefix + id
}

// envelope - запись кэша. Свежесть определяется ExpiresAt,
// а сама запись живет дольше, чтобы служить запасной копией.
type envelope struct {
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Data      json.RawMessage `json:"data"`
}

// NotesService реализует чтение через кэш поверх клиента API.
type NotesService struct {
	client     api.NotesClient
	cache      cache.Cache
	resilience *resilience.ServiceResilience
	ttl        time.Duration
	staleTTL   time.Duration
	group      singleflight.Group
	now        func() time.Time
}

var _ services.NotesService = (*NotesService)(nil)

// NewNotesService создает новый экземпляр сервиса заметок.
func NewNotesService(
	client api.NotesClient,
	cache cache.Cache,
	res *resilience.ServiceResilience,
	cfg *config.CacheConfig,
) *NotesService {
	staleTTL := cfg.StaleTTL
	if staleTTL < cfg.TTL {
		staleTTL = cfg.TTL
	}
	return &NotesService{
		client:     client,
		cache:      cache,
		resilience: res,
		ttl:        cfg.TTL,
		staleTTL:   staleTTL,
		now:        time.Now,
	}
}

// ListNotes получает все заметки.
func (s *NotesService) ListNotes(ctx context.Context) (*services.ListResult, error) {
	log := logger.Log(ctx)
	log.Debug(ctx, LogServiceListNotes)

	notes, stale, err := readThrough(ctx, s, listKey, "ListNotes", s.client.List)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorListNotesFailed, err)
	}
	if notes == nil {
		notes = []entities.Note{}
	}
	return &services.ListResult{Notes: notes, Stale: stale}, nil
}

// ListNoteIDs возвращает идентификаторы всех заметок.
func (s *NotesService) ListNoteIDs(ctx context.Context) ([]string, error) {
	res, err := s.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Notes))
	for _, note := range res.Notes {
		ids = append(ids, note.ID)
	}
	return ids, nil
}

// GetNote получает заметку по ID.
func (s *NotesService) GetNote(ctx context.Context, noteID string) (*services.NoteResult, error) {
	log := logger.Log(ctx).With(zap.String("note_id", noteID))
	log.Debug(ctx, LogServiceGetNote)

	if noteID == "" {
		return nil, fmt.Errorf("%s: %w", ErrorGetNoteFailed, entities.ErrEmptyID)
	}

	note, stale, err := readThrough(ctx, s, noteKey(noteID), "GetNote", func(ctx context.Context) (*entities.Note, error) {
		return s.client.Get(ctx, noteID)
	})
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			s.forget(ctx, noteKey(noteID))
		}
		return nil, fmt.Errorf("%s: %w", ErrorGetNoteFailed, err)
	}
	return &services.NoteResult{Note: *note, Stale: stale}, nil
}

// CreateNote создает новую заметку.
func (s *NotesService) CreateNote(ctx context.Context, draft entities.NoteDraft) (*entities.Note, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogServiceCreateNote)

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorCreateNoteFailed, err)
	}

	note, err := resilience.ExecuteWithResult(ctx, s.resilience, "CreateNote", func(ctx context.Context) (*entities.Note, error) {
		return s.client.Create(ctx, draft)
	})
	if err != nil {
		log.Error(ctx, ErrorCreateNoteFailed, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrorCreateNoteFailed, err)
	}

	s.store(ctx, noteKey(note.ID), note)
	s.forget(ctx, listKey)
	return note, nil
}

// UpdateNote частично обновляет заметку.
func (s *NotesService) UpdateNote(ctx context.Context, noteID string, patch entities.NotePatch) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("note_id", noteID))
	log.Info(ctx, LogServiceUpdateNote)

	if noteID == "" {
		return nil, fmt.Errorf("%s: %w", ErrorUpdateNoteFailed, entities.ErrEmptyID)
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%s: %w", ErrorUpdateNoteFailed, entities.ErrEmptyPatch)
	}

	note, err := resilience.ExecuteWithResult(ctx, s.resilience, "UpdateNote", func(ctx context.Context) (*entities.Note, error) {
		return s.client.Update(ctx, noteID, patch)
	})
	if err != nil {
		log.Error(ctx, ErrorUpdateNoteFailed, zap.Error(err))
		if errors.Is(err, entities.ErrNotFound) {
			s.forget(ctx, noteKey(noteID), listKey)
		}
		return nil, fmt.Errorf("%s: %w", ErrorUpdateNoteFailed, err)
	}

	s.store(ctx, noteKey(note.ID), note)
	s.forget(ctx, listKey)
	return note, nil
}

// DeleteNote удаляет заметку.
func (s *NotesService) DeleteNote(ctx context.Context, noteID string) error {
	log := logger.Log(ctx).With(zap.String("note_id", noteID))
	log.Info(ctx, LogServiceDeleteNote)

	if noteID == "" {
		return fmt.Errorf("%s: %w", ErrorDeleteNoteFailed, entities.ErrEmptyID)
	}

	err := s.resilience.Execute(ctx, "DeleteNote", func(ctx context.Context) error {
		return s.client.Delete(ctx, noteID)
	})
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		log.Error(ctx, ErrorDeleteNoteFailed, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorDeleteNoteFailed, err)
	}

	s.forget(ctx, noteKey(noteID), listKey)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorDeleteNoteFailed, err)
	}
	return nil
}

// Invalidate удаляет из кэша список и все известные по нему заметки.
func (s *NotesService) Invalidate(ctx context.Context) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogServiceInvalidate)

	keys := []string{listKey}
	if env, ok := s.lookup(ctx, listKey); ok {
		var notes []entities.Note
		if err := json.Unmarshal(env.Data, &notes); err == nil {
			for _, note := range notes {
				keys = append(keys, noteKey(note.ID))
			}
		}
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Error(ctx, ErrorInvalidateFailed, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorInvalidateFailed, err)
	}
	return nil
}

// readThrough отдает свежую запись кэша, иначе запрашивает API.
// При ошибке API отдается устаревшая копия, если она есть.
// Одновременные запросы одного ключа объединяются.
func readThrough[T any](
	ctx context.Context,
	s *NotesService,
	key string,
	operation string,
	fetch func(ctx context.Context) (T, error),
) (T, bool, error) {
	var zero T
	log := logger.Log(ctx).With(zap.String("key", key))

	cached, hasCached := s.lookup(ctx, key)
	if hasCached && s.now().Before(cached.ExpiresAt) {
		var value T
		if err := json.Unmarshal(cached.Data, &value); err == nil {
			log.Debug(ctx, LogCacheHit)
			return value, false, nil
		}
		log.Warn(ctx, LogCacheDecode)
		hasCached = false
	}

	// Общий запрос не отменяется вместе с контекстом первого вызывающего:
	// его результат ждут и остальные. Время попытки ограничивает клиент.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		value, err := resilience.ExecuteWithResult(shared, s.resilience, operation, fetch)
		if err != nil {
			return nil, err
		}
		s.store(shared, key, value)
		return value, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res = <-ch:
	}

	if res.Err == nil {
		return res.Val.(T), false, nil
	}

	if hasCached && canServeStale(ctx, res.Err) {
		var value T
		if err := json.Unmarshal(cached.Data, &value); err == nil {
			log.Warn(ctx, LogServedStale,
				zap.Time("fetched_at", cached.FetchedAt),
				zap.Error(res.Err))
			return value, true, nil
		}
	}

	return zero, false, res.Err
}

// canServeStale: удаленную заметку и отмену вызывающим запасная копия не заменяет.
func canServeStale(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, entities.ErrNotFound) && !errors.Is(err, context.Canceled)
}

func (s *NotesService) lookup(ctx context.Context, key string) (envelope, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheReadFail, zap.String("key", key), zap.Error(err))
		return envelope{}, false
	}
	if raw == "" {
		return envelope{}, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheDecode, zap.String("key", key), zap.Error(err))
		return envelope{}, false
	}
	return env, true
}

func (s *NotesService) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheWriteFail, zap.String("key", key), zap.Error(err))
		return
	}

	now := s.now()
	raw, err := json.Marshal(envelope{
		FetchedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Data:      data,
	})
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheWriteFail, zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, key, string(raw), s.staleTTL); err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheWriteFail, zap.String("key", key), zap.Error(err))
	}
}

func (s *NotesService) forget(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheWriteFail, zap.Strings("keys", keys), zap.Error(err))
	}
}
