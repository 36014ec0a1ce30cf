// Package state хранит загруженные заметки, выбранную заметку и фильтры.
package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"staticnotes/internal/notes/app/search"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/internal/notes/ports/services"
	"staticnotes/pkg/logger"
)

// Ошибки хранилища состояния.
var (
	ErrSuperseded  = errors.New("load superseded by a newer request")
	ErrUnknownNote = errors.New("note is not loaded")
)

// Константы для логирования.
const (
	LogLoadStarted    = "state: loading notes"
	LogLoadSuperseded = "state: load superseded"
	LogLoaded         = "state: notes loaded"
	LogStaleData      = "state: showing cached notes, api unavailable"
)

// Store - контейнер состояния поверх сервиса заметок.
// Безопасен для одновременного использования.
type Store struct {
	svc services.NotesService

	mu         sync.RWMutex
	notes      []entities.Note
	selectedID string
	filter     search.Filter
	stale      bool
	err        error
	loadSeq    uint64
	cancelLoad context.CancelFunc
}

// NewStore создает пустое состояние.
func NewStore(svc services.NotesService) *Store {
	return &Store{
		svc:    svc,
		filter: search.Filter{Sort: search.SortUpdated},
	}
}

// Load загружает список заметок. Новый вызов отменяет незавершенный предыдущий,
// а результат отмененного вызова не попадает в состояние.
func (s *Store) Load(ctx context.Context) error {
	log := logger.Log(ctx)

	s.mu.Lock()
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.loadSeq++
	seq := s.loadSeq
	s.cancelLoad = cancel
	s.mu.Unlock()
	defer cancel()

	log.Debug(ctx, LogLoadStarted, zap.Uint64("seq", seq))
	res, err := s.svc.ListNotes(loadCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		log.Debug(ctx, LogLoadSuperseded, zap.Uint64("seq", seq))
		return ErrSuperseded
	}
	s.cancelLoad = nil

	if err != nil {
		s.err = err
		return err
	}

	s.notes = slices.Clone(res.Notes)
	s.stale = res.Stale
	s.err = nil
	if s.selectedID != "" && s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
	}

	if res.Stale {
		log.Warn(ctx, LogStaleData, zap.Int("count", len(s.notes)))
	} else {
		log.Debug(ctx, LogLoaded, zap.Int("count", len(s.notes)))
	}
	return nil
}

// Notes возвращает копию всех загруженных заметок.
func (s *Store) Notes() []entities.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notes)
}

// Stale сообщает, что список взят из устаревшего кэша.
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Err возвращает последнюю ошибку, которую нужно показать пользователю.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Select выбирает заметку. Пустой id снимает выбор.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownNote, id)
	}
	s.selectedID = id
	return nil
}

// Selected возвращает выбранную заметку.
func (s *Store) Selected() (entities.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(s.selectedID)
	if s.selectedID == "" || i < 0 {
		return entities.Note{}, false
	}
	return s.notes[i], true
}

// Filter возвращает текущие условия отбора.
func (s *Store) Filter() search.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := s.filter
	f.Tags = slices.Clone(f.Tags)
	return f
}

// SetQuery задает строку поиска.
func (s *Store) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Query = strings.TrimSpace(query)
}

// SetSort задает порядок выдачи.
func (s *Store) SetSort(mode search.SortMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Sort = mode
}

// ToggleTag добавляет тег в фильтр или убирает его оттуда.
func (s *Store) ToggleTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.filter.Tags {
		if strings.EqualFold(t, tag) {
			s.filter.Tags = slices.Delete(s.filter.Tags, i, i+1)
			return
		}
	}
	s.filter.Tags = append(s.filter.Tags, tag)
}

// ClearFilters сбрасывает запрос и теги, порядок сохраняется.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = search.Filter{Sort: s.filter.Sort}
}

// Visible возвращает заметки, прошедшие фильтр, в заданном порядке.
func (s *Store) Visible() []entities.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return search.Apply(s.notes, s.filter)
}

// Tags возвращает облако тегов по всем загруженным заметкам.
func (s *Store) Tags() []search.TagCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return search.TagCounts(s.notes)
}

// Create создает заметку и выбирает ее.
func (s *Store) Create(ctx context.Context, draft entities.NoteDraft) (*entities.Note, error) {
	note, err := s.svc.CreateNote(ctx, draft)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.err = err
		return nil, err
	}
	s.err = nil
	s.upsert(*note)
	s.selectedID = note.ID
	return note, nil
}

// Update применяет патч и заменяет заметку ответом сервиса.
func (s *Store) Update(ctx context.Context, id string, patch entities.NotePatch) (*entities.Note, error) {
	note, err := s.svc.UpdateNote(ctx, id, patch.Normalize())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.err = err
		if errors.Is(err, entities.ErrNotFound) {
			s.remove(id)
		}
		return nil, err
	}
	s.err = nil
	s.upsert(*note)
	return note, nil
}

// Delete удаляет заметку. Заметка, которой уже нет на сервере, тоже убирается из списка.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.svc.DeleteNote(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		s.err = err
		return err
	}
	s.err = nil
	s.remove(id)
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n entities.Note) bool { return n.ID == id })
}

func (s *Store) upsert(note entities.Note) {
	if i := s.indexOf(note.ID); i >= 0 {
		s.notes[i] = note
		return
	}
	s.notes = append(s.notes, note)
}

func (s *Store) remove(id string) {
	if i := s.indexOf(id); i >= 0 {
		s.notes = slices.Delete(s.notes, i, i+1)
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
}
