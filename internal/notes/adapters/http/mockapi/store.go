package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"staticnotes/internal/notes/domain/entities"
)

// Store - потокобезопасное хранилище заметок в памяти.
type Store struct {
	mu    sync.RWMutex
	notes map[string]entities.Note
	now   func() time.Time
	newID func() string
}

// NewStore создает пустое хранилище.
func NewStore() *Store {
	return &Store{
		notes: make(map[string]entities.Note),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// List возвращает заметки в порядке создания.
func (s *Store) List() []entities.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get возвращает заметку по идентификатору.
func (s *Store) Get(id string) (entities.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return entities.Note{}, entities.ErrNotFound
	}
	return clone(n), nil
}

// Create сохраняет черновик и назначает идентификатор и временные метки.
func (s *Store) Create(draft entities.NoteDraft) (entities.Note, error) {
	draft = entities.NewDraft(draft.Title, draft.BodyMarkdown, draft.Tags)
	if err := draft.Validate(); err != nil {
		return entities.Note{}, err
	}

	now := s.now()
	n := entities.Note{
		ID:           s.newID(),
		Title:        draft.Title,
		BodyMarkdown: draft.BodyMarkdown,
		Tags:         draft.Tags,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	s.mu.Lock()
	s.notes[n.ID] = n
	s.mu.Unlock()

	return clone(n), nil
}

// Update накладывает патч. Последняя запись побеждает.
func (s *Store) Update(id string, patch entities.NotePatch) (entities.Note, error) {
	if patch.IsEmpty() {
		return entities.Note{}, entities.ErrEmptyPatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return entities.Note{}, entities.ErrNotFound
	}

	n = n.Apply(patch)
	now := s.now()
	n.UpdatedAt = &now
	s.notes[id] = n

	return clone(n), nil
}

// Delete удаляет заметку.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return entities.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

// Put кладет заметку как есть. Используется для начального наполнения.
func (s *Store) Put(n entities.Note) {
	if strings.TrimSpace(n.ID) == "" {
		n.ID = s.newID()
	}
	n.Tags = entities.NormalizeTags(n.Tags)
	if n.CreatedAt == nil {
		now := s.now()
		n.CreatedAt = &now
	}

	s.mu.Lock()
	s.notes[n.ID] = clone(n)
	s.mu.Unlock()
}

// Len возвращает количество заметок.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

func clone(n entities.Note) entities.Note {
	n.Tags = append([]string(nil), n.Tags...)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.CreatedAt != nil {
		t := *n.CreatedAt
		n.CreatedAt = &t
	}
	if n.UpdatedAt != nil {
		t := *n.UpdatedAt
		n.UpdatedAt = &t
	}
	return n
}
