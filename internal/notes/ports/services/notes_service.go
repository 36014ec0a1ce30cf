// Package services определяет интерфейсы прикладных сервисов.
package services

import (
	"context"

	"staticnotes/internal/notes/domain/entities"
)

// NoteResult - заметка и признак того, что она взята из устаревшего кэша.
type NoteResult struct {
	Note  entities.Note
	Stale bool
}

// ListResult - список заметок и признак устаревших данных.
type ListResult struct {
	Notes []entities.Note
	Stale bool
}

// NotesService определяет интерфейс работы с заметками через кэш.
type NotesService interface {
	// ListNotes получает все заметки
	ListNotes(ctx context.Context) (*ListResult, error)

	// ListNoteIDs возвращает идентификаторы всех заметок
	ListNoteIDs(ctx context.Context) ([]string, error)

	// GetNote получает заметку по ID
	GetNote(ctx context.Context, noteID string) (*NoteResult, error)

	// CreateNote создает новую заметку
	CreateNote(ctx context.Context, draft entities.NoteDraft) (*entities.Note, error)

	// UpdateNote частично обновляет заметку
	UpdateNote(ctx context.Context, noteID string, patch entities.NotePatch) (*entities.Note, error)

	// DeleteNote удаляет заметку
	DeleteNote(ctx context.Context, noteID string) error

	// Invalidate сбрасывает закэшированные данные
	Invalidate(ctx context.Context) error
}
