// Package api определяет порт клиента удаленного API заметок.
package api

import (
	"context"

	"staticnotes/internal/notes/domain/entities"
)

// NotesClient - пять эндпоинтов webhook API.
type NotesClient interface {
	// List возвращает все заметки (GET /notes)
	List(ctx context.Context) ([]entities.Note, error)

	// Get возвращает одну заметку (GET /notes/{id})
	Get(ctx context.Context, id string) (*entities.Note, error)

	// Create создает заметку, идентификатор назначает сервис (POST /notes)
	Create(ctx context.Context, draft entities.NoteDraft) (*entities.Note, error)

	// Update частично обновляет заметку (PUT /notes/{id})
	Update(ctx context.Context, id string, patch entities.NotePatch) (*entities.Note, error)

	// Delete удаляет заметку (DELETE /notes/{id})
	Delete(ctx context.Context, id string) error
}
