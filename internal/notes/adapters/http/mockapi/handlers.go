package mockapi

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"staticnotes/internal/notes/adapters/http/middleware"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/pkg/logger"
)

// Константы ошибок и сообщений для логирования.
const (
	LogHandlerCreateNote = "handling create note request"
	LogHandlerGetNote    = "handling get note request"
	LogHandlerListNotes  = "handling list notes request"
	LogHandlerUpdateNote = "handling update note request"
	LogHandlerDeleteNote = "handling delete note request"

	ErrMsgInvalidNoteID      = "invalid note id"
	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgNoteNotFound       = "note not found"
	ErrMsgInternal           = "internal server error"
)

// Handler обрабатывает запросы к заметкам поверх Store.
type Handler struct {
	store *Store
}

// NewHandler создает обработчик.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Register подключает маршруты webhook API.
func (h *Handler) Register(router fiber.Router) {
	router.Get("/notes", h.ListNotes)
	router.Post("/notes", h.CreateNote)
	router.Get("/notes/:note_id", h.GetNote)
	router.Put("/notes/:note_id", h.UpdateNote)
	router.Delete("/notes/:note_id", h.DeleteNote)
}

// ListNotes отдает все заметки массивом.
func (h *Handler) ListNotes(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	logger.Log(requestCtx).Debug(requestCtx, LogHandlerListNotes)

	if err := ctx.JSON(h.store.List()); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// CreateNote создает заметку.
func (h *Handler) CreateNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.CreateNote"))
	log.Debug(requestCtx, LogHandlerCreateNote)

	var draft entities.NoteDraft
	if err := ctx.Bind().Body(&draft); err != nil {
		log.Warn(requestCtx, ErrMsgInvalidRequestBody, zap.Error(err))
		return sendError(ctx, fiber.StatusBadRequest, ErrMsgInvalidRequestBody)
	}

	note, err := h.store.Create(draft)
	if err != nil {
		log.Warn(requestCtx, "failed to create note", zap.Error(err))
		return handleError(ctx, err)
	}

	if err := ctx.Status(fiber.StatusCreated).JSON(note); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// GetNote отдает заметку по идентификатору.
func (h *Handler) GetNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.GetNote"))
	log.Debug(requestCtx, LogHandlerGetNote)

	noteID, ok := noteIDParam(ctx)
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, ErrMsgInvalidNoteID)
	}

	note, err := h.store.Get(noteID)
	if err != nil {
		return handleError(ctx, err)
	}

	if err := ctx.JSON(note); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// UpdateNote частично обновляет заметку.
func (h *Handler) UpdateNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.UpdateNote"))
	log.Debug(requestCtx, LogHandlerUpdateNote)

	noteID, ok := noteIDParam(ctx)
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, ErrMsgInvalidNoteID)
	}

	var patch entities.NotePatch
	if err := ctx.Bind().Body(&patch); err != nil {
		log.Warn(requestCtx, ErrMsgInvalidRequestBody, zap.Error(err))
		return sendError(ctx, fiber.StatusBadRequest, ErrMsgInvalidRequestBody)
	}

	note, err := h.store.Update(noteID, patch)
	if err != nil {
		log.Warn(requestCtx, "failed to update note", zap.Error(err))
		return handleError(ctx, err)
	}

	if err := ctx.JSON(note); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

// DeleteNote удаляет заметку.
func (h *Handler) DeleteNote(ctx fiber.Ctx) error {
	requestCtx := middleware.RequestContext(ctx)
	log := logger.Log(requestCtx).With(zap.String("handler", "Handler.DeleteNote"))
	log.Debug(requestCtx, LogHandlerDeleteNote)

	noteID, ok := noteIDParam(ctx)
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, ErrMsgInvalidNoteID)
	}

	if err := h.store.Delete(noteID); err != nil {
		return handleError(ctx, err)
	}

	if err := ctx.SendStatus(fiber.StatusNoContent); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}

func noteIDParam(ctx fiber.Ctx) (string, bool) {
	id, err := url.PathUnescape(ctx.Params("note_id"))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// handleError переводит доменные ошибки в HTTP статусы.
func handleError(ctx fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return sendError(ctx, fiber.StatusNotFound, ErrMsgNoteNotFound)
	case errors.Is(err, entities.ErrEmptyNote), errors.Is(err, entities.ErrEmptyPatch):
		return sendError(ctx, fiber.StatusUnprocessableEntity, err.Error())
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return sendError(ctx, fiberErr.Code, fiberErr.Message)
	}
	return sendError(ctx, fiber.StatusInternalServerError, ErrMsgInternal)
}

func sendError(ctx fiber.Ctx, status int, msg string) error {
	if err := ctx.Status(status).JSON(fiber.Map{"error": msg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}
	return nil
}
