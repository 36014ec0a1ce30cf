// Package webhook реализует REST клиент удаленного webhook API заметок.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3/client"
	"go.uber.org/zap"

	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/internal/notes/ports/api"
	"staticnotes/internal/notes/resilience"
	"staticnotes/pkg/logger"
)

// Константы для логирования.
const (
	LogRequest         = "notes api request"
	LogRequestFailed   = "notes api request failed"
	LogRequestComplete = "notes api request completed"

	ErrMsgEncodeBody   = "failed to encode request body"
	ErrMsgDecodeBody   = "failed to decode response body"
	ErrMsgTransport    = "notes api transport error"
	ErrMsgTimeout      = "notes api request timed out"
	ErrMsgInvalidInput = "invalid input"
)

const (
	notesPath       = "/notes"
	maxErrorMessage = 256
)

// Client - клиент webhook API поверх fiber client.
type Client struct {
	http    *client.Client
	baseURL string
	timeout time.Duration
}

var _ api.NotesClient = (*Client)(nil)

// NewClient создает клиента по настройкам API.
func NewClient(cfg *config.APIConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := client.New()
	httpClient.SetUserAgent(cfg.UserAgent)
	httpClient.SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
	}, nil
}

// List возвращает все заметки.
// Сервис может ответить массивом или объектом {"notes": [...]}.
func (c *Client) List(ctx context.Context) ([]entities.Note, error) {
	body, err := c.do(ctx, http.MethodGet, notesPath, nil)
	if err != nil {
		return nil, err
	}

	notes, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgDecodeBody, err)
	}
	for i := range notes {
		notes[i].Tags = entities.NormalizeTags(notes[i].Tags)
	}
	return notes, nil
}

// Get возвращает заметку по идентификатору.
func (c *Client) Get(ctx context.Context, id string) (*entities.Note, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidInput, entities.ErrEmptyID)
	}

	body, err := c.do(ctx, http.MethodGet, notePath(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeNote(body)
}

// Create создает заметку.
func (c *Client) Create(ctx context.Context, draft entities.NoteDraft) (*entities.Note, error) {
	draft.Tags = entities.NormalizeTags(draft.Tags)
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidInput, err)
	}

	body, err := c.do(ctx, http.MethodPost, notesPath, draft)
	if err != nil {
		return nil, err
	}

	note, err := decodeNote(body)
	if err != nil {
		return nil, err
	}
	if note.ID == "" {
		return nil, fmt.Errorf("%w: created note has no id", ErrUnexpectedReply)
	}
	return note, nil
}

// Update частично обновляет заметку.
func (c *Client) Update(ctx context.Context, id string, patch entities.NotePatch) (*entities.Note, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidInput, entities.ErrEmptyID)
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidInput, entities.ErrEmptyPatch)
	}

	body, err := c.do(ctx, http.MethodPut, notePath(id), patch.Normalize())
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return c.Get(ctx, id)
	}
	return decodeNote(body)
}

// Delete удаляет заметку.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", ErrMsgInvalidInput, entities.ErrEmptyID)
	}

	_, err := c.do(ctx, http.MethodDelete, notePath(id), nil)
	return err
}

// Close освобождает ресурсы клиента.
func (c *Client) Close() error {
	return nil
}

// do выполняет один запрос. Таймаут действует на одну попытку.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	log := logger.Log(ctx).With(
		zap.String("method", method),
		zap.String("path", path),
	)

	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := c.http.R().SetContext(attemptCtx)
	if id, ok := logger.GetRequestID(ctx); ok {
		req.SetHeader(logger.HeaderRequestID, id)
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgEncodeBody, err)
		}
		req.SetHeader("Content-Type", "application/json")
		req.SetRawBody(raw)
	}

	log.Debug(ctx, LogRequest)
	start := time.Now()

	resp, err := c.send(req, method, c.baseURL+path)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case attemptCtx.Err() != nil:
			log.Warn(ctx, ErrMsgTimeout, zap.Duration("timeout", c.timeout))
			return nil, resilience.Transient(fmt.Errorf("%s %s: %s: %w", method, path, ErrMsgTimeout, attemptCtx.Err()))
		default:
			log.Warn(ctx, LogRequestFailed, zap.Error(err))
			return nil, resilience.Transient(fmt.Errorf("%s: %w", ErrMsgTransport, err))
		}
	}
	defer resp.Close()

	status := resp.StatusCode()
	body := bytes.Clone(resp.Body())

	log.Debug(ctx, LogRequestComplete,
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)))

	if status < 200 || status > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Message:    errorMessage(body),
		}
		if apiErr.Retryable() {
			return nil, resilience.Transient(apiErr)
		}
		return nil, apiErr
	}

	return body, nil
}

func (c *Client) send(req *client.Request, method, target string) (*client.Response, error) {
	switch method {
	case http.MethodGet:
		return req.Get(target)
	case http.MethodPost:
		return req.Post(target)
	case http.MethodPut:
		return req.Put(target)
	case http.MethodDelete:
		return req.Delete(target)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
}

func notePath(id string) string {
	return notesPath + "/" + url.PathEscape(id)
}

type listEnvelope struct {
	Notes []entities.Note `json:"notes"`
}

type noteEnvelope struct {
	Note *entities.Note `json:"note"`
}

func decodeList(body []byte) ([]entities.Note, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []entities.Note{}, nil
	}

	if trimmed[0] == '[' {
		var notes []entities.Note
		if err := json.Unmarshal(trimmed, &notes); err != nil {
			return nil, err
		}
		return notes, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if env.Notes == nil {
		return []entities.Note{}, nil
	}
	return env.Notes, nil
}

// decodeNote принимает заметку как есть или в обертке {"note": {...}}.
func decodeNote(body []byte) (*entities.Note, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedReply)
	}

	var env noteEnvelope
	if err := json.Unmarshal(trimmed, &env); err == nil && env.Note != nil {
		env.Note.Tags = entities.NormalizeTags(env.Note.Tags)
		return env.Note, nil
	}

	var note entities.Note
	if err := json.Unmarshal(trimmed, &note); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgDecodeBody, err)
	}
	note.Tags = entities.NormalizeTags(note.Tags)
	return &note, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}

// IsNotFound сообщает, что заметки нет на сервере.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
