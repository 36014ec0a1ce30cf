package webhook

import (
	"errors"
	"fmt"
	"net/http"

	"staticnotes/internal/notes/domain/entities"
)

// Ошибки клиента webhook API.
var (
	ErrNotFound        = entities.ErrNotFound
	ErrUnexpectedReply = errors.New("unexpected response from notes api")
)

// APIError - ответ API с неуспешным статусом.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Unwrap позволяет проверять 404 через errors.Is(err, ErrNotFound).
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Retryable сообщает, что статус означает временный сбой сервиса.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}
