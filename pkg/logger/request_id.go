package logger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID - заголовок, в котором идентификатор передается между сервисами.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen ограничивает чужой идентификатор: он попадает в логи и в заголовки API.
const maxRequestIDLen = 128

type ctxKeyRequestID struct{}

// NewRequestIDContext кладет идентификатор запроса в контекст.
// Пустой или непригодный идентификатор заменяется новым.
func NewRequestIDContext(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if !validRequestID(requestID) {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, ctxKeyRequestID{}, requestID)
}

// GetRequestID извлекает идентификатор запроса из контекста.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return id, ok
}

// GenerateRequestID генерирует новый идентификатор запроса.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID добавляет к логгеру поле request_id, если оно есть в контексте.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	id, ok := GetRequestID(ctx)
	if !ok {
		return l
	}
	return l.With(zap.String(RequestID, id))
}

// validRequestID допускает только печатные ASCII символы без пробелов.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
