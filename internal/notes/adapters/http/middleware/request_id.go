// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"staticnotes/pkg/logger"
)

// Ключи и заголовки, общие для обработчиков.
const (
	HeaderRequestID = logger.HeaderRequestID
	UserContextKey  = "userContext"
)

// NewRequestIDMiddleware кладет идентификатор запроса в контекст запроса
// и возвращает его клиенту в заголовке.
func NewRequestIDMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := logger.NewRequestIDContext(ctx.Context(), ctx.Get(HeaderRequestID))
		ctx.Locals(UserContextKey, requestCtx)

		if id, ok := logger.GetRequestID(requestCtx); ok {
			ctx.Set(HeaderRequestID, id)
		}
		return ctx.Next()
	}
}

// RequestContext возвращает контекст запроса с идентификатором.
func RequestContext(ctx fiber.Ctx) context.Context {
	if requestCtx, ok := ctx.Locals(UserContextKey).(context.Context); ok {
		return requestCtx
	}
	return ctx.Context()
}
