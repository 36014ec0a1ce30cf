package resilience

import (
	"context"

	"go.uber.org/zap"

	"staticnotes/pkg/logger"
)

// ServiceResilience объединяет Circuit Breaker и повторные попытки.
type ServiceResilience struct {
	serviceName    string
	circuitBreaker *CircuitBreaker
	retry          *Retry
}

// NewServiceResilience создает обертку отказоустойчивости для сервиса.
func NewServiceResilience(serviceName string, retry RetryConfig, breaker CircuitBreakerConfig) *ServiceResilience {
	return &ServiceResilience{
		serviceName:    serviceName,
		circuitBreaker: NewCircuitBreaker(serviceName, breaker),
		retry:          NewRetry(serviceName, retry),
	}
}

// Breaker отдает Circuit Breaker сервиса.
func (r *ServiceResilience) Breaker() *CircuitBreaker {
	return r.circuitBreaker
}

// Execute выполняет операцию: каждая попытка проходит через Circuit Breaker.
func (r *ServiceResilience) Execute(ctx context.Context, operationName string, operation func(ctx context.Context) error) error {
	log := logger.Log(ctx).With(
		zap.String("service", r.serviceName),
		zap.String("operation", operationName),
	)
	log.Debug(ctx, "executing operation with resilience")

	return r.retry.Execute(ctx, func(ctx context.Context) error {
		return r.circuitBreaker.Execute(ctx, operation)
	})
}

// ExecuteWithResult выполняет операцию с результатом.
func ExecuteWithResult[T any](
	ctx context.Context,
	r *ServiceResilience,
	operationName string,
	operation func(ctx context.Context) (T, error),
) (T, error) {
	var result T
	err := r.Execute(ctx, operationName, func(ctx context.Context) error {
		res, err := operation(ctx)
		if err != nil {
			logger.Log(ctx).Debug(ctx, "operation attempt failed",
				zap.String("operation", operationName),
				zap.Error(err))
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
