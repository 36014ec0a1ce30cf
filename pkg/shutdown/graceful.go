// Package shutdown предоставляет ожидание сигналов SIGINT и SIGTERM
// и корректное завершение работы через набор хуков.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"staticnotes/pkg/logger"
)

// Константы для логирования.
const (
	LogSignalReceived  = "shutdown signal received"
	LogContextDone     = "context done, shutting down"
	LogHookFailed      = "shutdown hook failed"
	LogShutdownTimeout = "shutdown timeout exceeded"
)

// ErrTimeout возвращается, если хуки не успели завершиться.
var ErrTimeout = errors.New("shutdown timeout exceeded")

// Hook выполняется при завершении работы.
type Hook func(ctx context.Context) error

// Wait блокирует выполнение до сигнала SIGINT/SIGTERM или отмены ctx,
// затем параллельно выполняет все хуки в рамках timeout.
func Wait(ctx context.Context, timeout time.Duration, hooks ...Hook) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log := logger.Log(ctx)

	select {
	case sig := <-sigCh:
		log.Info(ctx, LogSignalReceived, zap.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info(ctx, LogContextDone)
	}

	return Run(context.WithoutCancel(ctx), timeout, hooks...)
}

// Run выполняет хуки параллельно и ждет их не дольше timeout.
func Run(ctx context.Context, timeout time.Duration, hooks ...Hook) error {
	log := logger.Log(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, hook := range hooks {
		wg.Add(1)
		go func(fn Hook) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Warn(ctx, LogHookFailed, zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn(ctx, LogShutdownTimeout, zap.Duration("timeout", timeout))
		mu.Lock()
		errs = append(errs, ErrTimeout)
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(errs...)
}
