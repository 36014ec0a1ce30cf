package resilience

import (
	"context"
	"errors"
	"net"
)

// TransientError помечает ошибку как временную: такую операцию можно повторить.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient оборачивает ошибку как временную.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient сообщает, стоит ли повторять операцию после этой ошибки.
// Отмена контекста вызывающей стороной всегда окончательна.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
