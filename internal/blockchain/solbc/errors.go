// internal/blockchain/solbc/errors.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")

	// ErrInvalidResponse возникает при получении некорректного ответа
	ErrInvalidResponse = errors.New("invalid RPC response")

	// ErrConnectionFailed возникает при ошибке подключения
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnauthorized узел отклонил запрос из-за доступа
	ErrUnauthorized = errors.New("unauthorized")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// classifiedError сохраняет исходную ошибку и её класс для errors.Is.
type classifiedError struct {
	class error
	cause error
}

func (e *classifiedError) Error() string   { return e.cause.Error() }
func (e *classifiedError) Unwrap() []error { return []error{e.class, e.cause} }

// NewError оборачивает ошибку solana-go и относит её к одному из классов выше.
func NewError(err error, nodeURL, method string) error {
	if err == nil {
		return nil
	}
	if class := classify(err); class != nil {
		err = &classifiedError{class: class, cause: err}
	}
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "too many requests"):
		return ErrRateLimit
	case strings.Contains(errStr, "timeout"):
		return ErrTimeout
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return ErrUnauthorized
	case strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "eof"):
		return ErrConnectionFailed
	}
	return nil
}

// IsRetryableError ошибка сетевого характера, повтор имеет смысл
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrConnectionFailed)
}

// IsCriticalError повтор бесполезен: узел отказывает в доступе или отвечает мусором
func IsCriticalError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidResponse)
}
