// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnection сеть недоступна после всех попыток
	ErrConnection = errors.New("connection error")

	// ErrInvalidParameter некорректные входные параметры запроса
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoRoute для пары токенов не найден ни один пул
	ErrNoRoute = errors.New("no route")

	// ErrNoValidTrade расчёт не удался ни для одного пула-кандидата
	ErrNoValidTrade = errors.New("no valid trade")

	// ErrExpiredQuote котировка просрочена
	ErrExpiredQuote = errors.New("expired quote")

	// ErrConfirmationTimeout blockhash устарел раньше, чем пришло подтверждение
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrIntegrity подготовленный ответ или транзакция не прошли проверку
	ErrIntegrity = errors.New("integrity check failed")

	// ErrReplay котировка уже была отправлена
	ErrReplay = errors.New("quote already submitted")

	// ErrTransactionFailed транзакция попала в блок, но завершилась ошибкой
	ErrTransactionFailed = errors.New("transaction failed")
)

// ConnectionError возвращается ConnectionManager после исчерпания попыток.
type ConnectionError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed after %d attempts: %s",
		e.Endpoint, e.Attempts, SanitizeMessage(errString(e.Err)))
}

func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// InvalidParameterError описывает некорректное поле запроса.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// NoRouteError для пары нет ни одного торгуемого пула.
type NoRouteError struct {
	Source string
	Target string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route found for %s to %s", e.Source, e.Target)
}

func (e *NoRouteError) Is(target error) bool { return target == ErrNoRoute }

// NoValidTradeError все пулы-кандидаты вернули ошибку расчёта.
type NoValidTradeError struct {
	Source     string
	Target     string
	Candidates int
}

func (e *NoValidTradeError) Error() string {
	return fmt.Sprintf("no valid trade for %s to %s across %d candidate pools", e.Source, e.Target, e.Candidates)
}

func (e *NoValidTradeError) Is(target error) bool { return target == ErrNoValidTrade }

// ExpiredQuoteError котировку нельзя отправлять после ExpiresAt.
type ExpiredQuoteError struct {
	QuoteID   string
	ExpiresAt time.Time
	Now       time.Time
}

func (e *ExpiredQuoteError) Error() string {
	return fmt.Sprintf("quote %s expired %s ago", e.QuoteID, e.Now.Sub(e.ExpiresAt).Truncate(time.Millisecond))
}

func (e *ExpiredQuoteError) Is(target error) bool { return target == ErrExpiredQuote }

// ConfirmationTimeoutError транзакция отправлена, но подтверждение не получено
// до истечения blockhash. Повторная отправка остаётся решением вызывающего.
type ConfirmationTimeoutError struct {
	Signature            string
	LastValidBlockHeight uint64
	BlockHeight          uint64
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed before block height %d (current %d)",
		e.Signature, e.LastValidBlockHeight, e.BlockHeight)
}

func (e *ConfirmationTimeoutError) Is(target error) bool { return target == ErrConfirmationTimeout }

// IntegrityError подготовленные данные изменены или не соответствуют котировке.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "integrity check failed: " + e.Reason
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// ReplayError повторная отправка той же котировки.
type ReplayError struct {
	QuoteID   string
	Signature string
}

func (e *ReplayError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("quote %s already submitted as %s", e.QuoteID, e.Signature)
	}
	return fmt.Sprintf("quote %s already submitted", e.QuoteID)
}

func (e *ReplayError) Is(target error) bool { return target == ErrReplay }

// TransactionFailedError транзакция подтверждена с ошибкой исполнения.
type TransactionFailedError struct {
	Signature string
	Reason    string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Reason)
}

func (e *TransactionFailedError) Is(target error) bool { return target == ErrTransactionFailed }

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
