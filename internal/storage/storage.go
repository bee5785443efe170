// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound запись отсутствует
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey котировка с таким quote_id уже записана
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput запись не прошла проверку
	ErrInvalidInput = errors.New("invalid input")
)

// QuoteStatus состояние котировки в журнале
type QuoteStatus string

const (
	QuotePrepared   QuoteStatus = "prepared"
	QuoteSubmitting QuoteStatus = "submitting"
	QuoteSubmitted  QuoteStatus = "submitted"
	QuoteConfirmed  QuoteStatus = "confirmed"
	QuoteFailed     QuoteStatus = "failed"
)

// QuoteRecord строка журнала котировок. Суммы хранятся в base units строкой.
type QuoteRecord struct {
	QuoteID         string
	UserAddress     string
	PoolAddress     string
	InputMint       string
	OutputMint      string
	InputAmount     string
	EstimatedAmount string
	MinimumAmount   string
	PreparedAt      int64
	ExpiresAt       int64
	Status          QuoteStatus
	Signature       string
	ErrorMessage    string
	UpdatedAt       time.Time
}

// Validate минимальная проверка перед записью
func (r *QuoteRecord) Validate() error {
	if r == nil || r.QuoteID == "" {
		return ErrInvalidInput
	}
	if r.ExpiresAt < r.PreparedAt {
		return ErrInvalidInput
	}
	return nil
}

// QuoteJournal журнал подготовленных котировок и граница повторной отправки.
type QuoteJournal interface {
	// RecordPrepared записывает готовую котировку. ErrDuplicateKey при повторе id.
	RecordPrepared(ctx context.Context, rec *QuoteRecord) error

	// Get возвращает запись или ErrNotFound.
	Get(ctx context.Context, quoteID string) (*QuoteRecord, error)

	// ClaimSubmission атомарно переводит котировку в submitting. Неизвестная
	// котировка заводится сразу в submitting. Повторный claim даёт *types.ReplayError.
	ClaimSubmission(ctx context.Context, rec *QuoteRecord) error

	// MarkSubmitted сохраняет подпись отправленной транзакции.
	MarkSubmitted(ctx context.Context, quoteID, signature string) error

	// MarkResult фиксирует итог: QuoteConfirmed или QuoteFailed.
	MarkResult(ctx context.Context, quoteID string, status QuoteStatus, errMsg string) error

	Close() error
}
