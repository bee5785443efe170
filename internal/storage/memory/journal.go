// internal/storage/memory/journal.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// QuoteJournal хранит журнал котировок в памяти процесса.
type QuoteJournal struct {
	mu   sync.Mutex
	data map[string]*storage.QuoteRecord
	now  func() time.Time
}

var _ storage.QuoteJournal = (*QuoteJournal)(nil)

// NewQuoteJournal создаёт пустой журнал.
func NewQuoteJournal() *QuoteJournal {
	return &QuoteJournal{
		data: make(map[string]*storage.QuoteRecord),
		now:  time.Now,
	}
}

func (j *QuoteJournal) RecordPrepared(_ context.Context, rec *storage.QuoteRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.data[rec.QuoteID]; exists {
		return storage.ErrDuplicateKey
	}
	stored := *rec
	stored.Status = storage.QuotePrepared
	stored.UpdatedAt = j.now()
	j.data[rec.QuoteID] = &stored
	return nil
}

func (j *QuoteJournal) Get(_ context.Context, quoteID string) (*storage.QuoteRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec, ok := j.data[quoteID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (j *QuoteJournal) ClaimSubmission(_ context.Context, rec *storage.QuoteRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	existing, ok := j.data[rec.QuoteID]
	if ok && existing.Status != storage.QuotePrepared {
		return &types.ReplayError{QuoteID: rec.QuoteID, Signature: existing.Signature}
	}
	if !ok {
		stored := *rec
		existing = &stored
		j.data[rec.QuoteID] = existing
	}
	existing.Status = storage.QuoteSubmitting
	existing.UpdatedAt = j.now()
	return nil
}

func (j *QuoteJournal) MarkSubmitted(_ context.Context, quoteID, signature string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec, ok := j.data[quoteID]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Status = storage.QuoteSubmitted
	rec.Signature = signature
	rec.UpdatedAt = j.now()
	return nil
}

func (j *QuoteJournal) MarkResult(_ context.Context, quoteID string, status storage.QuoteStatus, errMsg string) error {
	if status != storage.QuoteConfirmed && status != storage.QuoteFailed {
		return storage.ErrInvalidInput
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	rec, ok := j.data[quoteID]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errMsg
	rec.UpdatedAt = j.now()
	return nil
}

func (j *QuoteJournal) Close() error { return nil }
