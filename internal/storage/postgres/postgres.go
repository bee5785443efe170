// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/storage"
	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	pgErrUniqueViolation = "23505"
	migrationLockID      = 101
)

// quoteJournal реализует storage.QuoteJournal поверх pgxpool
type quoteJournal struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ storage.QuoteJournal = (*quoteJournal)(nil)

// NewQuoteJournal подключается к postgres по dsn и проверяет соединение.
func NewQuoteJournal(ctx context.Context, dsn string, logger *zap.Logger) (storage.QuoteJournal, error) {
	j, err := newQuoteJournal(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func newQuoteJournal(ctx context.Context, dsn string, logger *zap.Logger) (*quoteJournal, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	// Настройка пула соединений
	config.MaxConns = 20
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &quoteJournal{pool: pool, logger: logger.Named("journal")}, nil
}

// RunMigrations применяет встроенные миграции под advisory lock.
func RunMigrations(ctx context.Context, journal storage.QuoteJournal) error {
	j, ok := journal.(*quoteJournal)
	if !ok {
		return fmt.Errorf("journal is not backed by postgres")
	}
	return j.runMigrations(ctx)
}

func (j *quoteJournal) runMigrations(ctx context.Context) error {
	conn, err := j.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// Сначала попробуем получить блокировку
	var lockObtained bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&lockObtained); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			j.logger.Warn("Не удалось снять блокировку миграций", zap.Error(err))
		}
	}()

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", file, err)
		}
		j.logger.Debug("migration applied", zap.String("file", file))
	}
	return nil
}

func (j *quoteJournal) RecordPrepared(ctx context.Context, rec *storage.QuoteRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO quote_journal (
			quote_id, user_address, pool_address, input_mint, output_mint,
			input_amount, estimated_amount, minimum_amount, prepared_at, expires_at, status
		) VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8::text::numeric, $9, $10, $11)
	`
	_, err := j.pool.Exec(ctx, query, recordArgs(rec, storage.QuotePrepared)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (j *quoteJournal) Get(ctx context.Context, quoteID string) (*storage.QuoteRecord, error) {
	query := `
		SELECT quote_id, user_address, pool_address, input_mint, output_mint,
		       input_amount::text, estimated_amount::text, minimum_amount::text,
		       prepared_at, expires_at, status, signature, error_message, updated_at
		FROM quote_journal
		WHERE quote_id = $1
	`
	var rec storage.QuoteRecord
	var status string
	err := j.pool.QueryRow(ctx, query, quoteID).Scan(
		&rec.QuoteID, &rec.UserAddress, &rec.PoolAddress, &rec.InputMint, &rec.OutputMint,
		&rec.InputAmount, &rec.EstimatedAmount, &rec.MinimumAmount,
		&rec.PreparedAt, &rec.ExpiresAt, &status, &rec.Signature, &rec.ErrorMessage, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	rec.Status = storage.QuoteStatus(status)
	return &rec, nil
}

// ClaimSubmission один оператор: вставка или переход prepared → submitting.
// Пустой RETURNING означает, что котировку уже забрали.
func (j *quoteJournal) ClaimSubmission(ctx context.Context, rec *storage.QuoteRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO quote_journal (
			quote_id, user_address, pool_address, input_mint, output_mint,
			input_amount, estimated_amount, minimum_amount, prepared_at, expires_at, status
		) VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8::text::numeric, $9, $10, $11)
		ON CONFLICT (quote_id) DO UPDATE
			SET status = EXCLUDED.status, updated_at = NOW()
			WHERE quote_journal.status = 'prepared'
		RETURNING quote_id
	`
	var claimed string
	err := j.pool.QueryRow(ctx, query, recordArgs(rec, storage.QuoteSubmitting)...).Scan(&claimed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("claim quote: %w", err)
	}

	replay := &types.ReplayError{QuoteID: rec.QuoteID}
	if existing, getErr := j.Get(ctx, rec.QuoteID); getErr == nil {
		replay.Signature = existing.Signature
	}
	return replay
}

func (j *quoteJournal) MarkSubmitted(ctx context.Context, quoteID, signature string) error {
	query := `
		UPDATE quote_journal
		SET status = $2, signature = $3, updated_at = NOW()
		WHERE quote_id = $1
	`
	return j.update(ctx, "mark submitted", query, quoteID, string(storage.QuoteSubmitted), signature)
}

func (j *quoteJournal) MarkResult(ctx context.Context, quoteID string, status storage.QuoteStatus, errMsg string) error {
	if status != storage.QuoteConfirmed && status != storage.QuoteFailed {
		return storage.ErrInvalidInput
	}
	query := `
		UPDATE quote_journal
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE quote_id = $1
	`
	return j.update(ctx, "mark result", query, quoteID, string(status), errMsg)
}

func (j *quoteJournal) update(ctx context.Context, op, query string, args ...any) error {
	tag, err := j.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (j *quoteJournal) Close() error {
	j.pool.Close()
	return nil
}

func recordArgs(rec *storage.QuoteRecord, status storage.QuoteStatus) []any {
	return []any{
		rec.QuoteID,
		rec.UserAddress,
		rec.PoolAddress,
		rec.InputMint,
		rec.OutputMint,
		numeric(rec.InputAmount),
		numeric(rec.EstimatedAmount),
		numeric(rec.MinimumAmount),
		rec.PreparedAt,
		rec.ExpiresAt,
		string(status),
	}
}

// numeric пустая сумма пишется как 0
func numeric(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}
