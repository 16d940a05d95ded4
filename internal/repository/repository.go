package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Repositories bundles every store the services need.
type Repositories struct {
	Users        UserRepository
	Submissions  SubmissionRepository
	Identities   IdentityRecordRepository
	Quarters     QuarterRepository
	Certificates CertificateRepository
	Tx           TxManager
}

// NewPostgresRepositories returns pgx-backed repositories sharing pool.
func NewPostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        NewUserRepository(pool),
		Submissions:  NewSubmissionRepository(pool),
		Identities:   NewIdentityRecordRepository(pool),
		Quarters:     NewQuarterRepository(pool),
		Certificates: NewCertificateRepository(pool),
		Tx:           NewTxManager(pool),
	}
}

// NewMemoryRepositories returns process-local repositories for development
// and tests.
func NewMemoryRepositories() Repositories {
	return Repositories{
		Users:        NewMemoryUserRepository(),
		Submissions:  NewMemorySubmissionRepository(),
		Identities:   NewMemoryIdentityRecordRepository(),
		Quarters:     NewMemoryQuarterRepository(),
		Certificates: NewMemoryCertificateRepository(),
		Tx:           &MemoryTxManager{},
	}
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager runs fn inside one transaction. Repositories called with the
// ctx handed to fn join it. Nested calls reuse the outer transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

type pgxTxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// MemoryTxManager serialises transactions. Writes are not rolled back.
type MemoryTxManager struct {
	mu sync.Mutex
}

type memoryTxKey struct{}

func (m *MemoryTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memoryTxKey{}, true))
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return errors.Join(ErrConflict, err)
		case "22P02":
			// a malformed uuid key cannot name a row
			return errors.Join(ErrNotFound, err)
		}
	}
	return err
}
