package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// QuarterRepository persists the ledger. (user, quarter, year) is unique.
type QuarterRepository interface {
	Get(ctx context.Context, userID string, quarter domain.Quarter, year int) (*domain.QuarterObligation, error)
	// CreateIfAbsent inserts ob unless a row exists for its key and returns the stored row.
	CreateIfAbsent(ctx context.Context, ob *domain.QuarterObligation) (*domain.QuarterObligation, error)
	// Complete upserts the key to completed. Repeating a completion with the
	// same submission keeps the first verified-at.
	Complete(ctx context.Context, ob *domain.QuarterObligation) (*domain.QuarterObligation, error)
	ListByUser(ctx context.Context, userID string, year int) ([]domain.QuarterObligation, error)
	MarkMissed(ctx context.Context, dueBefore time.Time) ([]domain.QuarterObligation, error)
}

type quarterRepository struct {
	pool *pgxpool.Pool
}

func NewQuarterRepository(pool *pgxpool.Pool) QuarterRepository {
	return &quarterRepository{pool: pool}
}

const obligationColumns = `id, user_id, quarter, year, status, due_date, verified_at, submission_id`

func (r *quarterRepository) Get(ctx context.Context, userID string, quarter domain.Quarter, year int) (*domain.QuarterObligation, error) {
	query := `SELECT ` + obligationColumns + `
        FROM quarter_obligations WHERE user_id=$1 AND quarter=$2 AND year=$3`
	return scanObligation(conn(ctx, r.pool).QueryRow(ctx, query, userID, quarter, year))
}

func (r *quarterRepository) CreateIfAbsent(ctx context.Context, ob *domain.QuarterObligation) (*domain.QuarterObligation, error) {
	const insert = `
        INSERT INTO quarter_obligations (user_id, quarter, year, status, due_date, verified_at, submission_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (user_id, quarter, year) DO NOTHING`
	db := conn(ctx, r.pool)
	if _, err := db.Exec(ctx, insert,
		ob.UserID, ob.Quarter, ob.Year, ob.Status, ob.DueDate, ob.VerifiedAt, ob.SubmissionID,
	); err != nil {
		return nil, mapErr(err)
	}
	return r.Get(ctx, ob.UserID, ob.Quarter, ob.Year)
}

func (r *quarterRepository) Complete(ctx context.Context, ob *domain.QuarterObligation) (*domain.QuarterObligation, error) {
	query := `
        INSERT INTO quarter_obligations (user_id, quarter, year, status, due_date, verified_at, submission_id)
        VALUES ($1,$2,$3,'completed',$4,$5,$6)
        ON CONFLICT (user_id, quarter, year) DO UPDATE SET
            verified_at = CASE
                WHEN quarter_obligations.status = 'completed'
                 AND quarter_obligations.submission_id IS NOT DISTINCT FROM EXCLUDED.submission_id
                THEN quarter_obligations.verified_at
                ELSE EXCLUDED.verified_at END,
            status = 'completed',
            submission_id = EXCLUDED.submission_id
        RETURNING ` + obligationColumns
	return scanObligation(conn(ctx, r.pool).QueryRow(ctx, query,
		ob.UserID, ob.Quarter, ob.Year, ob.DueDate, ob.VerifiedAt, ob.SubmissionID,
	))
}

func (r *quarterRepository) ListByUser(ctx context.Context, userID string, year int) ([]domain.QuarterObligation, error) {
	query := `SELECT ` + obligationColumns + `
        FROM quarter_obligations
        WHERE user_id=$1 AND ($2 = 0 OR year = $2)
        ORDER BY year, quarter`
	rows, err := conn(ctx, r.pool).Query(ctx, query, userID, year)
	if err != nil {
		return nil, err
	}
	return collectObligations(rows)
}

func (r *quarterRepository) MarkMissed(ctx context.Context, dueBefore time.Time) ([]domain.QuarterObligation, error) {
	query := `
        UPDATE quarter_obligations SET status='missed'
        WHERE status='pending' AND due_date < $1
        RETURNING ` + obligationColumns
	rows, err := conn(ctx, r.pool).Query(ctx, query, dueBefore)
	if err != nil {
		return nil, err
	}
	return collectObligations(rows)
}

func collectObligations(rows pgx.Rows) ([]domain.QuarterObligation, error) {
	defer rows.Close()
	var out []domain.QuarterObligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ob)
	}
	return out, rows.Err()
}

func scanObligation(row pgx.Row) (*domain.QuarterObligation, error) {
	var ob domain.QuarterObligation
	if err := row.Scan(
		&ob.ID,
		&ob.UserID,
		&ob.Quarter,
		&ob.Year,
		&ob.Status,
		&ob.DueDate,
		&ob.VerifiedAt,
		&ob.SubmissionID,
	); err != nil {
		return nil, mapErr(err)
	}
	ob.DueDate = ob.DueDate.UTC()
	return &ob, nil
}
