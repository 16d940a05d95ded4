package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// SubmissionRepository stores verification attempts. Rows are written once.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *domain.VerificationSubmission) error
	GetByID(ctx context.Context, id string) (*domain.VerificationSubmission, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.VerificationSubmission, error)
	LatestApproved(ctx context.Context, userID string) (*domain.VerificationSubmission, error)
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

const submissionColumns = `id, user_id, document_image_ref, live_image_refs, status, submitted_at, verified_at, notes`

func (r *submissionRepository) Create(ctx context.Context, sub *domain.VerificationSubmission) error {
	const query = `
        INSERT INTO verification_submissions (user_id, document_image_ref, live_image_refs, status, submitted_at, verified_at, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`

	refs := sub.LiveImageRefs
	if refs == nil {
		refs = []string{}
	}
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		sub.UserID,
		sub.DocumentImageRef,
		refs,
		sub.Status,
		sub.SubmittedAt,
		sub.VerifiedAt,
		sub.Notes,
	).Scan(&sub.ID)
	return mapErr(err)
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*domain.VerificationSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM verification_submissions WHERE id=$1`
	return scanSubmission(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.VerificationSubmission, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + submissionColumns + `
        FROM verification_submissions WHERE user_id=$1
        ORDER BY submitted_at DESC LIMIT $2`

	rows, err := conn(ctx, r.pool).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VerificationSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// LatestApproved breaks ties on verified-at by the later submission.
func (r *submissionRepository) LatestApproved(ctx context.Context, userID string) (*domain.VerificationSubmission, error) {
	query := `SELECT ` + submissionColumns + `
        FROM verification_submissions
        WHERE user_id=$1 AND status='approved'
        ORDER BY verified_at DESC NULLS LAST, submitted_at DESC
        LIMIT 1`
	return scanSubmission(conn(ctx, r.pool).QueryRow(ctx, query, userID))
}

func scanSubmission(row pgx.Row) (*domain.VerificationSubmission, error) {
	var sub domain.VerificationSubmission
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.DocumentImageRef,
		&sub.LiveImageRefs,
		&sub.Status,
		&sub.SubmittedAt,
		&sub.VerifiedAt,
		&sub.Notes,
	); err != nil {
		return nil, mapErr(err)
	}
	return &sub, nil
}
