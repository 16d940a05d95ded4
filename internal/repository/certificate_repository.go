package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// CertificateRepository is append-only; one certificate per submission.
type CertificateRepository interface {
	// CreateIfAbsent inserts cert unless one exists for its submission. When
	// one exists cert is overwritten with the stored row and created is false.
	CreateIfAbsent(ctx context.Context, cert *domain.DigitalCertificate) (created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.DigitalCertificate, error)
	GetBySubmission(ctx context.Context, submissionID string) (*domain.DigitalCertificate, error)
	ListByUser(ctx context.Context, userID string) ([]domain.DigitalCertificate, error)
}

type certificateRepository struct {
	pool *pgxpool.Pool
}

func NewCertificateRepository(pool *pgxpool.Pool) CertificateRepository {
	return &certificateRepository{pool: pool}
}

const certificateColumns = `id, user_id, proof_submission_id, quarter, filename, issued_at, content_snapshot, signature_hash`

func (r *certificateRepository) CreateIfAbsent(ctx context.Context, cert *domain.DigitalCertificate) (bool, error) {
	const query = `
        INSERT INTO digital_certificates (user_id, proof_submission_id, quarter, filename, issued_at, content_snapshot, signature_hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (proof_submission_id) DO NOTHING
        RETURNING id`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		cert.UserID,
		cert.SubmissionID,
		cert.Quarter,
		cert.Filename,
		cert.IssuedAt,
		cert.ContentSnapshot,
		cert.SignatureHash,
	).Scan(&cert.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, mapErr(err)
	}

	existing, err := r.GetBySubmission(ctx, cert.SubmissionID)
	if err != nil {
		return false, err
	}
	*cert = *existing
	return false, nil
}

func (r *certificateRepository) GetByID(ctx context.Context, id string) (*domain.DigitalCertificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM digital_certificates WHERE id=$1`
	return scanCertificate(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *certificateRepository) GetBySubmission(ctx context.Context, submissionID string) (*domain.DigitalCertificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM digital_certificates WHERE proof_submission_id=$1`
	return scanCertificate(conn(ctx, r.pool).QueryRow(ctx, query, submissionID))
}

func (r *certificateRepository) ListByUser(ctx context.Context, userID string) ([]domain.DigitalCertificate, error) {
	query := `SELECT ` + certificateColumns + `
        FROM digital_certificates WHERE user_id=$1 ORDER BY issued_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DigitalCertificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cert)
	}
	return out, rows.Err()
}

func scanCertificate(row pgx.Row) (*domain.DigitalCertificate, error) {
	var cert domain.DigitalCertificate
	if err := row.Scan(
		&cert.ID,
		&cert.UserID,
		&cert.SubmissionID,
		&cert.Quarter,
		&cert.Filename,
		&cert.IssuedAt,
		&cert.ContentSnapshot,
		&cert.SignatureHash,
	); err != nil {
		return nil, mapErr(err)
	}
	return &cert, nil
}
