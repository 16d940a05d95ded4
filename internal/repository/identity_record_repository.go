package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// IdentityRecordRepository is append-only document evidence.
type IdentityRecordRepository interface {
	Create(ctx context.Context, rec *domain.IdentityRecord) error
	// LatestVerified returns the newest record whose document checks passed.
	LatestVerified(ctx context.Context, userID string) (*domain.IdentityRecord, error)
}

type identityRecordRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRecordRepository(pool *pgxpool.Pool) IdentityRecordRepository {
	return &identityRecordRepository{pool: pool}
}

func (r *identityRecordRepository) Create(ctx context.Context, rec *domain.IdentityRecord) error {
	const query = `
        INSERT INTO identity_records (user_id, document_type, image_ref, face_image_ref, expiry_date, verified, submission_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		rec.UserID,
		rec.Type,
		rec.ImageRef,
		rec.FaceImageRef,
		rec.ExpiryDate,
		rec.Verified,
		rec.SubmissionID,
	).Scan(&rec.ID, &rec.CreatedAt)
	return mapErr(err)
}

func (r *identityRecordRepository) LatestVerified(ctx context.Context, userID string) (*domain.IdentityRecord, error) {
	const query = `
        SELECT id, user_id, document_type, image_ref, face_image_ref, expiry_date, verified, submission_id, created_at
        FROM identity_records WHERE user_id=$1 AND verified
        ORDER BY created_at DESC LIMIT 1`

	var rec domain.IdentityRecord
	if err := conn(ctx, r.pool).QueryRow(ctx, query, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Type,
		&rec.ImageRef,
		&rec.FaceImageRef,
		&rec.ExpiryDate,
		&rec.Verified,
		&rec.SubmissionID,
		&rec.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}
