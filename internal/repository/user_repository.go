package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// UserRepository defines persistence access for pensioner accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPensionerNumber(ctx context.Context, number string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, pensioner_number, username, email, password_hash, role, terms_accepted,
        first_name, last_name, date_of_birth, trn, national_id, passport_number, contact_number, address, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (pensioner_number, username, email, password_hash, role, terms_accepted,
            first_name, last_name, date_of_birth, trn, national_id, passport_number, contact_number, address)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at`

	d := user.Details
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.PensionerNumber,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TermsAccepted,
		d.FirstName,
		d.LastName,
		d.DateOfBirth,
		d.TRN,
		d.NationalID,
		d.PassportNumber,
		d.ContactNumber,
		d.Address,
	).Scan(&user.ID, &user.CreatedAt)
	return mapErr(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *userRepository) GetByPensionerNumber(ctx context.Context, number string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE pensioner_number=$1`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, number))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	d := &user.Details
	if err := row.Scan(
		&user.ID,
		&user.PensionerNumber,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TermsAccepted,
		&d.FirstName,
		&d.LastName,
		&d.DateOfBirth,
		&d.TRN,
		&d.NationalID,
		&d.PassportNumber,
		&d.ContactNumber,
		&d.Address,
		&user.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}
