package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetEmailVerified(ctx context.Context, id string) error
	SetPhoneNumber(ctx context.Context, id, phoneNumber string) error
	SetPhoneNumberVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, email_verified, phone_number, phone_number_verified,
        password_hash, locale, status, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, locale, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Locale,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	return r.exec(ctx, query, passwordHash, id)
}

func (r *userRepository) SetEmailVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET email_verified=TRUE, status='ACTIVE', updated_at=NOW() WHERE id=$1`
	return r.exec(ctx, query, id)
}

func (r *userRepository) SetPhoneNumber(ctx context.Context, id, phoneNumber string) error {
	const query = `
        UPDATE users SET phone_number=$1, phone_number_verified=FALSE, updated_at=NOW()
        WHERE id=$2`
	return r.exec(ctx, query, phoneNumber, id)
}

func (r *userRepository) SetPhoneNumberVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET phone_number_verified=TRUE, updated_at=NOW() WHERE id=$1`
	return r.exec(ctx, query, id)
}

// Delete is idempotent: deleting an absent user is success, so the
// destructive confirm flow is safe to retry.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.EmailVerified,
		&user.PhoneNumber,
		&user.PhoneNumberVerified,
		&user.PasswordHash,
		&user.Locale,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
