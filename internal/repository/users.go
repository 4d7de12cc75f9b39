package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

// UsersRepository persists accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, email, password_hash, created_at`

// Create inserts a user. A taken username or email yields a KindConflict error.
func (r *UsersRepository) Create(ctx context.Context, username, email, passwordHash string) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING %s
    `, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, query, username, email, passwordHash))
	if err != nil {
		if code, constraint := pgCode(err); code == pgUniqueViolation {
			if constraint == "users_email_key" {
				return domain.User{}, domain.E(domain.KindConflict, "Email already registered")
			}
			return domain.User{}, domain.E(domain.KindConflict, "Username already taken")
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByEmail fetches a user for login.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1)`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by id.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}
