package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/recipe-box/internal/store"
)

// Postgres error codes the repositories translate into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Foreign keys whose violation means the acting user has no account.
const (
	ratingsUserFK   = "ratings_user_id_fkey"
	favoritesUserFK = "favorites_user_id_fkey"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Users     *UsersRepository
	Recipes   *RecipesRepository
	Ratings   *RatingsRepository
	Favorites *FavoritesRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Users:     &UsersRepository{pool: pool},
		Recipes:   &RecipesRepository{pool: pool},
		Ratings:   &RatingsRepository{pool: pool},
		Favorites: &FavoritesRepository{pool: pool},
	}
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}
