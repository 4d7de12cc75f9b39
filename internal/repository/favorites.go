package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

// FavoritesRepository stores (user, recipe) membership rows.
type FavoritesRepository struct {
	pool *pgxpool.Pool
}

func (r *FavoritesRepository) RecipeExists(ctx context.Context, recipeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recipes WHERE id = $1)`, recipeID).Scan(&exists)
	return exists, err
}

func (r *FavoritesRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// Insert adds the pair and reports whether a row was created.
func (r *FavoritesRepository) Insert(ctx context.Context, userID, recipeID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        INSERT INTO favorites (user_id, recipe_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, recipe_id) DO NOTHING
    `, userID, recipeID)
	if err != nil {
		if code, constraint := pgCode(err); code == pgForeignKeyViolation {
			if constraint == favoritesUserFK {
				return false, domain.ErrUnauthenticated
			}
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the pair and reports whether a row was deleted.
func (r *FavoritesRepository) Delete(ctx context.Context, userID, recipeID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND recipe_id = $2`, userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *FavoritesRepository) IsMember(ctx context.Context, userID, recipeID string) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND recipe_id = $2)
    `, userID, recipeID).Scan(&member)
	return member, err
}

// ListIDs returns favorited recipe ids in insertion order.
func (r *FavoritesRepository) ListIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT recipe_id FROM favorites
        WHERE user_id = $1
        ORDER BY created_at, recipe_id
    `, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListRecipes joins favorites to full recipe rows in insertion order.
func (r *FavoritesRepository) ListRecipes(ctx context.Context, userID string) ([]domain.Recipe, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM favorites f
        JOIN recipes ON recipes.id = f.recipe_id
        WHERE f.user_id = $1
        ORDER BY f.created_at, f.recipe_id
    `, qualified("recipes", recipeColumns))
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipes(rows)
}
