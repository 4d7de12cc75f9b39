package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/store"
)

// RatingsRepository is the ledger store and the only writer of a recipe's
// aggregate columns.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RecipeExists reports whether the rated recipe exists.
func (r *RatingsRepository) RecipeExists(ctx context.Context, recipeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recipes WHERE id = $1)`, recipeID).Scan(&exists)
	return exists, err
}

// Insert creates a rating. The unique (recipe_id, user_id) constraint makes
// the duplicate check and the insert one statement.
func (r *RatingsRepository) Insert(ctx context.Context, rating domain.Rating) (domain.Rating, error) {
	const query = `
        INSERT INTO ratings (recipe_id, user_id, value, comment)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT ON CONSTRAINT ratings_recipe_user_key DO NOTHING
        RETURNING id, recipe_id, user_id, value, comment, created_at
    `

	var out domain.Rating
	err := r.pool.QueryRow(ctx, query, rating.RecipeID, rating.UserID, rating.Value, rating.Comment).Scan(
		&out.ID,
		&out.RecipeID,
		&out.UserID,
		&out.Value,
		&out.Comment,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, domain.ErrDuplicateRating
		}
		if code, constraint := pgCode(err); code == pgForeignKeyViolation {
			if constraint == ratingsUserFK {
				return domain.Rating{}, domain.ErrUnauthenticated
			}
			return domain.Rating{}, domain.ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	return out, nil
}

// ListForRecipe returns a recipe's ratings with author usernames, newest first.
func (r *RatingsRepository) ListForRecipe(ctx context.Context, recipeID string) ([]domain.Rating, error) {
	const query = `
        SELECT ra.id, ra.recipe_id, ra.user_id, ra.value, ra.comment, ra.created_at, u.username
        FROM ratings ra
        JOIN users u ON u.id = ra.user_id
        WHERE ra.recipe_id = $1
        ORDER BY ra.created_at DESC, ra.id DESC
    `
	rows, err := r.pool.Query(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Rating, 0)
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.ID, &rt.RecipeID, &rt.UserID, &rt.Value, &rt.Comment, &rt.CreatedAt, &rt.Username); err != nil {
			return nil, err
		}
		items = append(items, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a rating if requesterID authored it.
func (r *RatingsRepository) Delete(ctx context.Context, ratingID, requesterID string) (domain.Rating, error) {
	var deleted domain.Rating
	err := store.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            SELECT id, recipe_id, user_id, value, comment, created_at
            FROM ratings WHERE id = $1 FOR UPDATE
        `, ratingID).Scan(&deleted.ID, &deleted.RecipeID, &deleted.UserID, &deleted.Value, &deleted.Comment, &deleted.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if deleted.UserID != requesterID {
			return domain.ErrForbidden
		}
		_, err = tx.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, ratingID)
		return err
	})
	if err != nil {
		return domain.Rating{}, err
	}
	return deleted, nil
}

// RecomputeAggregate locks the recipe row, reads every live rating value and
// stores summarize(values). Taking the lock before reading means the last
// recompute to commit has seen every ledger change committed before it.
func (r *RatingsRepository) RecomputeAggregate(ctx context.Context, recipeID string, summarize func([]int) domain.RatingAggregate) (domain.RatingAggregate, error) {
	var agg domain.RatingAggregate
	err := store.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM recipes WHERE id = $1 FOR NO KEY UPDATE`, recipeID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock recipe: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT value FROM ratings WHERE recipe_id = $1`, recipeID)
		if err != nil {
			return fmt.Errorf("read ratings: %w", err)
		}
		values, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return fmt.Errorf("read ratings: %w", err)
		}

		agg = summarize(values)
		_, err = tx.Exec(ctx, `
            UPDATE recipes
            SET average_rating = $2, rating_count = $3
            WHERE id = $1
        `, recipeID, agg.Average, agg.Count)
		if err != nil {
			return fmt.Errorf("store aggregate: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.RatingAggregate{}, err
	}
	return agg, nil
}

// ListDriftedRecipes returns recipes whose stored aggregate disagrees with
// the live ledger.
func (r *RatingsRepository) ListDriftedRecipes(ctx context.Context) ([]string, error) {
	const query = `
        SELECT r.id
        FROM recipes r
        LEFT JOIN (
            SELECT recipe_id, AVG(value)::float8 AS avg, COUNT(*) AS cnt
            FROM ratings
            GROUP BY recipe_id
        ) s ON s.recipe_id = r.id
        WHERE r.rating_count <> COALESCE(s.cnt, 0)
           OR abs(r.average_rating - COALESCE(s.avg, 0)) > 1e-9
        ORDER BY r.id
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Aggregate reads the stored aggregate for a recipe.
func (r *RatingsRepository) Aggregate(ctx context.Context, recipeID string) (domain.RatingAggregate, error) {
	var agg domain.RatingAggregate
	err := r.pool.QueryRow(ctx, `SELECT average_rating, rating_count FROM recipes WHERE id = $1`, recipeID).Scan(&agg.Average, &agg.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RatingAggregate{}, domain.ErrNotFound
		}
		return domain.RatingAggregate{}, fmt.Errorf("read aggregate: %w", err)
	}
	return agg, nil
}
