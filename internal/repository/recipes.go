package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/store"
)

// RecipesRepository provides persistence helpers for recipes. It never
// writes average_rating or rating_count; see RatingsRepository.RecomputeAggregate.
type RecipesRepository struct {
	pool *pgxpool.Pool
}

const recipeColumns = `
    id,
    user_id,
    title,
    ingredients,
    steps,
    prep_time,
    cook_time,
    difficulty,
    categories,
    average_rating,
    rating_count,
    created_at,
    updated_at
`

// RecipeParams bundles the author-editable fields of a recipe.
type RecipeParams struct {
	Title       string
	Ingredients []string
	Steps       string
	PrepTime    int
	CookTime    int
	Difficulty  string
	Categories  []string
}

// RecipeSort selects the listing order.
type RecipeSort string

const (
	SortNewest RecipeSort = "newest"
	SortRating RecipeSort = "rating"
)

// RecipeSearchFilters narrows a text search.
type RecipeSearchFilters struct {
	Query       string
	Difficulty  *string
	MaxCookTime *int
}

// Create inserts a recipe owned by userID.
func (r *RecipesRepository) Create(ctx context.Context, userID string, p RecipeParams) (domain.Recipe, error) {
	query := fmt.Sprintf(`
        INSERT INTO recipes (user_id, title, ingredients, steps, prep_time, cook_time, difficulty, categories)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING %s
    `, recipeColumns)

	row := r.pool.QueryRow(ctx, query, userID, p.Title, p.Ingredients, p.Steps, p.PrepTime, p.CookTime, p.Difficulty, nonNil(p.Categories))
	recipe, err := scanRecipe(row)
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.Recipe{}, domain.E(domain.KindNotFound, "User not found")
		}
		return domain.Recipe{}, fmt.Errorf("insert recipe: %w", err)
	}
	return recipe, nil
}

// GetByID fetches a recipe by its identifier.
func (r *RecipesRepository) GetByID(ctx context.Context, id string) (domain.Recipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM recipes WHERE id = $1`, recipeColumns)
	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, domain.ErrNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// List returns every recipe in the requested order.
func (r *RecipesRepository) List(ctx context.Context, sort RecipeSort) ([]domain.Recipe, error) {
	order := "created_at DESC, id DESC"
	if sort == SortRating {
		order = "average_rating DESC, rating_count DESC, created_at DESC, id DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM recipes ORDER BY %s`, recipeColumns, order)
	return r.query(ctx, query)
}

// Search matches title or any ingredient case-insensitively.
func (r *RecipesRepository) Search(ctx context.Context, filters RecipeSearchFilters) ([]domain.Recipe, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	pattern := arg("%" + escapeLike(strings.TrimSpace(filters.Query)) + "%")
	where = append(where, fmt.Sprintf(
		"(title ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(ingredients) AS ing WHERE ing ILIKE %[1]s))", pattern))
	if filters.Difficulty != nil {
		where = append(where, fmt.Sprintf("difficulty = %s", arg(*filters.Difficulty)))
	}
	if filters.MaxCookTime != nil {
		where = append(where, fmt.Sprintf("cook_time <= %s", arg(*filters.MaxCookTime)))
	}

	query := fmt.Sprintf(`SELECT %s FROM recipes WHERE %s ORDER BY created_at DESC, id DESC`,
		recipeColumns, strings.Join(where, " AND "))
	return r.query(ctx, query, args...)
}

// Update replaces the editable fields of a recipe owned by requesterID.
func (r *RecipesRepository) Update(ctx context.Context, id, requesterID string, p RecipeParams) (domain.Recipe, error) {
	var recipe domain.Recipe
	err := store.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOwnedRecipe(ctx, tx, id, requesterID); err != nil {
			return err
		}
		query := fmt.Sprintf(`
            UPDATE recipes
            SET title = $2,
                ingredients = $3,
                steps = $4,
                prep_time = $5,
                cook_time = $6,
                difficulty = $7,
                categories = $8,
                updated_at = now()
            WHERE id = $1
            RETURNING %s
        `, recipeColumns)
		var err error
		recipe, err = scanRecipe(tx.QueryRow(ctx, query, id, p.Title, p.Ingredients, p.Steps, p.PrepTime, p.CookTime, p.Difficulty, nonNil(p.Categories)))
		return err
	})
	if err != nil {
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Delete removes a recipe owned by requesterID; ratings and favorites cascade.
func (r *RecipesRepository) Delete(ctx context.Context, id, requesterID string) error {
	return store.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockOwnedRecipe(ctx, tx, id, requesterID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
		return err
	})
}

func lockOwnedRecipe(ctx context.Context, tx pgx.Tx, id, requesterID string) error {
	var owner string
	err := tx.QueryRow(ctx, `SELECT user_id FROM recipes WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != requesterID {
		return domain.ErrForbidden
	}
	return nil
}

func (r *RecipesRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Recipe, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipes(rows)
}

func collectRecipes(rows pgx.Rows) ([]domain.Recipe, error) {
	items := make([]domain.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanRecipe(row pgx.Row) (domain.Recipe, error) {
	var recipe domain.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.Ingredients,
		&recipe.Steps,
		&recipe.PrepTime,
		&recipe.CookTime,
		&recipe.Difficulty,
		&recipe.Categories,
		&recipe.AverageRating,
		&recipe.RatingCount,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return domain.Recipe{}, err
	}
	return recipe, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// qualified prefixes each column in a column list with table.
func qualified(table, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = table + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
