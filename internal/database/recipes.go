package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createRecipe = `
INSERT INTO recipes (name, text, author_id, cooking_time, image_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`

type CreateRecipeParams struct {
	Name        string
	Text        string
	AuthorID    pgtype.Int8
	CookingTime int32
	ImageUrl    string
}

func (q *Queries) CreateRecipe(ctx context.Context, arg CreateRecipeParams) (int64, error) {
	row := q.db.QueryRow(ctx, createRecipe,
		arg.Name, arg.Text, arg.AuthorID, arg.CookingTime, arg.ImageUrl)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateRecipe = `
UPDATE recipes
SET name = COALESCE($2, name),
    text = COALESCE($3, text),
    cooking_time = COALESCE($4, cooking_time),
    image_url = COALESCE($5, image_url),
    pub_date = now()
WHERE id = $1
`

type UpdateRecipeParams struct {
	ID          int64
	Name        pgtype.Text
	Text        pgtype.Text
	CookingTime pgtype.Int4
	ImageUrl    pgtype.Text
}

// UpdateRecipe modifies only the fields provided; absent (invalid)
// params leave the stored value untouched.
func (q *Queries) UpdateRecipe(ctx context.Context, arg UpdateRecipeParams) error {
	_, err := q.db.Exec(ctx, updateRecipe,
		arg.ID, arg.Name, arg.Text, arg.CookingTime, arg.ImageUrl)
	return err
}

const deleteRecipe = `
DELETE FROM recipes WHERE id = $1
`

func (q *Queries) DeleteRecipe(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteRecipe, id)
	return err
}

const getRecipe = `
SELECT id, name, text, author_id, cooking_time, image_url, pub_date
FROM recipes
WHERE id = $1
`

func (q *Queries) GetRecipe(ctx context.Context, id int64) (Recipe, error) {
	row := q.db.QueryRow(ctx, getRecipe, id)
	var r Recipe
	err := row.Scan(&r.ID, &r.Name, &r.Text, &r.AuthorID, &r.CookingTime,
		&r.ImageUrl, &r.PubDate)
	return r, err
}

const recipeExists = `
SELECT EXISTS (SELECT 1 FROM recipes WHERE id = $1)
`

func (q *Queries) RecipeExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRow(ctx, recipeExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const checkRecipeOwnership = `
SELECT EXISTS (SELECT 1 FROM recipes WHERE id = $1 AND author_id = $2)
`

type CheckRecipeOwnershipParams struct {
	ID       int64
	AuthorID pgtype.Int8
}

func (q *Queries) CheckRecipeOwnership(ctx context.Context, arg CheckRecipeOwnershipParams) (bool, error) {
	row := q.db.QueryRow(ctx, checkRecipeOwnership, arg.ID, arg.AuthorID)
	var owns bool
	err := row.Scan(&owns)
	return owns, err
}

const listRecipes = `
SELECT DISTINCT r.id, r.name, r.text, r.author_id, r.cooking_time, r.image_url, r.pub_date
FROM recipes r
LEFT JOIN recipe_tags rt ON rt.recipe_id = r.id
LEFT JOIN tags t ON t.id = rt.tag_id
WHERE ($1::bigint IS NULL OR r.author_id = $1)
  AND (cardinality($2::text[]) = 0 OR t.slug = ANY($2))
  AND ($3::bigint IS NULL OR EXISTS (
      SELECT 1 FROM favorites f WHERE f.recipe_id = r.id AND f.user_id = $3))
  AND ($4::bigint IS NULL OR EXISTS (
      SELECT 1 FROM shopping_cart sc WHERE sc.recipe_id = r.id AND sc.user_id = $4))
ORDER BY r.pub_date DESC, r.id DESC
LIMIT $5 OFFSET $6
`

type ListRecipesParams struct {
	AuthorID    pgtype.Int8
	TagSlugs    []string
	FavoritedBy pgtype.Int8
	InCartOf    pgtype.Int8
	Limit       int32
	Offset      int32
}

func (q *Queries) ListRecipes(ctx context.Context, arg ListRecipesParams) ([]Recipe, error) {
	if arg.TagSlugs == nil {
		arg.TagSlugs = []string{}
	}
	rows, err := q.db.Query(ctx, listRecipes,
		arg.AuthorID, arg.TagSlugs, arg.FavoritedBy, arg.InCartOf, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Recipe
	for rows.Next() {
		var r Recipe
		if err := rows.Scan(&r.ID, &r.Name, &r.Text, &r.AuthorID, &r.CookingTime,
			&r.ImageUrl, &r.PubDate); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countRecipes = `
SELECT count(DISTINCT r.id)
FROM recipes r
LEFT JOIN recipe_tags rt ON rt.recipe_id = r.id
LEFT JOIN tags t ON t.id = rt.tag_id
WHERE ($1::bigint IS NULL OR r.author_id = $1)
  AND (cardinality($2::text[]) = 0 OR t.slug = ANY($2))
  AND ($3::bigint IS NULL OR EXISTS (
      SELECT 1 FROM favorites f WHERE f.recipe_id = r.id AND f.user_id = $3))
  AND ($4::bigint IS NULL OR EXISTS (
      SELECT 1 FROM shopping_cart sc WHERE sc.recipe_id = r.id AND sc.user_id = $4))
`

func (q *Queries) CountRecipes(ctx context.Context, arg ListRecipesParams) (int64, error) {
	if arg.TagSlugs == nil {
		arg.TagSlugs = []string{}
	}
	row := q.db.QueryRow(ctx, countRecipes,
		arg.AuthorID, arg.TagSlugs, arg.FavoritedBy, arg.InCartOf)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getRecipeIngredients = `
SELECT ri.ingredient_id, i.name, i.measurement_unit, ri.amount
FROM recipe_ingredients ri
JOIN ingredients i ON i.id = ri.ingredient_id
WHERE ri.recipe_id = $1
ORDER BY i.name
`

func (q *Queries) GetRecipeIngredients(ctx context.Context, recipeID int64) ([]RecipeIngredientLine, error) {
	rows, err := q.db.Query(ctx, getRecipeIngredients, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecipeIngredientLine
	for rows.Next() {
		var l RecipeIngredientLine
		if err := rows.Scan(&l.IngredientID, &l.Name, &l.MeasurementUnit, &l.Amount); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const deleteRecipeIngredients = `
DELETE FROM recipe_ingredients WHERE recipe_id = $1
`

func (q *Queries) DeleteRecipeIngredients(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteRecipeIngredients, recipeID)
	return err
}

const insertRecipeIngredients = `
INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount)
SELECT $1, unnest($2::bigint[]), unnest($3::int[])
`

type InsertRecipeIngredientsParams struct {
	RecipeID      int64
	IngredientIDs []int64
	Amounts       []int32
}

// InsertRecipeIngredients bulk-inserts ingredient lines. A duplicate
// ingredient id violates the (recipe, ingredient) primary key and fails
// the whole statement.
func (q *Queries) InsertRecipeIngredients(ctx context.Context, arg InsertRecipeIngredientsParams) error {
	_, err := q.db.Exec(ctx, insertRecipeIngredients,
		arg.RecipeID, arg.IngredientIDs, arg.Amounts)
	return err
}

const deleteRecipeTags = `
DELETE FROM recipe_tags WHERE recipe_id = $1
`

func (q *Queries) DeleteRecipeTags(ctx context.Context, recipeID int64) error {
	_, err := q.db.Exec(ctx, deleteRecipeTags, recipeID)
	return err
}

const insertRecipeTags = `
INSERT INTO recipe_tags (recipe_id, tag_id)
SELECT $1, unnest($2::bigint[])
`

type InsertRecipeTagsParams struct {
	RecipeID int64
	TagIDs   []int64
}

func (q *Queries) InsertRecipeTags(ctx context.Context, arg InsertRecipeTagsParams) error {
	_, err := q.db.Exec(ctx, insertRecipeTags, arg.RecipeID, arg.TagIDs)
	return err
}

const getRecipeCard = `
SELECT id, name, image_url, cooking_time
FROM recipes
WHERE id = $1
`

func (q *Queries) GetRecipeCard(ctx context.Context, id int64) (RecipeCard, error) {
	row := q.db.QueryRow(ctx, getRecipeCard, id)
	var c RecipeCard
	err := row.Scan(&c.ID, &c.Name, &c.ImageUrl, &c.CookingTime)
	return c, err
}

const recipeCardsByAuthor = `
SELECT id, name, image_url, cooking_time
FROM recipes
WHERE author_id = $1
ORDER BY pub_date DESC, id DESC
LIMIT $2
`

type RecipeCardsByAuthorParams struct {
	AuthorID int64
	Limit    int32
}

func (q *Queries) RecipeCardsByAuthor(ctx context.Context, arg RecipeCardsByAuthorParams) ([]RecipeCard, error) {
	rows, err := q.db.Query(ctx, recipeCardsByAuthor, arg.AuthorID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecipeCard
	for rows.Next() {
		var c RecipeCard
		if err := rows.Scan(&c.ID, &c.Name, &c.ImageUrl, &c.CookingTime); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const countRecipesByAuthor = `
SELECT count(*) FROM recipes WHERE author_id = $1
`

func (q *Queries) CountRecipesByAuthor(ctx context.Context, authorID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countRecipesByAuthor, authorID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
