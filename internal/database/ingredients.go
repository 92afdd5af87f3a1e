package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listIngredients = `
SELECT id, name, measurement_unit
FROM ingredients
WHERE ($1::text = '' OR name ILIKE $2)
ORDER BY name
`

// ListIngredients returns ingredients matched by case-insensitive name
// prefix.
func (q *Queries) ListIngredients(ctx context.Context, namePrefix string) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients, namePrefix, prefixPattern(namePrefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Ingredient
	for rows.Next() {
		var i Ingredient
		if err := rows.Scan(&i.ID, &i.Name, &i.MeasurementUnit); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getIngredient = `
SELECT id, name, measurement_unit
FROM ingredients
WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id int64) (Ingredient, error) {
	row := q.db.QueryRow(ctx, getIngredient, id)
	var i Ingredient
	err := row.Scan(&i.ID, &i.Name, &i.MeasurementUnit)
	return i, err
}

const existingIngredientIDs = `
SELECT id FROM ingredients WHERE id = ANY($1::bigint[])
`

// ExistingIngredientIDs returns the subset of ids that reference
// existing ingredients. The validator reports the missing ones.
func (q *Queries) ExistingIngredientIDs(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := q.db.Query(ctx, existingIngredientIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}

const upsertIngredient = `
INSERT INTO ingredients (name, measurement_unit)
VALUES ($1, $2)
ON CONFLICT (name, measurement_unit) DO NOTHING
`

type UpsertIngredientParams struct {
	Name            string
	MeasurementUnit string
}

// UpsertIngredient is the idempotent get-or-create used by the CSV
// bulk load.
func (q *Queries) UpsertIngredient(ctx context.Context, arg UpsertIngredientParams) error {
	_, err := q.db.Exec(ctx, upsertIngredient, arg.Name, arg.MeasurementUnit)
	return err
}

const updateIngredient = `
UPDATE ingredients
SET name = COALESCE($2, name),
    measurement_unit = COALESCE($3, measurement_unit)
WHERE id = $1
RETURNING id, name, measurement_unit
`

type UpdateIngredientParams struct {
	ID              int64
	Name            pgtype.Text
	MeasurementUnit pgtype.Text
}

// UpdateIngredient applies an admin correction to catalog reference
// data. Ingredients are otherwise immutable once referenced.
func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, updateIngredient, arg.ID, arg.Name, arg.MeasurementUnit)
	var i Ingredient
	err := row.Scan(&i.ID, &i.Name, &i.MeasurementUnit)
	return i, err
}
