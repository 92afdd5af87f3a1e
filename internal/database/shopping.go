package database

import "context"

const cartIngredientLines = `
SELECT i.name, i.measurement_unit, ri.amount
FROM shopping_cart sc
JOIN recipe_ingredients ri ON ri.recipe_id = sc.recipe_id
JOIN ingredients i ON i.id = ri.ingredient_id
WHERE sc.user_id = $1
ORDER BY i.name, i.measurement_unit, ri.ingredient_id
`

// CartIngredientLines returns every ingredient line reachable from the
// user's shopping cart, one row per (recipe, ingredient) pair, in a
// stable order. Grouping and summing happen in the aggregator.
func (q *Queries) CartIngredientLines(ctx context.Context, userID int64) ([]CartLine, error) {
	rows, err := q.db.Query(ctx, cartIngredientLines, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.Name, &l.MeasurementUnit, &l.Amount); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
