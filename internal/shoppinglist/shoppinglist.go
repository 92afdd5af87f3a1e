// Package shoppinglist aggregates a user's shopping cart into a
// deduplicated, summed ingredient list.
package shoppinglist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tastebook/backend/internal/database"
)

// ErrEmptyCart is returned when a list is requested with nothing to
// aggregate. Callers report it as a user-facing error, never as an
// empty list.
var ErrEmptyCart = errors.New("shopping cart is empty")

// Filename is the attachment name of the rendered list.
const Filename = "shopping_list.txt"

// Line is one aggregated ingredient group.
type Line struct {
	Name            string
	MeasurementUnit string
	Total           int64
}

// Querier is the slice of the query layer the aggregator reads.
type Querier interface {
	CartIngredientLines(ctx context.Context, userID int64) ([]database.CartLine, error)
}

// Build fetches every ingredient line reachable from the user's cart
// and folds them.
func Build(ctx context.Context, q Querier, userID int64) ([]Line, error) {
	raw, err := q.CartIngredientLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching cart lines: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyCart
	}
	return Fold(raw), nil
}

// Fold groups lines by the denormalized (name, measurement unit) key
// and sums amounts within each group. Two catalog entries sharing a
// name and unit merge; that matches the display key. The output order
// is name then unit, so a fixed snapshot always folds identically.
func Fold(lines []database.CartLine) []Line {
	type key struct {
		name string
		unit string
	}
	totals := make(map[key]int64, len(lines))
	for _, l := range lines {
		totals[key{l.Name, l.MeasurementUnit}] += int64(l.Amount)
	}

	out := make([]Line, 0, len(totals))
	for k, total := range totals {
		out = append(out, Line{Name: k.name, MeasurementUnit: k.unit, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].MeasurementUnit < out[j].MeasurementUnit
	})
	return out
}

// Render produces the plain-text attachment body.
func Render(lines []Line) string {
	var b strings.Builder
	b.WriteString("Shopping list:\n\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "%s (%s) — %d\n", l.Name, l.MeasurementUnit, l.Total)
	}
	return b.String()
}
