package database

import (
	"context"
	"strings"
)

// prefixPattern escapes LIKE metacharacters so user input is matched as
// a literal prefix.
func prefixPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s) + "%"
}

const listTags = `
SELECT id, name, color, slug
FROM tags
WHERE ($1::text = '' OR name ILIKE $2)
  AND ($3::text = '' OR slug ILIKE $4)
ORDER BY name
`

type ListTagsParams struct {
	Name string
	Slug string
}

// ListTags returns tags matched by case-insensitive prefix on name and
// slug, each filter applied independently.
func (q *Queries) ListTags(ctx context.Context, arg ListTagsParams) ([]Tag, error) {
	rows, err := q.db.Query(ctx, listTags,
		arg.Name, prefixPattern(arg.Name), arg.Slug, prefixPattern(arg.Slug))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Slug); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTag = `
SELECT id, name, color, slug
FROM tags
WHERE id = $1
`

func (q *Queries) GetTag(ctx context.Context, id int64) (Tag, error) {
	row := q.db.QueryRow(ctx, getTag, id)
	var t Tag
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.Slug)
	return t, err
}

const countTagsByIDs = `
SELECT count(*) FROM tags WHERE id = ANY($1::bigint[])
`

// CountTagsByIDs counts how many of the given ids reference existing
// tags. The validator compares it against the candidate set size.
func (q *Queries) CountTagsByIDs(ctx context.Context, ids []int64) (int64, error) {
	row := q.db.QueryRow(ctx, countTagsByIDs, ids)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getRecipeTags = `
SELECT t.id, t.name, t.color, t.slug
FROM recipe_tags rt
JOIN tags t ON t.id = rt.tag_id
WHERE rt.recipe_id = $1
ORDER BY t.name
`

func (q *Queries) GetRecipeTags(ctx context.Context, recipeID int64) ([]Tag, error) {
	rows, err := q.db.Query(ctx, getRecipeTags, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Slug); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
