package database

import "context"

const subscribedAuthors = `
SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.password_hash, u.role, u.created_at
FROM subscriptions s
JOIN users u ON u.id = s.author_id
WHERE s.user_id = $1
ORDER BY s.subs_date, u.id
LIMIT $2 OFFSET $3
`

type SubscribedAuthorsParams struct {
	UserID int64
	Limit  int32
	Offset int32
}

// SubscribedAuthors returns the authors the user follows, oldest
// subscription first.
func (q *Queries) SubscribedAuthors(ctx context.Context, arg SubscribedAuthorsParams) ([]User, error) {
	rows, err := q.db.Query(ctx, subscribedAuthors, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
			&u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const countSubscriptions = `
SELECT count(*) FROM subscriptions WHERE user_id = $1
`

func (q *Queries) CountSubscriptions(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countSubscriptions, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
