package database

import "github.com/jackc/pgx/v5/pgtype"

type User struct {
	ID           int64
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	CreatedAt    pgtype.Timestamptz
}

type Tag struct {
	ID    int64
	Name  string
	Color pgtype.Text
	Slug  string
}

type Ingredient struct {
	ID              int64
	Name            string
	MeasurementUnit string
}

type Recipe struct {
	ID          int64
	Name        string
	Text        string
	AuthorID    pgtype.Int8
	CookingTime int32
	ImageUrl    string
	PubDate     pgtype.Timestamptz
}

// RecipeIngredientLine is an ingredient line joined with its catalog
// entry, as exposed by the read projection.
type RecipeIngredientLine struct {
	IngredientID    int64
	Name            string
	MeasurementUnit string
	Amount          int32
}

// CartLine is one ungrouped ingredient line reachable from a user's
// shopping cart. The aggregator folds these.
type CartLine struct {
	Name            string
	MeasurementUnit string
	Amount          int32
}

// RecipeCard is the short recipe shape nested in ledger and
// subscription responses.
type RecipeCard struct {
	ID          int64
	Name        string
	ImageUrl    string
	CookingTime int32
}
