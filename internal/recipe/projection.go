package recipe

import (
	"context"
	"fmt"

	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/filestore"
	"github.com/tastebook/backend/internal/membership"
)

// Author is the recipe author profile nested in a projection.
type Author struct {
	Email        string `json:"email"`
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// TagRef is a tag as rendered inside a projection.
type TagRef struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
	Slug  string  `json:"slug"`
}

// IngredientLine is an ingredient line with its catalog name and unit
// denormalized in.
type IngredientLine struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int32  `json:"amount"`
}

// Projection is the full read shape of a recipe, including the
// viewer-dependent is_favorited and is_in_shopping_cart booleans.
type Projection struct {
	ID               int64            `json:"id"`
	Tags             []TagRef         `json:"tags"`
	Author           *Author          `json:"author"`
	Ingredients      []IngredientLine `json:"ingredients"`
	IsFavorited      bool             `json:"is_favorited"`
	IsInShoppingCart bool             `json:"is_in_shopping_cart"`
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Text             string           `json:"text"`
	CookingTime      int32            `json:"cooking_time"`
}

// Card is the short recipe shape nested in ledger and subscription
// responses.
type Card struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int32  `json:"cooking_time"`
}

func NewCard(c database.RecipeCard, files filestore.FileStore) Card {
	return Card{
		ID:          c.ID,
		Name:        c.Name,
		Image:       files.FileURL(c.ImageUrl),
		CookingTime: c.CookingTime,
	}
}

// ProjectionStore is the slice of the query layer a projection reads.
type ProjectionStore interface {
	GetRecipeTags(ctx context.Context, recipeID int64) ([]database.Tag, error)
	GetRecipeIngredients(ctx context.Context, recipeID int64) ([]database.RecipeIngredientLine, error)
	GetUser(ctx context.Context, id int64) (database.User, error)
}

// Projector builds read projections. The viewer id is threaded in
// explicitly; 0 means anonymous and leaves every viewer-dependent
// boolean false.
type Projector struct {
	Store         ProjectionStore
	Favorites     *membership.Ledger
	Cart          *membership.Ledger
	Subscriptions *membership.Ledger
	Files         filestore.FileStore
}

func (p Projector) Project(ctx context.Context, rec database.Recipe, viewerID int64) (Projection, error) {
	proj := Projection{
		ID:          rec.ID,
		Name:        rec.Name,
		Text:        rec.Text,
		CookingTime: rec.CookingTime,
		Image:       p.Files.FileURL(rec.ImageUrl),
		Tags:        []TagRef{},
		Ingredients: []IngredientLine{},
	}

	tags, err := p.Store.GetRecipeTags(ctx, rec.ID)
	if err != nil {
		return Projection{}, fmt.Errorf("fetching recipe tags: %w", err)
	}
	for _, t := range tags {
		ref := TagRef{ID: t.ID, Name: t.Name, Slug: t.Slug}
		if t.Color.Valid {
			color := t.Color.String
			ref.Color = &color
		}
		proj.Tags = append(proj.Tags, ref)
	}

	lines, err := p.Store.GetRecipeIngredients(ctx, rec.ID)
	if err != nil {
		return Projection{}, fmt.Errorf("fetching recipe ingredients: %w", err)
	}
	for _, l := range lines {
		proj.Ingredients = append(proj.Ingredients, IngredientLine{
			ID:              l.IngredientID,
			Name:            l.Name,
			MeasurementUnit: l.MeasurementUnit,
			Amount:          l.Amount,
		})
	}

	if rec.AuthorID.Valid {
		author, err := p.Store.GetUser(ctx, rec.AuthorID.Int64)
		if err != nil {
			return Projection{}, fmt.Errorf("fetching recipe author: %w", err)
		}
		proj.Author = &Author{
			Email:     author.Email,
			ID:        author.ID,
			Username:  author.Username,
			FirstName: author.FirstName,
			LastName:  author.LastName,
		}
		if viewerID != 0 && viewerID != author.ID {
			subscribed, err := p.Subscriptions.Exists(ctx, viewerID, author.ID)
			if err != nil {
				return Projection{}, fmt.Errorf("checking subscription: %w", err)
			}
			proj.Author.IsSubscribed = subscribed
		}
	}

	if viewerID != 0 {
		favorited, err := p.Favorites.Exists(ctx, viewerID, rec.ID)
		if err != nil {
			return Projection{}, fmt.Errorf("checking favorites: %w", err)
		}
		inCart, err := p.Cart.Exists(ctx, viewerID, rec.ID)
		if err != nil {
			return Projection{}, fmt.Errorf("checking shopping cart: %w", err)
		}
		proj.IsFavorited = favorited
		proj.IsInShoppingCart = inCart
	}

	return proj, nil
}
