package recipe

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/membership"
)

type fakeStore struct {
	tags  []database.Tag
	lines []database.RecipeIngredientLine
	users map[int64]database.User
}

func (f fakeStore) GetRecipeTags(context.Context, int64) ([]database.Tag, error) {
	return f.tags, nil
}

func (f fakeStore) GetRecipeIngredients(context.Context, int64) ([]database.RecipeIngredientLine, error) {
	return f.lines, nil
}

func (f fakeStore) GetUser(_ context.Context, id int64) (database.User, error) {
	u, ok := f.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// pairDB answers membership existence checks from a fixed pair set.
type pairDB struct {
	pairs map[[2]int64]bool
}

func (d pairDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d pairDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	return existsRow{exists: d.pairs[[2]int64{args[0].(int64), args[1].(int64)}]}
}

type existsRow struct {
	exists bool
}

func (r existsRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.exists
	return nil
}

type fakeFiles struct{}

func (fakeFiles) WriteRecipeImage(_ context.Context, _ int64, _ string, _ []byte) (string, error) {
	return "", nil
}

func (fakeFiles) Delete(context.Context, string) error { return nil }

func (fakeFiles) FileURL(urlPath string) string { return "http://files.test" + urlPath }

func testProjector(pairs map[[2]int64]bool) Projector {
	db := pairDB{pairs: pairs}
	color := pgtype.Text{String: "#49B64E", Valid: true}
	return Projector{
		Store: fakeStore{
			tags: []database.Tag{
				{ID: 1, Name: "dinner", Color: color, Slug: "dinner"},
			},
			lines: []database.RecipeIngredientLine{
				{IngredientID: 7, Name: "Flour", MeasurementUnit: "g", Amount: 200},
			},
			users: map[int64]database.User{
				10: {ID: 10, Email: "chef@example.com", Username: "chef"},
			},
		},
		Favorites:     membership.NewLedger(db, membership.Favorites),
		Cart:          membership.NewLedger(db, membership.ShoppingCart),
		Subscriptions: membership.NewLedger(db, membership.Subscriptions),
		Files:         fakeFiles{},
	}
}

func testRecipe() database.Recipe {
	return database.Recipe{
		ID:          42,
		Name:        "Bread",
		Text:        "Bake it.",
		AuthorID:    pgtype.Int8{Int64: 10, Valid: true},
		CookingTime: 90,
		ImageUrl:    "/files/recipes/42.png",
	}
}

func TestProjectAnonymousViewer(t *testing.T) {
	p := testProjector(map[[2]int64]bool{
		{5, 42}: true,
		{5, 10}: true,
	})

	proj, err := p.Project(context.Background(), testRecipe(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if proj.IsFavorited || proj.IsInShoppingCart {
		t.Error("expected viewer flags to be false for anonymous viewer")
	}
	if proj.Author == nil {
		t.Fatal("expected an author")
	}
	if proj.Author.IsSubscribed {
		t.Error("expected is_subscribed false for anonymous viewer")
	}
	if proj.Image != "http://files.test/files/recipes/42.png" {
		t.Errorf("unexpected image url %q", proj.Image)
	}
	if len(proj.Tags) != 1 || proj.Tags[0].Slug != "dinner" {
		t.Errorf("unexpected tags %v", proj.Tags)
	}
	if len(proj.Ingredients) != 1 || proj.Ingredients[0].Name != "Flour" {
		t.Errorf("unexpected ingredients %v", proj.Ingredients)
	}
}

func TestProjectAuthenticatedViewer(t *testing.T) {
	p := testProjector(map[[2]int64]bool{
		{5, 42}: true, // favorited and in cart share the pair shape
		{5, 10}: true, // subscribed to the author
	})

	proj, err := p.Project(context.Background(), testRecipe(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !proj.IsFavorited {
		t.Error("expected is_favorited true")
	}
	if !proj.IsInShoppingCart {
		t.Error("expected is_in_shopping_cart true")
	}
	if proj.Author == nil || !proj.Author.IsSubscribed {
		t.Error("expected is_subscribed true")
	}
}

func TestProjectOrphanedRecipe(t *testing.T) {
	p := testProjector(nil)
	rec := testRecipe()
	rec.AuthorID = pgtype.Int8{}

	proj, err := p.Project(context.Background(), rec, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.Author != nil {
		t.Errorf("expected nil author, got %+v", proj.Author)
	}
}
