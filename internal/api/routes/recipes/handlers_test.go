package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/token"
	"github.com/tastebook/backend/internal/config"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/log"
	"github.com/tastebook/backend/internal/membership"
)

// scriptDB answers the query layer from fixed rows: reads return the
// stored recipe and author, writes are logged in order, and failures
// can be injected by statement substring.
type scriptDB struct {
	t      *testing.T
	recipe database.Recipe
	user   database.User

	execLog []string
	execErr map[string]error
	rowErr  map[string]error
}

func newScriptDB(t *testing.T) *scriptDB {
	return &scriptDB{
		t: t,
		recipe: database.Recipe{
			ID:          42,
			Name:        "Bread",
			Text:        "Bake it.",
			AuthorID:    pgtype.Int8{Int64: 10, Valid: true},
			CookingTime: 90,
			ImageUrl:    "/files/recipes/42.png",
		},
		user:    database.User{ID: 10, Email: "chef@example.com", Username: "chef"},
		execErr: map[string]error{},
		rowErr:  map[string]error{},
	}
}

func (s *scriptDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	s.execLog = append(s.execLog, sql)
	for substr, err := range s.execErr {
		if strings.Contains(sql, substr) {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (s *scriptDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM ingredients"):
		// Every referenced ingredient id exists.
		ids := args[0].([]int64)
		rows := make([][]any, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []any{id})
		}
		return &scriptRows{rows: rows}, nil
	case strings.Contains(sql, "FROM recipe_tags"),
		strings.Contains(sql, "FROM recipe_ingredients"):
		return &scriptRows{}, nil
	}
	s.t.Fatalf("unexpected query: %s", sql)
	return nil, nil
}

func (s *scriptDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	for substr, err := range s.rowErr {
		if strings.Contains(sql, substr) {
			return scriptRow{err: err}
		}
	}
	switch {
	case strings.Contains(sql, "INSERT INTO recipes"):
		return scriptRow{vals: []any{int64(42)}}
	case strings.Contains(sql, "count(*) FROM tags"):
		return scriptRow{vals: []any{int64(len(args[0].([]int64)))}}
	case strings.Contains(sql, "SELECT EXISTS"):
		return scriptRow{vals: []any{false}}
	case strings.Contains(sql, "FROM recipes"):
		rec := s.recipe
		return scriptRow{vals: []any{
			rec.ID, rec.Name, rec.Text, rec.AuthorID, rec.CookingTime,
			rec.ImageUrl, rec.PubDate,
		}}
	case strings.Contains(sql, "FROM users"):
		u := s.user
		return scriptRow{vals: []any{
			u.ID, u.Email, u.Username, u.FirstName, u.LastName,
			u.PasswordHash, u.Role, u.CreatedAt,
		}}
	}
	s.t.Fatalf("unexpected row query: %s", sql)
	return nil
}

type scriptRow struct {
	vals []any
	err  error
}

func (r scriptRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

type scriptRows struct {
	rows [][]any
	idx  int
}

func (r *scriptRows) Close()                                       {}
func (r *scriptRows) Err() error                                   { return nil }
func (r *scriptRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *scriptRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *scriptRows) Next() bool                                   { r.idx++; return r.idx <= len(r.rows) }
func (r *scriptRows) Scan(dest ...any) error                       { return assign(dest, r.rows[r.idx-1]) }
func (r *scriptRows) Values() ([]any, error)                       { return nil, nil }
func (r *scriptRows) RawValues() [][]byte                          { return nil }
func (r *scriptRows) Conn() *pgx.Conn                              { return nil }

func assign(dest, src []any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = src[i].(int64)
		case *int32:
			*p = src[i].(int32)
		case *string:
			*p = src[i].(string)
		case *bool:
			*p = src[i].(bool)
		case *pgtype.Int8:
			*p = src[i].(pgtype.Int8)
		case *pgtype.Text:
			*p = src[i].(pgtype.Text)
		case *pgtype.Timestamptz:
			*p = src[i].(pgtype.Timestamptz)
		default:
			return fmt.Errorf("unsupported scan destination %T", d)
		}
	}
	return nil
}

// scriptTx satisfies pgx.Tx by delegating statements back to the
// scriptDB, so transactional writes land in the same log.
type scriptTx struct {
	db *scriptDB
}

func (t scriptTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t scriptTx) Commit(context.Context) error          { return nil }
func (t scriptTx) Rollback(context.Context) error        { return nil }

func (t scriptTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t scriptTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t scriptTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }

func (t scriptTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t scriptTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t scriptTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t scriptTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t scriptTx) Conn() *pgx.Conn { return nil }

type scriptPool struct {
	db *scriptDB
}

func (p scriptPool) Begin(context.Context) (pgx.Tx, error) {
	return scriptTx{db: p.db}, nil
}

type nullFiles struct{}

func (nullFiles) WriteRecipeImage(_ context.Context, recipeID int64, suffix string, _ []byte) (string, error) {
	return fmt.Sprintf("/files/recipes/%d.%s", recipeID, suffix), nil
}

func (nullFiles) Delete(context.Context, string) error { return nil }

func (nullFiles) FileURL(urlPath string) string { return "http://files.test" + urlPath }

func scriptEnv(s *scriptDB) *env.Env {
	return &env.Env{
		Logger:    log.NullLogger(),
		Config:    &config.Config{},
		FileStore: nullFiles{},
		Database: &database.Database{
			Queries:       database.New(s),
			Pool:          scriptPool{db: s},
			Favorites:     membership.NewLedger(s, membership.Favorites),
			Cart:          membership.NewLedger(s, membership.ShoppingCart),
			Subscriptions: membership.NewLedger(s, membership.Subscriptions),
		},
	}
}

func authedJSONRequest(e *env.Env, method, target, body string, userID int64, recipeID string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	if recipeID != "" {
		rctx.URLParams.Add("recipeID", recipeID)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = token.UserIDWithCtx(ctx, userID)
	ctx = env.WithCtx(ctx, e)
	return r.WithContext(ctx)
}

func statementIndex(stmts []string, substr string) int {
	for i, stmt := range stmts {
		if strings.Contains(stmt, substr) {
			return i
		}
	}
	return -1
}

// A patch that carries ingredient or tag lines replaces the stored set
// wholesale: the old rows are deleted before the new ones are inserted,
// all inside the update transaction.
func TestHandleUpdateRecipeReplacesLineSets(t *testing.T) {
	s := newScriptDB(t)
	e := scriptEnv(s)

	body := `{"name":"Rye bread","text":"Bake it darker.","cooking_time":60,` +
		`"tags":[1],"ingredients":[{"id":7,"amount":50}]}`
	rec := httptest.NewRecorder()
	HandleUpdateRecipe(rec, authedJSONRequest(e, "PATCH", "/api/recipes/42", body, 10, "42"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	wantOrder := []string{
		"DELETE FROM recipe_tags",
		"INSERT INTO recipe_tags",
		"DELETE FROM recipe_ingredients",
		"INSERT INTO recipe_ingredients",
	}
	prev := -1
	for _, stmt := range wantOrder {
		idx := statementIndex(s.execLog, stmt)
		if idx < 0 {
			t.Fatalf("statement %q never executed, log: %q", stmt, s.execLog)
		}
		if idx < prev {
			t.Errorf("statement %q ran before the delete that clears the old rows, log: %q",
				stmt, s.execLog)
		}
		prev = idx
	}
}

func TestHandleUpdateRecipeNameConflict(t *testing.T) {
	s := newScriptDB(t)
	s.execErr["UPDATE recipes"] = &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "recipes_name_author_id_key",
	}
	e := scriptEnv(s)

	body := `{"name":"Taken name","text":"Bake it.","cooking_time":60,` +
		`"tags":[1],"ingredients":[{"id":7,"amount":50}]}`
	rec := httptest.NewRecorder()
	HandleUpdateRecipe(rec, authedJSONRequest(e, "PATCH", "/api/recipes/42", body, 10, "42"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp apiError.Error
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Code != apiError.RecipeConflict {
		t.Errorf("expected code %q, got %q", apiError.RecipeConflict, resp.Code)
	}
}

func TestHandleCreateRecipeNameConflict(t *testing.T) {
	s := newScriptDB(t)
	s.rowErr["INSERT INTO recipes"] = &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "recipes_name_author_id_key",
	}
	e := scriptEnv(s)

	body := fmt.Sprintf(`{"name":"Bread","text":"Bake it.","cooking_time":90,`+
		`"tags":[1],"ingredients":[{"id":7,"amount":200}],"image":%q}`, pngDataURI())
	rec := httptest.NewRecorder()
	HandleCreateRecipe(rec, authedJSONRequest(e, "POST", "/api/recipes", body, 10, ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp apiError.Error
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Code != apiError.RecipeConflict {
		t.Errorf("expected code %q, got %q", apiError.RecipeConflict, resp.Code)
	}
}
