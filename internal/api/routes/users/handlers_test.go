package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/token"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/log"
)

func validRequest() CreateUserRequest {
	return CreateUserRequest{
		Email:     "chef@example.com",
		Username:  "chef",
		FirstName: "Julia",
		LastName:  "Child",
		Password:  "c0rrect-horse-battery-staple!",
	}
}

func TestValidateCreateUser(t *testing.T) {
	if fields := validateCreateUser(validRequest()); fields != nil {
		t.Errorf("expected nil field errors, got %v", fields)
	}

	tests := []struct {
		name      string
		mutate    func(*CreateUserRequest)
		wantField string
	}{
		{
			name:      "missing email",
			mutate:    func(r *CreateUserRequest) { r.Email = "" },
			wantField: "email",
		},
		{
			name:      "malformed email",
			mutate:    func(r *CreateUserRequest) { r.Email = "not-an-email" },
			wantField: "email",
		},
		{
			name:      "missing username",
			mutate:    func(r *CreateUserRequest) { r.Username = "" },
			wantField: "username",
		},
		{
			name:      "missing password",
			mutate:    func(r *CreateUserRequest) { r.Password = "" },
			wantField: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			fields := validateCreateUser(req)
			if fields == nil {
				t.Fatal("expected field errors, got nil")
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Errorf("expected error on field %q, got %v", tt.wantField, fields)
			}
		})
	}
}

func TestParseRecipesLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int32
	}{
		{query: "", want: defaultRecipesLimit},
		{query: "recipes_limit=3", want: 3},
		{query: "recipes_limit=0", want: defaultRecipesLimit},
		{query: "recipes_limit=-1", want: defaultRecipesLimit},
		{query: "recipes_limit=99999", want: defaultRecipesLimit},
		{query: "recipes_limit=abc", want: defaultRecipesLimit},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/users/subscriptions?"+tt.query, nil)
		if got := parseRecipesLimit(r); got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.want, got)
		}
	}
}

func TestHandleSubscribeSelf(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/users/7/subscribe", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("userID", "7")
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = token.UserIDWithCtx(ctx, 7)
	// The database is left nil: subscribing to yourself must be
	// rejected before any lookup happens.
	ctx = env.WithCtx(ctx, &env.Env{Logger: log.NullLogger()})

	rec := httptest.NewRecorder()
	HandleSubscribe(rec, r.WithContext(ctx))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp apiError.Error
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Code != apiError.SelfSubscription {
		t.Errorf("expected code %q, got %q", apiError.SelfSubscription, resp.Code)
	}
}
