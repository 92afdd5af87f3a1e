package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*http.Request)
		wantToken string
		wantOK    bool
	}{
		{
			name: "bearer header",
			configure: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer abc123")
			},
			wantToken: "abc123",
			wantOK:    true,
		},
		{
			name: "cookie fallback",
			configure: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access", Value: "cookie-token"})
			},
			wantToken: "cookie-token",
			wantOK:    true,
		},
		{
			name: "header wins over cookie",
			configure: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer header-token")
				r.AddCookie(&http.Cookie{Name: "access", Value: "cookie-token"})
			},
			wantToken: "header-token",
			wantOK:    true,
		},
		{
			name: "malformed scheme falls back to cookie",
			configure: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic abc123")
			},
			wantOK: false,
		},
		{
			name:      "nothing present",
			configure: func(r *http.Request) {},
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			tt.configure(r)

			token, ok := FromRequest(r, AccessTokenName(false))
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && token != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, token)
			}
		})
	}
}

func TestAccessTokenName(t *testing.T) {
	if name := AccessTokenName(true); name != "__Host-Http-access" {
		t.Errorf("unexpected production cookie name %q", name)
	}
	if name := AccessTokenName(false); name != "access" {
		t.Errorf("unexpected dev cookie name %q", name)
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()

	if _, err := UserIDFromCtx(ctx); !errors.Is(err, ErrNoUserID) {
		t.Errorf("expected ErrNoUserID, got %v", err)
	}

	ctx = UserIDWithCtx(ctx, 42)
	id, err := UserIDFromCtx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("expected user id 42, got %d", id)
	}
}

func TestViewerID(t *testing.T) {
	if id := ViewerID(context.Background()); id != 0 {
		t.Errorf("expected anonymous viewer id 0, got %d", id)
	}
	if id := ViewerID(UserIDWithCtx(context.Background(), 7)); id != 7 {
		t.Errorf("expected viewer id 7, got %d", id)
	}
}
