// Package token contains utilities for http access tokens.
package token

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrNoUserID = errors.New("no user id in context")

type userIDKeyType struct{}

var userIDKey userIDKeyType

// AccessTokenName returns the cookie name carrying the access token.
func AccessTokenName(production bool) string {
	if production {
		return "__Host-Http-access"
	}
	return "access"
}

// FromRequest extracts the raw access token from the Authorization
// header (Bearer scheme) or, failing that, from the access cookie.
func FromRequest(r *http.Request, cookieName string) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if raw, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return raw, true
		}
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

// UserIDWithCtx stores the authenticated user id in the context.
func UserIDWithCtx(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromCtx returns the authenticated user id, or ErrNoUserID if the
// request is anonymous.
func UserIDFromCtx(ctx context.Context) (int64, error) {
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		return v, nil
	}
	return 0, ErrNoUserID
}

// ViewerID returns the authenticated user id or 0 for anonymous
// requests. Read projections use it as the viewer context.
func ViewerID(ctx context.Context) int64 {
	id, err := UserIDFromCtx(ctx)
	if err != nil {
		return 0
	}
	return id
}
