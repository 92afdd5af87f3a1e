// Package middleware contains middleware functions for the API
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/httplog/v3"
	"github.com/golang-jwt/jwt/v5"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/requestid"
	"github.com/tastebook/backend/internal/api/token"
	"github.com/tastebook/backend/internal/env"
	tbJwt "github.com/tastebook/backend/internal/jwt"
	"github.com/tastebook/backend/internal/log"
	"github.com/tastebook/backend/internal/role"

	"github.com/oklog/ulid/v2"
)

// InjectEnv injects an environment struct into the request context.
func InjectEnv(environment *env.Env) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(env.WithCtx(r.Context(), environment)))
		})
	}
}

func LogRequest(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		LogExtraAttrs: func(r *http.Request, reqBody string, respStatus int) []slog.Attr {
			if id := requestid.ExtractRequestID(r.Context()); id != 0 {
				return []slog.Attr{slog.Uint64("log_id", id)}
			}
			return []slog.Attr{slog.String("log_id", "N/A")}
		},
	})
}

// AddRequestID adds a request ID to the request context.
func AddRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := ulid.Now()
		r = r.WithContext(log.AppendCtx(r.Context(), slog.Uint64("log_id", requestID)))
		r = r.WithContext(requestid.InjectRequestID(r.Context(), requestID))
		next.ServeHTTP(w, r)
	})
}

// AddCors adds the necessary CORS headers to the response.
func AddCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.EnvFromCtx(r.Context())
		origin := r.Header.Get("Origin")
		baseURL := e.Config.HostOrigin

		// In dev mode, reflect the incoming origin.
		allowedOrigin := baseURL
		if !e.Config.Production() && origin != "" {
			allowedOrigin = origin
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthorizeRequest creates a middleware that validates access tokens
// and checks user roles. Requests without a valid token are rejected.
func AuthorizeRequest(requiredRole role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			e := env.EnvFromCtx(r.Context())
			requestID := strconv.FormatUint(requestid.ExtractRequestID(r.Context()), 10)

			raw, ok := token.FromRequest(r, token.AccessTokenName(e.Config.Production()))
			if !ok {
				e.Logger.ErrorContext(r.Context(), "unable to get access token")
				_ = apiError.EncodeError(w, apiError.InvalidAccessToken, "invalid access token", requestID)
				return
			}

			r, ok = authenticate(w, r, raw, requestID)
			if !ok {
				return
			}

			userRole, err := roleFromCtxToken(r)
			if err != nil {
				e.Logger.ErrorContext(r.Context(), "failed to extract role", slog.Any("error", err))
				_ = apiError.EncodeInternalError(w, requestID)
				return
			}
			if userRole < requiredRole {
				_ = apiError.EncodeError(w, apiError.InsufficientPermissions,
					"insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth attaches the user identity when a token is present and
// lets anonymous requests through. A token that is present but invalid
// is still rejected.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.EnvFromCtx(r.Context())
		requestID := strconv.FormatUint(requestid.ExtractRequestID(r.Context()), 10)

		raw, ok := token.FromRequest(r, token.AccessTokenName(e.Config.Production()))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		r, ok = authenticate(w, r, raw, requestID)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKeyType struct{}

var claimsKey claimsKeyType

// authenticate validates the raw token and stores the user id and
// claims in the request context. On failure it writes the error
// response and returns ok=false.
func authenticate(w http.ResponseWriter, r *http.Request, raw, requestID string) (*http.Request, bool) {
	ctx := r.Context()
	e := env.EnvFromCtx(ctx)

	secret, err := e.Config.AppSecret.Resolve()
	if err != nil {
		e.Logger.ErrorContext(ctx, "app secret not configured", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return r, false
	}
	secretVersion := e.Config.AppSecret.Version
	if secretVersion == "" {
		secretVersion = tbJwt.DefaultKID
	}

	accessJwt, err := tbJwt.ValidateJWT(raw, secretVersion, secret)
	if errors.Is(err, jwt.ErrTokenExpired) {
		e.Logger.ErrorContext(ctx, "access token expired", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.ExpiredAccessToken, "access token expired", requestID)
		return r, false
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "invalid access token", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.InvalidAccessToken, "invalid access token", requestID)
		return r, false
	}

	sub, err := accessJwt.Claims.GetSubject()
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract subject from jwt", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return r, false
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to parse user id", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return r, false
	}

	r = r.WithContext(log.AppendCtx(r.Context(), slog.Int64("user-id", userID)))
	r = r.WithContext(token.UserIDWithCtx(r.Context(), userID))
	r = r.WithContext(claimsWithCtx(r.Context(), accessJwt.Claims))
	return r, true
}

func claimsWithCtx(ctx context.Context, claims jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func roleFromCtxToken(r *http.Request) (role.Role, error) {
	claims, ok := r.Context().Value(claimsKey).(jwt.MapClaims)
	if !ok {
		return role.RoleUnknown, errors.New("no claims in context")
	}
	roleClaim, ok := claims["role"].(string)
	if !ok {
		return role.RoleUnknown, errors.New("no role claim")
	}
	return role.ToRole(roleClaim), nil
}
