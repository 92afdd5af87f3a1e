// Package env provides a structure for managing application-wide dependencies.
package env

import (
	"context"
	"log/slog"

	"github.com/tastebook/backend/internal/config"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/filestore"
	"github.com/tastebook/backend/internal/log"
)

type Env struct {
	Logger    *slog.Logger
	Database  *database.Database
	FileStore filestore.FileStore
	Config    *config.Config
}

type envKeyType struct{}

var envKey envKeyType

// WithCtx injects the environment into a context.
func WithCtx(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envKey, e)
}

// EnvFromCtx extracts the environment from a context. A null
// environment is returned if none was injected.
func EnvFromCtx(ctx context.Context) *Env {
	if e, ok := ctx.Value(envKey).(*Env); ok {
		return e
	}
	return Null()
}

func Null() *Env {
	return &Env{
		Logger: log.NullLogger(),
		Config: &config.Config{},
	}
}
