// Package setup is responsible for setting up components.
package setup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tastebook/backend/internal/argon2id"
	"github.com/tastebook/backend/internal/config"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/filestore"
	"github.com/tastebook/backend/internal/role"
)

// Database creates the connection pool and applies the schema when it
// is not present.
func Database(ctx context.Context, conf *config.Config) (*database.Database, error) {
	pool, err := pgxpool.New(ctx, conf.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	db := database.NewDatabase(pool)
	if err := database.EnsureSchema(db, ctx); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return db, nil
}

// FileStore builds the configured blob store backend: local disk for
// dev, an S3-compatible object store for prod.
func FileStore(ctx context.Context, conf *config.Config) (filestore.FileStore, error) {
	switch conf.FileStore.Backend {
	case config.FileStoreS3:
		s3 := conf.FileStore.S3
		client, err := minio.New(s3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
			Secure: s3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating object store client: %w", err)
		}
		store := filestore.NewS3(client, s3.Bucket, conf.FileStore.URLPrefix, s3.PublicURL)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensuring bucket: %w", err)
		}
		return store, nil

	case config.FileStoreDisk:
		base, err := filepath.Abs(conf.FileStore.Volume)
		if err != nil {
			return nil, fmt.Errorf("resolving file store volume: %w", err)
		}
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("creating file store volume: %w", err)
		}
		return filestore.NewDisk(base, conf.FileStore.URLPrefix, conf.HostOrigin), nil

	default:
		return nil, fmt.Errorf("unknown file store backend %q", conf.FileStore.Backend)
	}
}

// Admin creates the configured admin user if no user holds that email
// yet. Skipped entirely when no admin is configured.
func Admin(ctx context.Context, e *env.Env) error {
	admin := e.Config.Admin
	if admin.Email == "" || admin.Password == "" {
		e.Logger.InfoContext(ctx, "admin not configured, skipping admin setup")
		return nil
	}

	if _, err := mail.ParseAddress(admin.Email); err != nil {
		return fmt.Errorf("parsing admin email: %w", err)
	}

	if _, err := e.Database.GetUserByEmail(ctx, admin.Email); err == nil {
		e.Logger.InfoContext(ctx, "admin already setup, skipping")
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("checking for admin: %w", err)
	}

	hash, err := argon2id.EncodeHash(string(admin.Password), argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	username := admin.Username
	if username == "" {
		username = "admin"
	}
	_, err = e.Database.CreateUser(ctx, database.CreateUserParams{
		Email:        admin.Email,
		Username:     username,
		FirstName:    admin.FirstName,
		LastName:     admin.LastName,
		PasswordHash: hash,
		Role:         role.RoleAdmin.String(),
	})
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	e.Logger.InfoContext(ctx, "successfully setup admin")
	return nil
}

// Ingredients loads the ingredient catalog from a two-column CSV
// (name, measurement unit). The load is an idempotent get-or-create, so
// restarting never duplicates rows.
func Ingredients(ctx context.Context, e *env.Env) error {
	path := e.Config.IngredientsCSV
	if path == "" {
		e.Logger.InfoContext(ctx, "ingredients csv not configured, skipping catalog load")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ingredients csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	var loaded int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("reading ingredients csv: %w", err)
		}
		if record[0] == "" || record[1] == "" {
			continue
		}

		if err := e.Database.UpsertIngredient(ctx, database.UpsertIngredientParams{
			Name:            record[0],
			MeasurementUnit: record[1],
		}); err != nil {
			return fmt.Errorf("loading ingredient %q: %w", record[0], err)
		}
		loaded++
	}

	e.Logger.InfoContext(ctx, "loaded ingredient catalog", slog.Int("rows", loaded))
	return nil
}
