// Package config contains utilities for loading configs
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/tastebook/backend/internal/password"
)

const (
	defaultConfigPath = "/data/tastebook.yaml"
	appSecretBytes    = 32
)

const (
	EnvProd = "PROD"
	EnvDev  = "DEV"
)

const (
	FileStoreDisk = "disk"
	FileStoreS3   = "s3"
)

type AdminPassword string

func (a AdminPassword) Validate() error {
	return password.ValidatePassword(string(a))
}

type AppSecret struct {
	Value   string `yaml:"value"`
	Path    string `yaml:"path" validate:"omitempty,filepath"`
	Version string `yaml:"version"`
}

// Resolve returns the secret bytes, reading Path if Value is unset.
func (a AppSecret) Resolve() ([]byte, error) {
	if a.Value != "" {
		return []byte(a.Value), nil
	}
	if a.Path == "" {
		return nil, errors.New("app secret not configured")
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("reading app secret: %w", err)
	}
	return data, nil
}

type Database struct {
	Port     uint16 `yaml:"port"`
	Host     string `yaml:"host" validate:"omitempty,hostname_rfc1123"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// URL renders a postgres connection string for pgxpool.
func (d Database) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url" validate:"omitempty,url"`
}

type FileStore struct {
	Backend   string `yaml:"backend" validate:"omitempty,oneof=disk s3"`
	Volume    string `yaml:"volume"`
	URLPrefix string `yaml:"url_prefix"`
	S3        S3     `yaml:"s3"`
}

type Admin struct {
	Email     string        `yaml:"email" validate:"omitempty,email"`
	Username  string        `yaml:"username"`
	FirstName string        `yaml:"first_name"`
	LastName  string        `yaml:"last_name"`
	Password  AdminPassword `yaml:"password"`
}

type Config struct {
	AppSecret      AppSecret `yaml:"app_secret"`
	Admin          Admin     `yaml:"admin"`
	FileStore      FileStore `yaml:"filestore"`
	Database       Database  `yaml:"database"`
	HostOrigin     string    `yaml:"host_origin" validate:"omitempty,url"`
	Env            string    `yaml:"env" validate:"omitempty,oneof=DEV PROD"`
	IngredientsCSV string    `yaml:"ingredients_csv" validate:"omitempty,filepath"`
}

func (c *Config) Production() bool {
	return c.Env == EnvProd
}

// LoadConfig reads the YAML config, applies environment overrides, and
// validates the result. The config file path comes from
// TASTEBOOK_CONFIG, defaulting to /data/tastebook.yaml. A missing file
// is not an error; everything can come from the environment.
func LoadConfig() (*Config, error) {
	path := os.Getenv("TASTEBOOK_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	conf := &Config{
		Env:      EnvDev,
		Database: Database{Port: 5432},
		FileStore: FileStore{
			Backend:   FileStoreDisk,
			Volume:    "/data/files",
			URLPrefix: "/files",
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// fall through to environment config
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(conf)

	if err := validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyEnvOverrides(conf *Config) {
	if v := os.Getenv("APP_SECRET"); v != "" {
		conf.AppSecret.Value = v
	}
	if v := os.Getenv("APP_SECRET_VERSION"); v != "" {
		conf.AppSecret.Version = v
	}
	if v := os.Getenv("ENV"); v != "" {
		conf.Env = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		conf.HostOrigin = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		conf.Database.Host = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		conf.Database.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		conf.Database.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		conf.Database.Password = v
	}
}

func validate(conf *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(conf); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	secret, err := conf.AppSecret.Resolve()
	if err != nil {
		return err
	}
	if len(secret) < appSecretBytes {
		return fmt.Errorf("app secret should be at least %d bytes", appSecretBytes)
	}

	if conf.Admin.Email != "" {
		if err := conf.Admin.Password.Validate(); err != nil {
			return fmt.Errorf("validating admin password: %w", err)
		}
	}

	return nil
}
