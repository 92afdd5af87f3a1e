package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const directoryPerms = 0o755

// Disk stores blobs under a base directory on the local filesystem.
type Disk struct {
	baseDir   string
	urlPrefix string
	host      string
}

var _ FileStore = (*Disk)(nil)

func NewDisk(baseDir, urlPrefix, host string) *Disk {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &Disk{
		baseDir:   baseDir,
		urlPrefix: urlPrefix,
		host:      strings.TrimRight(host, "/"),
	}
}

// BaseDirectory returns the directory blobs are written under, for
// mounting a static file handler.
func (d *Disk) BaseDirectory() string {
	return d.baseDir
}

// URLPrefix returns the path prefix stored URL paths start with.
func (d *Disk) URLPrefix() string {
	return d.urlPrefix
}

func (d *Disk) WriteRecipeImage(_ context.Context, recipeID int64, suffix string, data []byte) (string, error) {
	rel := recipeImagePath(recipeID, suffix)
	fullpath := filepath.Join(d.baseDir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(fullpath), directoryPerms); err != nil {
		return "", fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(fullpath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return joinURL(d.urlPrefix, rel), nil
}

func (d *Disk) Delete(_ context.Context, urlPath string) error {
	rel, err := trimURLPrefix(urlPath, d.urlPrefix)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(d.baseDir, filepath.FromSlash(rel))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

func (d *Disk) FileURL(urlPath string) string {
	if urlPath == "" {
		return ""
	}
	return d.host + "/" + strings.TrimLeft(urlPath, "/")
}
