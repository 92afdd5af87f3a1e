// Package filestore stores recipe image blobs outside the core,
// addressed by URL path. Backends: local disk for dev, an S3-compatible
// object store for prod.
package filestore

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
)

const recipesDir = "recipes"

const DefaultURLPrefix = "/files"

type FileStore interface {
	// WriteRecipeImage stores the image bytes for a recipe and returns
	// the URL path under which they are served.
	WriteRecipeImage(ctx context.Context, recipeID int64, suffix string, data []byte) (urlPath string, err error)

	// Delete removes the blob behind a URL path.
	Delete(ctx context.Context, urlPath string) error

	// FileURL resolves a stored URL path to a public URL.
	FileURL(urlPath string) string
}

func recipeImagePath(recipeID int64, suffix string) string {
	return path.Join(recipesDir, strconv.FormatInt(recipeID, 10)+suffix)
}

func joinURL(prefix, p string) string {
	return "/" + strings.Trim(prefix, "/") + "/" + strings.TrimLeft(p, "/")
}

func trimURLPrefix(urlPath, prefix string) (string, error) {
	trimmed := strings.TrimPrefix(strings.Trim(urlPath, "/"), strings.Trim(prefix, "/"))
	trimmed = strings.TrimLeft(trimmed, "/")
	if trimmed == "" || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("invalid url path %q", urlPath)
	}
	return trimmed, nil
}
