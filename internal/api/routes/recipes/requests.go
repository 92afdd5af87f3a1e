package recipes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tastebook/backend/internal/form"
	stdjson "github.com/tastebook/backend/internal/json"
	"github.com/tastebook/backend/internal/recipe"
)

// CreateRecipeRequest is the full recipe payload. The image arrives
// either as a base64 data URI (JSON body) or as a multipart file.
type CreateRecipeRequest struct {
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int32                     `json:"cooking_time"`
	Tags        []int64                   `json:"tags"`
	Ingredients []recipe.IngredientAmount `json:"ingredients"`
	Image       string                    `json:"image"`
}

// UpdateRecipeRequest is a partial payload. Nil fields were absent from
// the body and leave the stored value untouched; the ingredient and tag
// sets are replaced wholesale when present.
type UpdateRecipeRequest struct {
	Name        *string                    `json:"name"`
	Text        *string                    `json:"text"`
	CookingTime *int32                     `json:"cooking_time"`
	Tags        *[]int64                   `json:"tags"`
	Ingredients *[]recipe.IngredientAmount `json:"ingredients"`
	Image       *string                    `json:"image"`
}

var errMissingImage = errors.New("image is required")

// decodeCreateRequest reads a create payload from either a JSON or a
// multipart body and returns it alongside the decoded image.
func decodeCreateRequest(r *http.Request) (CreateRecipeRequest, *form.File, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return decodeMultipartRequest(r)
	}

	var req CreateRecipeRequest
	if err := stdjson.DecodeRequest(r, &req); err != nil {
		return CreateRecipeRequest{}, nil, fmt.Errorf("decoding recipe payload: %w", err)
	}
	if req.Image == "" {
		return CreateRecipeRequest{}, nil, errMissingImage
	}
	image, err := form.DecodeDataURI(req.Image)
	if err != nil {
		return CreateRecipeRequest{}, nil, err
	}
	return req, image, nil
}

func decodeMultipartRequest(r *http.Request) (CreateRecipeRequest, *form.File, error) {
	if err := r.ParseMultipartForm(form.MaximumUploadSize); err != nil {
		return CreateRecipeRequest{}, nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	req := CreateRecipeRequest{
		Name: r.FormValue("name"),
		Text: r.FormValue("text"),
	}
	if v := r.FormValue("cooking_time"); v != "" {
		ct, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return CreateRecipeRequest{}, nil, fmt.Errorf("parsing cooking_time: %w", err)
		}
		req.CookingTime = int32(ct)
	}
	for _, v := range r.Form["tags"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return CreateRecipeRequest{}, nil, fmt.Errorf("parsing tag id: %w", err)
		}
		req.Tags = append(req.Tags, id)
	}
	if v := r.FormValue("ingredients"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Ingredients); err != nil {
			return CreateRecipeRequest{}, nil, fmt.Errorf("parsing ingredients: %w", err)
		}
	}

	image, err := form.ReadImage(r, "image")
	if errors.Is(err, form.ErrNoImageUploaded) {
		return CreateRecipeRequest{}, nil, errMissingImage
	} else if err != nil {
		return CreateRecipeRequest{}, nil, err
	}
	return req, image, nil
}

// decodeUpdateRequest reads a partial JSON payload and decodes the new
// image when one was supplied.
func decodeUpdateRequest(r *http.Request) (UpdateRecipeRequest, *form.File, error) {
	var req UpdateRecipeRequest
	if err := stdjson.DecodeRequest(r, &req); err != nil {
		return UpdateRecipeRequest{}, nil, fmt.Errorf("decoding recipe payload: %w", err)
	}

	var image *form.File
	if req.Image != nil {
		var err error
		image, err = form.DecodeDataURI(*req.Image)
		if err != nil {
			return UpdateRecipeRequest{}, nil, err
		}
	}
	return req, image, nil
}
