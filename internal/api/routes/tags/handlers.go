// Package tags contains handlers for the tags endpoint.
package tags

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/requestid"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/json"
)

type TagResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
	Slug  string  `json:"slug"`
}

func NewTagResponse(t database.Tag) TagResponse {
	res := TagResponse{
		ID:   t.ID,
		Name: t.Name,
		Slug: t.Slug,
	}
	if t.Color.Valid {
		color := t.Color.String
		res.Color = &color
	}
	return res
}

// HandleListTags godoc
//
//	@Summary	List tags.
//	@Tags		Tags
//	@Param		name	query		string	false	"Case-insensitive name prefix"
//	@Param		slug	query		string	false	"Case-insensitive slug prefix"
//	@Success	200		{array}		TagResponse
//	@Failure	500		{object}	apiError.Error
//	@Router		/api/tags [GET]
func HandleListTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	env.Logger.DebugContext(ctx, "listing tags")
	rows, err := env.Database.ListTags(ctx, database.ListTagsParams{
		Name: r.URL.Query().Get("name"),
		Slug: r.URL.Query().Get("slug"),
	})
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to list tags", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	res := make([]TagResponse, 0, len(rows))
	for _, t := range rows {
		res = append(res, NewTagResponse(t))
	}
	if err := json.Encode(w, http.StatusOK, res); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleGetTag godoc
//
//	@Summary	Get a tag.
//	@Tags		Tags
//	@Param		tagID	path		string	true	"Tag ID"
//	@Success	200		{object}	TagResponse
//	@Failure	404		{object}	apiError.Error
//	@Router		/api/tags/{tagID} [GET]
func HandleGetTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	tagID, err := strconv.ParseInt(chi.URLParam(r, "tagID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer tag id", requestID)
		return
	}

	tag, err := env.Database.GetTag(ctx, tagID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.TagNotFound, "tag does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get tag", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, NewTagResponse(tag)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}
