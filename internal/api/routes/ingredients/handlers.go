// Package ingredients contains handlers for the ingredients endpoint.
package ingredients

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/requestid"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/json"
)

type IngredientResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func NewIngredientResponse(i database.Ingredient) IngredientResponse {
	return IngredientResponse{
		ID:              i.ID,
		Name:            i.Name,
		MeasurementUnit: i.MeasurementUnit,
	}
}

// HandleListIngredients godoc
//
//	@Summary	List ingredients.
//	@Tags		Ingredients
//	@Param		name	query		string	false	"Case-insensitive name prefix"
//	@Success	200		{array}		IngredientResponse
//	@Failure	500		{object}	apiError.Error
//	@Router		/api/ingredients [GET]
func HandleListIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	env.Logger.DebugContext(ctx, "listing ingredients")
	rows, err := env.Database.ListIngredients(ctx, r.URL.Query().Get("name"))
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to list ingredients", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	res := make([]IngredientResponse, 0, len(rows))
	for _, i := range rows {
		res = append(res, NewIngredientResponse(i))
	}
	if err := json.Encode(w, http.StatusOK, res); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleGetIngredient godoc
//
//	@Summary	Get an ingredient.
//	@Tags		Ingredients
//	@Param		ingredientID	path		string	true	"Ingredient ID"
//	@Success	200				{object}	IngredientResponse
//	@Failure	404				{object}	apiError.Error
//	@Router		/api/ingredients/{ingredientID} [GET]
func HandleGetIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	ingredientID, err := strconv.ParseInt(chi.URLParam(r, "ingredientID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer ingredient id", requestID)
		return
	}

	ingredient, err := env.Database.GetIngredient(ctx, ingredientID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.IngredientNotFound, "ingredient does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get ingredient", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, NewIngredientResponse(ingredient)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

type UpdateIngredientRequest struct {
	Name            *string `json:"name"`
	MeasurementUnit *string `json:"measurement_unit"`
}

// HandleUpdateIngredient godoc
//
//	@Summary		Correct an ingredient.
//	@Description	Admin-only correction of catalog reference data.
//	@Description	Ingredients are otherwise immutable once referenced by a recipe.
//	@Tags			Ingredients
//	@Param			ingredientID	path		string	true	"Ingredient ID"
//	@Success		200				{object}	IngredientResponse
//	@Failure		404				{object}	apiError.Error
//	@Failure		409				{object}	apiError.Error	"(name, unit) already taken"
//	@Security		BearerAuth
//	@Router			/api/ingredients/{ingredientID} [PATCH]
func HandleUpdateIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	ingredientID, err := strconv.ParseInt(chi.URLParam(r, "ingredientID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer ingredient id", requestID)
		return
	}

	var req UpdateIngredientRequest
	if err := json.DecodeRequest(r, &req); err != nil {
		env.Logger.ErrorContext(ctx, "failed to decode request", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "bad request", requestID)
		return
	}

	params := database.UpdateIngredientParams{ID: ingredientID}
	if req.Name != nil {
		params.Name = pgtype.Text{String: *req.Name, Valid: true}
	}
	if req.MeasurementUnit != nil {
		params.MeasurementUnit = pgtype.Text{String: *req.MeasurementUnit, Valid: true}
	}

	ingredient, err := env.Database.UpdateIngredient(ctx, params)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.IngredientNotFound, "ingredient does not exist", requestID)
		return
	} else if database.IsUniqueViolation(err) {
		_ = apiError.EncodeError(w, apiError.IngredientConflict,
			"an ingredient with this name and unit already exists", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to update ingredient", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, NewIngredientResponse(ingredient)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}
