// Package recipes contains handlers for the recipe catalog, the
// per-user favorite and shopping cart ledgers, and the shopping list
// download.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/requestid"
	"github.com/tastebook/backend/internal/api/token"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/form"
	"github.com/tastebook/backend/internal/json"
	"github.com/tastebook/backend/internal/membership"
	"github.com/tastebook/backend/internal/pagination"
	"github.com/tastebook/backend/internal/recipe"
	"github.com/tastebook/backend/internal/shoppinglist"
)

func newProjector(e *env.Env) recipe.Projector {
	return recipe.Projector{
		Store:         e.Database,
		Favorites:     e.Database.Favorites,
		Cart:          e.Database.Cart,
		Subscriptions: e.Database.Subscriptions,
		Files:         e.FileStore,
	}
}

// validateDraft runs the relation validator against the catalog: it
// resolves which referenced ingredient ids exist, validates the draft,
// and additionally checks that every referenced tag exists. A nil
// return means the draft is admissible.
func validateDraft(ctx context.Context, db *database.Database, d recipe.Draft) (recipe.FieldErrors, error) {
	ids := make([]int64, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		ids = append(ids, ing.ID)
	}
	existingIDs, err := db.ExistingIngredientIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving ingredient ids: %w", err)
	}
	existing := make(map[int64]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	fields := recipe.Validate(d, existing)
	if fields == nil {
		fields = recipe.FieldErrors{}
	}

	if _, flagged := fields["tags"]; !flagged && len(d.TagIDs) > 0 {
		count, err := db.CountTagsByIDs(ctx, d.TagIDs)
		if err != nil {
			return nil, fmt.Errorf("resolving tag ids: %w", err)
		}
		if count != int64(len(d.TagIDs)) {
			fields["tags"] = "one or more tags do not exist"
		}
	}

	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// HandleListRecipes godoc
//
//	@Summary	List recipes, newest first.
//	@Tags		Recipes
//	@Param		page				query		int		false	"Page number"
//	@Param		limit				query		int		false	"Page size"
//	@Param		author				query		int		false	"Filter by author id"
//	@Param		tags				query		string	false	"Filter by tag slug, repeatable"
//	@Param		is_favorited		query		int		false	"Only the viewer's favorites"
//	@Param		is_in_shopping_cart	query		int		false	"Only the viewer's cart"
//	@Success	200					{object}	pagination.Page[recipe.Projection]
//	@Failure	500					{object}	apiError.Error
//	@Router		/api/recipes [GET]
func HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	viewerID := token.ViewerID(ctx)
	params := pagination.FromQuery(r.URL.Query())

	filters := database.ListRecipesParams{
		TagSlugs: r.URL.Query()["tags"],
		Limit:    params.Limit,
		Offset:   params.Offset(),
	}
	if v := r.URL.Query().Get("author"); v != "" {
		authorID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer author id", requestID)
			return
		}
		filters.AuthorID = pgtype.Int8{Int64: authorID, Valid: true}
	}
	// Viewer-relative filters are meaningless for anonymous requests
	// and are ignored there.
	if viewerID != 0 {
		if r.URL.Query().Get("is_favorited") == "1" {
			filters.FavoritedBy = pgtype.Int8{Int64: viewerID, Valid: true}
		}
		if r.URL.Query().Get("is_in_shopping_cart") == "1" {
			filters.InCartOf = pgtype.Int8{Int64: viewerID, Valid: true}
		}
	}

	rows, err := env.Database.ListRecipes(ctx, filters)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to list recipes", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	count, err := env.Database.CountRecipes(ctx, filters)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to count recipes", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	projector := newProjector(env)
	results := make([]recipe.Projection, 0, len(rows))
	for _, rec := range rows {
		proj, err := projector.Project(ctx, rec, viewerID)
		if err != nil {
			env.Logger.ErrorContext(ctx, "failed to project recipe", slog.Any("error", err))
			_ = apiError.EncodeInternalError(w, requestID)
			return
		}
		results = append(results, proj)
	}

	if err := json.Encode(w, http.StatusOK, pagination.NewPage(env.Config.HostOrigin, r, params, count, results)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleGetRecipe godoc
//
//	@Summary	Get a recipe.
//	@Tags		Recipes
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	200			{object}	recipe.Projection
//	@Failure	404			{object}	apiError.Error
//	@Router		/api/recipes/{recipeID} [GET]
func HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	recipeID, err := strconv.ParseInt(chi.URLParam(r, "recipeID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer recipe id", requestID)
		return
	}

	rec, err := env.Database.GetRecipe(ctx, recipeID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	proj, err := newProjector(env).Project(ctx, rec, token.ViewerID(ctx))
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to project recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, proj); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleCreateRecipe godoc
//
//	@Summary	Create a recipe.
//	@Tags		Recipes
//	@Accept		json
//	@Param		request	body		CreateRecipeRequest	true	"Recipe payload"
//	@Success	201		{object}	recipe.Projection
//	@Failure	400		{object}	apiError.Error
//	@Failure	401		{object}	apiError.Error
//	@Router		/api/recipes [POST]
func HandleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	req, image, err := decodeCreateRequest(r)
	if err != nil {
		encodePayloadError(w, err, requestID)
		return
	}

	draft := recipe.Draft{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Ingredients: req.Ingredients,
		TagIDs:      req.Tags,
	}
	fields, err := validateDraft(ctx, env.Database, draft)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to validate recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if fields != nil {
		_ = apiError.EncodeValidationError(w, fields, requestID)
		return
	}

	ingredientIDs, amounts := splitIngredients(req.Ingredients)

	var recipeID int64
	err = env.Database.InTx(ctx, func(q *database.Queries) error {
		id, err := q.CreateRecipe(ctx, database.CreateRecipeParams{
			Name:        req.Name,
			Text:        req.Text,
			AuthorID:    pgtype.Int8{Int64: userID, Valid: true},
			CookingTime: req.CookingTime,
		})
		if err != nil {
			return err
		}
		recipeID = id
		if err := q.InsertRecipeTags(ctx, database.InsertRecipeTagsParams{
			RecipeID: id, TagIDs: req.Tags,
		}); err != nil {
			return err
		}
		return q.InsertRecipeIngredients(ctx, database.InsertRecipeIngredientsParams{
			RecipeID: id, IngredientIDs: ingredientIDs, Amounts: amounts,
		})
	})
	if database.IsUniqueViolation(err) {
		_ = apiError.EncodeError(w, apiError.RecipeConflict,
			"you already have a recipe with this name", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to create recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	// The image key embeds the recipe id, so the blob is written after
	// the row exists. A failed write rolls the recipe back by hand.
	urlPath, err := env.FileStore.WriteRecipeImage(ctx, recipeID, image.Suffix, image.Data)
	if err == nil {
		err = env.Database.UpdateRecipe(ctx, database.UpdateRecipeParams{
			ID:       recipeID,
			ImageUrl: pgtype.Text{String: urlPath, Valid: true},
		})
	}
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to store recipe image", slog.Any("error", err))
		if derr := env.Database.DeleteRecipe(ctx, recipeID); derr != nil {
			env.Logger.ErrorContext(ctx, "failed to roll back recipe", slog.Any("error", derr))
		}
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	rec, err := env.Database.GetRecipe(ctx, recipeID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to reload recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	proj, err := newProjector(env).Project(ctx, rec, userID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to project recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusCreated, proj); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleUpdateRecipe godoc
//
//	@Summary	Partially update an owned recipe.
//	@Tags		Recipes
//	@Accept		json
//	@Param		recipeID	path		string				true	"Recipe ID"
//	@Param		request		body		UpdateRecipeRequest	true	"Partial recipe payload"
//	@Success	200			{object}	recipe.Projection
//	@Failure	400			{object}	apiError.Error
//	@Failure	403			{object}	apiError.Error
//	@Failure	404			{object}	apiError.Error
//	@Router		/api/recipes/{recipeID} [PATCH]
func HandleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	recipeID, err := strconv.ParseInt(chi.URLParam(r, "recipeID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer recipe id", requestID)
		return
	}

	rec, err := env.Database.GetRecipe(ctx, recipeID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if !rec.AuthorID.Valid || rec.AuthorID.Int64 != userID {
		_ = apiError.EncodeError(w, apiError.RecipeNotOwned,
			"only the author may modify a recipe", requestID)
		return
	}

	req, image, err := decodeUpdateRequest(r)
	if err != nil {
		encodePayloadError(w, err, requestID)
		return
	}

	// The merged view of the stored recipe and the patch is validated
	// as a whole, so a partial update can never leave an inadmissible
	// recipe behind.
	draft, err := mergedDraft(ctx, env.Database, rec, req)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to build merged draft", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	fields, err := validateDraft(ctx, env.Database, draft)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to validate recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if fields != nil {
		_ = apiError.EncodeValidationError(w, fields, requestID)
		return
	}

	params := database.UpdateRecipeParams{ID: recipeID}
	if req.Name != nil {
		params.Name = pgtype.Text{String: *req.Name, Valid: true}
	}
	if req.Text != nil {
		params.Text = pgtype.Text{String: *req.Text, Valid: true}
	}
	if req.CookingTime != nil {
		params.CookingTime = pgtype.Int4{Int32: *req.CookingTime, Valid: true}
	}

	oldImageURL := rec.ImageUrl
	if image != nil {
		urlPath, err := env.FileStore.WriteRecipeImage(ctx, recipeID, image.Suffix, image.Data)
		if err != nil {
			env.Logger.ErrorContext(ctx, "failed to store recipe image", slog.Any("error", err))
			_ = apiError.EncodeInternalError(w, requestID)
			return
		}
		params.ImageUrl = pgtype.Text{String: urlPath, Valid: true}
	}

	err = env.Database.InTx(ctx, func(q *database.Queries) error {
		if err := q.UpdateRecipe(ctx, params); err != nil {
			return err
		}
		if req.Tags != nil {
			if err := q.DeleteRecipeTags(ctx, recipeID); err != nil {
				return err
			}
			if err := q.InsertRecipeTags(ctx, database.InsertRecipeTagsParams{
				RecipeID: recipeID, TagIDs: *req.Tags,
			}); err != nil {
				return err
			}
		}
		if req.Ingredients != nil {
			if err := q.DeleteRecipeIngredients(ctx, recipeID); err != nil {
				return err
			}
			ids, amounts := splitIngredients(*req.Ingredients)
			if err := q.InsertRecipeIngredients(ctx, database.InsertRecipeIngredientsParams{
				RecipeID: recipeID, IngredientIDs: ids, Amounts: amounts,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if database.IsUniqueViolation(err) {
		_ = apiError.EncodeError(w, apiError.RecipeConflict,
			"you already have a recipe with this name", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to update recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if image != nil && params.ImageUrl.String != oldImageURL {
		if err := env.FileStore.Delete(ctx, oldImageURL); err != nil {
			env.Logger.WarnContext(ctx, "failed to delete replaced image", slog.Any("error", err))
		}
	}

	rec, err = env.Database.GetRecipe(ctx, recipeID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to reload recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	proj, err := newProjector(env).Project(ctx, rec, userID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to project recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, proj); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleDeleteRecipe godoc
//
//	@Summary	Delete an owned recipe.
//	@Tags		Recipes
//	@Param		recipeID	path	string	true	"Recipe ID"
//	@Success	204
//	@Failure	403	{object}	apiError.Error
//	@Failure	404	{object}	apiError.Error
//	@Router		/api/recipes/{recipeID} [DELETE]
func HandleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	recipeID, err := strconv.ParseInt(chi.URLParam(r, "recipeID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer recipe id", requestID)
		return
	}

	rec, err := env.Database.GetRecipe(ctx, recipeID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if !rec.AuthorID.Valid || rec.AuthorID.Int64 != userID {
		_ = apiError.EncodeError(w, apiError.RecipeNotOwned,
			"only the author may delete a recipe", requestID)
		return
	}

	if err := env.Database.DeleteRecipe(ctx, recipeID); err != nil {
		env.Logger.ErrorContext(ctx, "failed to delete recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if rec.ImageUrl != "" {
		if err := env.FileStore.Delete(ctx, rec.ImageUrl); err != nil {
			env.Logger.WarnContext(ctx, "failed to delete recipe image", slog.Any("error", err))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleFavoriteRecipe godoc
//
//	@Summary	Add a recipe to the viewer's favorites.
//	@Tags		Recipes
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	201			{object}	recipe.Card
//	@Failure	400			{object}	apiError.Error
//	@Failure	404			{object}	apiError.Error
//	@Router		/api/recipes/{recipeID}/favorite [POST]
func HandleFavoriteRecipe(w http.ResponseWriter, r *http.Request) {
	addRecipeMembership(w, r, func(db *database.Database) *membership.Ledger {
		return db.Favorites
	}, apiError.AlreadyFavorited, "recipe is already favorited")
}

// HandleUnfavoriteRecipe godoc
//
//	@Summary	Remove a recipe from the viewer's favorites.
//	@Tags		Recipes
//	@Param		recipeID	path	string	true	"Recipe ID"
//	@Success	204
//	@Failure	400	{object}	apiError.Error
//	@Failure	404	{object}	apiError.Error
//	@Router		/api/recipes/{recipeID}/favorite [DELETE]
func HandleUnfavoriteRecipe(w http.ResponseWriter, r *http.Request) {
	removeRecipeMembership(w, r, func(db *database.Database) *membership.Ledger {
		return db.Favorites
	}, apiError.NotFavorited, "recipe is not favorited")
}

// HandleAddToCart godoc
//
//	@Summary	Add a recipe to the viewer's shopping cart.
//	@Tags		Recipes
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	201			{object}	recipe.Card
//	@Failure	400			{object}	apiError.Error
//	@Failure	404			{object}	apiError.Error
//	@Router		/api/recipes/{recipeID}/shopping_cart [POST]
func HandleAddToCart(w http.ResponseWriter, r *http.Request) {
	addRecipeMembership(w, r, func(db *database.Database) *membership.Ledger {
		return db.Cart
	}, apiError.AlreadyInCart, "recipe is already in the shopping cart")
}

// HandleRemoveFromCart godoc
//
//	@Summary	Remove a recipe from the viewer's shopping cart.
//	@Tags		Recipes
//	@Param		recipeID	path	string	true	"Recipe ID"
//	@Success	204
//	@Failure	400	{object}	apiError.Error
//	@Failure	404	{object}	apiError.Error
//	@Router		/api/recipes/{recipeID}/shopping_cart [DELETE]
func HandleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	removeRecipeMembership(w, r, func(db *database.Database) *membership.Ledger {
		return db.Cart
	}, apiError.NotInCart, "recipe is not in the shopping cart")
}

// HandleDownloadShoppingCart godoc
//
//	@Summary	Download the aggregated shopping list as a text file.
//	@Tags		Recipes
//	@Produce	plain
//	@Success	200	{string}	string
//	@Failure	400	{object}	apiError.Error
//	@Router		/api/recipes/download_shopping_cart [GET]
func HandleDownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	lines, err := shoppinglist.Build(ctx, env.Database, userID)
	if errors.Is(err, shoppinglist.ErrEmptyCart) {
		_ = apiError.EncodeError(w, apiError.EmptyCart, "shopping cart is empty", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to build shopping list", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", shoppinglist.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(shoppinglist.Render(lines))); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

func addRecipeMembership(w http.ResponseWriter, r *http.Request,
	pick func(*database.Database) *membership.Ledger,
	conflict apiError.ErrorCode, conflictMsg string,
) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	recipeID, err := strconv.ParseInt(chi.URLParam(r, "recipeID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer recipe id", requestID)
		return
	}

	card, err := env.Database.GetRecipeCard(ctx, recipeID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	err = pick(env.Database).Add(ctx, userID, recipeID)
	if errors.Is(err, membership.ErrAlreadyExists) {
		_ = apiError.EncodeError(w, conflict, conflictMsg, requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to add membership", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusCreated, recipe.NewCard(card, env.FileStore)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

func removeRecipeMembership(w http.ResponseWriter, r *http.Request,
	pick func(*database.Database) *membership.Ledger,
	missing apiError.ErrorCode, missingMsg string,
) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	recipeID, err := strconv.ParseInt(chi.URLParam(r, "recipeID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer recipe id", requestID)
		return
	}

	exists, err := env.Database.RecipeExists(ctx, recipeID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to check recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if !exists {
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe does not exist", requestID)
		return
	}

	err = pick(env.Database).Remove(ctx, userID, recipeID)
	if errors.Is(err, membership.ErrNotFound) {
		_ = apiError.EncodeError(w, missing, missingMsg, requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to remove membership", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// mergedDraft overlays a patch on the stored recipe. The collections
// come from the patch when present, otherwise from the stored relation
// rows.
func mergedDraft(ctx context.Context, db *database.Database, rec database.Recipe, req UpdateRecipeRequest) (recipe.Draft, error) {
	draft := recipe.Draft{
		Name:        rec.Name,
		Text:        rec.Text,
		CookingTime: rec.CookingTime,
	}
	if req.Name != nil {
		draft.Name = *req.Name
	}
	if req.Text != nil {
		draft.Text = *req.Text
	}
	if req.CookingTime != nil {
		draft.CookingTime = *req.CookingTime
	}

	if req.Ingredients != nil {
		draft.Ingredients = *req.Ingredients
	} else {
		lines, err := db.GetRecipeIngredients(ctx, rec.ID)
		if err != nil {
			return recipe.Draft{}, fmt.Errorf("fetching stored ingredients: %w", err)
		}
		for _, l := range lines {
			draft.Ingredients = append(draft.Ingredients, recipe.IngredientAmount{
				ID: l.IngredientID, Amount: l.Amount,
			})
		}
	}

	if req.Tags != nil {
		draft.TagIDs = *req.Tags
	} else {
		tags, err := db.GetRecipeTags(ctx, rec.ID)
		if err != nil {
			return recipe.Draft{}, fmt.Errorf("fetching stored tags: %w", err)
		}
		for _, t := range tags {
			draft.TagIDs = append(draft.TagIDs, t.ID)
		}
	}
	return draft, nil
}

func splitIngredients(items []recipe.IngredientAmount) ([]int64, []int32) {
	ids := make([]int64, 0, len(items))
	amounts := make([]int32, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		amounts = append(amounts, it.Amount)
	}
	return ids, amounts
}

// encodePayloadError maps body decoding failures to user-facing errors.
func encodePayloadError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, errMissingImage):
		_ = apiError.EncodeValidationError(w, map[string]string{
			"image": "an image is required",
		}, requestID)
	case errors.Is(err, form.ErrInvalidDataURI):
		_ = apiError.EncodeValidationError(w, map[string]string{
			"image": "expected a base64 image data uri",
		}, requestID)
	case errors.Is(err, form.ErrUnsupportedMimeType):
		_ = apiError.EncodeValidationError(w, map[string]string{
			"image": "unsupported image type",
		}, requestID)
	default:
		_ = apiError.EncodeError(w, apiError.BadRequest, "malformed request body", requestID)
	}
}
