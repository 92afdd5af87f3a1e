// Package users contains handlers for user accounts and the
// subscription ledger.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	apiError "github.com/tastebook/backend/internal/api/error"
	"github.com/tastebook/backend/internal/api/requestid"
	"github.com/tastebook/backend/internal/api/token"
	"github.com/tastebook/backend/internal/argon2id"
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/json"
	"github.com/tastebook/backend/internal/membership"
	"github.com/tastebook/backend/internal/pagination"
	"github.com/tastebook/backend/internal/password"
	"github.com/tastebook/backend/internal/recipe"
	"github.com/tastebook/backend/internal/role"
)

const defaultRecipesLimit = 100

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=1,max=150"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Password  string `json:"password" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateCreateUser(req CreateUserRequest) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint
	if !ok {
		fields["non_field_errors"] = err.Error()
		return fields
	}
	for _, e := range verrs {
		switch e.StructField() {
		case "Email":
			fields["email"] = "a valid email address is required"
		case "Username":
			fields["username"] = "username must be between 1 and 150 characters"
		case "FirstName":
			fields["first_name"] = "first name must be at most 150 characters"
		case "LastName":
			fields["last_name"] = "last name must be at most 150 characters"
		case "Password":
			fields["password"] = "password is required"
		}
	}
	return fields
}

// HandleCreateUser godoc
//
//	@Summary	Register a user.
//	@Tags		Users
//	@Accept		json
//	@Param		request	body		CreateUserRequest	true	"User payload"
//	@Success	201		{object}	UserResponse
//	@Failure	400		{object}	apiError.Error
//	@Failure	409		{object}	apiError.Error
//	@Failure	422		{object}	apiError.Error
//	@Router		/api/users [POST]
func HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	var req CreateUserRequest
	if err := json.DecodeRequest(r, &req); err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "malformed request body", requestID)
		return
	}
	if fields := validateCreateUser(req); fields != nil {
		_ = apiError.EncodeValidationError(w, fields, requestID)
		return
	}
	if err := password.ValidatePassword(req.Password); err != nil {
		_ = apiError.EncodeError(w, apiError.WeakPassword, err.Error(), requestID)
		return
	}

	hash, err := argon2id.EncodeHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	id, err := env.Database.CreateUser(ctx, database.CreateUserParams{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         role.RoleUser.String(),
	})
	if err != nil {
		switch database.UniqueConstraint(err) {
		case "users_email_key":
			_ = apiError.EncodeError(w, apiError.EmailConflict,
				"a user with this email already exists", requestID)
		case "users_username_key":
			_ = apiError.EncodeError(w, apiError.UsernameConflict,
				"a user with this username already exists", requestID)
		default:
			env.Logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
			_ = apiError.EncodeInternalError(w, requestID)
		}
		return
	}

	user, err := env.Database.GetUser(ctx, id)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to reload user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if err := json.Encode(w, http.StatusCreated, NewUserResponse(user, false)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleListUsers godoc
//
//	@Summary	List users.
//	@Tags		Users
//	@Param		page	query		int	false	"Page number"
//	@Param		limit	query		int	false	"Page size"
//	@Success	200		{object}	pagination.Page[UserResponse]
//	@Failure	500		{object}	apiError.Error
//	@Router		/api/users [GET]
func HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	viewerID := token.ViewerID(ctx)
	params := pagination.FromQuery(r.URL.Query())

	rows, err := env.Database.ListUsers(ctx, database.ListUsersParams{
		Limit:  params.Limit,
		Offset: params.Offset(),
	})
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to list users", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	count, err := env.Database.CountUsers(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to count users", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	results := make([]UserResponse, 0, len(rows))
	for _, u := range rows {
		subscribed, err := viewerSubscribed(ctx, env.Database.Subscriptions, viewerID, u.ID)
		if err != nil {
			env.Logger.ErrorContext(ctx, "failed to check subscription", slog.Any("error", err))
			_ = apiError.EncodeInternalError(w, requestID)
			return
		}
		results = append(results, NewUserResponse(u, subscribed))
	}

	if err := json.Encode(w, http.StatusOK, pagination.NewPage(env.Config.HostOrigin, r, params, count, results)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleGetUser godoc
//
//	@Summary	Get a user profile.
//	@Tags		Users
//	@Param		userID	path		string	true	"User ID"
//	@Success	200		{object}	UserResponse
//	@Failure	404		{object}	apiError.Error
//	@Router		/api/users/{userID} [GET]
func HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer user id", requestID)
		return
	}

	user, err := env.Database.GetUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.UserNotFound, "user does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	subscribed, err := viewerSubscribed(ctx, env.Database.Subscriptions, token.ViewerID(ctx), user.ID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to check subscription", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, NewUserResponse(user, subscribed)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleGetMe godoc
//
//	@Summary	Get the authenticated user's profile.
//	@Tags		Users
//	@Success	200	{object}	UserResponse
//	@Failure	401	{object}	apiError.Error
//	@Router		/api/users/me [GET]
func HandleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	user, err := env.Database.GetUser(ctx, userID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := json.Encode(w, http.StatusOK, NewUserResponse(user, false)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleListSubscriptions godoc
//
//	@Summary	List followed authors with a sample of their recipes.
//	@Tags		Users
//	@Param		page			query		int	false	"Page number"
//	@Param		limit			query		int	false	"Page size"
//	@Param		recipes_limit	query		int	false	"Max nested recipes per author"
//	@Success	200				{object}	pagination.Page[SubscriptionResponse]
//	@Failure	401				{object}	apiError.Error
//	@Router		/api/users/subscriptions [GET]
func HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	params := pagination.FromQuery(r.URL.Query())
	recipesLimit := parseRecipesLimit(r)

	authors, err := env.Database.SubscribedAuthors(ctx, database.SubscribedAuthorsParams{
		UserID: userID,
		Limit:  params.Limit,
		Offset: params.Offset(),
	})
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to list subscriptions", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	count, err := env.Database.CountSubscriptions(ctx, userID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to count subscriptions", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	results := make([]SubscriptionResponse, 0, len(authors))
	for _, author := range authors {
		res, err := subscriptionResponse(ctx, env.Database, author, recipesLimit)
		if err != nil {
			env.Logger.ErrorContext(ctx, "failed to build subscription", slog.Any("error", err))
			_ = apiError.EncodeInternalError(w, requestID)
			return
		}
		res.Recipes = cardResponses(res.Recipes, env)
		results = append(results, res)
	}

	if err := json.Encode(w, http.StatusOK, pagination.NewPage(env.Config.HostOrigin, r, params, count, results)); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleSubscribe godoc
//
//	@Summary	Subscribe to an author.
//	@Tags		Users
//	@Param		userID			path		string	true	"Author ID"
//	@Param		recipes_limit	query		int		false	"Max nested recipes"
//	@Success	201				{object}	SubscriptionResponse
//	@Failure	400				{object}	apiError.Error
//	@Failure	404				{object}	apiError.Error
//	@Router		/api/users/{userID}/subscribe [POST]
func HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	authorID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer user id", requestID)
		return
	}
	if authorID == userID {
		_ = apiError.EncodeError(w, apiError.SelfSubscription,
			"you cannot subscribe to yourself", requestID)
		return
	}

	author, err := env.Database.GetUser(ctx, authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = apiError.EncodeError(w, apiError.UserNotFound, "user does not exist", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	err = env.Database.Subscriptions.Add(ctx, userID, authorID)
	if errors.Is(err, membership.ErrAlreadyExists) {
		_ = apiError.EncodeError(w, apiError.AlreadySubscribed,
			"you are already subscribed to this author", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to add subscription", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	res, err := subscriptionResponse(ctx, env.Database, author, parseRecipesLimit(r))
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to build subscription", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	res.Recipes = cardResponses(res.Recipes, env)

	if err := json.Encode(w, http.StatusCreated, res); err != nil {
		env.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleUnsubscribe godoc
//
//	@Summary	Unsubscribe from an author.
//	@Tags		Users
//	@Param		userID	path	string	true	"Author ID"
//	@Success	204
//	@Failure	400	{object}	apiError.Error
//	@Failure	404	{object}	apiError.Error
//	@Router		/api/users/{userID}/subscribe [DELETE]
func HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	env := env.EnvFromCtx(ctx)
	requestID := strconv.FormatUint(requestid.ExtractRequestID(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		env.Logger.ErrorContext(ctx, "missing user id on authorized route", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	authorID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an integer user id", requestID)
		return
	}

	exists, err := env.Database.UserExists(ctx, authorID)
	if err != nil {
		env.Logger.ErrorContext(ctx, "failed to check user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if !exists {
		_ = apiError.EncodeError(w, apiError.UserNotFound, "user does not exist", requestID)
		return
	}

	err = env.Database.Subscriptions.Remove(ctx, userID, authorID)
	if errors.Is(err, membership.ErrNotFound) {
		_ = apiError.EncodeError(w, apiError.NotSubscribed,
			"you are not subscribed to this author", requestID)
		return
	} else if err != nil {
		env.Logger.ErrorContext(ctx, "failed to remove subscription", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// viewerSubscribed reports whether the viewer follows the target. It is
// false for anonymous viewers and for the viewer's own profile.
func viewerSubscribed(ctx context.Context, subs *membership.Ledger, viewerID, targetID int64) (bool, error) {
	if viewerID == 0 || viewerID == targetID {
		return false, nil
	}
	return subs.Exists(ctx, viewerID, targetID)
}

// subscriptionResponse assembles a followed author, their recipe count,
// and a bounded sample of their cards. Image URLs are resolved by the
// caller, keeping this testable without a file store.
func subscriptionResponse(ctx context.Context, db *database.Database, author database.User, recipesLimit int32) (SubscriptionResponse, error) {
	cards, err := db.RecipeCardsByAuthor(ctx, database.RecipeCardsByAuthorParams{
		AuthorID: author.ID,
		Limit:    recipesLimit,
	})
	if err != nil {
		return SubscriptionResponse{}, fmt.Errorf("fetching author recipes: %w", err)
	}
	count, err := db.CountRecipesByAuthor(ctx, author.ID)
	if err != nil {
		return SubscriptionResponse{}, fmt.Errorf("counting author recipes: %w", err)
	}

	res := SubscriptionResponse{
		UserResponse: NewUserResponse(author, true),
		Recipes:      make([]recipe.Card, 0, len(cards)),
		RecipesCount: count,
	}
	for _, c := range cards {
		res.Recipes = append(res.Recipes, recipe.Card{
			ID:          c.ID,
			Name:        c.Name,
			Image:       c.ImageUrl,
			CookingTime: c.CookingTime,
		})
	}
	return res, nil
}

func cardResponses(cards []recipe.Card, e *env.Env) []recipe.Card {
	for i := range cards {
		cards[i].Image = e.FileStore.FileURL(cards[i].Image)
	}
	return cards
}

func parseRecipesLimit(r *http.Request) int32 {
	v, err := strconv.ParseInt(r.URL.Query().Get("recipes_limit"), 10, 32)
	if err != nil || v < 1 {
		return defaultRecipesLimit
	}
	return int32(min(v, defaultRecipesLimit))
}
