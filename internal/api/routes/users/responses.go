package users

import (
	"github.com/tastebook/backend/internal/database"
	"github.com/tastebook/backend/internal/recipe"
)

type UserResponse struct {
	Email        string `json:"email"`
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

func NewUserResponse(u database.User, isSubscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}

// SubscriptionResponse is a followed author with a bounded sample of
// their recipes.
type SubscriptionResponse struct {
	UserResponse
	Recipes      []recipe.Card `json:"recipes"`
	RecipesCount int64         `json:"recipes_count"`
}
