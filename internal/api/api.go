// Package api sets up and starts the API
// server with routing, middleware, and Swagger documentation.
package api

import (
	"fmt"
	"net/http"

	_ "github.com/tastebook/backend/docs"
	"github.com/tastebook/backend/internal/api/middleware"
	"github.com/tastebook/backend/internal/api/routes/ingredients"
	"github.com/tastebook/backend/internal/api/routes/ping"
	"github.com/tastebook/backend/internal/api/routes/recipes"
	"github.com/tastebook/backend/internal/api/routes/tags"
	"github.com/tastebook/backend/internal/api/routes/users"
	"github.com/tastebook/backend/internal/env"
	"github.com/tastebook/backend/internal/filestore"
	"github.com/tastebook/backend/internal/role"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const (
	serverPort = 8080
)

func addDocs(r *chi.Mux, serverAddr string) {
	swagger := httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s/api/swagger/doc.json", serverAddr)),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)

	r.Mount("/api/swagger", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Handle preflight
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Allow GET to serve Swagger
		if req.Method == http.MethodGet {
			swagger.ServeHTTP(w, req)
			return
		}

		// Block anything else
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}))
}

func addRoutes(router *chi.Mux) {
	router.Route("/api", func(r chi.Router) {
		r.Get("/ping", ping.HandlePing)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tags.HandleListTags)
			r.Get("/{tagID}", tags.HandleGetTag)
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", ingredients.HandleListIngredients)
			r.Get("/{ingredientID}", ingredients.HandleGetIngredient)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthorizeRequest(role.RoleAdmin))
				r.Patch("/{ingredientID}", ingredients.HandleUpdateIngredient)
			})
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth)
				r.Get("/", recipes.HandleListRecipes)
				r.Get("/{recipeID}", recipes.HandleGetRecipe)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthorizeRequest(role.RoleUser))
				r.Post("/", recipes.HandleCreateRecipe)
				r.Get("/download_shopping_cart", recipes.HandleDownloadShoppingCart)
				r.Patch("/{recipeID}", recipes.HandleUpdateRecipe)
				r.Delete("/{recipeID}", recipes.HandleDeleteRecipe)
				r.Post("/{recipeID}/favorite", recipes.HandleFavoriteRecipe)
				r.Delete("/{recipeID}/favorite", recipes.HandleUnfavoriteRecipe)
				r.Post("/{recipeID}/shopping_cart", recipes.HandleAddToCart)
				r.Delete("/{recipeID}/shopping_cart", recipes.HandleRemoveFromCart)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", users.HandleCreateUser)

			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth)
				r.Get("/", users.HandleListUsers)
				r.Get("/{userID}", users.HandleGetUser)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthorizeRequest(role.RoleUser))
				r.Get("/me", users.HandleGetMe)
				r.Get("/subscriptions", users.HandleListSubscriptions)
				r.Post("/{userID}/subscribe", users.HandleSubscribe)
				r.Delete("/{userID}/subscribe", users.HandleUnsubscribe)
			})
		})
	})
}

// addFileServer serves disk-backed image blobs. The S3 backend serves
// its own public URLs, so nothing is mounted for it.
func addFileServer(router *chi.Mux, e *env.Env) {
	disk, ok := e.FileStore.(*filestore.Disk)
	if !ok {
		return
	}
	prefix := disk.URLPrefix()
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(disk.BaseDirectory())))
	router.Handle(prefix+"/*", fs)
}

// Start godoc
//
//	@title						Tastebook API
//	@version					1.0
//	@description				API Server for the Tastebook recipe-sharing application.
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//
//	@host						localhost:8080
//	@BasePath					/api
func Start(env *env.Env) error {
	router := chi.NewRouter()
	router.Use(middleware.AddRequestID)
	router.Use(middleware.LogRequest(env.Logger))
	router.Use(middleware.InjectEnv(env))
	router.Use(middleware.AddCors)

	addRoutes(router)
	addFileServer(router, env)
	addDocs(router, fmt.Sprintf("0.0.0.0:%d", serverPort))

	env.Logger.Info(fmt.Sprintf("Listening at 0.0.0.0:%d", serverPort))
	env.Logger.Info(fmt.Sprintf("Swagger UI available at http://0.0.0.0:%d/api/swagger/index.html", serverPort))
	return http.ListenAndServe(fmt.Sprintf(":%d", serverPort), router)
}
