// Package server assembles the HTTP surface: middleware chain, public and
// protected routes, and the JSON fallbacks.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/pawpal-api/internal/auth"
	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/logging"
	"github.com/ayush/pawpal-api/internal/middleware"
	"github.com/ayush/pawpal-api/internal/pets"
)

// Deps is everything the router needs, built once in main.
type Deps struct {
	Log         logging.Logger
	Tokens      middleware.TokenDecoder
	Users       middleware.UserLookup
	Auth        *auth.Handler
	Pets        *pets.Handler
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(d.Log))
	r.Use(middleware.Recover(d.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	requireAuth := middleware.RequireAuth(d.Tokens, d.Users, d.Log)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", d.Auth.Signup)
		r.Post("/login", d.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", d.Auth.Logout)
			r.Get("/me", d.Auth.Me)
			r.Post("/change-password", d.Auth.ChangePassword)
		})
	})

	r.Route("/pets", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", d.Pets.List)
		r.Post("/create", d.Pets.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", d.Pets.Update)
			r.Delete("/", d.Pets.Delete)

			r.Route("/medications", func(r chi.Router) {
				r.Post("/", d.Pets.CreateMedication)
				r.Get("/", d.Pets.ListMedications)
				r.Put("/{medID}", d.Pets.UpdateMedication)
				r.Delete("/{medID}", d.Pets.DeleteMedication)
			})

			if d.Pets.DoseLogEnabled() {
				r.Post("/doses", d.Pets.LogDose)
				r.Get("/doses", d.Pets.ListDoses)
			}
			if d.Pets.PhotosEnabled() {
				r.Put("/photo", d.Pets.UploadPhoto)
				r.Get("/photo", d.Pets.Photo)
			}
		})
	})

	return r
}
