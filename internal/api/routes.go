package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	// CORS and rate limiting - configured from main
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// v1 API routes
	r.Route("/v1", func(r chi.Router) {
		// Admin gate
		r.Post("/auth/verify-password", h.VerifyPassword)

		// Stored posts
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.ListPosts)
			r.Post("/", h.IngestPost)
			r.Patch("/", h.PatchPostByURL)
			r.Delete("/", h.DeletePostByURL)
			r.Put("/{id}", h.UpdatePostCategory)
			r.Delete("/{id}", h.DeletePost)
		})

		// Categories
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Patch("/", h.RenameCategoryByName)
			r.Delete("/", h.DeleteCategoryByName)
			r.Get("/{id}", h.GetCategory)
			r.Patch("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		// Public feed
		r.Get("/feed", h.GetFeed)

		// Moderation queue
		r.Route("/moderation", func(r chi.Router) {
			r.Get("/queue", h.GetModerationQueue)
			r.Post("/{id}/approve", h.ApprovePost)
			r.Delete("/{id}", h.RejectPost)
		})
	})

	return r
}
