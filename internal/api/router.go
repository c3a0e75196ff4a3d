package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/auth"
	"github.com/starford/othala/internal/gitvcs"
	"github.com/starford/othala/internal/images"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/vault"
)

// Handler holds API route handlers and the services they drive.
type Handler struct {
	vault  *vault.Vault
	search *search.Engine
	git    *gitvcs.Service
	auth   *auth.Service
	images *images.Service
}

// NewHandler creates a Handler over the wired services.
func NewHandler(v *vault.Vault, se *search.Engine, git *gitvcs.Service, au *auth.Service, im *images.Service) *Handler {
	return &Handler{vault: v, search: se, git: git, auth: au, images: im}
}

// NewRouter creates a chi router with all API routes mounted. Health,
// config, and login stay outside the auth gate; everything else is
// behind it.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/config", h.AppConfig)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.auth))

		r.Get("/auth/verify", h.VerifyToken)

		// Notes. The wildcard carries the vault path; trailing action
		// segments (move, copy, restore, history, versions) are
		// dispatched inside the handlers.
		r.Get("/notes/search", h.Search)
		r.Get("/notes/search/", h.Search)
		r.Get("/notes/*", h.GetNote)
		r.Post("/notes/*", h.PostNote)
		r.Put("/notes/*", h.UpdateNote)
		r.Delete("/notes/*", h.DeleteNote)

		// Directories.
		r.Get("/dirs/*", h.GetDir)
		r.Post("/dirs/*", h.PostDir)
		r.Put("/dirs/*", h.RenameDir)
		r.Delete("/dirs/*", h.DeleteDir)

		// Images.
		r.Post("/images/upload", h.UploadImage)
	})

	return r
}
