package api

import (
	"log/slog"
	"net/http"
)

// Health handles GET /api/health. Always 200 while the process serves;
// the embedded git status reports version-control degradation.
//
//	@Summary	Service health and version-control status
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Git:    h.git.Status(r.Context()),
	})
}

// AppConfig handles GET /api/config: the flags a client needs before
// authenticating.
//
//	@Summary	Client-relevant runtime configuration
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	ConfigResponse
//	@Router		/config [get]
func (h *Handler) AppConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{AuthEnabled: h.auth.Enabled()})
}

// Login handles POST /api/auth/login.
//
//	@Summary	Exchange the vault password for an access token
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		LoginRequest	true	"Credentials"
//	@Success	200		{object}	TokenResponse
//	@Failure	401		{object}	errResponse
//	@Router		/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if !h.auth.CheckPassword(req.Password) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid password"))
		return
	}
	token, err := h.auth.Issue(req.RememberMe)
	if err != nil {
		slog.Error("token issue failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// VerifyToken handles GET /api/auth/verify. Reaching it at all means the
// middleware accepted the token.
//
//	@Summary	Verify the presented access token
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	VerifyResponse
//	@Failure	401	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/auth/verify [get]
func (h *Handler) VerifyToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VerifyResponse{Valid: true})
}
