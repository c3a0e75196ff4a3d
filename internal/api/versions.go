package api

import (
	"net/http"
	"strings"
)

// cutVersion recognizes a trailing /versions/{hash} on the wildcard and
// splits it into the note path and the revision hash.
func cutVersion(raw string) (path, hash string, ok bool) {
	idx := strings.LastIndex(raw, "/versions/")
	if idx <= 0 {
		return "", "", false
	}
	hash = raw[idx+len("/versions/"):]
	if hash == "" || strings.Contains(hash, "/") {
		return "", "", false
	}
	return raw[:idx], hash, true
}

// history renders the commit history of one note.
//
//	@Summary		Get the version history of a note
//	@Tags			versions
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	HistoryResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/history [get]
func (h *Handler) history(w http.ResponseWriter, r *http.Request, path string) {
	records, err := h.git.History(r.Context(), path)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Path: "/" + path, History: records})
}

// versionContent renders a note's content at one revision.
//
//	@Summary		Get a note's content at a specific revision
//	@Tags			versions
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			hash	path		string	true	"Commit hash"
//	@Success		200		{object}	VersionResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/versions/{hash} [get]
func (h *Handler) versionContent(w http.ResponseWriter, r *http.Request, path, hash string) {
	content, err := h.git.ContentAt(r.Context(), path, hash)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VersionResponse{Path: "/" + path, Hash: hash, Content: content})
}

// restore rewinds a note to a historical revision. The current state is
// committed first so the restore itself is always reversible, then the
// restored content is written and committed.
//
//	@Summary		Restore a note to a previous revision
//	@Tags			versions
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Note path"
//	@Param			body	body		RestoreRequest	true	"Revision to restore"
//	@Success		200		{object}	PathResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/restore [post]
func (h *Handler) restore(w http.ResponseWriter, r *http.Request, path string) {
	var req RestoreRequest
	if err := decodeBody(r, &req); err != nil || req.Hash == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("hash is required"))
		return
	}
	ctx := r.Context()

	if err := h.git.CommitFile(ctx, path); err != nil {
		writeAppError(w, err)
		return
	}
	content, err := h.git.ContentAt(ctx, path, req.Hash)
	if err != nil {
		writeAppError(w, err)
		return
	}
	restored, err := h.vault.Update(path, content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.git.CommitFile(ctx, path); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: restored})
}
