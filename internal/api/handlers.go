package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 20

// wildcardPath extracts the vault path from the URL wildcard (everything
// after the mount point). Supports encoded slashes from OpenAPI clients
// (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// cutAction splits a trailing action segment off the wildcard, so
// "topics/hello.md/move" becomes ("topics/hello.md", "move").
func cutAction(raw string, actions ...string) (string, string) {
	for _, action := range actions {
		if path, ok := strings.CutSuffix(raw, "/"+action); ok && path != "" {
			return path, action
		}
	}
	return raw, ""
}

// GetNote handles GET /api/notes/*.
//
// An empty wildcard returns the whole vault tree; a trailing /history or
// /versions/{hash} segment dispatches to version history.
//
//	@Summary		Read a note, the vault tree, or note history
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	raw := wildcardPath(r)
	if raw == "" {
		h.tree(w, r)
		return
	}
	if path, ok := strings.CutSuffix(raw, "/history"); ok && path != "" {
		h.history(w, r, path)
		return
	}
	if path, hash, ok := cutVersion(raw); ok {
		h.versionContent(w, r, path, hash)
		return
	}

	note, err := h.vault.Read(raw)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// tree renders the full vault hierarchy.
//
//	@Summary		Get the vault file tree
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	FileTreeNode
//	@Security		BearerAuth
//	@Router			/notes/ [get]
func (h *Handler) tree(w http.ResponseWriter, _ *http.Request) {
	root, err := h.vault.Tree()
	if err != nil {
		slog.Error("tree failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// PostNote handles POST /api/notes/*: creation by default, or move,
// copy, restore when the wildcard ends with that action segment.
//
//	@Summary		Create a note, or move/copy/restore an existing one
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			body	body		CreateNoteRequest	true	"Note content"
//	@Success		201		{object}	PathResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [post]
func (h *Handler) PostNote(w http.ResponseWriter, r *http.Request) {
	raw := wildcardPath(r)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	path, action := cutAction(raw, "move", "copy", "restore")
	switch action {
	case "move":
		h.transferNote(w, r, path, h.vault.Rename)
	case "copy":
		h.transferNote(w, r, path, h.vault.Copy)
	case "restore":
		h.restore(w, r, path)
	default:
		var req CreateNoteRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		created, err := h.vault.Create(raw, req.Content)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, PathResponse{Path: created})
	}
}

func (h *Handler) transferNote(w http.ResponseWriter, r *http.Request, src string, op func(src, dst string) (string, error)) {
	var req TransferRequest
	if err := decodeBody(r, &req); err != nil || req.Destination == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("destination is required"))
		return
	}
	moved, err := op(src, req.Destination)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: moved})
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Overwrite a note's content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			body	body		CreateNoteRequest	true	"Updated content"
//	@Success		200		{object}	PathResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateNoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	updated, err := h.vault.Update(path, req.Content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: updated})
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if _, err := h.vault.Delete(path); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/notes/search/.
//
//	@Summary		Fuzzy multi-phrase search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Space-separated phrases, all required"
//	@Param			limit	query		int		false	"Max results (1-100, default 50)"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/search/ [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := h.search.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeBody decodes a JSON body into v. An empty body is accepted and
// leaves v at its zero value.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
