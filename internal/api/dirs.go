package api

import (
	"net/http"
	"strconv"
)

// GetDir handles GET /api/dirs/*: a shallow listing of one directory.
//
//	@Summary		List a directory's immediate children
//	@Tags			directories
//	@Produce		json
//	@Param			path	path		string	true	"Directory path"
//	@Success		200		{object}	DirDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dirs/{path} [get]
func (h *Handler) GetDir(w http.ResponseWriter, r *http.Request) {
	dir, err := h.vault.GetDir(wildcardPath(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dir)
}

// PostDir handles POST /api/dirs/*: creation by default, or move/copy
// when the wildcard ends with that action segment.
//
//	@Summary		Create a directory, or move/copy an existing one
//	@Tags			directories
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string	true	"Directory path"
//	@Success		201		{object}	PathResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dirs/{path} [post]
func (h *Handler) PostDir(w http.ResponseWriter, r *http.Request) {
	raw := wildcardPath(r)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	path, action := cutAction(raw, "move", "copy")
	switch action {
	case "move":
		h.transferDir(w, r, path, h.vault.RenameDir)
	case "copy":
		h.transferDir(w, r, path, h.vault.CopyDir)
	default:
		created, err := h.vault.CreateDir(raw)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, PathResponse{Path: created})
	}
}

func (h *Handler) transferDir(w http.ResponseWriter, r *http.Request, src string, op func(src, dst string) (string, error)) {
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

// RenameDir handles PUT /api/dirs/*: a rename expressed as a transfer.
//
//	@Summary		Rename a directory
//	@Tags			directories
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Directory path"
//	@Param			body	body		TransferRequest	true	"New location"
//	@Success		200		{object}	PathResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dirs/{path} [put]
func (h *Handler) RenameDir(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	h.transferDir(w, r, path, h.vault.RenameDir)
}

// DeleteDir handles DELETE /api/dirs/*. Non-empty directories require
// ?recursive=true.
//
//	@Summary		Delete a directory
//	@Tags			directories
//	@Param			path		path	string	true	"Directory path"
//	@Param			recursive	query	bool	false	"Delete contents too"
//	@Success		204			"Directory deleted"
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dirs/{path} [delete]
func (h *Handler) DeleteDir(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
	if _, err := h.vault.DeleteDir(path, recursive); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
