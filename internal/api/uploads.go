package api

import (
	"net/http"

	"github.com/starford/othala/internal/images"
)

// UploadImage handles POST /api/images/upload (multipart/form-data,
// field "file").
//
//	@Summary		Upload an image into the vault's resources directory
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	images.Upload
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/upload [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Cap slack covers the multipart framing around the payload.
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxUploadSize+1<<20)

	if err := r.ParseMultipartForm(images.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	upload, err := h.images.Save(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}
