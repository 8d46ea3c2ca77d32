package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/inkpact/internal/contentservice"
)

// multipartOverhead is the request body allowance on top of the image limit
// for boundaries and part headers.
const multipartOverhead = 1 << 20

// UploadImage handles POST /upload-image/{section} (multipart/form-data,
// field "image").
//
//	@Summary		Upload an image into a thumbnail section
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			section	path		string	true	"Section"	Enums(blogs, books, profiles, general)
//	@Param			image	formData	file	true	"Image file"
//	@Success		200		{object}	UploadImageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Router			/upload-image/{section} [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxImageBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, "upload image", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("No image file uploaded"))
		return
	}
	defer file.Close()

	info, err := h.svc.UploadImage(r.Context(), chi.URLParam(r, "section"), contentservice.ImageUpload{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Body:      file,
	})
	if err != nil {
		writeError(w, "upload image", err)
		return
	}
	writeJSON(w, http.StatusOK, UploadImageResponse{
		Success:   true,
		Message:   "Image uploaded successfully",
		ImageInfo: *info,
	})
}

// ListImages handles GET /images/{section}.
//
//	@Summary		List the images of a section
//	@Tags			images
//	@Produce		json
//	@Param			section	path		string	true	"Section"
//	@Success		200		{object}	ImageListResponse
//	@Router			/images/{section} [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListImages(r.Context(), chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, "list images", err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Success: true, Images: names, Count: len(names)})
}

// DeleteImage handles DELETE /delete-image/{section}/{filename}.
//
//	@Summary		Delete an image
//	@Tags			images
//	@Produce		json
//	@Param			section		path		string	true	"Section"
//	@Param			filename	path		string	true	"Image file name"
//	@Success		200			{object}	DeleteImageResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/delete-image/{section}/{filename} [delete]
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.svc.DeleteImage(r.Context(), chi.URLParam(r, "section"), filename); err != nil {
		writeError(w, "delete image", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteImageResponse{
		Success:  true,
		Message:  "Image deleted successfully",
		Filename: filename,
	})
}

// fileServer serves regular files below root. Directory listings and temp
// files are hidden.
func fileServer(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasSuffix(p, "/") && p != "/" {
			http.NotFound(w, r)
			return
		}
		if strings.HasPrefix(filepath.Base(p), ".") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// dataFileServer serves the data directory without directory listings.
func dataFileServer(root string) http.Handler {
	fs := fileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, err := os.Stat(filepath.Join(root, filepath.FromSlash(r.URL.Path))); err == nil && info.IsDir() {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
