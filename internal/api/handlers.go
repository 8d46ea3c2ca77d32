package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// maxJSONBytes bounds the body of collection and markdown saves.
const maxJSONBytes = 10 << 20

// ActivityLister returns recent journal entries.
type ActivityLister interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc      *contentservice.Service
	activity ActivityLister
	now      func() time.Time
}

// NewHandler creates a new Handler. activity may be nil when the journal is
// disabled.
func NewHandler(svc *contentservice.Service, activity ActivityLister) *Handler {
	return &Handler{svc: svc, activity: activity, now: time.Now}
}

// SaveCollection returns the handler of POST /save-{plural}.
//
//	@Summary		Replace a whole collection file
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string	true	"Collection"	Enums(blogs, books, profiles)
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Router			/save-{kind} [post]
func (h *Handler) SaveCollection(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
		if err != nil {
			writeError(w, "read "+kind.Plural(), err)
			return
		}
		res, err := h.svc.ReplaceCollection(r.Context(), kind, body)
		if err != nil {
			writeError(w, "save "+kind.Plural(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":               true,
			"message":               title(kind.Plural()) + " data saved successfully",
			"timestamp":             res.Timestamp,
			"filePath":              res.Path,
			kind.Plural() + "Count": res.Count,
		})
	}
}

// SaveMarkdown handles POST /save-markdown.
//
//	@Summary		Create or overwrite a markdown post
//	@Tags			markdown
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveMarkdownRequest	true	"Markdown file"
//	@Success		200		{object}	SaveMarkdownResponse
//	@Failure		400		{object}	errResponse
//	@Router			/save-markdown [post]
func (h *Handler) SaveMarkdown(w http.ResponseWriter, r *http.Request) {
	var req SaveMarkdownRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, "save markdown", err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Filename == "" || req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Filename and content are required"))
		return
	}

	md, err := h.svc.SaveMarkdown(r.Context(), req.Filename, *req.Content)
	if err != nil {
		writeError(w, "save markdown", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveMarkdownResponse{
		Success:   true,
		Message:   "Markdown file saved successfully",
		Filename:  md.Filename,
		FilePath:  md.Path,
		Timestamp: md.Timestamp,
	})
}

// GetMarkdown handles GET /get-markdown/{filename}.
//
//	@Summary		Read a markdown post
//	@Tags			markdown
//	@Produce		json
//	@Param			filename	path		string	true	"Markdown file name"
//	@Success		200			{object}	MarkdownResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/get-markdown/{filename} [get]
func (h *Handler) GetMarkdown(w http.ResponseWriter, r *http.Request) {
	// chi matches on the raw path, so an escaped "blogs%2Fpost.md" arrives encoded.
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid filename"))
		return
	}
	md, err := h.svc.ReadMarkdown(r.Context(), name)
	if err != nil {
		writeError(w, "read markdown", err)
		return
	}
	writeJSON(w, http.StatusOK, MarkdownResponse{
		Success:  true,
		Content:  md.Content,
		Filename: md.Filename,
		Path:     md.Path,
	})
}

// Debug handles GET /debug/{kind}: the normalized view of a collection.
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}
	c, err := h.svc.LoadCollection(r.Context(), kind)
	if err != nil {
		writeError(w, "debug "+kind.Plural(), err)
		return
	}
	views := make([]models.View, len(c.Entries))
	for i, e := range c.Entries {
		views[i] = e.View
	}
	body := map[string]any{
		"success":               true,
		"filePath":              kind.FileName(),
		kind.Plural() + "Count": c.Len(),
		"data":                  map[string]any{kind.Plural(): views},
	}
	if c.Warning != "" {
		body["warning"] = c.Warning
	}
	writeJSON(w, http.StatusOK, body)
}

// Health handles GET /health.
//
//	@Summary		Liveness banner
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Success:   true,
		Message:   "InkPact Dashboard Server is running",
		Timestamp: h.now().UTC().Format(contentservice.TimeFormat),
		Version:   Version,
	})
}

// Ready handles GET /health/ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		slog.Error("readiness check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("data directory unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Activity handles GET /api/activity.
//
//	@Summary		Recent content changes
//	@Tags			activity
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries"
//	@Success		200		{object}	ActivityResponse
//	@Router			/api/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Activity: []journal.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.activity.List(r.Context(), limit)
	if err != nil {
		writeError(w, "list activity", err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Enabled: true, Activity: entries})
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
