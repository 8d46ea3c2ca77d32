package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/models"
)

// RouterConfig carries what NewRouter mounts besides the content service.
type RouterConfig struct {
	// Activity backs GET /api/activity; nil reports the journal as disabled.
	Activity ActivityLister
	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler
	// DataDir is served read-only at /data.
	DataDir string
	// StaticDir, if set, serves the dashboard assets at /.
	StaticDir      string
	AllowedOrigins []string
}

// NewRouter creates a chi router with all dashboard routes mounted.
func NewRouter(svc *contentservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.Activity)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	// Collections.
	for _, kind := range models.Kinds {
		r.Post("/save-"+kind.Plural(), h.SaveCollection(kind))
	}
	r.Get("/debug/{kind}", h.Debug)

	// Markdown.
	r.Post("/save-markdown", h.SaveMarkdown)
	r.Get("/get-markdown/{filename}", h.GetMarkdown)

	// Images.
	r.Post("/upload-image/{section}", h.UploadImage)
	r.Get("/images/{section}", h.ListImages)
	r.Delete("/delete-image/{section}/{filename}", h.DeleteImage)

	// Health.
	r.Get("/health", h.Health)
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", h.Ready)

	// Activity and live events.
	r.Get("/api/activity", h.Activity)
	if cfg.Events != nil {
		r.Get("/api/events", cfg.Events.ServeHTTP)
	}

	// Raw data files, never cached.
	if cfg.DataDir != "" {
		r.With(NoStore).Handle("/data/*", http.StripPrefix("/data", dataFileServer(cfg.DataDir)))
	}
	if cfg.StaticDir != "" {
		r.Handle("/*", fileServer(cfg.StaticDir))
	}

	return r
}
