// Package api serves the screenshot history to the desktop UI over a
// loopback HTTP API.
//
// Routes:
//
//	GET    /api/health
//	GET    /api/usage
//	GET    /api/screenshots?search=&limit=
//	POST   /api/screenshots
//	GET    /api/screenshots/{id}
//	DELETE /api/screenshots/{id}
//	PUT    /api/screenshots/{id}/uploaded-url
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/history"
	"github.com/pders01/shotvault/internal/models"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds request bodies; annotation documents are small
const maxBodyBytes = 8 << 20

// Store is the subset of history.Service the API needs
type Store interface {
	Save(ctx context.Context, req history.SaveRequest) (string, error)
	List(ctx context.Context, q history.Query) ([]models.Screenshot, error)
	Get(ctx context.Context, id string) (models.Screenshot, error)
	Delete(ctx context.Context, id string) error
	SetUploadedURL(ctx context.Context, id, rawURL string) (models.Screenshot, error)
	Usage(ctx context.Context) (models.Usage, error)
}

// Handler routes API requests to a Store
type Handler struct {
	store        Store
	defaultLimit int
	router       chi.Router
}

// New builds the API router. defaultLimit applies when a list request has no limit.
func New(store Store, defaultLimit int) *Handler {
	h := &Handler{store: store, defaultLimit: defaultLimit}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/api/health", h.handleHealth)
	r.Get("/api/usage", h.handleUsage)
	r.Route("/api/screenshots", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleSave)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Put("/{id}/uploaded-url", h.handleSetUploadedURL)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.Usage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := history.Query{
		Search: r.URL.Query().Get("search"),
		Limit:  h.defaultLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		if n > 0 {
			q.Limit = n
		}
	}

	items, err := h.store.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type saveBody struct {
	OriginalPath  string          `json:"original_path"`
	AnnotatedPath string          `json:"annotated_path"`
	ThumbnailPath string          `json:"thumbnail_path"`
	Annotations   json.RawMessage `json:"annotations"`
	TicketID      string          `json:"ticket_id"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var body saveBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	id, err := h.store.Save(r.Context(), history.SaveRequest{
		OriginalPath:  body.OriginalPath,
		AnnotatedPath: body.AnnotatedPath,
		ThumbnailPath: body.ThumbnailPath,
		Annotations:   body.Annotations,
		TicketID:      body.TicketID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadedURLBody struct {
	URL string `json:"url"`
}

func (h *Handler) handleSetUploadedURL(w http.ResponseWriter, r *http.Request) {
	var body uploadedURLBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	item, err := h.store.SetUploadedURL(r.Context(), chi.URLParam(r, "id"), body.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
