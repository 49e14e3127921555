package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/intake"
	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/telemetry"
)

// HTTPHandler exposes sessions over a JSON API.
type HTTPHandler struct {
	registry *intake.Registry
	history  HistorySource
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

func NewHTTPHandler(registry *intake.Registry, history HistorySource, gatherer prometheus.Gatherer, logger *zap.Logger, metrics *telemetry.Metrics) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		registry: registry,
		history:  history,
		gatherer: gatherer,
		logger:   logger,
		metrics:  metrics,
	}
}

// Routes builds the router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Post("/transcript", h.postTranscript)
			r.Post("/parse", h.parse)
			r.Get("/history", h.getHistory)
		})
	})
	return r
}

func (h *HTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := h.history.Ping(r.Context()); err != nil {
		h.logger.Warn("Journal store unreachable", zap.Error(err))
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"sessions": h.registry.Len(),
		"journals": h.history.GetActiveSessionCount(),
	})
}

func (h *HTTPHandler) createSession(w http.ResponseWriter, r *http.Request) {
	ctrl := h.registry.Create()
	writeJSON(w, http.StatusCreated, ctrl.Snapshot())
}

func (h *HTTPHandler) getSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *HTTPHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, models.ErrorSessionNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) postTranscript(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var update models.TranscriptUpdate
	if err := decode(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrorInvalidRequest, "invalid transcript update")
		return
	}
	h.metrics.RecordTranscriptUpdate("http")

	ctrl.UpdateCapture(update.Listening, update.Error)
	ctrl.Submit(update.Text)
	writeJSON(w, http.StatusAccepted, ctrl.Snapshot())
}

func (h *HTTPHandler) parse(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var request models.ParseRequest
	if err := decode(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrorInvalidRequest, "invalid parse request")
		return
	}
	if request.Text != "" {
		ctrl.Submit(request.Text)
	}
	if !ctrl.ParseNow(r.Context()) {
		writeError(w, http.StatusConflict, models.ErrorExtractionBusy, "an extraction is already in progress")
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *HTTPHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.registry.Get(id); err != nil {
		exists, err := h.history.SessionExists(r.Context(), id)
		if err != nil {
			h.logger.Error("Failed to check journal", zap.String("session_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, models.ErrorInvalidRequest, "history unavailable")
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, models.ErrorSessionNotFound, intake.ErrSessionNotFound.Error())
			return
		}
	}

	if r.URL.Query().Get("format") == "text" {
		text, err := h.history.GetFormattedHistory(r.Context(), id)
		if err != nil {
			h.logger.Error("Failed to load history", zap.String("session_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, models.ErrorInvalidRequest, "history unavailable")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, text)
		return
	}

	msgs, err := h.history.GetMessages(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load history", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, models.ErrorInvalidRequest, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, toHistory(msgs))
}

func (h *HTTPHandler) controller(w http.ResponseWriter, r *http.Request) (*intake.Controller, bool) {
	ctrl, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, models.ErrorSessionNotFound, err.Error())
		return nil, false
	}
	return ctrl, true
}

// decode reads an optional JSON body; an empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.ErrorResponse{
		ErrorCode:    code,
		ErrorMessage: message,
	})
}
