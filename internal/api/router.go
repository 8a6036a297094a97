// Package api is the HTTP edge: the assistant message channel, per-session
// editing endpoints and the health, readiness and metrics probes.
package api

import (
	"context"
	"net/http"
	"time"

	"applicant-intake/internal/common/database"
	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"
	"applicant-intake/internal/intake/session"
	"applicant-intake/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the intake use-case surface. *service.Service implements it.
type Service interface {
	Get(ctx context.Context, bookingID string) (session.Session, error)
	Load(ctx context.Context, bookingID string) (session.Session, error)
	VerifyEmail(ctx context.Context, bookingID, input string) (session.Session, error)
	AddApplicant(ctx context.Context, bookingID string) (session.Session, string, error)
	RemoveApplicant(ctx context.Context, bookingID, applicantID string) (session.Session, error)
	OpenApplicant(ctx context.Context, bookingID, applicantID string) (session.Session, error)
	UpdateApplicant(ctx context.Context, bookingID, applicantID string, fields map[string]string) (session.Session, error)
	UpdateAddress(ctx context.Context, bookingID string, fields map[string]string) (session.Session, error)
	NextStep(ctx context.Context, bookingID string) (service.StepResult, error)
	PreviousStep(ctx context.Context, bookingID string) (session.Session, error)
	BackToDetails(ctx context.Context, bookingID string) (session.Session, error)
	RecordUpload(ctx context.Context, bookingID string, ev ingest.UploadEvent, docType string) (session.Session, models.DocumentCategory, error)
	ExtractDocument(ctx context.Context, bookingID string, req service.ExtractRequest) (service.ExtractResult, error)
	IngestEnvelope(ctx context.Context, msg ingest.Message) (service.IngestResult, error)
	SaveAndPreview(ctx context.Context, bookingID string, retryFailed bool) (service.SaveResult, error)
	Submit(ctx context.Context, bookingID string) (session.Session, error)
}

type Config struct {
	// MaxBodyBytes caps channel messages and document uploads.
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	// Dependencies are pinged by /ready.
	Dependencies map[string]database.Pinger
}

type Handler struct {
	svc    Service
	cfg    Config
	logger logger.Logger
}

func NewHandler(svc Service, cfg Config, log logger.Logger) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Handler{svc: svc, cfg: cfg, logger: log.WithFields(map[string]interface{}{"component": "api"})}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.cfg.RequestTimeout))
		r.Use(h.requestLogger)

		r.Post("/channel/messages", h.handleChannelMessage)

		r.Route("/sessions/{bookingID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Post("/load", h.handleLoad)
			r.Post("/verify", h.handleVerify)

			r.Post("/applicants", h.handleAddApplicant)
			r.Delete("/applicants/{applicantID}", h.handleRemoveApplicant)
			r.Patch("/applicants/{applicantID}", h.handleUpdateApplicant)
			r.Post("/applicants/{applicantID}/open", h.handleOpenApplicant)
			r.Patch("/address", h.handleUpdateAddress)

			r.Post("/steps/next", h.handleNextStep)
			r.Post("/steps/previous", h.handlePreviousStep)
			r.Post("/stages/back", h.handleBackToDetails)

			r.Post("/documents", h.handleRecordUpload)
			r.Post("/documents/extract", h.handleExtract)

			r.Post("/save", h.handleSave)
			r.Post("/submit", h.handleSubmit)
		})
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request handled", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	results := database.PingAll(r.Context(), 2*time.Second, h.cfg.Dependencies)
	status := http.StatusOK
	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}
