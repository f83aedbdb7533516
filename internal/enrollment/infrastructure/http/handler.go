package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/application"
	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

const (
	DefaultPath            = "/webhooks/paystack"
	DefaultSignatureHeader = "X-Paystack-Signature"
	DefaultMaxBodyBytes    = 1 << 20
)

type Options struct {
	Path            string
	SignatureHeader string
	MaxBodyBytes    int64
}

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
	opts    Options
}

func NewHandler(log *slog.Logger, service *application.Service, opts Options) *Handler {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = DefaultSignatureHeader
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("enrollment-http"),
		opts:    opts,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post(h.opts.Path, h.receiveWebhook)

	return r
}

func (h *Handler) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReceiveWebhook")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn("webhook body too large", "fault", "malformed_payload", "limit", tooLarge.Limit)
		} else {
			h.log.Warn("webhook body read failed", "fault", "malformed_payload", "err", err)
		}
		writeError(w, http.StatusBadRequest, classMalformed)
		return
	}

	decision, err := h.service.ProcessWebhook(ctx, body, r.Header.Get(h.opts.SignatureHeader))
	if errors.Is(err, domain.ErrPersistence) {
		h.log.Error("enrollment not persisted, awaiting redelivery",
			"request_id", middleware.GetReqID(ctx),
			"err", err,
		)
	}
	report(w, decision, err)
}
