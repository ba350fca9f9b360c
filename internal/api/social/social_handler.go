package social

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zOOGal/Routed/app/tracer"
	"github.com/zOOGal/Routed/internal/api"
	"github.com/zOOGal/Routed/internal/types"
)

const maxBatchSize = 50

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// CreatePost ingests one social post: store, extract, canonicalize.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SocialHandler").Start(r.Context(), "CreatePost", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/v1/social/posts"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreatePost"))

	var req types.SocialPostCreateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	result, err := h.service.IngestPost(ctx, req)
	tracer.ObserveIngestDuration(ctx, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrInvalidSource) || errors.Is(err, ErrEmptyText) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "failed to ingest post", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to ingest post")
		return
	}

	tracer.RecordPostIngested(ctx)
	api.WriteJSONResponse(w, r, http.StatusCreated, result)
}

// CreateBatch ingests a bounded batch of posts with per-item isolation.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SocialHandler").Start(r.Context(), "CreateBatch", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/v1/social/posts/batch"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateBatch"))

	var items []types.SocialPostCreateRequest
	if err := api.DecodeJSONBody(w, r, &items); err != nil {
		l.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(items) == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "batch must not be empty")
		return
	}
	if len(items) > maxBatchSize {
		api.ErrorResponse(w, r, http.StatusBadRequest, "batch exceeds maximum size")
		return
	}

	summary := h.service.IngestBatch(ctx, items)
	api.WriteJSONResponse(w, r, http.StatusOK, summary)
}
