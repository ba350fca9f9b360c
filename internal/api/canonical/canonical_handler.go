package canonical

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zOOGal/Routed/app/tracer"
	"github.com/zOOGal/Routed/internal/api"
)

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

// CanonicalizePost links the extracted candidates of a stored social
// post to real places. An optional "threshold" query parameter overrides
// the default match threshold.
func (h *Handler) CanonicalizePost(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CanonicalHandler").Start(r.Context(), "CanonicalizePost", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/v1/places/canonicalize/{postID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CanonicalizePost"))

	postID, err := uuid.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		l.ErrorContext(ctx, "invalid post ID", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid post ID format")
		return
	}

	threshold := DefaultMatchThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "threshold must be a number in (0,1]")
			return
		}
		threshold = parsed
	}

	start := time.Now()
	result, err := h.service.CanonicalizePost(ctx, postID, threshold)
	tracer.ObserveCanonicalizeDuration(ctx, time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, ErrPostNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Social post not found")
		case errors.Is(err, ErrNoExtraction):
			api.ErrorResponse(w, r, http.StatusConflict, "No extraction exists for this post")
		default:
			l.ErrorContext(ctx, "canonicalization failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to canonicalize post")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, result)
}
