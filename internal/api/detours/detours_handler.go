package detours

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zOOGal/Routed/app/tracer"
	"github.com/zOOGal/Routed/internal/api"
	"github.com/zOOGal/Routed/internal/types"
)

const defaultMaxDetourMinutes = 15.0

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

// SuggestDetours ranks route-compatible stops between an origin and a
// destination. The result set is bounded and always carries a reason
// when empty; the call itself never fails on degraded collaborators.
func (h *Handler) SuggestDetours(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DetoursHandler").Start(r.Context(), "SuggestDetours", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/v1/detours/suggest"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SuggestDetours"))

	var req types.DetourSuggestRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.MaxDetourMinutes <= 0 {
		req.MaxDetourMinutes = defaultMaxDetourMinutes
	}
	if req.Filters.Category == "" {
		req.Filters.Category = "any"
	}

	tracer.RecordDetourRequest(ctx)
	resp := h.service.SuggestDetours(ctx, req)
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
