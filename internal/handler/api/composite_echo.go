package api

import (
	"encoding/json"
	"errors"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	icache "SignalFuse/internal/service/cache"
	svcmetrics "SignalFuse/internal/service/metrics"
	"SignalFuse/internal/service/ratelimit"
	"SignalFuse/internal/usecase"
	xhttp "SignalFuse/pkg/http"
	xlogger "SignalFuse/pkg/logger"
	"SignalFuse/pkg/util"

	"github.com/labstack/echo/v4"
)

// CompositeEchoHandler exposes the composite-signal processor over HTTP.
type CompositeEchoHandler struct {
	logger *xlogger.Logger
	proc   *usecase.SignalProcessor
	store  domrepo.SignalStore
	cache  icache.BytesCache
	rl     *ratelimit.Limiter
}

func NewCompositeEchoHandler(logger *xlogger.Logger, proc *usecase.SignalProcessor, store domrepo.SignalStore) *CompositeEchoHandler {
	svcmetrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &CompositeEchoHandler{
		logger: logger.Component("api"),
		proc:   proc,
		store:  store,
		rl:     ratelimit.New(),
	}
}

// SetCache enables the latest-signal cache on the read path.
func (h *CompositeEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *CompositeEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/composite", h.Compute)
	g.GET("/composite/latest", h.Latest)
	g.GET("/composite/history", h.History)
	e.GET("/healthz", h.Health)
}

// Compute runs validate and aggregate synchronously on the posted raw
// message. A schema rejection maps to 400 with the offending payload.
func (h *CompositeEchoHandler) Compute(c echo.Context) error {
	start := time.Now()
	endpoint := "compute"
	defer func() { svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":compute", 10, 5) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	var raw models.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_MALFORMED_JSON",
			Message: err.Error(),
		}})
	}

	vm, err := h.proc.ValidateInputMessage(raw)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
		var ife *usecase.InvalidFormatError
		if errors.As(err, &ife) {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_INVALID_FORMAT",
				Message: "message failed schema validation",
				Params:  map[string]any{"payload": ife.Payload},
			}})
		}
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, h.proc.ComputeCompositeSignal(vm))
}

// Latest serves the most recent enriched message for a symbol, cache
// first, store as fallback.
func (h *CompositeEchoHandler) Latest(c echo.Context) error {
	start := time.Now()
	endpoint := "latest"
	defer func() { svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.LatestCompositeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes("composite:latest:" + req.Symbol); err == nil && ok {
			var enriched models.RawMessage
			if json.Unmarshal(b, &enriched) == nil {
				return xhttp.SuccessResponse(c, enriched)
			}
		}
	}

	if h.store == nil {
		return xhttp.NotFoundResponse(c, "no signal recorded for symbol")
	}
	rec, err := h.store.Latest(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("latest store lookup failed", xlogger.Error(err))
		svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	if rec == nil {
		return xhttp.NotFoundResponse(c, "no signal recorded for symbol")
	}
	return xhttp.SuccessResponse(c, rec)
}

// History serves persisted composite signals for a symbol over a time range.
func (h *CompositeEchoHandler) History(c echo.Context) error {
	start := time.Now()
	endpoint := "history"
	defer func() { svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.CompositeHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.NotFoundResponse(c, "signal store disabled")
	}

	now := time.Now().UTC()
	from := util.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := util.ParseTimeDefault(req.To, now)

	recs, err := h.store.Query(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("history query failed", xlogger.Error(err))
		svcmetrics.APIErrors.WithLabelValues(endpoint).Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

// Health reports store connectivity.
func (h *CompositeEchoHandler) Health(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			return xhttp.DataResponse(c, 503, map[string]string{"status": "degraded", "store": err.Error()})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
