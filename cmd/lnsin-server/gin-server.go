package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/bench"
	"github.com/aknopov/lnsin/cmd/param"
	"github.com/aknopov/lnsin/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type ComputeRequest struct {
	X *float64 `json:"x" binding:"required"`
	E *float64 `json:"e" binding:"required"`
}

type ComputeResponse struct {
	ID        string  `json:"id,omitempty"`
	Value     float64 `json:"value"`
	Terms     int     `json:"terms"`
	Reduced   float64 `json:"reduced"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type StatusResponse struct {
	Process   param.ProcStatus `json:"process"`
	TableSize int              `json:"table_size"`
	MaxTerms  int              `json:"max_terms"`
	Timeout   string           `json:"timeout"`
	UptimeSec float64          `json:"uptime_sec"`
}

const (
	requestIdHeader = "X-Request-ID"
	requestIdKey    = "request_id"

	kindOk          = "ok"
	kindMalformed   = "malformed_request"
	kindRateLimited = "rate_limited"
	kindNotFound    = "not_found"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// Evaluation service state
type server struct {
	evaluator *lnsin.Evaluator
	history   *session.History // nil when history is disabled
	limiter   *rate.Limiter    // nil for unlimited rate
	proc      param.IQProcess
	started   time.Time
}

func newEngine(srv *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery()) // no debug logging
	param.AssertNoErr(bench.ND, engine.SetTrustedProxies(nil))
	engine.Use(requestId)

	engine.HEAD("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	engine.POST("/", srv.limit, srv.compute)
	engine.GET("/history", srv.listHistory)
	engine.GET("/status", srv.status)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

func requestId(ctx *gin.Context) {
	id := ctx.GetHeader(requestIdHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Set(requestIdKey, id)
	ctx.Header(requestIdHeader, id)
	ctx.Next()
}

func (srv *server) limit(ctx *gin.Context) {
	if srv.limiter != nil && !srv.limiter.Allow() {
		rateLimited.Inc()
		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{"rate limit exceeded", kindRateLimited})
		return
	}
	ctx.Next()
}

func (srv *server) compute(ctx *gin.Context) {
	request := new(ComputeRequest)
	if err := ctx.ShouldBindJSON(request); err != nil {
		computeRequests.WithLabelValues(kindMalformed).Inc()
		ctx.JSON(http.StatusBadRequest, ErrorResponse{err.Error(), kindMalformed})
		return
	}

	res, err := srv.evaluator.Compute(*request.X, *request.E)
	if table := srv.evaluator.Table(); table != nil {
		bernoulliTableSize.Set(float64(table.Size()))
	}
	kind := lnsin.ErrorKind(err)
	if err == nil {
		kind = kindOk
	}
	logRequest(ctx.GetString(requestIdKey), request, res, kind)

	if err != nil {
		computeRequests.WithLabelValues(kind).Inc()
		logger.Debug().Str(requestIdKey, ctx.GetString(requestIdKey)).Err(err).Msg("Evaluation failed")
		ctx.JSON(statusOf(err), ErrorResponse{err.Error(), kind})
		return
	}

	computeRequests.WithLabelValues(kindOk).Inc()
	computeTerms.Observe(float64(res.Terms))
	computeDuration.Observe(res.Elapsed.Seconds())

	response := ComputeResponse{
		Value:     res.Value,
		Terms:     res.Terms,
		Reduced:   res.Reduced,
		ElapsedMs: float64(res.Elapsed) / float64(time.Millisecond),
	}

	if srv.history != nil {
		rec := session.Record{Time: time.Now(), X: *request.X, E: *request.E, Value: res.Value, Terms: res.Terms}
		id, err := srv.history.Add(ctx.Request.Context(), rec)
		if err != nil {
			logger.Warn().Str(requestIdKey, ctx.GetString(requestIdKey)).Err(err).Msg("History is not updated")
		}
		response.ID = id
	}

	ctx.JSON(http.StatusOK, response)
}

// One line per evaluation request
func logRequest(id string, request *ComputeRequest, res lnsin.Result, kind string) {
	logger.Info().
		Str(requestIdKey, id).
		Float64("x", *request.X).
		Float64("e", *request.E).
		Int("terms", res.Terms).
		Dur("elapsed", res.Elapsed).
		Str("kind", kind).
		Msg("Evaluation")
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, lnsin.ErrInvalidPrecision),
		errors.Is(err, lnsin.ErrUndefinedArgument),
		errors.Is(err, lnsin.ErrPrecisionUnattainable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lnsin.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (srv *server) listHistory(ctx *gin.Context) {
	if srv.history == nil {
		ctx.JSON(http.StatusNotFound, ErrorResponse{"history is disabled", kindNotFound})
		return
	}

	limit := defaultHistoryLimit
	if s := ctx.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{"limit must be in [1, 1000]", kindMalformed})
			return
		}
		limit = n
	}

	records, err := srv.history.Recent(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{err.Error(), lnsin.KindOther})
		return
	}
	ctx.JSON(http.StatusOK, records)
}

func (srv *server) status(ctx *gin.Context) {
	config := srv.evaluator.Config()
	response := StatusResponse{
		Process:   param.QueryStatus(srv.proc),
		MaxTerms:  config.MaxTerms,
		Timeout:   config.Timeout.String(),
		UptimeSec: time.Since(srv.started).Seconds(),
	}
	if table := srv.evaluator.Table(); table != nil {
		response.TableSize = table.Size()
	}
	ctx.JSON(http.StatusOK, response)
}
