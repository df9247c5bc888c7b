// Package calculator exposes the keypad calculator over HTTP: stateful
// sessions driven by key presses, plus stateless arithmetic and expression
// endpoints.
package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/expr"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/perf"
	"go-chi-calculator/internal/session"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator endpoints.
type Handler struct {
	sessions *session.Service
	perf     *perf.Collector
	cache    *expr.Cache
}

// NewHandler wires the handlers to their collaborators. A nil cache gets a
// default-sized one.
func NewHandler(sessions *session.Service, collector *perf.Collector, cache *expr.Cache) *Handler {
	if cache == nil {
		cache = expr.NewCache(expr.DefaultCacheSize)
	}
	return &Handler{sessions: sessions, perf: collector, cache: cache}
}

// ---------------------------------------------------------------------------
// Stateless arithmetic
// ---------------------------------------------------------------------------

// Operate handles POST /calculator/operate.
func (h *Handler) Operate(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "calculator.operate")
	defer span.End()

	var req OperateRequest
	if err := decode(r, &req); err != nil {
		h.fail(ctx, span, logger, "operate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if !engine.IsValidNumber(req.A) || !engine.IsValidNumber(req.B) {
		h.fail(ctx, span, logger, "operate", "invalid numeric input", fmt.Errorf("a=%g b=%g", req.A, req.B), http.StatusBadRequest, w)
		return
	}

	op := engine.Operation(req.Op)
	span.SetAttributes(
		attribute.String("calculator.operation", req.Op),
		attribute.Float64("calculator.operand.a", req.A),
		attribute.Float64("calculator.operand.b", req.B),
	)

	start := time.Now()
	res := engine.PerformOperation(req.A, req.B, op)
	elapsed := time.Since(start)

	if res.Failed() {
		h.fail(ctx, span, logger, "operate", res.Err.Error(), res.Err, arithmeticStatus(res.Err), w)
		return
	}

	h.succeed(ctx, span, logger, req.Op, elapsed, res.Result,
		zap.Float64("a", req.A),
		zap.Float64("b", req.B),
	)

	handlers.WriteJSON(w, http.StatusOK, OperateResponse{
		Operation:  req.Op,
		A:          req.A,
		B:          req.B,
		Result:     res.Result,
		Expression: engine.Expression(req.A, op, req.B),
		Display:    engine.FormatDisplayValue(res.Result),
	})
}

// Unary handles POST /calculator/unary.
func (h *Handler) Unary(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "calculator.unary")
	defer span.End()

	var req UnaryRequest
	if err := decode(r, &req); err != nil {
		h.fail(ctx, span, logger, "unary", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if !engine.IsValidNumber(req.X) {
		h.fail(ctx, span, logger, "unary", "invalid numeric input", fmt.Errorf("x=%g", req.X), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.String("calculator.operation", req.Op),
		attribute.Float64("calculator.operand.x", req.X),
	)

	start := time.Now()
	res := engine.PerformUnaryOperation(req.X, engine.UnaryOperation(req.Op))
	elapsed := time.Since(start)

	if res.Failed() {
		h.fail(ctx, span, logger, "unary", res.Err.Error(), res.Err, arithmeticStatus(res.Err), w)
		return
	}

	h.succeed(ctx, span, logger, req.Op, elapsed, res.Result, zap.Float64("x", req.X))

	handlers.WriteJSON(w, http.StatusOK, UnaryResponse{
		Operation: req.Op,
		X:         req.X,
		Result:    res.Result,
		Display:   engine.FormatDisplayValue(res.Result),
	})
}

// Evaluate handles POST /calculator/evaluate.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "calculator.evaluate")
	defer span.End()

	var req EvaluateRequest
	if err := decode(r, &req); err != nil {
		h.fail(ctx, span, logger, "evaluate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.expression.length", len(req.Expression)))

	start := time.Now()
	result, err := h.cache.Calculate(req.Expression)
	elapsed := time.Since(start)

	if err != nil {
		status := arithmeticStatus(err)
		if errors.Is(err, expr.ErrSyntax) || errors.Is(err, expr.ErrTooLong) || errors.Is(err, expr.ErrTooDeep) {
			status = http.StatusBadRequest
		}
		h.fail(ctx, span, logger, "evaluate", err.Error(), err, status, w)
		return
	}

	h.succeed(ctx, span, logger, "evaluate", elapsed, result, zap.String("expression", req.Expression))

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Expression: req.Expression,
		Result:     result,
		Display:    engine.FormatResult(result),
	})
}

// Keypad handles GET /calculator/keypad.
func (h *Handler) Keypad(w http.ResponseWriter, r *http.Request) {
	m := h.sessions.Machine()
	handlers.WriteJSON(w, http.StatusOK, KeypadResponse{
		Buttons:           engine.Buttons,
		MaxDisplayLength:  m.MaxDisplayLength(),
		MaxHistoryEntries: m.MaxHistoryEntries(),
	})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "calculator.session.create")
	defer span.End()

	id, st := h.sessions.Create(ctx)

	span.SetAttributes(attribute.String("calculator.session.id", id))
	span.SetStatus(codes.Ok, "")
	logger.Info("calculator session created",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, newStateResponse(id, st))
}

// GetSession handles GET /calculator/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.handleSession(w, r, "get", nil, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.Get(ctx, id)
	})
}

// Press handles POST /calculator/sessions/{id}/press.
func (h *Handler) Press(w http.ResponseWriter, r *http.Request) {
	var req PressRequest
	h.handleSession(w, r, "press", &req, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.Press(ctx, id, req.Token)
	})
}

// Key handles POST /calculator/sessions/{id}/key.
func (h *Handler) Key(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	h.handleSession(w, r, "key", &req, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.Key(ctx, id, req.Key)
	})
}

// Memory handles POST /calculator/sessions/{id}/memory.
func (h *Handler) Memory(w http.ResponseWriter, r *http.Request) {
	var req MemoryRequest
	h.handleSession(w, r, "memory", &req, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.Memory(ctx, id, engine.MemoryOperation(req.Op))
	})
}

// Theme handles POST /calculator/sessions/{id}/theme.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	h.handleSession(w, r, "theme", &req, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.SetTheme(ctx, id, engine.Theme(req.Theme))
	})
}

// Reset handles POST /calculator/sessions/{id}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.handleSession(w, r, "reset", nil, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.Reset(ctx, id)
	})
}

// UseHistory handles POST /calculator/sessions/{id}/history/{entryID}/use.
func (h *Handler) UseHistory(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")
	h.handleSession(w, r, "history.use", nil, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.UseHistory(ctx, id, entryID)
	})
}

// ClearHistory handles DELETE /calculator/sessions/{id}/history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.handleSession(w, r, "history.clear", nil, func(ctx context.Context, id string) (engine.State, error) {
		return h.sessions.ClearHistory(ctx, id)
	})
}

// handleSession is the shared implementation for session endpoints: it opens
// a span, decodes body when non-nil, runs apply and maps service errors onto
// HTTP statuses.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, opName string, body any, apply func(context.Context, string) (engine.State, error)) {
	ctx, span, logger := h.start(r, "calculator.session."+opName)
	defer span.End()

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("calculator.session.id", id))

	if body != nil {
		if err := decode(r, body); err != nil {
			h.fail(ctx, span, logger, opName, "invalid request body", err, http.StatusBadRequest, w)
			return
		}
	}

	st, err := apply(ctx, id)
	if err != nil {
		h.fail(ctx, span, logger, opName, err.Error(), err, sessionStatus(err), w)
		return
	}

	span.SetAttributes(attribute.String("calculator.display", st.Display))
	span.SetStatus(codes.Ok, "")

	logger.Debug("calculator session updated",
		zap.String("operation", opName),
		zap.String("session_id", id),
		zap.String("display", st.Display),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(id, st))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (h *Handler) start(r *http.Request, spanName string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		),
	)
	return ctx, span, observability.LoggerWithTrace(ctx)
}

func (h *Handler) fail(ctx context.Context, span trace.Span, logger *zap.Logger, opName, msg string, err error, status int, w http.ResponseWriter) {
	observability.RecordError(ctx, span, logger, h.perf.ErrorCounter(), opName, msg, err, status, w)
}

func (h *Handler) succeed(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, elapsed time.Duration, result float64, fields ...zap.Field) {
	h.perf.RecordOperation(ctx, opName, elapsed, result)
	durationMS := float64(elapsed.Microseconds()) / 1000.0

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.Float64("result", result),
		attribute.Float64("duration_ms", durationMS),
	))
	span.SetAttributes(attribute.Float64("calculator.result", result))
	span.SetStatus(codes.Ok, "")

	fields = append(fields,
		zap.String("operation", opName),
		zap.Float64("result", result),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
		zap.Float64("duration_ms", durationMS),
	)
	logger.Info("calculator operation completed", fields...)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// arithmeticStatus maps an arithmetic failure to 422, and an unknown
// operator to 400.
func arithmeticStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidOperation), errors.Is(err, engine.ErrInvalidUnaryOperation):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrDivideByZero),
		errors.Is(err, engine.ErrNegativeSqrt),
		errors.Is(err, engine.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func sessionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, engine.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownToken),
		errors.Is(err, engine.ErrUnknownMemOp),
		errors.Is(err, engine.ErrInvalidTheme),
		errors.Is(err, session.ErrUnknownKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
