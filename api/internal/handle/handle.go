package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"calc-api/api/internal/calc"
	"calc-api/api/internal/interpret"
	"calc-api/api/internal/logger"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Runner is the part of calc.Pipeline the handlers need.
type Runner interface {
	Run(ctx context.Context, req calc.Request) calc.Outcome
}

// Envelope is the body of every calculate response.
type Envelope struct {
	Status    string             `json:"status"`
	Data      []interpret.Record `json:"data"`
	Message   string             `json:"message,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind calc.ErrorKind     `json:"error_kind,omitempty"`
}

type Handle struct {
	pipe    Runner
	log     *zap.Logger
	timeout time.Duration
	maxBody int64
}

// New wires the handlers. timeout 0 means no deadline beyond the client's own;
// maxBody 0 disables the body cap.
func New(pipe Runner, log *zap.Logger, timeout time.Duration, maxBody int64) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		pipe:    pipe,
		log:     log,
		timeout: timeout,
		maxBody: maxBody,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func envelope(out calc.Outcome) Envelope {
	env := Envelope{Status: statusSuccess, Data: out.Records}
	if env.Data == nil {
		env.Data = []interpret.Record{}
	}
	if !out.OK() {
		env.Status = statusError
		env.Error = out.Err.Error()
		env.ErrorKind = out.Err.Kind
	}
	return env
}

// requestDeadline returns the per-request deadline: X-Request-Timeout header,
// then timeoutSec query, then the configured default. Zero means none.
func (h *Handle) requestDeadline(r *http.Request) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.timeout
}

// begin attaches a request-scoped logger and the deadline to the request context.
func (h *Handle) begin(w http.ResponseWriter, r *http.Request) (context.Context, *zap.Logger, context.CancelFunc) {
	rid := r.Header.Get("X-Request-ID")
	if rid == "" {
		rid = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", rid)

	log := h.log.With(
		zap.String("request_id", rid),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	ctx := logger.WithContext(r.Context(), log)

	cancel := context.CancelFunc(func() {})
	if d := h.requestDeadline(r); d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	}
	return ctx, log, cancel
}

// decode reads the calculate body. A failure is returned as an outcome so it is
// reported like any other pipeline error.
func (h *Handle) decode(w http.ResponseWriter, r *http.Request) (calc.Request, *calc.Outcome) {
	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	var req calc.Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		out := calc.Fail(calc.KindInvalidRequest, err)
		return req, &out
	}
	return req, nil
}
