package handle

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"calc-api/api/internal/calc"
)

const (
	msgProcessed = "Image processed"
	msgFailed    = "Failed to process the image."
)

// Calculate serves POST /calculate. Errors are reported in the envelope with
// status 200.
func (h *Handle) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx, log, cancel := h.begin(w, r)
	defer cancel()

	start := time.Now()
	req, bad := h.decode(w, r)
	var out calc.Outcome
	if bad != nil {
		out = *bad
		log.Warn("calculate: bad json", zap.Error(out.Err))
	} else {
		out = h.pipe.Run(ctx, req)
	}

	log.Info("calculate",
		zap.Bool("ok", out.OK()),
		zap.String("engine", out.Engine),
		zap.Int("records", len(out.Records)),
		zap.Duration("took", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, envelope(out))
}

// Root serves POST /. Same as Calculate plus a human message, and the vars and
// result are logged.
func (h *Handle) Root(w http.ResponseWriter, r *http.Request) {
	ctx, log, cancel := h.begin(w, r)
	defer cancel()

	req, bad := h.decode(w, r)
	var out calc.Outcome
	if bad != nil {
		out = *bad
		log.Warn("calculate: bad json", zap.Error(out.Err))
	} else {
		log.Info("received vars", zap.Any("dict_of_vars", req.Vars))
		out = h.pipe.Run(ctx, req)
	}

	env := envelope(out)
	if out.OK() {
		env.Message = msgProcessed
		log.Info("analysis result", zap.Any("data", out.Records), zap.String("engine", out.Engine))
	} else {
		env.Message = msgFailed
	}
	writeJSON(w, http.StatusOK, env)
}

// Index serves GET /.
func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is running"})
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
