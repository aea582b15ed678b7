package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/config"
	"condor-screener/internal/errors"
	"condor-screener/internal/store"
	"condor-screener/pkg/utils"
)

// CondorHandler serves screening and history requests.
type CondorHandler struct {
	scanner  *condor.Scanner
	defaults config.ScreenerConfig
	history  store.HistoryStore
	now      func() time.Time
	logger   zerolog.Logger
}

// NewCondorHandler creates a handler. history may be nil.
func NewCondorHandler(scanner *condor.Scanner, defaults config.ScreenerConfig, history store.HistoryStore, now func() time.Time, logger zerolog.Logger) *CondorHandler {
	return &CondorHandler{
		scanner:  scanner,
		defaults: defaults,
		history:  history,
		now:      now,
		logger:   logger,
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HandleCondors handles GET /api/v1/condors/{symbol}.
//
// Query overrides: max_days, min_credit, max_risk, min_probability,
// criteria, limit, window, as_of (YYYY-MM-DD or RFC 3339).
func (h *CondorHandler) HandleCondors(w http.ResponseWriter, r *http.Request) {
	req, err := h.scanRequest(chi.URLParam(r, "symbol"), r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.scanner.Scan(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.history != nil {
		if err := h.history.SaveScan(r.Context(), store.NewScanRecord(req, res)); err != nil {
			h.logger.Warn().Err(err).Str("scan_id", res.ID).Msg("Failed to record scan history")
		}
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleScans handles GET /api/v1/scans?symbol=&limit=.
func (h *CondorHandler) HandleScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ScanFilter{
		Symbol: strings.ToUpper(strings.TrimSpace(q.Get("symbol"))),
		Limit:  20,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, r, errors.NewConfigError("limit", raw, "must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	scans, err := h.history.ListScans(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if scans == nil {
		scans = []store.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, scans)
}

// HandleScan handles GET /api/v1/scans/{id}.
func (h *CondorHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.history.GetScan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// scanRequest applies query overrides on top of the configured defaults.
func (h *CondorHandler) scanRequest(symbol string, r *http.Request) (condor.ScanRequest, error) {
	q := r.URL.Query()
	sc := h.defaults

	ints := []struct {
		key string
		dst *int
	}{
		{"max_days", &sc.MaxDays},
		{"limit", &sc.Limit},
	}
	for _, p := range ints {
		if raw := q.Get(p.key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return condor.ScanRequest{}, errors.NewConfigError(p.key, raw, "must be an integer")
			}
			*p.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"min_credit", &sc.MinNetCredit},
		{"max_risk", &sc.MaxRisk},
		{"min_probability", &sc.MinProbability},
	}
	for _, p := range floats {
		if raw := q.Get(p.key); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return condor.ScanRequest{}, errors.NewConfigError(p.key, raw, "must be a number")
			}
			*p.dst = v
		}
	}

	if raw := q.Get("criteria"); raw != "" {
		sc.Criteria = raw
	}
	if raw := q.Get("window"); raw != "" {
		sc.Window = raw
	}

	asOf := h.now()
	if raw := q.Get("as_of"); raw != "" {
		t, err := parseAsOf(raw)
		if err != nil {
			return condor.ScanRequest{}, errors.NewConfigError("as_of", raw, "must be YYYY-MM-DD or RFC 3339")
		}
		asOf = t
	}

	return condor.ScanRequest{
		Symbol:  symbol,
		MaxDays: sc.MaxDays,
		Params:  sc.Params(),
		AsOf:    asOf,
	}, nil
}

// parseAsOf reads a date as New York market open, or a full timestamp.
func parseAsOf(raw string) (time.Time, error) {
	if d, err := utils.ParseDate(raw); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, utils.NewYorkLocation), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var provErr *errors.ProviderError
	switch {
	case errors.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrDataNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrNoSpotPrice),
		errors.Is(err, errors.ErrRateLimited),
		errors.Is(err, errors.ErrProviderUnavailable),
		errors.As(err, &provErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *CondorHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var cfgErr *errors.ConfigError
	if errors.As(err, &cfgErr) {
		resp.Field = cfgErr.Field
	}

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("API request failed")

	writeJSON(w, status, resp)
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
