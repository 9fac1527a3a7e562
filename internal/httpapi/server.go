package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kbars/internal/datasource"
	"kbars/internal/domain"
	"kbars/internal/util"
)

const (
	defaultBarCount = 120
	maxBarCount     = 10000
)

// Server exposes one DataSource over HTTP.
type Server struct {
	source *datasource.DataSource
	log    *slog.Logger
}

// NewServer creates a Server. A nil logger falls back to slog.Default.
func NewServer(source *datasource.DataSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{source: source, log: logger}
}

// RegisterRoutes registers all API endpoints on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/instruments", s.handleInstruments)
	mux.HandleFunc("GET /api/v1/instruments/{id}", s.handleInstrument)
	mux.HandleFunc("GET /api/v1/bars/{id}", s.handleBars)
	mux.HandleFunc("GET /api/v1/bar/{id}", s.handleBar)
	mux.HandleFunc("GET /api/v1/settle-price/{id}", s.handleSettlePrice)
	mux.HandleFunc("GET /api/v1/margin/{id}", s.handleMargin)
	mux.HandleFunc("GET /api/v1/commission/{id}", s.handleCommission)
	mux.HandleFunc("GET /api/v1/range", s.handleRange)
	mux.HandleFunc("GET /api/v1/dividends/{id}", s.handleDividends)
	mux.HandleFunc("GET /api/v1/suspended/{id}", s.handleSuspended)
	mux.HandleFunc("GET /api/v1/st/{id}", s.handleSTStock)
	mux.HandleFunc("GET /api/v1/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/v1/yield-curve", s.handleYieldCurve)
	mux.HandleFunc("GET /api/v1/risk-free-rate", s.handleRiskFreeRate)
}

// Handler returns the complete HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.logMiddleware(mux))
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, HealthResponse{
		Status:      "ok",
		Instruments: len(s.source.AllInstruments()),
	})
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	instruments := s.source.AllInstruments()
	if typ := r.URL.Query().Get("type"); typ != "" {
		filtered := make([]domain.Instrument, 0, len(instruments))
		for _, inst := range instruments {
			if inst.Type == domain.InstrumentType(typ) {
				filtered = append(filtered, inst)
			}
		}
		instruments = filtered
	}
	s.writeJSON(w, InstrumentsResponse{
		Count:       len(instruments),
		Instruments: instruments,
	})
}

func (s *Server) handleInstrument(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	s.writeJSON(w, inst)
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	q := r.URL.Query()

	freq, err := parseFreq(q.Get("freq"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count := defaultBarCount
	if v := q.Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count < 1 {
			s.writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
	}
	if count > maxBarCount {
		count = maxBarCount
	}
	asOf, err := s.parseDateOrLatest(q.Get("date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := datasource.HistoryOptions{
		Fields:        domain.ParseFields(q.Get("fields")),
		SkipSuspended: true,
		IncludeNow:    true,
	}
	if v := q.Get("skip_suspended"); v != "" {
		opts.SkipSuspended, err = strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "skip_suspended must be a boolean")
			return
		}
	}
	if v := q.Get("include_now"); v != "" {
		opts.IncludeNow, err = strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "include_now must be a boolean")
			return
		}
	}

	bars, err := s.source.HistoryBars(inst, count, freq, asOf, opts)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	fields := opts.Fields
	if fields == nil {
		fields = domain.DayBarFields()
		if inst.Type == domain.TypeFuture && freq == domain.FreqDaily {
			fields = domain.FutureDayBarFields()
		}
	}
	s.writeJSON(w, BarsResponse{
		OrderBookID: inst.OrderBookID,
		Frequency:   string(freq),
		Fields:      fields,
		Count:       len(bars),
		Columns:     domain.Columns(bars, fields),
	})
}

func (s *Server) handleBar(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	date, err := s.parseDateOrLatest(r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bar, found, err := s.source.GetBar(inst, date, domain.FreqDaily)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	resp := BarResponse{OrderBookID: inst.OrderBookID, Date: util.FormatDate(date)}
	if found {
		resp.Bar = &bar
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleSettlePrice(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	date, err := s.parseDateOrLatest(r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, SettlePriceResponse{
		OrderBookID: inst.OrderBookID,
		Date:        util.FormatDate(date),
		SettlePrice: finitePtr(s.source.GetSettlePrice(inst, date)),
	})
}

func (s *Server) handleMargin(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	s.writeJSON(w, s.source.GetMarginInfo(inst))
}

func (s *Server) handleCommission(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	info, ok := s.source.GetCommissionInfo(inst)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no commission schedule for underlying")
		return
	}
	s.writeJSON(w, info)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	freq, err := parseFreq(r.URL.Query().Get("freq"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := s.source.AvailableDataRange(freq)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	resp := RangeResponse{Frequency: string(freq)}
	if !start.IsZero() {
		startStr, endStr := util.FormatDate(start), util.FormatDate(end)
		resp.Start, resp.End = &startStr, &endStr
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleDividends(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	variant := r.URL.Query().Get("variant")
	if variant == "" {
		variant = "adjusted"
	}
	if variant != "adjusted" && variant != "original" {
		s.writeError(w, http.StatusBadRequest, "variant must be adjusted or original")
		return
	}
	dividends := s.source.GetDividends(inst.OrderBookID, variant == "adjusted")
	s.writeJSON(w, DividendsResponse{
		OrderBookID: inst.OrderBookID,
		Variant:     variant,
		Count:       len(dividends),
		Dividends:   dividends,
	})
}

func (s *Server) handleSuspended(w http.ResponseWriter, r *http.Request) {
	s.handleDateFlags(w, r, s.source.IsSuspended)
}

func (s *Server) handleSTStock(w http.ResponseWriter, r *http.Request) {
	s.handleDateFlags(w, r, s.source.IsSTStock)
}

func (s *Server) handleDateFlags(w http.ResponseWriter, r *http.Request, query func(string, []time.Time) []bool) {
	inst, ok := s.source.Instrument(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown instrument")
		return
	}
	raw := r.URL.Query().Get("dates")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "dates parameter is required")
		return
	}
	parts := strings.Split(raw, ",")
	dates := make([]time.Time, 0, len(parts))
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		d, err := util.ParseDate(strings.TrimSpace(p))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		dates = append(dates, d)
		labels = append(labels, util.FormatDate(d))
	}
	s.writeJSON(w, DateFlagsResponse{
		OrderBookID: inst.OrderBookID,
		Dates:       labels,
		Flags:       query(inst.OrderBookID, dates),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, hasStart, err := parseOptionalDate(q.Get("start"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, hasEnd, err := parseOptionalDate(q.Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var dates []string
	for _, d := range s.source.TradingCalendar() {
		if hasStart && d.Before(start) {
			continue
		}
		if hasEnd && d.After(end) {
			break
		}
		dates = append(dates, util.FormatDate(d))
	}
	s.writeJSON(w, CalendarResponse{Count: len(dates), Dates: dates})
}

func (s *Server) handleYieldCurve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parseDateWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points := s.source.GetYieldCurve(start, end, q.Get("tenor"))
	s.writeJSON(w, YieldCurveResponse{Count: len(points), Points: points})
}

func (s *Server) handleRiskFreeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parseDateWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, RiskFreeRateResponse{
		Start: util.FormatDate(start),
		End:   util.FormatDate(end),
		Rate:  finitePtr(s.source.GetRiskFreeRate(start, end)),
	})
}

// ---------------------------------------------------------------------------
// Parameter parsing
// ---------------------------------------------------------------------------

func parseFreq(s string) (domain.Frequency, error) {
	if s == "" {
		return domain.FreqDaily, nil
	}
	return domain.ParseFrequency(s)
}

func parseOptionalDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	d, err := util.ParseDate(s)
	if err != nil {
		return time.Time{}, false, err
	}
	return d, true, nil
}

func parseDateWindow(startStr, endStr string) (start, end time.Time, err error) {
	if startStr == "" || endStr == "" {
		return start, end, errors.New("start and end parameters are required")
	}
	if start, err = util.ParseDate(startStr); err != nil {
		return start, end, err
	}
	if end, err = util.ParseDate(endStr); err != nil {
		return start, end, err
	}
	return start, end, nil
}

// parseDateOrLatest resolves an optional date parameter, defaulting to the
// last day of the trading calendar so that a bare query means "as of the
// newest data".
func (s *Server) parseDateOrLatest(v string) (time.Time, error) {
	if v != "" {
		return util.ParseDate(v)
	}
	if calendar := s.source.TradingCalendar(); len(calendar) > 0 {
		return calendar[len(calendar)-1], nil
	}
	return time.Now().UTC(), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, datasource.ErrUnsupportedFrequency),
		errors.Is(err, datasource.ErrInvalidField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ---------------------------------------------------------------------------
// Middleware and response helpers
// ---------------------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		s.log.Error("failed to encode error response", "error", err)
	}
}
