// Package api provides the HTTP API for observing and steering a trading session.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/tradelanes/internal/economy"
	"github.com/talgya/tradelanes/internal/engine"
	"github.com/talgya/tradelanes/internal/galaxy"
	"github.com/talgya/tradelanes/internal/metrics"
	"github.com/talgya/tradelanes/internal/trade"
)

// Saver persists a session snapshot.
type Saver interface {
	SaveSession(engine.Snapshot) error
}

// Server serves the session over HTTP.
type Server struct {
	Session  *engine.Session
	Eng      *engine.Engine   // Optional; enables speed control and run state
	DB       Saver            // Optional; enables POST /save
	Metrics  *metrics.Economy // Optional; mounts /metrics
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	limiter *RateLimiter
}

// NewServer creates a server with its stream hub and admin rate limiter.
// The caller wires Hub.Broadcast into Session.OnReport.
func NewServer(sess *engine.Session, port int, adminKey string, perSecond float64, burst int) *Server {
	return &Server{
		Session:  sess,
		Hub:      NewHub(),
		Port:     port,
		AdminKey: adminKey,
		limiter:  NewRateLimiter(perSecond, burst),
	}
}

// TrustForwardedFor makes the admin rate limiter key clients by X-Forwarded-For.
func (s *Server) TrustForwardedFor(on bool) {
	if s.limiter == nil {
		s.limiter = NewRateLimiter(1, 5)
	}
	s.limiter.TrustForwarded = on
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	if s.limiter == nil {
		s.limiter = NewRateLimiter(1, 5)
	}
	if s.Hub == nil {
		s.Hub = NewHub()
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/systems", s.handleSystems)
	mux.HandleFunc("/api/v1/system/", s.handleSystemDetail)
	mux.HandleFunc("/api/v1/knowledge", s.handleKnowledge)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/ship", s.handleShip)
	mux.HandleFunc("/api/v1/log", s.handleLog)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, bearer token, rate limited).
	mux.HandleFunc("/api/v1/dock", s.admin(s.handleDock))
	mux.HandleFunc("/api/v1/advance", s.admin(s.handleAdvance))
	mux.HandleFunc("/api/v1/trade", s.admin(s.handleTrade))
	mux.HandleFunc("/api/v1/save", s.admin(s.handleSave))
	mux.HandleFunc("/api/v1/speed", s.admin(s.handleSpeed))

	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server
// can be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "metrics", s.Metrics != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// admin requires POST, an available rate-limit token and a bearer token.
// The limiter runs before the token check so failed guesses spend tokens too.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	authorized := func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			httpError(w, http.StatusForbidden, "admin endpoints disabled (no TRADELANES_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			httpError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
	limited := RateLimitMiddleware(s.limiter, authorized)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		limited(w, r)
	}
}

func (s *Server) status() map[string]any {
	ship := s.Session.Ship()
	day := s.Session.Day()
	snap := s.Session.Snapshot()
	status := map[string]any{
		"name":           "Tradelanes",
		"day":            day,
		"date":           engine.DayLabel(day),
		"systems":        s.Session.Catalog().Len(),
		"location":       s.Session.Catalog().Resolve(ship.Location).Name,
		"credits":        ship.Credits,
		"active_events":  len(snap.Economy.Events),
		"ledger_entries": snap.Economy.Ledger.Len(),
		"known_systems":  snap.Economy.Knowledge.Len(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	return status
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

type systemSummary struct {
	galaxy.Star
	Class    string  `json:"class"`
	Distance float64 `json:"distance"` // Light years from the ship
	Event    string  `json:"event,omitempty"`
	Known    bool    `json:"known"`
}

func (s *Server) handleSystems(w http.ResponseWriter, r *http.Request) {
	catalog := s.Session.Catalog()
	here := catalog.Resolve(s.Session.Ship().Location)

	events := make(map[int]string)
	for _, e := range s.Session.ActiveEvents() {
		events[e.SystemID] = e.Name()
	}

	class := strings.ToUpper(r.URL.Query().Get("class"))
	stars := catalog.Stars()
	out := make([]systemSummary, 0, len(stars))
	for _, st := range stars {
		if class != "" && st.Class() != class {
			continue
		}
		_, known := s.Session.KnownPrices(st.ID)
		out = append(out, systemSummary{
			Star:     st,
			Class:    st.Class(),
			Distance: galaxy.Distance(here, st),
			Event:    events[st.ID],
			Known:    known,
		})
	}
	writeJSON(w, out)
}

type eventView struct {
	economy.Event
	Name      string `json:"name"`
	System    string `json:"system"`
	Remaining int    `json:"remaining_days"`
}

func (s *Server) eventView(e economy.Event, day int) eventView {
	return eventView{
		Event:     e,
		Name:      e.Name(),
		System:    s.Session.Catalog().Resolve(e.SystemID).Name,
		Remaining: e.Remaining(day),
	}
}

// handleSystemDetail serves GET /api/v1/system/:id with live and known prices.
func (s *Server) handleSystemDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/system/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid system id")
		return
	}
	star, ok := s.Session.Catalog().Lookup(id)
	if !ok {
		httpError(w, http.StatusNotFound, "system not found")
		return
	}

	day := s.Session.Day()
	detail := map[string]any{
		"system": star,
		"class":  star.Class(),
		"prices": s.Session.QuoteAll(id),
	}
	if kp, ok := s.Session.KnownPrices(id); ok {
		detail["known"] = kp
	}
	for _, e := range s.Session.ActiveEvents() {
		if e.SystemID == id {
			detail["event"] = s.eventView(e, day)
			break
		}
	}
	writeJSON(w, detail)
}

type knowledgeView struct {
	SystemID int    `json:"system_id"`
	System   string `json:"system"`
	economy.KnownPrices
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	know := s.Session.Snapshot().Economy.Knowledge
	catalog := s.Session.Catalog()
	out := make([]knowledgeView, 0, know.Len())
	for _, id := range know.Systems() {
		kp, _ := know.Get(id)
		out = append(out, knowledgeView{SystemID: id, System: catalog.Resolve(id).Name, KnownPrices: kp})
	}
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	day := s.Session.Day()
	typ := economy.EventType(r.URL.Query().Get("type"))

	events := s.Session.ActiveEvents()
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, s.eventView(e, day))
	}
	writeJSON(w, out)
}

func (s *Server) handleShip(w http.ResponseWriter, r *http.Request) {
	ship := s.Session.Ship()
	writeJSON(w, map[string]any{
		"ship":       ship,
		"system":     s.Session.Catalog().Resolve(ship.Location).Name,
		"cargo_used": ship.CargoUsed(),
		"cargo_free": ship.CargoFree(),
	})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Session.RecentLog(limit)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

func (s *Server) handleDock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		System int `json:"system"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.Session.Dock(req.System); err != nil {
		writeError(w, err)
		return
	}
	kp, _ := s.Session.KnownPrices(req.System)
	writeJSON(w, map[string]any{
		"system": s.Session.Catalog().Resolve(req.System).Name,
		"prices": kp.Prices,
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Days > 365 {
		httpError(w, http.StatusBadRequest, "days must be 1-365")
		return
	}
	report, err := s.Session.AdvanceDays(req.Days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Side string `json:"side"`
		Good string `json:"good"`
		Qty  int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json")
		return
	}
	good, ok := economy.ParseCommodity(req.Good)
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", trade.ErrUnknownCommodity, req.Good))
		return
	}

	var (
		receipt trade.Receipt
		err     error
	)
	switch trade.Side(req.Side) {
	case trade.SideBuy:
		receipt, err = s.Session.Buy(good, req.Qty)
	case trade.SideSell:
		receipt, err = s.Session.Sell(good, req.Qty)
	default:
		httpError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, receipt)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		httpError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	snap := s.Session.Snapshot()
	if err := s.DB.SaveSession(snap); err != nil {
		slog.Error("save failed", "error", err)
		httpError(w, http.StatusInternalServerError, "save failed")
		return
	}

	writeJSON(w, map[string]any{
		"day":     snap.Day,
		"message": "session saved",
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		httpError(w, http.StatusServiceUnavailable, "engine not running")
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		httpError(w, http.StatusBadRequest, "speed must be 0-1000")
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownSystem):
		return http.StatusNotFound
	case errors.Is(err, economy.ErrInvalidDays),
		errors.Is(err, economy.ErrUnknownCommodity),
		errors.Is(err, trade.ErrInvalidQuantity),
		errors.Is(err, trade.ErrUnknownCommodity):
		return http.StatusBadRequest
	case errors.Is(err, trade.ErrInsufficientFunds),
		errors.Is(err, trade.ErrCargoFull),
		errors.Is(err, trade.ErrNotInCargo):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	httpError(w, code, err.Error())
}

// httpError writes a JSON error body with the given status.
func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
