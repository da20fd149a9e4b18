package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mindtide/mindtide/internal/middleware"
	"github.com/mindtide/mindtide/internal/services"
	"github.com/mindtide/mindtide/internal/utils"
)

// Router owns the HTTP surface and the service graph behind it.
type Router struct {
	auth          *services.AuthService
	assessments   *services.AssessmentService
	checkins      *services.CheckinService
	history       *services.HistoryService
	interventions *services.InterventionService
	coachConfig   *services.CoachConfigService
}

// Options carries the optional pipeline stages injected at startup.
type Options struct {
	Orchestrator services.OrchestratorClient
	Generator    services.MessageGenerator
	Marker       services.DailyMarker
	// ComposeTimeout bounds each external composer stage; zero means the
	// default.
	ComposeTimeout time.Duration
}

func NewRouter(store Store, opts Options) *Router {
	composer := services.NewComposer(opts.Orchestrator, opts.Generator, opts.ComposeTimeout)
	return &Router{
		auth:          services.NewAuthService(store, middleware.SignToken),
		assessments:   services.NewAssessmentService(store),
		checkins:      services.NewCheckinService(store, composer, opts.Marker),
		history:       services.NewHistoryService(store),
		interventions: services.NewInterventionService(store),
		coachConfig:   services.NewCoachConfigService(store),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)       // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)             // POST
	mux.HandleFunc("/api/tipi/questions", rt.handleTIPIQuestions) // GET
	mux.HandleFunc("/api/tipi/submit", rt.handleTIPISubmit)       // POST
	mux.HandleFunc("/api/tipi/latest", rt.handleTIPILatest)       // GET
	mux.HandleFunc("/api/checkins", rt.handleCheckins)            // POST | GET
	mux.HandleFunc("/api/history", rt.handleHistory)              // GET
	mux.HandleFunc("/api/history/export", rt.handleHistoryExport) // GET
	mux.HandleFunc("/api/interventions", rt.handleInterventions)  // GET
	mux.HandleFunc("/api/interventions/", rt.handleInterventionScoped)
	mux.HandleFunc("/api/coach/config", rt.handleCoachConfig) // GET | PUT
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps service error codes onto HTTP statuses. Unknown errors
// are logged and masked as 500s.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	se, ok := services.AsServiceError(err)
	if !ok {
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		locale := middleware.LocaleFromContext(r.Context())
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": utils.T(locale, "error.internal")})
		return
	}
	status := http.StatusInternalServerError
	switch se.Code {
	case services.ErrorInvalid:
		status = http.StatusBadRequest
	case services.ErrorUnauthorized:
		status = http.StatusUnauthorized
	case services.ErrorForbidden:
		status = http.StatusForbidden
	case services.ErrorNotFound:
		status = http.StatusNotFound
	case services.ErrorConflict:
		status = http.StatusConflict
	case services.ErrorBadGateway:
		status = http.StatusBadGateway
	}
	body := map[string]any{"error": se.Message, "code": se.Code}
	if len(se.Details) > 0 {
		body["details"] = se.Details
	}
	writeJSON(w, status, body)
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		locale := middleware.LocaleFromContext(r.Context())
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": utils.T(locale, "error.unauthorized")})
		return "", false
	}
	return uid, true
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "user_id": res.UserID})
}

// GET /api/tipi/questions?lang=xx
func (rt *Router) handleTIPIQuestions(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = middleware.LocaleFromContext(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instrument": "TIPI",
		"points":     7,
		"questions":  services.TIPIQuestionsForLocale(lang),
	})
}

// POST /api/tipi/submit
func (rt *Router) handleTIPISubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		Responses []services.TIPIResponse `json:"responses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := rt.assessments.Submit(uid, req.Responses)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GET /api/tipi/latest
func (rt *Router) handleTIPILatest(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	a, err := rt.assessments.Latest(uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// POST /api/checkins submits a mood check-in and runs the coaching
// pipeline. GET /api/checkins?limit=n lists recent check-ins.
func (rt *Router) handleCheckins(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			MoodScore   int    `json:"mood_score"`
			EnergyLevel string `json:"energy_level"`
			FreeText    string `json:"free_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, err := rt.checkins.Submit(r.Context(), services.SubmitCheckinRequest{
			UserID:      uid,
			MoodScore:   req.MoodScore,
			EnergyLevel: services.EnergyLevel(req.EnergyLevel),
			FreeText:    req.FreeText,
		})
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page, err := rt.history.Page(uid, limit, 0)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/history?limit=n&offset=m
func (rt *Router) handleHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	page, err := rt.history.Page(uid, limit, offset)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /api/history/export returns the full check-in history as CSV.
func (rt *Router) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	b, err := rt.history.ExportCheckinCSV(uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=checkins.csv")
	_, _ = w.Write(b)
}

// GET /api/interventions
func (rt *Router) handleInterventions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := rt.interventions.List(uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interventions": list})
}

// POST /api/interventions/{id}/viewed
// POST /api/interventions/{id}/feedback
func (rt *Router) handleInterventionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/interventions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := parts[0]
	switch parts[1] {
	case "viewed":
		if err := rt.interventions.MarkViewed(uid, id); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "feedback":
		var req struct {
			Score int `json:"score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := rt.interventions.SubmitFeedback(uid, id, req.Score); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

// GET /api/coach/config | PUT /api/coach/config
func (rt *Router) handleCoachConfig(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := rt.coachConfig.Get(uid)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPut:
		var req struct {
			AllowAI   bool `json:"allow_ai"`
			StoreLogs bool `json:"store_logs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cfg := &services.CoachConfig{UserID: uid, AllowAI: req.AllowAI, StoreLogs: req.StoreLogs}
		if err := rt.coachConfig.Update(cfg); err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
