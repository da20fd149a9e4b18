package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mindtide/mindtide/internal/middleware"
	"github.com/mindtide/mindtide/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewRouter(NewMemoryStore(), Options{}).Register(mux)
	srv := httptest.NewServer(middleware.LocaleMiddleware(middleware.WithAuth(mux)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, out); err != nil && resp.StatusCode < 300 {
			t.Fatalf("decode response from %s: %v (%s)", url, err, data)
		}
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, base string) string {
	t.Helper()
	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	status := doJSON(t, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email":    "river@example.com",
		"password": "Secret123!",
	}, &resp)
	if status != http.StatusOK || resp.Token == "" {
		t.Fatalf("register: status=%d resp=%+v", status, resp)
	}
	return resp.Token
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL)
	if token == "" {
		t.Fatalf("no token")
	}

	var login struct {
		Token string `json:"token"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email":    "river@example.com",
		"password": "Secret123!",
	}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Fatalf("login: status=%d", status)
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email":    "river@example.com",
		"password": "wrong",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password: status=%d, want 401", status)
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]string{
		"email":    "river@example.com",
		"password": "again",
	}, nil)
	if status != http.StatusConflict {
		t.Fatalf("duplicate register: status=%d, want 409", status)
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	srv := newTestServer(t)
	for _, ep := range []string{"/api/checkins", "/api/history", "/api/interventions", "/api/coach/config", "/api/tipi/latest"} {
		if status := doJSON(t, http.MethodGet, srv.URL+ep, "", nil, nil); status != http.StatusUnauthorized {
			t.Fatalf("%s without token: status=%d, want 401", ep, status)
		}
	}
}

func TestTIPIQuestionsAndSubmit(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL)

	var questions struct {
		Points    int `json:"points"`
		Questions []struct {
			ID   int    `json:"id"`
			Text string `json:"text"`
		} `json:"questions"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/tipi/questions?lang=ja", "", nil, &questions)
	if status != http.StatusOK || questions.Points != 7 || len(questions.Questions) != 10 {
		t.Fatalf("questions: status=%d points=%d n=%d", status, questions.Points, len(questions.Questions))
	}
	if questions.Questions[0].Text == "" {
		t.Fatalf("localized stem missing")
	}

	responses := make([]map[string]int, 0, 10)
	for i := 1; i <= 10; i++ {
		responses = append(responses, map[string]int{"question_id": i, "score": 4})
	}
	var assessment services.TraitAssessment
	status = doJSON(t, http.MethodPost, srv.URL+"/api/tipi/submit", token, map[string]any{"responses": responses}, &assessment)
	if status != http.StatusOK {
		t.Fatalf("submit: status=%d", status)
	}
	if assessment.TraitsT.Openness != 50 {
		t.Fatalf("neutral profile should land on T=50: %+v", assessment.TraitsT)
	}

	var latest services.TraitAssessment
	status = doJSON(t, http.MethodGet, srv.URL+"/api/tipi/latest", token, nil, &latest)
	if status != http.StatusOK || latest.ID != assessment.ID {
		t.Fatalf("latest: status=%d id=%q want %q", status, latest.ID, assessment.ID)
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/tipi/submit", token, map[string]any{
		"responses": responses[:3],
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("short submission: status=%d, want 400", status)
	}
}

func TestCheckinFlowProducesIntervention(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL)

	submit := func(mood int) *services.SubmitCheckinResult {
		var res services.SubmitCheckinResult
		status := doJSON(t, http.MethodPost, srv.URL+"/api/checkins", token, map[string]any{
			"mood_score":   mood,
			"energy_level": "mid",
			"free_text":    "day notes",
		}, &res)
		if status != http.StatusCreated {
			t.Fatalf("submit checkin: status=%d", status)
		}
		return &res
	}

	if res := submit(4); res.Intervention != nil {
		t.Fatalf("first good check-in should not trigger")
	}
	submit(4)
	third := submit(2)
	if third.Intervention == nil {
		t.Fatalf("third check-in should trigger the engaged-user rule")
	}
	if !third.Intervention.Fallback {
		t.Fatalf("no AI configured: message must be the deterministic fallback")
	}
	if third.Intervention.TemplateType != services.TemplateReflection {
		t.Fatalf("avg 3.3 should pick reflection, got %v", third.Intervention.TemplateType)
	}

	ivID := third.Intervention.ID
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/interventions/"+ivID+"/viewed", token, nil, nil); status != http.StatusOK {
		t.Fatalf("mark viewed: status=%d", status)
	}
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/interventions/"+ivID+"/feedback", token, map[string]int{"score": 4}, nil); status != http.StatusOK {
		t.Fatalf("feedback: status=%d", status)
	}
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/interventions/"+ivID+"/feedback", token, map[string]int{"score": 9}, nil); status != http.StatusBadRequest {
		t.Fatalf("out-of-range feedback: status=%d, want 400", status)
	}

	var list struct {
		Interventions []services.InterventionRecord `json:"interventions"`
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/interventions", token, nil, &list); status != http.StatusOK {
		t.Fatalf("list interventions: status=%d", status)
	}
	if len(list.Interventions) != 1 || !list.Interventions[0].Viewed || list.Interventions[0].FeedbackScore != 4 {
		t.Fatalf("intervention state: %+v", list.Interventions)
	}

	var page services.HistoryPage
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/history", token, nil, &page); status != http.StatusOK {
		t.Fatalf("history: status=%d", status)
	}
	if page.Total != 3 || page.Stats.TotalInterventions != 1 {
		t.Fatalf("history page: total=%d interventions=%d", page.Total, page.Stats.TotalInterventions)
	}
	grouped := 0
	for _, item := range page.Timeline {
		if item.Type == services.TimelineGrouped {
			grouped++
		}
	}
	if grouped != 1 {
		t.Fatalf("expected exactly one grouped timeline item, got %d", grouped)
	}
}

func TestHistoryExportCSV(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL)

	if status := doJSON(t, http.MethodPost, srv.URL+"/api/checkins", token, map[string]any{
		"mood_score":   5,
		"energy_level": "high",
	}, nil); status != http.StatusCreated {
		t.Fatalf("submit checkin: status=%d", status)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/history/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "id,created_at,mood_score,energy_level,free_text") {
		t.Fatalf("unexpected csv: %q", data)
	}
}

func TestCoachConfigEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL)

	var cfg services.CoachConfig
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/coach/config", token, nil, &cfg); status != http.StatusOK {
		t.Fatalf("get config: status=%d", status)
	}
	if !cfg.AllowAI || cfg.StoreLogs {
		t.Fatalf("defaults: %+v", cfg)
	}

	if status := doJSON(t, http.MethodPut, srv.URL+"/api/coach/config", token, map[string]bool{
		"allow_ai":   false,
		"store_logs": true,
	}, &cfg); status != http.StatusOK {
		t.Fatalf("put config: status=%d", status)
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/coach/config", token, nil, &cfg); status != http.StatusOK {
		t.Fatalf("get config: status=%d", status)
	}
	if cfg.AllowAI || !cfg.StoreLogs {
		t.Fatalf("updated config not returned: %+v", cfg)
	}
}
