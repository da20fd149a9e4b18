package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mindtide/mindtide/internal/services"
)

func TestRequestCoachingMessage(t *testing.T) {
	var gotAuth string
	var gotReq services.OrchestratorRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/respond" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(services.OrchestratorResponse{
			Title:    "A note for you",
			Body:     "Take a breath.",
			ToneUsed: "warm-care",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok123")
	resp, err := c.RequestCoachingMessage(context.Background(), services.OrchestratorRequest{
		UserID:        "u1",
		LatestCheckin: services.OrchestratorCheckin{MoodScore: 2, EnergyLevel: services.EnergyLow},
	})
	if err != nil {
		t.Fatalf("RequestCoachingMessage error: %v", err)
	}
	if resp.Title != "A note for you" || resp.ToneUsed != "warm-care" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotReq.UserID != "u1" || gotReq.LatestCheckin.MoodScore != 2 {
		t.Fatalf("request not forwarded: %+v", gotReq)
	}
}

func TestRequestCoachingMessageNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.RequestCoachingMessage(context.Background(), services.OrchestratorRequest{}); err == nil {
		t.Fatalf("non-2xx must produce an error")
	}
}

func TestRequestCoachingMessageHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(srv.URL, "")
	if _, err := c.RequestCoachingMessage(ctx, services.OrchestratorRequest{}); err == nil {
		t.Fatalf("cancelled context must produce an error")
	}
}
