package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubOrchestrator struct {
	resp  *OrchestratorResponse
	err   error
	calls int
}

func (s *stubOrchestrator) RequestCoachingMessage(ctx context.Context, req OrchestratorRequest) (*OrchestratorResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubGenerator struct {
	msg   *GeneratedMessage
	err   error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, template InterventionTemplate, ic InterventionContext) (*GeneratedMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.msg, nil
}

func composeParams() ComposeParams {
	return ComposeParams{
		UserID:         "u1",
		Checkin:        checkinAt(2, EnergyLow, 0),
		RecentCheckins: moodSeries(2, 2, 2),
		AllowAI:        true,
	}
}

func TestComposeOrchestratorFirst(t *testing.T) {
	orch := &stubOrchestrator{resp: &OrchestratorResponse{
		Title:           "A steadier day",
		Body:            "Here is something concrete to try.",
		SuggestedAction: "Try it",
		ToneUsed:        "warm-care",
	}}
	gen := &stubGenerator{msg: &GeneratedMessage{Title: "x", Body: "y", CTAText: "z"}}
	c := NewComposer(orch, gen, time.Second)

	got := c.Compose(context.Background(), composeParams())
	if got.Fallback {
		t.Fatalf("orchestrator success should not be marked fallback")
	}
	if got.Template != TemplateCompassion {
		t.Fatalf("tone 'warm-care' should map to compassion, got %v", got.Template)
	}
	if got.Message.Title != "A steadier day" {
		t.Fatalf("unexpected message: %+v", got.Message)
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not run when orchestrator succeeds")
	}
}

func TestComposeFallsToGeneratorThenTemplate(t *testing.T) {
	orch := &stubOrchestrator{err: errors.New("boom")}
	gen := &stubGenerator{msg: &GeneratedMessage{
		Title: "Small steps", Body: "One thing at a time.", CTAText: "Start", TemplateType: TemplateReflection,
	}}
	c := NewComposer(orch, gen, time.Second)

	got := c.Compose(context.Background(), composeParams())
	if got.Fallback {
		t.Fatalf("generator success should not be marked fallback")
	}
	if got.Template != TemplateReflection {
		t.Fatalf("template = %v, want generator's reflection", got.Template)
	}
	if orch.calls != 1 || gen.calls != 1 {
		t.Fatalf("expected one attempt per stage, got %d/%d", orch.calls, gen.calls)
	}
}

func TestComposeDeterministicFallback(t *testing.T) {
	orch := &stubOrchestrator{err: errors.New("unreachable")}
	gen := &stubGenerator{err: errors.New("timeout")}
	c := NewComposer(orch, gen, time.Second)

	p := composeParams()
	got := c.Compose(context.Background(), p)
	if !got.Fallback {
		t.Fatalf("both stages failing must yield the fallback")
	}
	if got.Template != TemplateCompassion {
		t.Fatalf("mood 2.0 should select compassion, got %v", got.Template)
	}
	if !ValidateMessage(got.Message) {
		t.Fatalf("fallback message must be structurally valid: %+v", got.Message)
	}

	// Idempotent for identical context.
	again := c.Compose(context.Background(), p)
	if got.Message != again.Message || got.Template != again.Template {
		t.Fatalf("fallback path should be deterministic")
	}
}

func TestComposeInvalidAIResultsAreDiscarded(t *testing.T) {
	orch := &stubOrchestrator{resp: &OrchestratorResponse{Title: "", Body: "no title"}}
	gen := &stubGenerator{msg: &GeneratedMessage{Title: "t", Body: "", CTAText: "c"}}
	c := NewComposer(orch, gen, time.Second)

	got := c.Compose(context.Background(), composeParams())
	if !got.Fallback {
		t.Fatalf("invalid AI payloads should cascade to the fallback")
	}
	if !ValidateMessage(got.Message) {
		t.Fatalf("composer must always return a valid message")
	}
}

func TestComposeWithoutExternalStages(t *testing.T) {
	c := NewComposer(nil, nil, 0)
	got := c.Compose(context.Background(), composeParams())
	if !got.Fallback || !ValidateMessage(got.Message) {
		t.Fatalf("nil stages must still produce a valid fallback, got %+v", got)
	}
}

func TestComposeAllowAIFalseSkipsExternalStages(t *testing.T) {
	orch := &stubOrchestrator{resp: &OrchestratorResponse{Title: "t", Body: "b", SuggestedAction: "c"}}
	gen := &stubGenerator{msg: &GeneratedMessage{Title: "t", Body: "b", CTAText: "c"}}
	c := NewComposer(orch, gen, time.Second)

	p := composeParams()
	p.AllowAI = false
	got := c.Compose(context.Background(), p)
	if !got.Fallback {
		t.Fatalf("AllowAI=false should force the deterministic path")
	}
	if orch.calls != 0 || gen.calls != 0 {
		t.Fatalf("external stages must not run when AI is disabled")
	}
}

func TestComposePersonalityEnhancementOnFallback(t *testing.T) {
	c := NewComposer(nil, nil, 0)
	p := composeParams()
	p.Traits = &BigFiveScores{Neuroticism: 0.85}
	got := c.Compose(context.Background(), p)
	plain := c.Compose(context.Background(), composeParams())
	if got.Message.Body == plain.Message.Body {
		t.Fatalf("high neuroticism should append a personality clause")
	}
}

func TestMapToneToTemplate(t *testing.T) {
	cases := []struct {
		tone string
		want InterventionTemplate
		ok   bool
	}{
		{"compassion", TemplateCompassion, true},
		{"Gentle-Care", TemplateCompassion, true},
		{"deep-insight", TemplateReflection, true},
		{"reflection", TemplateReflection, true},
		{"action-plan", TemplateAction, true},
		{"motivate", TemplateAction, true},
		{"neutral", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := MapToneToTemplate(c.tone)
		if got != c.want || ok != c.ok {
			t.Fatalf("MapToneToTemplate(%q) = %v,%v want %v,%v", c.tone, got, ok, c.want, c.ok)
		}
	}
}

func TestParseMessageJSON(t *testing.T) {
	msg, ok := ParseMessageJSON("```json\n{\"title\":\"t\",\"body\":\"b\",\"cta_text\":\"c\"}\n```")
	if !ok || msg.Title != "t" || msg.CTAText != "c" {
		t.Fatalf("fenced JSON should parse, got %v %v", msg, ok)
	}
	if _, ok := ParseMessageJSON("not json"); ok {
		t.Fatalf("malformed payload must not parse")
	}
	if _, ok := ParseMessageJSON(`{"title":"","body":"b","cta_text":"c"}`); ok {
		t.Fatalf("invalid message must be rejected")
	}
}
