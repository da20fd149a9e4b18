package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
)

// Message composition. The composer tries its stages in order of
// preference and guarantees it always returns a usable message: a
// configured orchestrator first, then the local AI generator, and finally
// the deterministic template. Each stage gets a single attempt; failures
// are logged and swallowed, never propagated.

// GeneratedMessage is the structured output of an AI generation stage.
type GeneratedMessage struct {
	Title        string               `json:"title"`
	Body         string               `json:"body"`
	CTAText      string               `json:"cta_text"`
	TemplateType InterventionTemplate `json:"template_type"`
}

// MessageGenerator produces a coaching message from a template and
// context, typically by calling an LLM.
type MessageGenerator interface {
	Generate(ctx context.Context, template InterventionTemplate, ic InterventionContext) (*GeneratedMessage, error)
}

// OrchestratorRequest is the payload sent to the external coaching
// orchestrator.
type OrchestratorRequest struct {
	UserID        string                `json:"user_id"`
	LatestCheckin OrchestratorCheckin   `json:"latest_checkin"`
	Analytics     OrchestratorAnalytics `json:"analytics"`
	Personality   *BigFiveScores        `json:"personality"`
	HistoryRefs   []string              `json:"history_refs"`
}

type OrchestratorCheckin struct {
	MoodScore   int         `json:"mood_score"`
	EnergyLevel EnergyLevel `json:"energy_level"`
	Note        string      `json:"note,omitempty"`
}

type OrchestratorAnalytics struct {
	AverageMood float64 `json:"average_mood"`
	Trend       Trend   `json:"trend"`
	StreakDays  int     `json:"streak_days"`
}

// OrchestratorResponse is the orchestrator's answer. ToneUsed is mapped
// heuristically onto a template type.
type OrchestratorResponse struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	SuggestedAction string `json:"suggested_action,omitempty"`
	ToneUsed        string `json:"tone_used,omitempty"`
}

// OrchestratorClient calls the optional external orchestration service.
type OrchestratorClient interface {
	RequestCoachingMessage(ctx context.Context, req OrchestratorRequest) (*OrchestratorResponse, error)
}

// MapToneToTemplate translates an orchestrator tone label into a template
// type by substring match. Unmatched tones report false, which sends the
// caller back to mood-based template selection.
func MapToneToTemplate(tone string) (InterventionTemplate, bool) {
	normalized := strings.ToLower(tone)
	switch {
	case normalized == "":
		return "", false
	case strings.Contains(normalized, "compassion") || strings.Contains(normalized, "care"):
		return TemplateCompassion, true
	case strings.Contains(normalized, "reflection") || strings.Contains(normalized, "insight"):
		return TemplateReflection, true
	case strings.Contains(normalized, "action") || strings.Contains(normalized, "motivate"):
		return TemplateAction, true
	default:
		return "", false
	}
}

// ParseMessageJSON decodes a raw generator payload into a message and
// validates it. Markdown code fences around the JSON are tolerated.
func ParseMessageJSON(raw string) (*InterventionMessage, bool) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var msg InterventionMessage
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
		return nil, false
	}
	if !ValidateMessage(msg) {
		return nil, false
	}
	return &msg, true
}

// Composer runs the orchestrator -> generator -> template cascade.
type Composer struct {
	orchestrator OrchestratorClient // optional
	generator    MessageGenerator   // optional
	timeout      time.Duration
	now          func() time.Time
}

const defaultComposeTimeout = 15 * time.Second

func NewComposer(orchestrator OrchestratorClient, generator MessageGenerator, timeout time.Duration) *Composer {
	if timeout <= 0 {
		timeout = defaultComposeTimeout
	}
	return &Composer{
		orchestrator: orchestrator,
		generator:    generator,
		timeout:      timeout,
		now:          func() time.Time { return time.Now() },
	}
}

// ComposeParams is the full input for one composition.
type ComposeParams struct {
	UserID         string
	Checkin        CheckinRecord
	RecentCheckins []CheckinRecord
	Traits         *BigFiveScores
	// AllowAI disables the external stages when false; the composer
	// goes straight to the deterministic template.
	AllowAI bool
}

// ComposeResult is what the composer always returns: a valid message, the
// template it belongs to, and whether the deterministic fallback produced
// it.
type ComposeResult struct {
	Template InterventionTemplate
	Message  InterventionMessage
	Fallback bool
	Context  InterventionContext
}

// Compose builds the intervention context from the recent history and runs
// the cascade. It never returns an error: any stage failure falls through
// to the next, and the deterministic template is always available.
func (c *Composer) Compose(ctx context.Context, p ComposeParams) ComposeResult {
	analytics := BuildMoodAnalytics(p.RecentCheckins, c.now())

	ic := InterventionContext{
		MoodAverage:       analytics.AverageMood,
		MoodTrend:         analytics.MoodTrend,
		EnergyLevel:       p.Checkin.EnergyLevel,
		FreeText:          p.Checkin.FreeText,
		PersonalityTraits: p.Traits,
		RecentCheckins:    len(p.RecentCheckins),
		StreakDays:        analytics.StreakDays,
	}
	template := SelectInterventionTemplate(analytics.AverageMood)

	if p.AllowAI {
		if msg, tpl, ok := c.tryOrchestrator(ctx, p, ic, template); ok {
			return ComposeResult{Template: tpl, Message: *msg, Fallback: false, Context: ic}
		}
		if msg, tpl, ok := c.tryGenerator(ctx, ic, template); ok {
			return ComposeResult{Template: tpl, Message: *msg, Fallback: false, Context: ic}
		}
	}

	msg := FallbackMessage(template, ic)
	msg = EnhanceWithPersonality(msg, p.Traits, template)
	return ComposeResult{Template: template, Message: msg, Fallback: true, Context: ic}
}

func (c *Composer) tryOrchestrator(ctx context.Context, p ComposeParams, ic InterventionContext, template InterventionTemplate) (*InterventionMessage, InterventionTemplate, bool) {
	if c.orchestrator == nil {
		return nil, template, false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	refs := make([]string, 0, len(p.RecentCheckins))
	for _, ck := range p.RecentCheckins {
		refs = append(refs, ck.ID)
	}
	resp, err := c.orchestrator.RequestCoachingMessage(callCtx, OrchestratorRequest{
		UserID: p.UserID,
		LatestCheckin: OrchestratorCheckin{
			MoodScore:   p.Checkin.MoodScore,
			EnergyLevel: p.Checkin.EnergyLevel,
			Note:        p.Checkin.FreeText,
		},
		Analytics: OrchestratorAnalytics{
			AverageMood: ic.MoodAverage,
			Trend:       ic.MoodTrend,
			StreakDays:  ic.StreakDays,
		},
		Personality: p.Traits,
		HistoryRefs: refs,
	})
	if err != nil {
		log.Printf("composer: orchestrator generation failed, falling back to local AI: %v", err)
		return nil, template, false
	}

	if tpl, ok := MapToneToTemplate(resp.ToneUsed); ok {
		template = tpl
	}
	msg := InterventionMessage{Title: resp.Title, Body: resp.Body, CTAText: resp.SuggestedAction}
	if msg.CTAText == "" {
		msg.CTAText = FallbackMessage(template, ic).CTAText
	}
	if !ValidateMessage(msg) {
		log.Printf("composer: orchestrator message failed validation, falling back to local AI")
		return nil, template, false
	}
	return &msg, template, true
}

func (c *Composer) tryGenerator(ctx context.Context, ic InterventionContext, template InterventionTemplate) (*InterventionMessage, InterventionTemplate, bool) {
	if c.generator == nil {
		return nil, template, false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gen, err := c.generator.Generate(callCtx, template, ic)
	if err != nil {
		log.Printf("composer: AI generation failed, using fallback template: %v", err)
		return nil, template, false
	}

	msg := InterventionMessage{Title: gen.Title, Body: gen.Body, CTAText: gen.CTAText}
	if !ValidateMessage(msg) {
		log.Printf("composer: AI message failed validation, using fallback template")
		return nil, template, false
	}
	if gen.TemplateType != "" {
		template = gen.TemplateType
	}
	return &msg, template, true
}
