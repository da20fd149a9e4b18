package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxFreeTextLen    = 280
	recentCheckinsCap = 7
)

// CheckinStore abstracts the persistence operations the check-in workflow
// needs.
type CheckinStore interface {
	AddCheckin(c *CheckinRecord) error
	ListRecentCheckins(userID string, limit int) ([]CheckinRecord, error)
	CountCheckins(userID string) (int, error)
	LatestTraits(userID string) (*TraitAssessment, error)
	LastInterventionAt(userID string) (*time.Time, error)
	AddIntervention(iv *InterventionRecord) error
	GetCoachConfig(userID string) (*CoachConfig, error)
}

// DailyMarker is an optional cross-instance guard noting that a user
// already received an intervention on a given day. A Redis-backed
// implementation lives in internal/cache; when absent the stored
// last-intervention timestamp is the only guard.
type DailyMarker interface {
	MarkInterventionDay(ctx context.Context, userID string, day time.Time) (bool, error)
}

// CheckinService hosts the check-in submission workflow: validate,
// persist, recompute analytics, and run the intervention pipeline
// synchronously within the request.
type CheckinService struct {
	store    CheckinStore
	composer *Composer
	marker   DailyMarker
	now      func() time.Time
	idGen    func() string
}

func NewCheckinService(store CheckinStore, composer *Composer, marker DailyMarker) *CheckinService {
	return &CheckinService{
		store:    store,
		composer: composer,
		marker:   marker,
		now:      func() time.Time { return time.Now() },
		idGen:    newRecordID,
	}
}

// SubmitCheckinRequest carries the sanitized handler input.
type SubmitCheckinRequest struct {
	UserID      string
	MoodScore   int
	EnergyLevel EnergyLevel
	FreeText    string
}

// CheckinAnalytics is the summary returned with a submission response.
type CheckinAnalytics struct {
	MoodAverage           float64               `json:"mood_average"`
	MoodTrend             Trend                 `json:"mood_trend"`
	EnergyDistribution    EnergyDistribution    `json:"energy_distribution"`
	InterventionTriggered bool                  `json:"intervention_triggered"`
	TemplateType          *InterventionTemplate `json:"template_type"`
	RecentCheckins        int                   `json:"recent_checkins_count"`
	StreakDays            int                   `json:"streak_days"`
	TotalCheckins         int                   `json:"total_checkins"`
}

// SubmitCheckinResult is the full submission outcome. Intervention is nil
// when the policy did not fire or the pipeline failed; pipeline failures
// never fail the check-in itself.
type SubmitCheckinResult struct {
	Checkin      CheckinRecord       `json:"checkin"`
	Analytics    CheckinAnalytics    `json:"analytics"`
	Intervention *InterventionRecord `json:"intervention,omitempty"`
}

// Submit validates and persists a check-in, then runs the analytics ->
// policy -> composer pipeline.
func (s *CheckinService) Submit(ctx context.Context, req SubmitCheckinRequest) (*SubmitCheckinResult, error) {
	if req.UserID == "" {
		return nil, NewUnauthorizedError("user required")
	}
	if req.MoodScore < 1 || req.MoodScore > 5 {
		return nil, NewInvalidError("mood score must be between 1 and 5")
	}
	if !req.EnergyLevel.Valid() {
		return nil, NewInvalidError("energy level must be low, mid, or high")
	}
	freeText := strings.TrimSpace(req.FreeText)
	if utf8.RuneCountInString(freeText) > maxFreeTextLen {
		return nil, NewInvalidError("free text must be 280 characters or less")
	}

	now := s.now()
	checkin := CheckinRecord{
		ID:          s.idGen(),
		UserID:      req.UserID,
		MoodScore:   req.MoodScore,
		EnergyLevel: req.EnergyLevel,
		FreeText:    freeText,
		CreatedAt:   now,
	}
	if err := s.store.AddCheckin(&checkin); err != nil {
		return nil, fmt.Errorf("save check-in: %w", err)
	}

	recent, err := s.store.ListRecentCheckins(req.UserID, recentCheckinsCap)
	if err != nil {
		// The check-in is saved; report it with empty analytics.
		log.Printf("checkin service: fetch recent check-ins failed: %v", err)
		return &SubmitCheckinResult{Checkin: checkin}, nil
	}

	analytics := BuildMoodAnalytics(recent, now)
	summary := CheckinAnalytics{
		MoodAverage:        analytics.AverageMood,
		MoodTrend:          analytics.MoodTrend,
		EnergyDistribution: analytics.EnergyDistribution,
		RecentCheckins:     len(recent),
		StreakDays:         analytics.StreakDays,
	}
	if total, err := s.store.CountCheckins(req.UserID); err == nil {
		summary.TotalCheckins = total
	} else {
		log.Printf("checkin service: count check-ins failed: %v", err)
		summary.TotalCheckins = len(recent)
	}

	result := &SubmitCheckinResult{Checkin: checkin, Analytics: summary}

	lastAt, err := s.store.LastInterventionAt(req.UserID)
	if err != nil {
		log.Printf("checkin service: last intervention lookup failed: %v", err)
	}
	if !ShouldGenerateIntervention(recent, lastAt, now) {
		return result, nil
	}
	if s.marker != nil {
		ok, err := s.marker.MarkInterventionDay(ctx, req.UserID, now)
		if err != nil {
			// Marker outage must not block coaching; the stored
			// timestamp already gated the common case.
			log.Printf("checkin service: daily marker failed: %v", err)
		} else if !ok {
			return result, nil
		}
	}

	result.Analytics.InterventionTriggered = true
	tpl := SelectInterventionTemplate(analytics.AverageMood)
	result.Analytics.TemplateType = &tpl

	iv := s.generateIntervention(ctx, checkin, recent)
	if iv != nil {
		result.Intervention = iv
		result.Analytics.TemplateType = &iv.TemplateType
	}
	return result, nil
}

// generateIntervention runs the composer and persists the result. Any
// failure is logged and results in nil; the caller treats that as "no
// intervention this time".
func (s *CheckinService) generateIntervention(ctx context.Context, checkin CheckinRecord, recent []CheckinRecord) *InterventionRecord {
	var traits *BigFiveScores
	if ta, err := s.store.LatestTraits(checkin.UserID); err != nil {
		log.Printf("checkin service: traits lookup failed: %v", err)
	} else if ta != nil {
		t := ta.TraitsP01
		traits = &t
	}

	allowAI := true
	if cfg, err := s.store.GetCoachConfig(checkin.UserID); err != nil {
		log.Printf("checkin service: coach config lookup failed: %v", err)
	} else if cfg != nil {
		allowAI = cfg.AllowAI
	}

	composed := s.composer.Compose(ctx, ComposeParams{
		UserID:         checkin.UserID,
		Checkin:        checkin,
		RecentCheckins: recent,
		Traits:         traits,
		AllowAI:        allowAI,
	})

	iv := &InterventionRecord{
		ID:           s.idGen(),
		UserID:       checkin.UserID,
		CheckinID:    checkin.ID,
		TemplateType: composed.Template,
		Message:      composed.Message,
		Fallback:     composed.Fallback,
		CreatedAt:    s.now(),
	}
	if err := s.store.AddIntervention(iv); err != nil {
		log.Printf("checkin service: save intervention failed: %v", err)
		return nil
	}
	return iv
}
