package services

import "time"

// Trait is one of the Big Five personality dimensions.
type Trait string

const (
	TraitExtraversion      Trait = "extraversion"
	TraitAgreeableness     Trait = "agreeableness"
	TraitConscientiousness Trait = "conscientiousness"
	TraitNeuroticism       Trait = "neuroticism"
	TraitOpenness          Trait = "openness"
)

// EnergyLevel is the self-reported energy bucket of a check-in.
type EnergyLevel string

const (
	EnergyLow  EnergyLevel = "low"
	EnergyMid  EnergyLevel = "mid"
	EnergyHigh EnergyLevel = "high"
)

func (e EnergyLevel) Valid() bool {
	return e == EnergyLow || e == EnergyMid || e == EnergyHigh
}

// Trend classifies the direction of recent mood movement.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// InterventionTemplate names one of the three coaching message families.
type InterventionTemplate string

const (
	TemplateCompassion InterventionTemplate = "compassion"
	TemplateReflection InterventionTemplate = "reflection"
	TemplateAction     InterventionTemplate = "action"
)

// BigFiveScores holds one value per trait. The same shape is used for the
// raw 1-7 scale, the normalized 0-1 scale, and T-scores.
type BigFiveScores struct {
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Neuroticism       float64 `json:"neuroticism"`
	Openness          float64 `json:"openness"`
}

// TIPIResponse is a single answered inventory item on the 1-7 scale.
type TIPIResponse struct {
	QuestionID int `json:"question_id"`
	Score      int `json:"score"`
}

// TIPIQuestion is one entry of the fixed ten-item catalog.
type TIPIQuestion struct {
	ID       int               `json:"id"`
	Trait    Trait             `json:"trait"`
	Reverse  bool              `json:"reverse"`
	StemI18n map[string]string `json:"stem_i18n"`
}

// TIPIScores carries the three parallel representations derived from one
// response set.
type TIPIScores struct {
	Raw BigFiveScores `json:"raw"`
	P01 BigFiveScores `json:"p01"`
	T   BigFiveScores `json:"t"`
}

// CheckinRecord is one daily mood/energy check-in. Records are immutable
// once created.
type CheckinRecord struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	MoodScore   int         `json:"mood_score"`
	EnergyLevel EnergyLevel `json:"energy_level"`
	FreeText    string      `json:"free_text,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// EnergyDistribution is the per-bucket share of check-ins in integer
// percent. Buckets are rounded independently, so the sum may not be
// exactly 100.
type EnergyDistribution struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

// MoodAnalytics is the derived summary over a check-in history. It is
// recomputed on demand and never persisted.
type MoodAnalytics struct {
	AverageMood        float64            `json:"average_mood"`
	MoodTrend          Trend              `json:"mood_trend"`
	EnergyDistribution EnergyDistribution `json:"energy_distribution"`
	TotalCheckins      int                `json:"total_checkins"`
	StreakDays         int                `json:"streak_days"`
}

// InterventionContext aggregates the signals that drive template selection
// and message composition.
type InterventionContext struct {
	MoodAverage       float64        `json:"mood_average"`
	MoodTrend         Trend          `json:"mood_trend"`
	EnergyLevel       EnergyLevel    `json:"energy_level"`
	FreeText          string         `json:"free_text,omitempty"`
	PersonalityTraits *BigFiveScores `json:"personality_traits,omitempty"`
	RecentCheckins    int            `json:"recent_checkins"`
	StreakDays        int            `json:"streak_days"`
}

// InterventionMessage is the concrete coaching message shown to a user.
type InterventionMessage struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	CTAText string `json:"cta_text"`
}

// InterventionRecord is a persisted intervention together with its
// delivery state.
type InterventionRecord struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	CheckinID     string               `json:"checkin_id"`
	TemplateType  InterventionTemplate `json:"template_type"`
	Message       InterventionMessage  `json:"message"`
	Fallback      bool                 `json:"fallback"`
	Viewed        bool                 `json:"viewed"`
	FeedbackScore int                  `json:"feedback_score,omitempty"` // 0 = none
	CreatedAt     time.Time            `json:"created_at"`
	FeedbackAt    *time.Time           `json:"feedback_at,omitempty"`
}

// TraitAssessment is a scored personality inventory as persisted.
type TraitAssessment struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Instrument     string        `json:"instrument"`
	TraitsP01      BigFiveScores `json:"traits_p01"`
	TraitsT        BigFiveScores `json:"traits_t"`
	AdministeredAt time.Time     `json:"administered_at"`
}

// CoachConfig is the per-user coaching preference record.
type CoachConfig struct {
	UserID    string `json:"user_id"`
	AllowAI   bool   `json:"allow_ai"`
	StoreLogs bool   `json:"store_logs"`
}

// User is an authenticated account holder.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
