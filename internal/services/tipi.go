package services

import (
	"fmt"
	"math"
)

// The Ten-Item Personality Inventory (Gosling, Rentfrow & Swann, 2003).
// Each trait is measured by exactly two items, one of them reverse-coded.

const (
	tipiPoints        = 7
	tipiQuestionCount = 10

	// Population norms for the 7-point raw scale, used for T-scores.
	tipiNormMean = 4.0
	tipiNormStd  = 1.5
)

// TIPIQuestions is the fixed item catalog. It is configuration, not user
// state, and must never be mutated.
var TIPIQuestions = []TIPIQuestion{
	{ID: 1, Trait: TraitExtraversion, Reverse: false, StemI18n: map[string]string{
		"en": "Extraverted, enthusiastic",
		"vi": "Hướng ngoại, nhiệt tình",
		"ja": "外向的で、熱狂的",
	}},
	{ID: 2, Trait: TraitAgreeableness, Reverse: true, StemI18n: map[string]string{
		"en": "Critical, quarrelsome",
		"vi": "Hay chỉ trích, thích tranh cãi",
		"ja": "批判的で、口論好き",
	}},
	{ID: 3, Trait: TraitConscientiousness, Reverse: false, StemI18n: map[string]string{
		"en": "Dependable, self-disciplined",
		"vi": "Đáng tin cậy, có kỷ luật tự giác",
		"ja": "信頼でき、自制心がある",
	}},
	{ID: 4, Trait: TraitNeuroticism, Reverse: false, StemI18n: map[string]string{
		"en": "Anxious, easily upset",
		"vi": "Lo lắng, dễ bị kích động",
		"ja": "不安で、動揺しやすい",
	}},
	{ID: 5, Trait: TraitOpenness, Reverse: false, StemI18n: map[string]string{
		"en": "Open to new experiences, complex",
		"vi": "Cởi mở với trải nghiệm mới, phức tạp",
		"ja": "新しい経験に開放的で、複雑",
	}},
	{ID: 6, Trait: TraitExtraversion, Reverse: true, StemI18n: map[string]string{
		"en": "Reserved, quiet",
		"vi": "Dè dặt, ít nói",
		"ja": "控えめで、静か",
	}},
	{ID: 7, Trait: TraitAgreeableness, Reverse: false, StemI18n: map[string]string{
		"en": "Sympathetic, warm",
		"vi": "Thông cảm, ấm áp",
		"ja": "同情的で、温かい",
	}},
	{ID: 8, Trait: TraitConscientiousness, Reverse: true, StemI18n: map[string]string{
		"en": "Disorganized, careless",
		"vi": "Thiếu tổ chức, bất cẩn",
		"ja": "整理整頓ができず、不注意",
	}},
	{ID: 9, Trait: TraitNeuroticism, Reverse: true, StemI18n: map[string]string{
		"en": "Calm, emotionally stable",
		"vi": "Bình tĩnh, ổn định về mặt cảm xúc",
		"ja": "冷静で、感情的に安定している",
	}},
	{ID: 10, Trait: TraitOpenness, Reverse: true, StemI18n: map[string]string{
		"en": "Conventional, uncreative",
		"vi": "Theo lối mòn, thiếu sáng tạo",
		"ja": "従来的で、創造性に欠ける",
	}},
}

func tipiQuestionByID(id int) *TIPIQuestion {
	for i := range TIPIQuestions {
		if TIPIQuestions[i].ID == id {
			return &TIPIQuestions[i]
		}
	}
	return nil
}

// TIPIQuestionsForLocale resolves each stem to the given locale with an
// English fallback.
func TIPIQuestionsForLocale(locale string) []struct {
	ID      int    `json:"id"`
	Trait   Trait  `json:"trait"`
	Reverse bool   `json:"reverse"`
	Text    string `json:"text"`
} {
	out := make([]struct {
		ID      int    `json:"id"`
		Trait   Trait  `json:"trait"`
		Reverse bool   `json:"reverse"`
		Text    string `json:"text"`
	}, 0, len(TIPIQuestions))
	for _, q := range TIPIQuestions {
		text := q.StemI18n[locale]
		if text == "" {
			text = q.StemI18n["en"]
		}
		out = append(out, struct {
			ID      int    `json:"id"`
			Trait   Trait  `json:"trait"`
			Reverse bool   `json:"reverse"`
			Text    string `json:"text"`
		}{ID: q.ID, Trait: q.Trait, Reverse: q.Reverse, Text: text})
	}
	return out
}

// ValidateTIPIResponses checks a submission and returns every violation it
// finds, not just the first. An empty slice means the submission is valid.
func ValidateTIPIResponses(responses []TIPIResponse) []string {
	var errs []string

	if len(responses) != tipiQuestionCount {
		errs = append(errs, "all 10 questions must be answered")
	}

	seen := map[int]bool{}
	duplicate := false
	for _, r := range responses {
		if r.Score < 1 || r.Score > tipiPoints {
			errs = append(errs, fmt.Sprintf("question %d: score must be between 1 and 7", r.QuestionID))
		}
		if tipiQuestionByID(r.QuestionID) == nil {
			errs = append(errs, fmt.Sprintf("invalid question id: %d", r.QuestionID))
		}
		if seen[r.QuestionID] {
			duplicate = true
		}
		seen[r.QuestionID] = true
	}
	if duplicate {
		errs = append(errs, "duplicate responses detected")
	}

	return errs
}

// ScoreTIPI converts a valid 10-response submission into Big Five scores on
// the raw 1-7 scale plus the derived 0-1 and T-score representations. All
// three are computed from the identical raw trait value. It fails with a
// validation error listing every violation when the submission is invalid.
func ScoreTIPI(responses []TIPIResponse) (*TIPIScores, error) {
	if errs := ValidateTIPIResponses(responses); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	sums := map[Trait]float64{}
	for _, r := range responses {
		q := tipiQuestionByID(r.QuestionID)
		score := r.Score
		if q.Reverse {
			score = ReverseScore(score, tipiPoints)
		}
		sums[q.Trait] += float64(score)
	}

	// Each trait has exactly two contributing items.
	raw := BigFiveScores{
		Extraversion:      sums[TraitExtraversion] / 2,
		Agreeableness:     sums[TraitAgreeableness] / 2,
		Conscientiousness: sums[TraitConscientiousness] / 2,
		Neuroticism:       sums[TraitNeuroticism] / 2,
		Openness:          sums[TraitOpenness] / 2,
	}

	return &TIPIScores{
		Raw: raw,
		P01: mapTraits(raw, rawToP01),
		T:   mapTraits(raw, rawToTScore),
	}, nil
}

func mapTraits(s BigFiveScores, f func(float64) float64) BigFiveScores {
	return BigFiveScores{
		Extraversion:      f(s.Extraversion),
		Agreeableness:     f(s.Agreeableness),
		Conscientiousness: f(s.Conscientiousness),
		Neuroticism:       f(s.Neuroticism),
		Openness:          f(s.Openness),
	}
}

func rawToP01(raw float64) float64 {
	return (raw - 1) / 6
}

// rawToTScore maps a raw 1-7 value to 50 + 10*z against the population
// norms, clamped to [0, 100] and rounded to a whole number.
func rawToTScore(raw float64) float64 {
	z := (raw - tipiNormMean) / tipiNormStd
	t := 50 + z*10
	if t < 0 {
		t = 0
	}
	if t > 100 {
		t = 100
	}
	return math.Round(t)
}
