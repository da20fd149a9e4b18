package services

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Deterministic coaching copy. FallbackMessage never fails and never
// touches an external service; it is the last stage of the composer
// cascade and the baseline the AI paths are validated against.

const (
	maxTitleLen = 100
	maxBodyLen  = 500
	maxCTALen   = 50
)

// FallbackMessage assembles the template-specific message from the
// context's mood, trend, streak, and energy signals.
func FallbackMessage(template InterventionTemplate, ctx InterventionContext) InterventionMessage {
	switch template {
	case TemplateCompassion:
		streakClause := "Taking time to check in with yourself is already a positive step."
		if ctx.StreakDays > 0 {
			streakClause = fmt.Sprintf("Your %d-day check-in streak shows your commitment to self-care.", ctx.StreakDays)
		}
		return InterventionMessage{
			Title: "You're Not Alone 💙",
			Body: "I notice you've been having a tough time lately. Remember that difficult feelings are temporary, " +
				"and it's okay to not be okay sometimes. " + streakClause +
				" Consider reaching out to someone you trust or doing something small that brings you comfort.",
			CTAText: "Take a Deep Breath",
		}

	case TemplateReflection:
		title := "Time to Reflect 🤔"
		if ctx.MoodTrend == TrendImproving {
			title = "Building Momentum 🌱"
		}
		trendWord := string(ctx.MoodTrend)
		if ctx.MoodTrend == TrendStable {
			trendWord = "steady"
		}
		trendClause := "This is a good time to pause and reflect on what might help you feel more balanced."
		if ctx.MoodTrend == TrendImproving {
			trendClause = "That's wonderful progress! What's been working well for you?"
		}
		energyClause := "Use this energy to explore what's most important to you right now."
		if ctx.EnergyLevel == EnergyLow {
			energyClause = "Your energy seems low - consider what activities or practices might help restore it."
		}
		return InterventionMessage{
			Title:   title,
			Body:    fmt.Sprintf("Your mood has been %s recently. %s %s", trendWord, trendClause, energyClause),
			CTAText: "Reflect & Plan",
		}

	case TemplateAction:
		momentumClause := ""
		if ctx.MoodTrend == TrendImproving {
			momentumClause = "And things are looking up - great momentum! "
		}
		energyClause := "take purposeful action toward your goals"
		if ctx.EnergyLevel == EnergyHigh {
			energyClause = "channel that high energy into something meaningful"
		}
		streakClause := "Keep building on this positive foundation."
		if ctx.StreakDays >= 7 {
			streakClause = fmt.Sprintf("Your %d-day streak shows real dedication!", ctx.StreakDays)
		}
		return InterventionMessage{
			Title: "Riding the Wave 🌊",
			Body: fmt.Sprintf("You're feeling good with a mood average of %.1f! %sThis is an excellent time to %s. %s",
				ctx.MoodAverage, momentumClause, energyClause, streakClause),
			CTAText: "Take Action",
		}

	default:
		return InterventionMessage{
			Title:   "Keep Going 🌟",
			Body:    "Thank you for checking in with yourself today. Self-awareness is the first step toward positive change.",
			CTAText: "Continue Journey",
		}
	}
}

// EnhanceWithPersonality appends at most one personality-derived sentence
// to the message body. Trait p01 scores become integer percentiles and the
// first matching threshold rule for the template wins; if none trigger, or
// traits are absent, the message is returned unchanged.
func EnhanceWithPersonality(msg InterventionMessage, traits *BigFiveScores, template InterventionTemplate) InterventionMessage {
	if traits == nil {
		return msg
	}

	pct := func(p01 float64) int { return int(math.Round(p01 * 100)) }
	extraversion := pct(traits.Extraversion)
	agreeableness := pct(traits.Agreeableness)
	conscientiousness := pct(traits.Conscientiousness)
	neuroticism := pct(traits.Neuroticism)
	openness := pct(traits.Openness)

	insight := ""
	switch template {
	case TemplateCompassion:
		if neuroticism > 70 {
			insight = " As someone who feels emotions deeply, remember that your sensitivity is also a strength."
		} else if agreeableness > 70 {
			insight = " Your caring nature means you might put others first - don't forget to be kind to yourself too."
		} else if conscientiousness > 70 {
			insight = " I know you hold yourself to high standards. Sometimes it's okay to ease up on yourself."
		}

	case TemplateReflection:
		if openness > 70 {
			insight = " Your openness to new experiences could help you discover fresh perspectives on your current situation."
		} else if conscientiousness > 70 {
			insight = " Your organized nature is an asset - consider creating a structured plan for moving forward."
		} else if extraversion < 30 {
			insight = " Taking quiet time for introspection aligns well with your reflective nature."
		}

	case TemplateAction:
		if extraversion > 70 {
			insight = " Your outgoing energy is perfect for connecting with others or trying new social activities."
		} else if conscientiousness > 70 {
			insight = " Your disciplined approach means you're likely to follow through on whatever you decide to pursue."
		} else if openness > 70 {
			insight = " This might be a great time to explore that creative project or new interest you've been considering."
		}
	}

	if insight == "" {
		return msg
	}
	msg.Body += insight
	return msg
}

// BuildPrompt renders the structured generation prompt for a template and
// context. The generator is expected to answer with a JSON object of
// title/body/cta_text.
func BuildPrompt(template InterventionTemplate, ctx InterventionContext) string {
	moodLabel := "good"
	if ctx.MoodAverage <= 2 {
		moodLabel = "low"
	} else if ctx.MoodAverage <= 3.5 {
		moodLabel = "neutral"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a personalized coaching message for someone with the following context:\n\n")
	fmt.Fprintf(&b, "Mood Information:\n")
	fmt.Fprintf(&b, "- Average mood: %.1f/5 (%s)\n", ctx.MoodAverage, moodLabel)
	fmt.Fprintf(&b, "- Mood trend: %s\n", ctx.MoodTrend)
	fmt.Fprintf(&b, "- Energy level: %s\n", ctx.EnergyLevel)
	fmt.Fprintf(&b, "- Recent check-ins: %d\n", ctx.RecentCheckins)
	fmt.Fprintf(&b, "- Check-in streak: %d days\n", ctx.StreakDays)

	if ctx.FreeText != "" {
		fmt.Fprintf(&b, "\nRecent thoughts: %q\n", ctx.FreeText)
	}
	if t := ctx.PersonalityTraits; t != nil {
		fmt.Fprintf(&b, "\nPersonality traits (0-1 scale):\n")
		fmt.Fprintf(&b, "- Extraversion: %.2f\n", t.Extraversion)
		fmt.Fprintf(&b, "- Agreeableness: %.2f\n", t.Agreeableness)
		fmt.Fprintf(&b, "- Conscientiousness: %.2f\n", t.Conscientiousness)
		fmt.Fprintf(&b, "- Neuroticism: %.2f\n", t.Neuroticism)
		fmt.Fprintf(&b, "- Openness: %.2f\n", t.Openness)
	}

	fmt.Fprintf(&b, "\nTemplate: %s\n\nInstructions:\n", strings.ToUpper(string(template)))

	switch template {
	case TemplateCompassion:
		b.WriteString(`Create a compassionate, supportive message that:
- Validates their current emotional state
- Offers gentle encouragement without toxic positivity
- Suggests small, manageable self-care actions
- Reminds them that difficult feelings are temporary
- Uses warm, empathetic language
- Keeps the tone soft and understanding
`)
	case TemplateReflection:
		b.WriteString(`Create a thoughtful, reflective message that:
- Encourages self-awareness and introspection
- Asks gentle questions to promote insight
- Suggests journaling or mindfulness practices
- Helps them identify patterns or triggers
- Uses curious, non-judgmental language
- Promotes growth through understanding
`)
	case TemplateAction:
		b.WriteString(`Create an energizing, action-oriented message that:
- Celebrates their positive mood state
- Suggests concrete, achievable actions
- Encourages goal-setting or skill-building
- Motivates them to build on their momentum
- Uses upbeat, encouraging language
- Focuses on growth and forward movement
`)
	default:
		b.WriteString("Create a balanced, supportive message that encourages continued self-reflection and growth.\n")
	}

	b.WriteString(`
Format as JSON: {"title": "...", "body": "...", "cta_text": "..."}`)
	return b.String()
}

// ValidateMessage reports whether a message satisfies the structural
// limits: all three fields non-empty, title <= 100 chars, body <= 500,
// call-to-action <= 50.
func ValidateMessage(msg InterventionMessage) bool {
	titleLen := utf8.RuneCountInString(msg.Title)
	bodyLen := utf8.RuneCountInString(msg.Body)
	ctaLen := utf8.RuneCountInString(msg.CTAText)
	return titleLen > 0 && titleLen <= maxTitleLen &&
		bodyLen > 0 && bodyLen <= maxBodyLen &&
		ctaLen > 0 && ctaLen <= maxCTALen
}
