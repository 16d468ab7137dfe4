// Package messages composes the texts the bot sends outside of a direct
// command reply: briefings, balance lines and reconnect notices.
package messages

import (
	"fmt"
	"strings"

	"telegram-health-assistant/internal/models"
)

const DefaultCalorieGoal = 2000

// --- reconnect notices ---------------------------------------------------

const (
	hintHeader    = "🔑 Сесія закінчилась, потрібно перепідключити:"
	hintWhoop     = "⌚ WHOOP → /connect_whoop"
	hintFatSecret = "🥗 FatSecret → /connect_fatsecret"
)

// ReconnectHint lists the providers whose credential was just invalidated.
// Empty when nothing expired.
func ReconnectHint(expired []models.Provider) string {
	if len(expired) == 0 {
		return ""
	}
	lines := []string{hintHeader}
	for _, p := range expired {
		switch p {
		case models.ProviderWhoop:
			lines = append(lines, hintWhoop)
		case models.ProviderFatSecret:
			lines = append(lines, hintFatSecret)
		}
	}
	return strings.Join(lines, "\n")
}

// ExpiredNotice is pushed by background jobs when a credential is dropped.
func ExpiredNotice(p models.Provider) string {
	return ReconnectHint([]models.Provider{p})
}

// WithHint appends the reconnect hint to a reply, if any.
func WithHint(text string, expired []models.Provider) string {
	if hint := ReconnectHint(expired); hint != "" {
		return text + "\n\n" + hint
	}
	return text
}

// --- balance -------------------------------------------------------------

func Goal(u *models.User) int {
	if u == nil || u.DailyCalorieGoal <= 0 {
		return DefaultCalorieGoal
	}
	return u.DailyCalorieGoal
}

// BalanceLine shows eaten against goal; burned only once known.
func BalanceLine(in, goal, out int) string {
	line := fmt.Sprintf("📊 %d / %d kcal", in, goal)
	if out > 0 {
		line += fmt.Sprintf("  🔥 %d спалено", out)
	}
	return line
}

// --- briefings -----------------------------------------------------------

// Kind selects morning or evening wording.
type Kind int

const (
	Morning Kind = iota
	Evening
)

func (k Kind) String() string {
	if k == Evening {
		return "evening"
	}
	return "morning"
}

func languageName(lang string) string {
	if lang == "en" {
		return "English"
	}
	return "Ukrainian"
}

// BriefingPrompt is the system instruction for generating a briefing.
func BriefingPrompt(k Kind, lang string) string {
	if k == Evening {
		return "You are a health assistant bot sending an evening summary. " +
			"Summarize today's nutrition and activity. Mention surplus/deficit. " +
			"Add one tip for tomorrow. Keep it under 6 lines. " +
			"Respond in " + languageName(lang) + "."
	}
	return "You are a health assistant bot sending a morning briefing. " +
		"Summarize sleep, recovery, and current calorie status. " +
		"Add one actionable tip. Keep it under 5 lines. " +
		"Respond in " + languageName(lang) + "."
}

// DataSummary is the factual input handed to the model for a briefing.
func DataSummary(k Kind, u *models.User, s models.Snapshot) string {
	var b strings.Builder
	goal := Goal(u)
	if k == Evening {
		fmt.Fprintf(&b, "Calories in: %d kcal. Goal: %d kcal. ", s.CaloriesIn, goal)
		fmt.Fprintf(&b, "Burned: %d kcal (%d workouts). ", s.CaloriesOut, s.WorkoutCount)
		fmt.Fprintf(&b, "Net: %d kcal. ", s.CaloriesIn-s.CaloriesOut)
		fmt.Fprintf(&b, "Strain: %.1f. ", s.Strain)
		if s.Meals != "" {
			fmt.Fprintf(&b, "Meals: %s. ", s.Meals)
		}
	} else {
		fmt.Fprintf(&b, "Calories eaten today: %d kcal (goal: %d). ", s.CaloriesIn, goal)
		fmt.Fprintf(&b, "Calories burned: %d kcal. ", s.CaloriesOut)
	}
	if s.SleepInfo != "" {
		fmt.Fprintf(&b, "%s. ", s.SleepInfo)
	}
	if s.RecoveryInfo != "" {
		fmt.Fprintf(&b, "%s. ", s.RecoveryInfo)
	}
	if k == Evening && s.ActivitiesInfo != "" {
		fmt.Fprintf(&b, "%s. ", s.ActivitiesInfo)
	}
	lang := "uk"
	if u != nil && u.Language != "" {
		lang = u.Language
	}
	fmt.Fprintf(&b, "Language: %s.", lang)
	return b.String()
}

// Fallback is sent when the model is unavailable.
func Fallback(k Kind, u *models.User, s models.Snapshot) string {
	var lines []string
	if k == Evening {
		lines = append(lines, "🌙 Підсумок дня")
	} else {
		lines = append(lines, "☀️ Доброго ранку!")
	}
	lines = append(lines, BalanceLine(s.CaloriesIn, Goal(u), s.CaloriesOut))
	if k == Evening {
		net := s.CaloriesIn - s.CaloriesOut
		lines = append(lines, fmt.Sprintf("⚖️ Баланс: %+d kcal", net))
	}
	if s.SleepInfo != "" {
		lines = append(lines, "😴 "+s.SleepInfo)
	}
	if s.RecoveryInfo != "" {
		lines = append(lines, "💚 "+s.RecoveryInfo)
	}
	return strings.Join(lines, "\n")
}
