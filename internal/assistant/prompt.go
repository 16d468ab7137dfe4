package assistant

import (
	"fmt"
	"strings"
	"time"

	"telegram-health-assistant/internal/models"
)

// Input is everything the classifier sees for one message.
type Input struct {
	Text     string
	Now      time.Time // local time of the user
	Goal     int
	Snapshot models.Snapshot
	History  []models.ConversationMessage

	GymPrompt string // user's own training context, may be empty
}

const classifierPrompt = `You are a personal health assistant Telegram bot. You help users track food, monitor activity, and stay healthy.

RULES:
1. Classify every user message into exactly one intent: log_food, query_data, delete_entry, gym, journal, or general.
2. Respond in the SAME language the user writes in (Ukrainian, English, or mixed).
3. Be concise, friendly, and use emoji sparingly.

INTENT DEFINITIONS:
- log_food: User describes food they ate/drank. Extract each food item with English name (for database lookup), original name, estimated weight in grams, and meal_type (breakfast if before 11:00, lunch if 11:00-16:00, dinner if 16:00-21:00, snack otherwise; use the current local time provided).
- query_data: User asks about their health data (sleep, recovery, calories, workouts, history, stats). Use the USER DATA block when answering.
- delete_entry: User wants to remove or undo the last food entry.
- gym: User reports gym exercises they did (gym_action "log"), asks what they lifted last time for an exercise (gym_action "last"), or asks about progress on an exercise (gym_action "progress").
- journal: User shares how their day went, feelings, mood, stress or wins (journal_action "entry"), asks to see recent journal entries (journal_action "history"), or asks for a weekly mood summary (journal_action "summary").
- general: Everything else: greetings, setting a calorie goal (extract the number), health tips, questions about the bot.

For log_food, also extract:
- food_items: array of objects with name_en (English), name_original (user's language), quantity_g (grams, estimate if not specified), meal_type.

For gym, also extract:
- gym_action: log, last or progress
- exercises (for log): array of objects with name_en, name_original, exercise_key (lowercase English snake_case, e.g. "bench_press"), weight_kg, sets, reps, rpe (1-10), notes; use null for anything not given
- exercise_key (for last and progress): the exercise asked about, same key format

For journal, also extract:
- journal_action: entry, history or summary
- journal_entry (for entry): mood_score (1-10 or null), energy_level (1-10 or null), tags (any of stress, energy, social, work, health, gratitude, achievement)
For a journal entry, the response should be a short empathetic reflection.

For general, if the user wants to set a calorie goal, extract:
- calorie_goal: integer (e.g., 2500)

ALWAYS respond with valid JSON (no markdown fences):
{
  "intent": "log_food|query_data|delete_entry|gym|journal|general",
  "food_items": [{"name_en": "...", "name_original": "...", "quantity_g": 100, "meal_type": "lunch"}],
  "calorie_goal": null,
  "gym_action": null,
  "exercise_key": null,
  "exercises": [{"name_en": "...", "name_original": "...", "exercise_key": "bench_press", "weight_kg": 80, "sets": 3, "reps": 8, "rpe": null, "notes": null}],
  "journal_action": null,
  "journal_entry": {"mood_score": 7, "energy_level": 6, "tags": ["work"]},
  "response": "Your friendly response text here"
}`

func systemPrompt() string { return classifierPrompt }

// DataContext renders the user's numbers for the model.
func (in Input) DataContext() string {
	s := in.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "Current local time: %s. ", in.Now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "User calorie goal: %d kcal. ", in.Goal)
	fmt.Fprintf(&b, "Today's calories in: %d kcal (source: %s). ", s.CaloriesIn, s.CaloriesInSource)
	fmt.Fprintf(&b, "Today's calories burned: %d kcal (%s).", s.CaloriesOut, s.CycleState)
	if s.Meals != "" {
		fmt.Fprintf(&b, " FatSecret meals today:\n%s\n", s.Meals)
	}
	for _, part := range []string{s.SleepInfo, s.RecoveryInfo, s.ActivitiesInfo, s.BodyInfo} {
		if part != "" {
			fmt.Fprintf(&b, " %s.", part)
		}
	}
	if in.GymPrompt != "" {
		fmt.Fprintf(&b, " User's training context: %s.", in.GymPrompt)
	}
	return b.String()
}

// turns places the data context first, then the stored history.
func (in Input) turns() []Turn {
	turns := make([]Turn, 0, len(in.History)+2)
	turns = append(turns,
		Turn{Role: "user", Text: "USER DATA: " + in.DataContext()},
		Turn{Role: "assistant", Text: `{"intent":"general","response":"OK"}`},
	)
	for _, m := range in.History {
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		turns = append(turns, Turn{Role: role, Text: m.Content})
	}
	return turns
}

func correctionPrompt(err error) string {
	return "Your previous reply could not be used: " + err.Error() +
		". Reply again to my previous message with a single JSON object that follows the format exactly, no markdown."
}
