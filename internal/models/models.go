package models

import "time"

// Provider names a third-party data source.
type Provider string

const (
	ProviderWhoop     Provider = "whoop"
	ProviderFatSecret Provider = "fatsecret"
)

// User is a telegram user known to the bot.
type User struct {
	ID               int64  `db:"id"                 json:"id"`
	TelegramUserID   int64  `db:"telegram_user_id"   json:"telegram_user_id"`
	Username         string `db:"username"           json:"username"`
	DailyCalorieGoal int    `db:"daily_calorie_goal" json:"daily_calorie_goal"`
	Language         string `db:"language"           json:"language"` // "uk" | "en"
	CreatedAt        int64  `db:"created_at"         json:"created_at"`

	// journal reminder slots in local "15:04" form
	JournalTime1   string `db:"journal_time_1"  json:"journal_time_1"`
	JournalTime2   string `db:"journal_time_2"  json:"journal_time_2"`
	JournalEnabled bool   `db:"journal_enabled" json:"journal_enabled"`
	GymPrompt      string `db:"gym_prompt"      json:"gym_prompt"`
}

// WhoopCredential is the OAuth2 token set for one user.
// A stored row means the user is connected.
type WhoopCredential struct {
	UserID       int64      `db:"user_id"`
	AccessToken  string     `db:"access_token"`
	RefreshToken string     `db:"refresh_token"`
	ExpiresAt    *time.Time `db:"expires_at"` // nil -> treated as expired
	WhoopUserID  string     `db:"whoop_user_id"`
}

// Expired reports whether the access token must be refreshed before use.
func (c *WhoopCredential) Expired(now time.Time) bool {
	return c.ExpiresAt == nil || !c.ExpiresAt.After(now)
}

// FatSecretCredential is the OAuth1 token pair for one user. It has no expiry;
// validity is only known after calling the API.
type FatSecretCredential struct {
	UserID       int64  `db:"user_id"`
	AccessToken  string `db:"access_token"`
	AccessSecret string `db:"access_secret"`
}

// ConversationMessage is one turn of the chat history fed to the classifier.
type ConversationMessage struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	Role      string `db:"role"` // "user" | "assistant"
	Content   string `db:"content"`
	Intent    string `db:"intent"`
	CreatedAt int64  `db:"created_at"`
}

// FoodEntry is a diary entry the bot created in FatSecret on the user's behalf.
type FoodEntry struct {
	ID          int64   `db:"id"`
	UserID      int64   `db:"user_id"`
	FoodEntryID string  `db:"food_entry_id"` // FatSecret id
	Name        string  `db:"name"`
	Calories    float64 `db:"calories"`
	CreatedAt   int64   `db:"created_at"`
}

// GymSet is one logged exercise. Nil numbers were not mentioned by the user.
type GymSet struct {
	ID           int64    `db:"id"`
	UserID       int64    `db:"user_id"`
	ExerciseName string   `db:"exercise_name"`
	ExerciseKey  string   `db:"exercise_key"` // normalized english key, e.g. "bench_press"
	WeightKg     *float64 `db:"weight_kg"`
	Sets         *int     `db:"sets"`
	Reps         *int     `db:"reps"`
	RPE          *float64 `db:"rpe"`
	Notes        string   `db:"notes"`
	CreatedAt    int64    `db:"created_at"`
}

// JournalEntry is a free-text diary note with the mood data extracted from it.
type JournalEntry struct {
	ID          int64    `db:"id"`
	UserID      int64    `db:"user_id"`
	Content     string   `db:"content"`
	MoodScore   *int     `db:"mood_score"`
	EnergyLevel *int     `db:"energy_level"`
	Tags        []string `db:"tags"`
	CreatedAt   int64    `db:"created_at"`
}
