// Package assistant classifies chat messages and writes briefings through a
// generative model. Model output is untrusted: it is validated against an
// embedded JSON schema before use.
package assistant

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"telegram-health-assistant/internal/messages"
	"telegram-health-assistant/internal/models"
)

type Intent string

const (
	IntentLogFood     Intent = "log_food"
	IntentQueryData   Intent = "query_data"
	IntentDeleteEntry Intent = "delete_entry"
	IntentGym         Intent = "gym"
	IntentJournal     Intent = "journal"
	IntentGeneral     Intent = "general"
)

const (
	GymLog      = "log"
	GymLast     = "last"
	GymProgress = "progress"

	JournalEntry   = "entry"
	JournalHistory = "history"
	JournalSummary = "summary"
)

// JournalTags are the tags a journal entry may carry; others are dropped.
var JournalTags = []string{"stress", "energy", "social", "work", "health", "gratitude", "achievement"}

const (
	MinCalorieGoal = 500
	MaxCalorieGoal = 10000
)

var ErrMalformedResponse = errors.New("assistant: malformed model response")

//go:embed classification.schema.json
var schemaJSON []byte

type FoodItem struct {
	NameEN       string  `json:"name_en"`
	NameOriginal string  `json:"name_original"`
	QuantityG    float64 `json:"quantity_g"`
	MealType     string  `json:"meal_type"`
}

type Exercise struct {
	NameEN       string   `json:"name_en"`
	NameOriginal string   `json:"name_original"`
	Key          string   `json:"exercise_key"`
	WeightKg     *float64 `json:"weight_kg"`
	Sets         *int     `json:"sets"`
	Reps         *int     `json:"reps"`
	RPE          *float64 `json:"rpe"`
	Notes        *string  `json:"notes"`
}

type JournalMeta struct {
	MoodScore   *int     `json:"mood_score"`
	EnergyLevel *int     `json:"energy_level"`
	Tags        []string `json:"tags"`
}

// Result is one classified message with the reply to send.
type Result struct {
	Intent        Intent       `json:"intent"`
	FoodItems     []FoodItem   `json:"food_items"`
	CalorieGoal   *int         `json:"calorie_goal"`
	GymAction     string       `json:"gym_action"`
	ExerciseKey   string       `json:"exercise_key"`
	Exercises     []Exercise   `json:"exercises"`
	JournalAction string       `json:"journal_action"`
	Journal       *JournalMeta `json:"journal_entry"`
	Response      string       `json:"response"`
}

// Turn is one message of chat history as the model sees it.
type Turn struct {
	Role string // "user" | "assistant"
	Text string
}

// Model generates text. Implementations must be safe for concurrent use.
type Model interface {
	Generate(ctx context.Context, system string, history []Turn, prompt string) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Classifier is what the chat handler needs from the assistant.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*Result, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

var ErrEmptyTranscript = errors.New("assistant: empty transcript")

type Assistant struct {
	model  Model
	schema *jsonschema.Schema
}

func New(model Model) (*Assistant, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse classification schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("classification.schema.json", doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile("classification.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile classification schema: %w", err)
	}
	return &Assistant{model: model, schema: sch}, nil
}

// Classify asks the model once, retries once with the validation error when
// the reply is malformed, and finally falls back to a general reply carrying
// the raw text. Only model transport errors are returned.
func (a *Assistant) Classify(ctx context.Context, in Input) (*Result, error) {
	system := systemPrompt()
	history := in.turns()
	prompt := in.Text

	raw, err := a.model.Generate(ctx, system, history, prompt)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	res, perr := a.parse(raw)
	if perr == nil {
		return res.normalize(in), nil
	}
	log.Warn().Err(perr).Msg("classifier reply rejected, retrying")

	retryHistory := append(history,
		Turn{Role: "user", Text: prompt},
		Turn{Role: "assistant", Text: raw},
	)
	retry, err := a.model.Generate(ctx, system, retryHistory, correctionPrompt(perr))
	if err != nil {
		return nil, fmt.Errorf("classify retry: %w", err)
	}
	if res, perr = a.parse(retry); perr == nil {
		return res.normalize(in), nil
	}
	log.Warn().Err(perr).Msg("classifier reply rejected twice, falling back to general")
	return &Result{Intent: IntentGeneral, Response: strings.TrimSpace(retry)}, nil
}

// Transcribe turns a voice note into text.
func (a *Assistant) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/ogg"
	}
	text, err := a.model.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Briefing implements the scheduled morning and evening messages.
func (a *Assistant) Briefing(ctx context.Context, k messages.Kind, u *models.User, dataSummary string) (string, error) {
	lang := "uk"
	if u != nil && u.Language != "" {
		lang = u.Language
	}
	text, err := a.model.Generate(ctx, messages.BriefingPrompt(k, lang), nil, dataSummary)
	if err != nil {
		return "", fmt.Errorf("briefing: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (a *Assistant) parse(raw string) (*Result, error) {
	text := stripFences(raw)
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if err := a.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &res, nil
}

// normalize fills meal types from the local hour, drops goals outside the
// accepted range and fills gym and journal defaults.
func (r *Result) normalize(in Input) *Result {
	switch r.Intent {
	case IntentGym:
		if r.GymAction == "" {
			r.GymAction = GymLog
		}
		r.ExerciseKey = ExerciseKey(r.ExerciseKey)
		kept := r.Exercises[:0]
		for _, e := range r.Exercises {
			e.Key = ExerciseKey(e.Key)
			if e.Key == "" {
				continue
			}
			if e.NameOriginal == "" {
				e.NameOriginal = e.NameEN
			}
			kept = append(kept, e)
		}
		r.Exercises = kept
	case IntentJournal:
		if r.JournalAction == "" {
			r.JournalAction = JournalEntry
		}
		if r.Journal != nil {
			r.Journal.Tags = FilterTags(r.Journal.Tags)
		}
	}
	for i := range r.FoodItems {
		if r.FoodItems[i].MealType == "" {
			r.FoodItems[i].MealType = MealTypeAt(in.Now.Hour())
		}
		if r.FoodItems[i].NameOriginal == "" {
			r.FoodItems[i].NameOriginal = r.FoodItems[i].NameEN
		}
	}
	if r.CalorieGoal != nil && (*r.CalorieGoal < MinCalorieGoal || *r.CalorieGoal > MaxCalorieGoal) {
		r.CalorieGoal = nil
	}
	return r
}

// ExerciseKey normalizes an exercise identifier: "Bench Press" becomes
// "bench_press".
func ExerciseKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "-", " ")), "_")
}

// FilterTags keeps known journal tags, lowercased and deduplicated.
func FilterTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if seen[t] || !slices.Contains(JournalTags, t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// MealTypeAt maps a local hour onto a meal.
func MealTypeAt(hour int) string {
	switch {
	case hour < 11:
		return "breakfast"
	case hour < 16:
		return "lunch"
	case hour < 21:
		return "dinner"
	default:
		return "snack"
	}
}

// stripFences removes a markdown code fence around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
