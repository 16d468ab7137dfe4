package fatsecret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number decodes FatSecret numerics, which arrive as JSON strings.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("fatsecret number %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// oneOrMany decodes a field that is a single object when there is one item
// and an array otherwise.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*o = nil
		return nil
	case b[0] == '[':
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*o = many
		return nil
	default:
		var one T
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*o = oneOrMany[T]{one}
		return nil
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type FoodEntry struct {
	ID            string `json:"food_entry_id"`
	Name          string `json:"food_entry_name"`
	Description   string `json:"food_entry_description"`
	Meal          string `json:"meal"`
	FoodID        string `json:"food_id"`
	ServingID     string `json:"serving_id"`
	NumberOfUnits Number `json:"number_of_units"`
	Calories      Number `json:"calories"`
	Protein       Number `json:"protein"`
	Fat           Number `json:"fat"`
	Carbohydrate  Number `json:"carbohydrate"`
	DateInt       Number `json:"date_int"`
}

// Diary is one local day of a user's food diary.
type Diary struct {
	Date    time.Time
	Entries []FoodEntry
}

// TotalCalories sums the entries and rounds once at the end.
func (d *Diary) TotalCalories() int {
	if d == nil {
		return 0
	}
	var total float64
	for _, e := range d.Entries {
		total += float64(e.Calories)
	}
	return int(math.Round(total))
}

// Meals renders the diary as one line per entry for the assistant prompt.
func (d *Diary) Meals() string {
	if d == nil || len(d.Entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range d.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", e.Meal, e.Name)
		if e.Description != "" {
			fmt.Fprintf(&b, " (%s)", e.Description)
		}
		fmt.Fprintf(&b, ", %d kcal, P %.1f / F %.1f / C %.1f",
			int(math.Round(float64(e.Calories))), float64(e.Protein), float64(e.Fat), float64(e.Carbohydrate))
	}
	return b.String()
}

type Food struct {
	ID          string `json:"food_id"`
	Name        string `json:"food_name"`
	Brand       string `json:"brand_name"`
	Type        string `json:"food_type"`
	Description string `json:"food_description"`
}

type Serving struct {
	ID                  string `json:"serving_id"`
	Description         string `json:"serving_description"`
	MetricServingAmount Number `json:"metric_serving_amount"`
	MetricServingUnit   string `json:"metric_serving_unit"`
	Calories            Number `json:"calories"`
	Protein             Number `json:"protein"`
	Fat                 Number `json:"fat"`
	Carbohydrate        Number `json:"carbohydrate"`
}

// EntryRequest describes a diary entry to create.
type EntryRequest struct {
	FoodID    string
	ServingID string
	Name      string
	Units     float64
	Meal      string
	Day       time.Time
}

// MealName maps the assistant's meal types onto FatSecret's meal names.
func MealName(mealType string) string {
	switch strings.ToLower(mealType) {
	case "breakfast", "lunch", "dinner":
		return strings.ToLower(mealType)
	default:
		return "other"
	}
}

// DateInt is FatSecret's day number: days since 1970-01-01 for the calendar
// date of t in its own location.
func DateInt(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
