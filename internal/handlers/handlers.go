package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
)

type loggedFood struct {
	name   string
	kcal   int
	synced bool
}

// logFood looks each item up, writes it to the FatSecret diary when the user
// is connected and records it locally so it can be undone.
func (h *Handler) logFood(ctx context.Context, u *models.User, items []assistant.FoodItem) ([]loggedFood, []models.Provider) {
	var (
		logged  []loggedFood
		expired []models.Provider
	)
	fsCred, err := h.DB.GetFatSecretCredential(ctx, u.ID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("load fatsecret credential")
	}
	connected := fsCred != nil

	for _, item := range items {
		logger := log.With().Int64("user_id", u.ID).Str("food", item.NameEN).Logger()
		qty := item.QuantityG
		if qty <= 0 {
			qty = 100
		}

		var (
			food *fatsecret.Food
			kcal float64
		)
		foods, err := h.Foods.SearchFoods(ctx, item.NameEN, 1)
		if err != nil {
			logger.Warn().Err(err).Msg("food lookup failed")
		} else if len(foods) > 0 {
			food = &foods[0]
			n := parseDescription(food.Description)
			kcal = math.Round(n.Calories*qty/n.ServingSize*10) / 10
		}

		var entryID string
		if connected && food != nil {
			entryID, err = h.syncEntry(ctx, u.ID, food, item, qty)
			switch {
			case err == nil:
			case providers.IsCredentialExpired(err):
				connected = false
				expired = append(expired, models.ProviderFatSecret)
			case errors.Is(err, providers.ErrNotConnected):
				connected = false
			default:
				logger.Warn().Err(err).Msg("fatsecret diary sync failed")
			}
		}

		entry := &models.FoodEntry{UserID: u.ID, FoodEntryID: entryID, Name: item.NameOriginal, Calories: kcal}
		if err := h.DB.InsertFoodEntry(ctx, entry); err != nil {
			logger.Error().Err(err).Msg("record food entry failed")
		}
		l := loggedFood{name: item.NameOriginal, kcal: int(math.Round(kcal)), synced: entryID != ""}
		logger.Info().Str("name", l.name).Int("kcal", l.kcal).Bool("synced", l.synced).Msg("food logged")
		logged = append(logged, l)
	}
	return logged, expired
}

func (h *Handler) syncEntry(ctx context.Context, userID int64, food *fatsecret.Food, item assistant.FoodItem, qty float64) (string, error) {
	servings, err := h.Foods.FoodServings(ctx, food.ID)
	if err != nil {
		return "", err
	}
	s := pickServing(servings)
	if s == nil {
		return "", errors.New("food has no servings")
	}
	amount := float64(s.MetricServingAmount)
	if amount <= 0 {
		amount = 100
	}
	return h.Foods.CreateFoodEntry(ctx, userID, fatsecret.EntryRequest{
		FoodID:    food.ID,
		ServingID: s.ID,
		Name:      food.Name,
		Units:     math.Round(qty/amount*100) / 100,
		Meal:      fatsecret.MealName(item.MealType),
		Day:       h.now(),
	})
}

// deleteLast undoes the newest food entry the bot recorded. The local row
// is kept when the diary delete fails so the user can retry.
func (h *Handler) deleteLast(ctx context.Context, u *models.User) (*models.FoodEntry, []models.Provider, error) {
	e, err := h.DB.LastFoodEntry(ctx, u.ID)
	if err != nil || e == nil {
		return nil, nil, err
	}
	var expired []models.Provider
	if e.FoodEntryID != "" {
		err = h.Foods.DeleteFoodEntry(ctx, u.ID, e.FoodEntryID)
		switch {
		case err == nil, errors.Is(err, providers.ErrNotConnected):
		case providers.IsCredentialExpired(err):
			expired = append(expired, models.ProviderFatSecret)
		default:
			return nil, nil, fmt.Errorf("delete diary entry %s: %w", e.FoodEntryID, err)
		}
	}
	if err := h.DB.DeleteFoodEntryRow(ctx, e.ID); err != nil {
		return nil, expired, err
	}
	return e, expired, nil
}

// pickServing prefers a plain 1g serving, then 100g, then the smallest gram
// serving, else the first one.
func pickServing(servings []fatsecret.Serving) *fatsecret.Serving {
	if len(servings) == 0 {
		return nil
	}
	var grams []*fatsecret.Serving
	for i := range servings {
		s := &servings[i]
		if s.MetricServingUnit == "g" && s.MetricServingAmount > 0 && isGramServing(s.Description) {
			grams = append(grams, s)
		}
	}
	for _, want := range []float64{1, 100} {
		for _, s := range grams {
			if float64(s.MetricServingAmount) == want {
				return s
			}
		}
	}
	if len(grams) > 0 {
		smallest := grams[0]
		for _, s := range grams[1:] {
			if s.MetricServingAmount < smallest.MetricServingAmount {
				smallest = s
			}
		}
		return smallest
	}
	return &servings[0]
}

// isGramServing matches descriptions like "100g" or "1 g".
func isGramServing(desc string) bool {
	d := strings.ToLower(strings.TrimSpace(desc))
	if !strings.HasSuffix(d, "g") {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(d, "g")), 64)
	return err == nil
}

type nutrients struct {
	Calories, Fat, Carbs, Protein float64
	ServingSize                   float64
}

// parseDescription reads FatSecret's search summary, e.g.
// "Per 100g - Calories: 165kcal | Fat: 3.57g | Carbs: 0.00g | Protein: 31.02g".
func parseDescription(desc string) nutrients {
	n := nutrients{ServingSize: 100}
	head, body, ok := strings.Cut(desc, " - ")
	if !ok {
		return n
	}
	head = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(head), "Per "))
	for _, unit := range []string{"ml", "oz", "g"} {
		if num, found := strings.CutSuffix(head, unit); found {
			if v, err := strconv.ParseFloat(strings.TrimSpace(num), 64); err == nil && v > 0 {
				n.ServingSize = v
			}
			break
		}
	}
	for _, part := range strings.Split(body, "|") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(val), "kcal"), "g"))
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Calories":
			n.Calories = v
		case "Fat":
			n.Fat = v
		case "Carbs":
			n.Carbs = v
		case "Protein":
			n.Protein = v
		}
	}
	return n
}
