package handlers

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"telegram-health-assistant/internal/assistant"
	"telegram-health-assistant/internal/models"
)

const progressLimit = 10

// handleGym returns the reply for a gym intent, or "" to keep the model's.
func (h *Handler) handleGym(ctx context.Context, u *models.User, res *assistant.Result) (string, error) {
	switch res.GymAction {
	case assistant.GymLast:
		return h.gymLast(ctx, u, res.ExerciseKey)
	case assistant.GymProgress:
		return h.gymProgress(ctx, u, res.ExerciseKey)
	default:
		return h.gymLog(ctx, u, res.Exercises)
	}
}

func (h *Handler) gymLog(ctx context.Context, u *models.User, exercises []assistant.Exercise) (string, error) {
	if len(exercises) == 0 {
		return "", nil
	}
	at := h.now().Unix()
	lines := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		g := &models.GymSet{
			UserID:       u.ID,
			ExerciseName: ex.NameOriginal,
			ExerciseKey:  ex.Key,
			WeightKg:     ex.WeightKg,
			Sets:         ex.Sets,
			Reps:         ex.Reps,
			RPE:          ex.RPE,
			CreatedAt:    at,
		}
		if ex.Notes != nil {
			g.Notes = *ex.Notes
		}
		if err := h.DB.InsertGymSet(ctx, g); err != nil {
			return "", err
		}
		hist, err := h.DB.GymHistory(ctx, u.ID, ex.Key, 2)
		if err != nil {
			return "", err
		}

		line := "  " + g.ExerciseName
		if p := setParts(*g); p != "" {
			line += " — " + p
		}
		if len(hist) > 1 {
			if p := setParts(hist[1]); p != "" {
				line += fmt.Sprintf("\n    ↩️ Минулого разу (%s): %s", h.localDate(hist[1].CreatedAt, "02.01"), p)
			}
		}
		lines = append(lines, line)
	}
	return "✅ Записано:\n" + strings.Join(lines, "\n"), nil
}

func (h *Handler) gymLast(ctx context.Context, u *models.User, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	hist, err := h.DB.GymHistory(ctx, u.ID, key, 1)
	if err != nil || len(hist) == 0 {
		return "", err
	}
	g := hist[0]
	return fmt.Sprintf("🏋️ Минулого разу (%s):\n  %s — %s", h.localDate(g.CreatedAt, "02.01"), g.ExerciseName, setParts(g)), nil
}

// gymProgress lists the recent sets oldest first with the weight change
// between the first and the last one.
func (h *Handler) gymProgress(ctx context.Context, u *models.User, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	hist, err := h.DB.GymHistory(ctx, u.ID, key, progressLimit)
	if err != nil || len(hist) == 0 {
		return "", err
	}
	slices.Reverse(hist)

	lines := make([]string, 0, len(hist)+1)
	for _, g := range hist {
		lines = append(lines, fmt.Sprintf("  %s — %s", h.localDate(g.CreatedAt, "02.01"), setParts(g)))
	}
	first, last := hist[0].WeightKg, hist[len(hist)-1].WeightKg
	if len(hist) >= 2 && first != nil && last != nil && *first > 0 {
		diff := *last - *first
		pct := math.Round(diff / *first * 1000) / 10
		sign := ""
		if diff >= 0 {
			sign = "+"
		}
		lines = append(lines, fmt.Sprintf("\n  📈 %s%sкг (%s%s%%)", sign, formatNum(diff), sign, formatNum(pct)))
	}
	return "🏋️ Прогрес:\n" + strings.Join(lines, "\n"), nil
}

// setParts renders "80кг, 3×8".
func setParts(g models.GymSet) string {
	var parts []string
	if g.WeightKg != nil && *g.WeightKg > 0 {
		parts = append(parts, formatNum(*g.WeightKg)+"кг")
	}
	if g.Sets != nil && g.Reps != nil {
		parts = append(parts, fmt.Sprintf("%d×%d", *g.Sets, *g.Reps))
	}
	return strings.Join(parts, ", ")
}

func formatNum(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func (h *Handler) localDate(unix int64, layout string) string {
	return time.Unix(unix, 0).In(h.now().Location()).Format(layout)
}
