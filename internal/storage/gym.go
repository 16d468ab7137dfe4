package storage

import (
	"context"
	"time"

	"telegram-health-assistant/internal/models"
)

func (d *DB) InsertGymSet(ctx context.Context, g *models.GymSet) error {
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}
	res, err := d.ExecContext(ctx, `
        INSERT INTO gym_sets (user_id, exercise_name, exercise_key, weight_kg, sets, reps, rpe, notes, created_at)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		g.UserID, g.ExerciseName, g.ExerciseKey, g.WeightKg, g.Sets, g.Reps, g.RPE, g.Notes, g.CreatedAt)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	return err
}

// GymHistory returns up to limit entries for one exercise, newest first.
func (d *DB) GymHistory(ctx context.Context, userID int64, exerciseKey string, limit int) ([]models.GymSet, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT id, user_id, exercise_name, exercise_key, weight_kg, sets, reps, rpe, notes, created_at
        FROM gym_sets
        WHERE user_id=? AND exercise_key=?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, userID, exerciseKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.GymSet
	for rows.Next() {
		var g models.GymSet
		if err := rows.Scan(&g.ID, &g.UserID, &g.ExerciseName, &g.ExerciseKey,
			&g.WeightKg, &g.Sets, &g.Reps, &g.RPE, &g.Notes, &g.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}
