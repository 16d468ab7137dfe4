package storage

import (
	"context"
	"strings"
	"time"

	"telegram-health-assistant/internal/models"
)

func (d *DB) InsertJournalEntry(ctx context.Context, e *models.JournalEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	res, err := d.ExecContext(ctx, `
        INSERT INTO journal_entries (user_id, content, mood_score, energy_level, tags, created_at)
        VALUES (?,?,?,?,?,?)`,
		e.UserID, e.Content, e.MoodScore, e.EnergyLevel, strings.Join(e.Tags, ","), e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// JournalEntriesSince returns up to limit entries newer than since, newest first.
func (d *DB) JournalEntriesSince(ctx context.Context, userID int64, since time.Time, limit int) ([]models.JournalEntry, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT id, user_id, content, mood_score, energy_level, tags, created_at
        FROM journal_entries
        WHERE user_id=? AND created_at > ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, userID, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.JournalEntry
	for rows.Next() {
		var (
			e    models.JournalEntry
			tags string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &e.MoodScore, &e.EnergyLevel, &tags, &e.CreatedAt); err != nil {
			return nil, err
		}
		if tags != "" {
			e.Tags = strings.Split(tags, ",")
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// MarkJournalReminder records that slotKey was sent to the user. It reports
// false when the slot was already marked, so each reminder goes out once.
func (d *DB) MarkJournalReminder(ctx context.Context, userID int64, slotKey string) (bool, error) {
	res, err := d.ExecContext(ctx, `
        INSERT INTO journal_reminders (user_id, slot_key, sent_at) VALUES (?,?,?)
        ON CONFLICT(user_id, slot_key) DO NOTHING`, userID, slotKey, time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (d *DB) DeleteJournalRemindersBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM journal_reminders WHERE sent_at < ?`, t.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
