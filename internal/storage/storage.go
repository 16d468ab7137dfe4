package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"telegram-health-assistant/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

// DB is the durable store for users, provider credentials and chat history.
// Nothing is cached: background jobs and handlers may write concurrently, so
// every read goes to the database.
type DB struct{ *sql.DB }

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises writes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err = migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// userColumns were added after the first release; databases created before
// them get the columns on startup.
var userColumns = []string{
	`ALTER TABLE users ADD COLUMN journal_time_1 TEXT NOT NULL DEFAULT '10:00'`,
	`ALTER TABLE users ADD COLUMN journal_time_2 TEXT NOT NULL DEFAULT '20:00'`,
	`ALTER TABLE users ADD COLUMN journal_enabled INTEGER NOT NULL DEFAULT 1`,
	`ALTER TABLE users ADD COLUMN gym_prompt TEXT NOT NULL DEFAULT ''`,
}

func migrate(db *sql.DB) error {
	for _, q := range userColumns {
		_, err := db.Exec(q)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") && !strings.Contains(err.Error(), "no such table") {
			return err
		}
	}
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

// ---------- users -----------------------------------------------------------

// EnsureUser returns the user for a telegram id, creating it with defaults.
func (d *DB) EnsureUser(ctx context.Context, telegramUserID int64, username string) (*models.User, error) {
	_, err := d.ExecContext(ctx, `
        INSERT INTO users (telegram_user_id, username, created_at)
        VALUES (?,?,?)
        ON CONFLICT(telegram_user_id) DO UPDATE SET username=excluded.username
    `, telegramUserID, username, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	return d.GetUserByTelegramID(ctx, telegramUserID)
}

func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return d.scanUser(d.QueryRowContext(ctx, `
        SELECT id, telegram_user_id, username, daily_calorie_goal, language, created_at,
               journal_time_1, journal_time_2, journal_enabled, gym_prompt
        FROM users WHERE id=?`, id))
}

func (d *DB) GetUserByTelegramID(ctx context.Context, telegramUserID int64) (*models.User, error) {
	return d.scanUser(d.QueryRowContext(ctx, `
        SELECT id, telegram_user_id, username, daily_calorie_goal, language, created_at,
               journal_time_1, journal_time_2, journal_enabled, gym_prompt
        FROM users WHERE telegram_user_id=?`, telegramUserID))
}

type scanner interface{ Scan(dest ...any) error }

func userFields(u *models.User) []any {
	return []any{&u.ID, &u.TelegramUserID, &u.Username, &u.DailyCalorieGoal, &u.Language, &u.CreatedAt,
		&u.JournalTime1, &u.JournalTime2, &u.JournalEnabled, &u.GymPrompt}
}

func (d *DB) scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(userFields(&u)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT id, telegram_user_id, username, daily_calorie_goal, language, created_at,
               journal_time_1, journal_time_2, journal_enabled, gym_prompt
        FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(userFields(&u)...); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (d *DB) SetCalorieGoal(ctx context.Context, userID int64, goal int) error {
	_, err := d.ExecContext(ctx, `UPDATE users SET daily_calorie_goal=? WHERE id=?`, goal, userID)
	return err
}

// SetJournalTimes stores both reminder slots ("15:04") and turns reminders on.
func (d *DB) SetJournalTimes(ctx context.Context, userID int64, first, second string) error {
	_, err := d.ExecContext(ctx, `
        UPDATE users SET journal_time_1=?, journal_time_2=?, journal_enabled=1 WHERE id=?`,
		first, second, userID)
	return err
}

func (d *DB) SetJournalEnabled(ctx context.Context, userID int64, enabled bool) error {
	_, err := d.ExecContext(ctx, `UPDATE users SET journal_enabled=? WHERE id=?`, enabled, userID)
	return err
}

func (d *DB) SetGymPrompt(ctx context.Context, userID int64, prompt string) error {
	_, err := d.ExecContext(ctx, `UPDATE users SET gym_prompt=? WHERE id=?`, prompt, userID)
	return err
}

// ListConnectedUserIDs returns users holding at least one provider credential.
func (d *DB) ListConnectedUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT user_id FROM whoop_credentials
        UNION
        SELECT user_id FROM fatsecret_credentials
        ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------- conversation ----------------------------------------------------

func (d *DB) SaveMessage(ctx context.Context, userID int64, role, content, intent string) error {
	_, err := d.ExecContext(ctx, `
        INSERT INTO conversation_messages (user_id, role, content, intent, created_at)
        VALUES (?,?,?,?,?)`, userID, role, content, intent, time.Now().Unix())
	return err
}

// RecentMessages returns up to limit messages newer than since, oldest first.
func (d *DB) RecentMessages(ctx context.Context, userID int64, since time.Time, limit int) ([]models.ConversationMessage, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT id, user_id, role, content, intent, created_at FROM (
            SELECT id, user_id, role, content, intent, created_at
            FROM conversation_messages
            WHERE user_id=? AND created_at > ?
            ORDER BY created_at DESC, id DESC
            LIMIT ?
        ) ORDER BY created_at ASC, id ASC`, userID, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.Intent, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// DeleteMessagesBefore removes chat history older than t and reports how many rows went.
func (d *DB) DeleteMessagesBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM conversation_messages WHERE created_at < ?`, t.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------- food entries ----------------------------------------------------

func (d *DB) InsertFoodEntry(ctx context.Context, e *models.FoodEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	res, err := d.ExecContext(ctx, `
        INSERT INTO food_entries (user_id, food_entry_id, name, calories, created_at)
        VALUES (?,?,?,?,?)`, e.UserID, e.FoodEntryID, e.Name, e.Calories, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// LastFoodEntry returns the newest entry without removing it, or nil.
func (d *DB) LastFoodEntry(ctx context.Context, userID int64) (*models.FoodEntry, error) {
	var e models.FoodEntry
	err := d.QueryRowContext(ctx, `
        SELECT id, user_id, food_entry_id, name, calories, created_at
        FROM food_entries WHERE user_id=?
        ORDER BY created_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&e.ID, &e.UserID, &e.FoodEntryID, &e.Name, &e.Calories, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteFoodEntryRow removes one local entry by row id; missing rows are fine.
func (d *DB) DeleteFoodEntryRow(ctx context.Context, id int64) error {
	_, err := d.ExecContext(ctx, `DELETE FROM food_entries WHERE id=?`, id)
	return err
}

// ClearData removes the user and everything hanging off it.
func (d *DB) ClearData(ctx context.Context, userID int64) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM food_entries WHERE user_id = ?`,
		`DELETE FROM gym_sets WHERE user_id = ?`,
		`DELETE FROM journal_entries WHERE user_id = ?`,
		`DELETE FROM journal_reminders WHERE user_id = ?`,
		`DELETE FROM conversation_messages WHERE user_id = ?`,
		`DELETE FROM whoop_credentials WHERE user_id = ?`,
		`DELETE FROM fatsecret_credentials WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
