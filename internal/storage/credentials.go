package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"telegram-health-assistant/internal/models"
)

// Every credential write is a single statement: a full-row upsert or a
// full-row delete. Concurrent refreshes for the same user therefore resolve
// to whichever write lands last, and a row is never half updated.

// ---------- whoop -----------------------------------------------------------

func (d *DB) GetWhoopCredential(ctx context.Context, userID int64) (*models.WhoopCredential, error) {
	var (
		c       models.WhoopCredential
		expires sql.NullInt64
	)
	err := d.QueryRowContext(ctx, `
        SELECT user_id, access_token, refresh_token, expires_at, whoop_user_id
        FROM whoop_credentials WHERE user_id=?`, userID,
	).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expires, &c.WhoopUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := time.Unix(expires.Int64, 0)
		c.ExpiresAt = &t
	}
	return &c, nil
}

// PutWhoopCredential replaces the stored token set. A refresh always carries a
// new refresh token because WHOOP invalidates the old one on use.
func (d *DB) PutWhoopCredential(ctx context.Context, c *models.WhoopCredential) error {
	var expires sql.NullInt64
	if c.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: c.ExpiresAt.Unix(), Valid: true}
	}
	_, err := d.ExecContext(ctx, `
        INSERT INTO whoop_credentials (user_id, access_token, refresh_token, expires_at, whoop_user_id, updated_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT(user_id) DO UPDATE SET access_token=excluded.access_token,
            refresh_token=excluded.refresh_token,
            expires_at=excluded.expires_at,
            whoop_user_id=CASE WHEN excluded.whoop_user_id != '' THEN excluded.whoop_user_id ELSE whoop_credentials.whoop_user_id END,
            updated_at=excluded.updated_at
    `, c.UserID, c.AccessToken, c.RefreshToken, expires, c.WhoopUserID, time.Now().Unix())
	return err
}

// ClearWhoopCredential disconnects WHOOP for the user. Clearing an absent
// credential is not an error.
func (d *DB) ClearWhoopCredential(ctx context.Context, userID int64) error {
	_, err := d.ExecContext(ctx, `DELETE FROM whoop_credentials WHERE user_id=?`, userID)
	return err
}

// ClearWhoopCredentialIfRefresh clears the credential only while it still
// holds refreshToken. It reports false when a concurrent refresh already
// replaced the token set, in which case nothing is deleted.
func (d *DB) ClearWhoopCredentialIfRefresh(ctx context.Context, userID int64, refreshToken string) (bool, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM whoop_credentials WHERE user_id=? AND refresh_token=?`, userID, refreshToken)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListWhoopExpiringBefore returns refreshable credentials whose expiry is
// before t. A missing expiry counts as expiring.
func (d *DB) ListWhoopExpiringBefore(ctx context.Context, t time.Time) ([]models.WhoopCredential, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT user_id, access_token, refresh_token, expires_at, whoop_user_id
        FROM whoop_credentials
        WHERE refresh_token != ''
          AND (expires_at IS NULL OR expires_at < ?)
        ORDER BY user_id`, t.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.WhoopCredential
	for rows.Next() {
		var (
			c       models.WhoopCredential
			expires sql.NullInt64
		)
		if err := rows.Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expires, &c.WhoopUserID); err != nil {
			return nil, err
		}
		if expires.Valid {
			t := time.Unix(expires.Int64, 0)
			c.ExpiresAt = &t
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ---------- fatsecret -------------------------------------------------------

func (d *DB) GetFatSecretCredential(ctx context.Context, userID int64) (*models.FatSecretCredential, error) {
	var c models.FatSecretCredential
	err := d.QueryRowContext(ctx, `
        SELECT user_id, access_token, access_secret
        FROM fatsecret_credentials WHERE user_id=?`, userID,
	).Scan(&c.UserID, &c.AccessToken, &c.AccessSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) PutFatSecretCredential(ctx context.Context, c *models.FatSecretCredential) error {
	_, err := d.ExecContext(ctx, `
        INSERT INTO fatsecret_credentials (user_id, access_token, access_secret, updated_at)
        VALUES (?,?,?,?)
        ON CONFLICT(user_id) DO UPDATE SET access_token=excluded.access_token,
            access_secret=excluded.access_secret,
            updated_at=excluded.updated_at
    `, c.UserID, c.AccessToken, c.AccessSecret, time.Now().Unix())
	return err
}

func (d *DB) ClearFatSecretCredential(ctx context.Context, userID int64) error {
	_, err := d.ExecContext(ctx, `DELETE FROM fatsecret_credentials WHERE user_id=?`, userID)
	return err
}

func (d *DB) ListFatSecretCredentials(ctx context.Context) ([]models.FatSecretCredential, error) {
	rows, err := d.QueryContext(ctx, `
        SELECT user_id, access_token, access_secret
        FROM fatsecret_credentials ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.FatSecretCredential
	for rows.Next() {
		var c models.FatSecretCredential
		if err := rows.Scan(&c.UserID, &c.AccessToken, &c.AccessSecret); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
