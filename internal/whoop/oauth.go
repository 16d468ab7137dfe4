package whoop

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"telegram-health-assistant/internal/models"
)

// AuthCodeURL is the consent page the user is sent to from chat.
func (c *Client) AuthCodeURL(state string) string {
	return c.tokens.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token set.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.tokens.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("whoop code exchange: %w", err)
	}
	return tok, nil
}

// LookupUserID returns the WHOOP account id behind an access token, taken
// from the newest recovery record. Empty when the account has no records.
func (c *Client) LookupUserID(ctx context.Context, accessToken string) (string, error) {
	var recs page[Recovery]
	if err := c.get(ctx, accessToken, "/recovery", url.Values{"limit": {"1"}}, &recs); err != nil {
		return "", err
	}
	if len(recs.Records) == 0 {
		return "", nil
	}
	return strconv.FormatInt(recs.Records[0].UserID, 10), nil
}

// Connect completes the OAuth callback: exchange the code, identify the WHOOP
// account and store the full token set.
func (c *Client) Connect(ctx context.Context, userID int64, code string) error {
	tok, err := c.Exchange(ctx, code)
	if err != nil {
		return err
	}
	whoopID, err := c.LookupUserID(ctx, tok.AccessToken)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("whoop user id lookup failed")
	}
	cred := &models.WhoopCredential{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		WhoopUserID:  whoopID,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		cred.ExpiresAt = &exp
	}
	if err := c.tokens.store.PutWhoopCredential(ctx, cred); err != nil {
		return fmt.Errorf("save whoop credential: %w", err)
	}
	log.Info().Int64("user_id", userID).Str("whoop_user_id", whoopID).Msg("whoop connected")
	return nil
}
