package fatsecret

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
)

var errNoToken = errors.New("fatsecret: handshake response carried no token")

// RequestToken is step one of the OAuth 1.0 handshake. The returned secret
// must be kept until the callback arrives.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (token, secret string, err error) {
	params := c.oauthParams("")
	params.Set("oauth_callback", callbackURL)
	params.Set("oauth_signature", Sign(http.MethodPost, RequestTokenURL, params, c.conf.SharedSecret, ""))

	vals, err := c.handshake(ctx, "request_token", RequestTokenURL, params)
	if err != nil {
		return "", "", err
	}
	return vals.Get("oauth_token"), vals.Get("oauth_token_secret"), nil
}

// AuthorizeURLFor is the page the user approves access on.
func AuthorizeURLFor(requestToken string) string {
	return AuthorizeURL + "?" + url.Values{"oauth_token": {requestToken}}.Encode()
}

// ExchangeAccessToken is the final handshake step. requestSecret is the
// secret returned by RequestToken for the same request token.
func (c *Client) ExchangeAccessToken(ctx context.Context, requestToken, verifier, requestSecret string) (token, secret string, err error) {
	params := c.oauthParams(requestToken)
	params.Set("oauth_verifier", verifier)
	params.Set("oauth_signature", Sign(http.MethodPost, AccessTokenURL, params, c.conf.SharedSecret, requestSecret))

	vals, err := c.handshake(ctx, "access_token", AccessTokenURL, params)
	if err != nil {
		return "", "", err
	}
	return vals.Get("oauth_token"), vals.Get("oauth_token_secret"), nil
}

// Connect exchanges the verifier and stores the user's token pair.
func (c *Client) Connect(ctx context.Context, userID int64, requestToken, verifier, requestSecret string) error {
	token, secret, err := c.ExchangeAccessToken(ctx, requestToken, verifier, requestSecret)
	if err != nil {
		return err
	}
	cred := &models.FatSecretCredential{UserID: userID, AccessToken: token, AccessSecret: secret}
	if err := c.store.PutFatSecretCredential(ctx, cred); err != nil {
		return fmt.Errorf("save fatsecret credential: %w", err)
	}
	log.Info().Int64("user_id", userID).Msg("fatsecret connected")
	return nil
}

func (c *Client) handshake(ctx context.Context, op, endpoint string, params url.Values) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authHeader(params))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fatsecret %s: %w: %w", op, providers.ErrTransient, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return nil, &providers.ProviderError{
			Provider:   models.ProviderFatSecret,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 512),
		}
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, &providers.ProviderError{Provider: models.ProviderFatSecret, Op: op, Err: err}
	}
	if vals.Get("oauth_token") == "" {
		return nil, &providers.ProviderError{Provider: models.ProviderFatSecret, Op: op, Err: errNoToken}
	}
	return vals, nil
}
