package whoop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"telegram-health-assistant/internal/metrics"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
)

var (
	AuthURL  = "https://api.prod.whoop.com/oauth/oauth2/auth"
	TokenURL = "https://api.prod.whoop.com/oauth/oauth2/token"
)

var Scopes = []string{
	"offline",
	"read:cycles",
	"read:recovery",
	"read:sleep",
	"read:workout",
	"read:body_measurement",
	"read:profile",
}

// OAuthConfig builds the authorization-code config. WHOOP expects the client
// credentials in the form body.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// CredentialStore is the slice of storage the token manager needs.
type CredentialStore interface {
	GetWhoopCredential(ctx context.Context, userID int64) (*models.WhoopCredential, error)
	PutWhoopCredential(ctx context.Context, c *models.WhoopCredential) error
	ClearWhoopCredential(ctx context.Context, userID int64) error
	ClearWhoopCredentialIfRefresh(ctx context.Context, userID int64, refreshToken string) (bool, error)
}

// TokenManager owns the refresh-or-reuse policy for WHOOP access tokens.
// It holds no per-user state; concurrent refreshes for one user both write a
// complete token set and the last write wins.
type TokenManager struct {
	store      CredentialStore
	oauth      *oauth2.Config
	httpClient *http.Client
	clock      clockwork.Clock
	retries    int
	retryDelay time.Duration
}

type TokenManagerOption func(*TokenManager)

func WithClock(c clockwork.Clock) TokenManagerOption {
	return func(m *TokenManager) { m.clock = c }
}

// WithRetryDelay sets the linear backoff step between transient failures.
func WithRetryDelay(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) { m.retryDelay = d }
}

func NewTokenManager(store CredentialStore, conf *oauth2.Config, httpClient *http.Client, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{
		store:      store,
		oauth:      conf,
		httpClient: httpClient,
		clock:      clockwork.NewRealClock(),
		retries:    3,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValidToken returns a usable access token. Unless force is set, a
// stored token that has not expired is returned without any network call.
func (m *TokenManager) EnsureValidToken(ctx context.Context, userID int64, force bool) (string, error) {
	cred, err := m.store.GetWhoopCredential(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load whoop credential: %w", err)
	}
	if cred == nil {
		return "", providers.ErrNotConnected
	}
	if !force && !cred.Expired(m.clock.Now()) {
		return cred.AccessToken, nil
	}
	refreshed, err := m.Refresh(ctx, cred)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new token set and saves it.
// A rejected refresh token clears the credential and yields a
// CredentialExpiredError.
func (m *TokenManager) Refresh(ctx context.Context, cred *models.WhoopCredential) (*models.WhoopCredential, error) {
	// the provider rotates the refresh token on use, so the result must be
	// stored even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	logger := log.With().Int64("user_id", cred.UserID).Logger()
	logger.Info().Msg("refreshing whoop token")

	tok, err := m.exchangeRefreshToken(ctx, cred)
	if err != nil {
		var re *oauth2.RetrieveError
		switch {
		case errors.As(err, &re) && re.Response != nil && isAuthFatalStatus(re.Response.StatusCode):
			logger.Error().Int("status", re.Response.StatusCode).Bytes("body", re.Body).Msg("whoop token refresh rejected")
			metrics.RecordTokenRefresh(models.ProviderWhoop, "rejected")
			return m.invalidateStale(ctx, cred)
		case errors.As(err, &re) && re.Response != nil:
			metrics.RecordTokenRefresh(models.ProviderWhoop, "error")
			return nil, &providers.ProviderError{
				Provider:   models.ProviderWhoop,
				Op:         "token refresh",
				StatusCode: re.Response.StatusCode,
				Message:    string(re.Body),
			}
		case providers.IsNetworkFailure(err):
			logger.Error().Err(err).Int("attempts", m.retries+1).Msg("whoop token refresh failed after retries")
			metrics.RecordTokenRefresh(models.ProviderWhoop, "transient")
			return nil, fmt.Errorf("whoop token refresh: %w: %w", providers.ErrTransient, err)
		default:
			metrics.RecordTokenRefresh(models.ProviderWhoop, "error")
			return nil, &providers.ProviderError{Provider: models.ProviderWhoop, Op: "token refresh", Err: err}
		}
	}

	next := &models.WhoopCredential{
		UserID:       cred.UserID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		WhoopUserID:  cred.WhoopUserID,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		next.ExpiresAt = &exp
	}
	if err := m.store.PutWhoopCredential(ctx, next); err != nil {
		metrics.RecordTokenRefresh(models.ProviderWhoop, "error")
		return nil, fmt.Errorf("save whoop credential: %w", err)
	}
	metrics.RecordTokenRefresh(models.ProviderWhoop, "ok")
	logger.Info().Time("expires_at", tok.Expiry).Msg("whoop token refreshed")
	return next, nil
}

// exchangeRefreshToken calls the token endpoint, retrying connect and timeout
// failures with a linear backoff of retryDelay, 2*retryDelay, ...
func (m *TokenManager) exchangeRefreshToken(ctx context.Context, cred *models.WhoopCredential) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	var (
		tok *oauth2.Token
		err error
	)
	for attempt := 0; attempt <= m.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * m.retryDelay
			log.Warn().Err(err).Int64("user_id", cred.UserID).Int("retry", attempt).Dur("delay", delay).
				Msg("whoop token refresh retry")
			m.clock.Sleep(delay)
		}
		src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
		tok, err = src.Token()
		if err == nil || !providers.IsNetworkFailure(err) {
			return tok, err
		}
	}
	return nil, err
}

// backoff waits attempt*retryDelay, the schedule the refresh exchange uses.
func (m *TokenManager) backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.clock.After(time.Duration(attempt) * m.retryDelay):
		return nil
	}
}

// Invalidate clears the stored credential and returns the matching
// CredentialExpiredError.
func (m *TokenManager) Invalidate(ctx context.Context, userID int64) error {
	if err := m.store.ClearWhoopCredential(ctx, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("clear whoop credential")
	}
	metrics.RecordCredentialExpired(models.ProviderWhoop)
	log.Warn().Int64("user_id", userID).Msg("cleared whoop tokens, re-auth required")
	return providers.Expired(models.ProviderWhoop)
}

// invalidateStale clears a credential whose refresh token was rejected. When a
// concurrent refresh has already rotated the tokens, the rejection concerns
// the old refresh token only and the newer token set is returned instead.
func (m *TokenManager) invalidateStale(ctx context.Context, cred *models.WhoopCredential) (*models.WhoopCredential, error) {
	cleared, err := m.store.ClearWhoopCredentialIfRefresh(ctx, cred.UserID, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("clear whoop credential: %w", err)
	}
	if !cleared {
		current, err := m.store.GetWhoopCredential(ctx, cred.UserID)
		if err != nil {
			return nil, fmt.Errorf("load whoop credential: %w", err)
		}
		if current != nil && current.RefreshToken != cred.RefreshToken {
			log.Info().Int64("user_id", cred.UserID).Msg("whoop tokens rotated by a concurrent refresh")
			return current, nil
		}
	}
	metrics.RecordCredentialExpired(models.ProviderWhoop)
	log.Warn().Int64("user_id", cred.UserID).Msg("cleared whoop tokens, re-auth required")
	return nil, providers.Expired(models.ProviderWhoop)
}

func isAuthFatalStatus(code int) bool {
	return code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden
}
