package whoop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
)

var APIBase = "https://api.prod.whoop.com/developer/v2"

// Lookback covers yesterday's cycle, which today's recovery and the
// in-progress estimate both depend on.
const Lookback = 48 * time.Hour

var (
	errUnauthorized = errors.New("whoop: unauthorized")
	errNotFound     = errors.New("whoop: not found")
)

// Client reads WHOOP data on behalf of connected users. It is safe for
// concurrent use across users; it keeps no per-user state.
type Client struct {
	tokens  *TokenManager
	http    *http.Client
	baseURL string
	clock   clockwork.Clock
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithClientClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) { c.clock = clock }
}

func NewClient(tokens *TokenManager, httpClient *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		tokens:  tokens,
		http:    httpClient,
		baseURL: APIBase,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchContext loads cycles, sleeps, recoveries, workouts and body data in
// parallel. A 401/403 triggers exactly one forced refresh and one retry of
// the whole batch; a second rejection clears the credential.
func (c *Client) FetchContext(ctx context.Context, userID int64) (*Payload, error) {
	token, err := c.tokens.EnsureValidToken(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	p, err := c.fetchBatch(ctx, token)
	if errors.Is(err, errUnauthorized) {
		log.Warn().Int64("user_id", userID).Msg("whoop rejected access token, forcing refresh")
		token, err = c.tokens.EnsureValidToken(ctx, userID, true)
		if err != nil {
			return nil, err
		}
		p, err = c.fetchBatch(ctx, token)
		if errors.Is(err, errUnauthorized) {
			return nil, c.tokens.Invalidate(ctx, userID)
		}
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Int64("user_id", userID).
		Int("cycles", len(p.Cycles)).
		Int("sleeps", len(p.Sleeps)).
		Int("recoveries", len(p.Recoveries)).
		Int("workouts", len(p.Workouts)).
		Msg("whoop context fetched")
	return p, nil
}

func (c *Client) fetchBatch(ctx context.Context, token string) (*Payload, error) {
	start := c.clock.Now().UTC().Add(-Lookback).Format(time.RFC3339)
	window := func(limit int) url.Values {
		return url.Values{"limit": {strconv.Itoa(limit)}, "start": {start}}
	}

	var (
		p          Payload
		cycles     page[Cycle]
		sleeps     page[Sleep]
		recoveries page[Recovery]
		workouts   page[Workout]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.get(gctx, token, "/cycle", window(5), &cycles) })
	g.Go(func() error { return c.get(gctx, token, "/activity/sleep", window(5), &sleeps) })
	g.Go(func() error { return c.get(gctx, token, "/recovery", window(5), &recoveries) })
	g.Go(func() error { return c.get(gctx, token, "/activity/workout", window(25), &workouts) })
	g.Go(func() error {
		var body BodyMeasurement
		err := c.get(gctx, token, "/user/measurement/body", nil, &body)
		if errors.Is(err, errNotFound) {
			return nil
		}
		if err == nil {
			p.Body = &body
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.Cycles = cycles.Records
	p.Sleeps = sleeps.Records
	p.Recoveries = recoveries.Records
	p.Workouts = workouts.Records
	return &p, nil
}

// do sends an authorized GET, retrying connect and timeout failures with the
// token manager's linear backoff.
func (c *Client) do(ctx context.Context, token, u string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		if attempt >= c.tokens.retries || ctx.Err() != nil || !providers.IsNetworkFailure(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("url", req.URL.Path).Int("retry", attempt+1).Msg("whoop GET retry")
		if werr := c.tokens.backoff(ctx, attempt+1); werr != nil {
			return nil, err
		}
	}
}

func (c *Client) get(ctx context.Context, token, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := c.do(ctx, token, u)
	if err != nil {
		return fmt.Errorf("whoop GET %s: %w: %w", path, providers.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &providers.ProviderError{
			Provider:   models.ProviderWhoop,
			Op:         "GET " + path,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &providers.ProviderError{Provider: models.ProviderWhoop, Op: "decode " + path, Err: err}
	}
	return nil
}
