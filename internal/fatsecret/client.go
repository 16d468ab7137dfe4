package fatsecret

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"telegram-health-assistant/internal/metrics"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
)

var (
	APIURL          = "https://platform.fatsecret.com/rest/server.api"
	TokenURL        = "https://oauth.fatsecret.com/connect/token"
	RequestTokenURL = "https://authentication.fatsecret.com/oauth/request_token"
	AuthorizeURL    = "https://authentication.fatsecret.com/oauth/authorize"
	AccessTokenURL  = "https://authentication.fatsecret.com/oauth/access_token"
)

// authFatalCodes are the embedded error codes that mean the user's token pair
// is no longer valid.
var authFatalCodes = map[int]bool{
	9:  true, // invalid access token
	13: true, // invalid or expired token
}

func IsAuthFatalCode(code int) bool { return authFatalCodes[code] }

type Config struct {
	// ClientID doubles as the OAuth 1.0 consumer key.
	ClientID     string
	ClientSecret string
	// SharedSecret is the OAuth 1.0 consumer secret.
	SharedSecret string
}

type CredentialStore interface {
	GetFatSecretCredential(ctx context.Context, userID int64) (*models.FatSecretCredential, error)
	PutFatSecretCredential(ctx context.Context, c *models.FatSecretCredential) error
	ClearFatSecretCredential(ctx context.Context, userID int64) error
}

// Client talks to the FatSecret platform API. User calls are OAuth 1.0
// signed; food database calls use an app-level OAuth 2.0 token.
type Client struct {
	store    CredentialStore
	conf     Config
	http     *http.Client
	clock    clockwork.Clock
	nonce    func() string
	apiURL   string
	tokenURL string
	appAuth  oauth2.TokenSource
}

type Option func(*Client)

func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

func WithAPIURL(u string) Option {
	return func(cl *Client) { cl.apiURL = u }
}

func WithNonce(f func() string) Option {
	return func(cl *Client) { cl.nonce = f }
}

// WithTokenURL overrides the client-credentials token endpoint.
func WithTokenURL(u string) Option {
	return func(cl *Client) { cl.tokenURL = u }
}

func NewClient(store CredentialStore, conf Config, httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		store:    store,
		conf:     conf,
		http:     httpClient,
		clock:    clockwork.NewRealClock(),
		nonce:    newNonce,
		apiURL:   APIURL,
		tokenURL: TokenURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	cc := &clientcredentials.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURL:     c.tokenURL,
		Scopes:       []string{"basic"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	c.appAuth = cc.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient))
	return c
}

// Credential returns the stored token pair. FatSecret tokens never expire on
// a clock, so there is nothing to refresh here.
func (c *Client) Credential(ctx context.Context, userID int64) (*models.FatSecretCredential, error) {
	cred, err := c.store.GetFatSecretCredential(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load fatsecret credential: %w", err)
	}
	if cred == nil {
		return nil, providers.ErrNotConnected
	}
	return cred, nil
}

// FoodDiary returns the user's diary entries for the calendar day of day.
func (c *Client) FoodDiary(ctx context.Context, userID int64, day time.Time) (*Diary, error) {
	cred, err := c.Credential(ctx, userID)
	if err != nil {
		return nil, err
	}
	var resp struct {
		FoodEntries *struct {
			FoodEntry oneOrMany[FoodEntry] `json:"food_entry"`
		} `json:"food_entries"`
	}
	err = c.userCall(ctx, cred, "food_entries.get.v2", url.Values{"date": {strconv.Itoa(DateInt(day))}}, &resp)
	if err != nil {
		return nil, err
	}
	d := &Diary{Date: day}
	if resp.FoodEntries != nil {
		d.Entries = resp.FoodEntries.FoodEntry
	}
	log.Debug().Int64("user_id", userID).Int("entries", len(d.Entries)).Int("kcal", d.TotalCalories()).Msg("fatsecret diary fetched")
	return d, nil
}

// CreateFoodEntry adds an entry to the user's diary and returns its id.
func (c *Client) CreateFoodEntry(ctx context.Context, userID int64, req EntryRequest) (string, error) {
	cred, err := c.Credential(ctx, userID)
	if err != nil {
		return "", err
	}
	name := req.Name
	if name == "" {
		name = "Food"
	}
	params := url.Values{
		"food_id":         {req.FoodID},
		"serving_id":      {req.ServingID},
		"food_entry_name": {name},
		"number_of_units": {strconv.FormatFloat(req.Units, 'f', -1, 64)},
		"meal":            {MealName(req.Meal)},
		"date":            {strconv.Itoa(DateInt(req.Day))},
	}
	var resp struct {
		FoodEntryID struct {
			Value string `json:"value"`
		} `json:"food_entry_id"`
	}
	if err := c.userCall(ctx, cred, "food_entry.create.v2", params, &resp); err != nil {
		return "", err
	}
	log.Info().Int64("user_id", userID).Str("food_id", req.FoodID).Str("entry_id", resp.FoodEntryID.Value).Msg("fatsecret diary entry created")
	return resp.FoodEntryID.Value, nil
}

func (c *Client) DeleteFoodEntry(ctx context.Context, userID int64, entryID string) error {
	cred, err := c.Credential(ctx, userID)
	if err != nil {
		return err
	}
	var resp json.RawMessage
	return c.userCall(ctx, cred, "food_entry.delete", url.Values{"food_entry_id": {entryID}}, &resp)
}

// userCall performs an OAuth 1.0 signed API call. An auth-fatal error code
// clears the stored credential.
func (c *Client) userCall(ctx context.Context, cred *models.FatSecretCredential, method string, params url.Values, out any) error {
	all := url.Values{"method": {method}, "format": {"json"}}
	for k, vs := range params {
		all[k] = vs
	}
	form := c.signed(http.MethodPost, c.apiURL, cred.AccessToken, cred.AccessSecret, all)

	body, err := c.post(ctx, method, form, nil)
	if err != nil {
		return err
	}
	apiErr, err := decode(body, out)
	if err != nil {
		return &providers.ProviderError{Provider: models.ProviderFatSecret, Op: method, Err: err}
	}
	if apiErr == nil {
		return nil
	}
	if IsAuthFatalCode(apiErr.Code) {
		log.Warn().Int64("user_id", cred.UserID).Int("code", apiErr.Code).Str("message", apiErr.Message).
			Msg("fatsecret rejected token, clearing credential")
		if err := c.store.ClearFatSecretCredential(ctx, cred.UserID); err != nil {
			log.Error().Err(err).Int64("user_id", cred.UserID).Msg("clear fatsecret credential")
		}
		metrics.RecordCredentialExpired(models.ProviderFatSecret)
		return providers.Expired(models.ProviderFatSecret)
	}
	return &providers.ProviderError{
		Provider: models.ProviderFatSecret,
		Op:       method,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
	}
}

// appCall performs a food database call with the app-level bearer token.
func (c *Client) appCall(ctx context.Context, method string, params url.Values, out any) error {
	tok, err := c.appAuth.Token()
	if err != nil {
		if providers.IsNetworkFailure(err) {
			return fmt.Errorf("fatsecret app token: %w: %w", providers.ErrTransient, err)
		}
		return &providers.ProviderError{Provider: models.ProviderFatSecret, Op: "app token", Err: err}
	}
	form := url.Values{"method": {method}, "format": {"json"}}
	for k, vs := range params {
		form[k] = vs
	}
	body, err := c.post(ctx, method, form, tok)
	if err != nil {
		return err
	}
	apiErr, err := decode(body, out)
	if err != nil {
		return &providers.ProviderError{Provider: models.ProviderFatSecret, Op: method, Err: err}
	}
	if apiErr != nil {
		return &providers.ProviderError{Provider: models.ProviderFatSecret, Op: method, Code: apiErr.Code, Message: apiErr.Message}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op string, form url.Values, tok *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if tok != nil {
		tok.SetAuthHeader(req)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fatsecret %s: %w: %w", op, providers.ErrTransient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("fatsecret %s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &providers.ProviderError{
			Provider:   models.ProviderFatSecret,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 512),
		}
	}
	return body, nil
}

// decode splits FatSecret's 200-with-error envelope from a real payload.
func decode(body []byte, out any) (*apiError, error) {
	var env struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Error != nil {
		return env.Error, nil
	}
	if out == nil {
		return nil, nil
	}
	return nil, json.Unmarshal(body, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
