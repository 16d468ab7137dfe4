package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/httpapi"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/oauthstate"
)

type fakeWhoop struct {
	err    error
	userID int64
	code   string
}

func (f *fakeWhoop) Connect(_ context.Context, userID int64, code string) error {
	f.userID, f.code = userID, code
	return f.err
}

type fakeFatSecret struct {
	connected         bool
	gotToken, gotVer  string
	gotSecret         string
	gotCallback       string
	foods             []fatsecret.Food
	searchErr         error
	searchQ           string
	searchMax         int
	requestTokenError error
}

func (f *fakeFatSecret) RequestToken(_ context.Context, callbackURL string) (string, string, error) {
	f.gotCallback = callbackURL
	if f.requestTokenError != nil {
		return "", "", f.requestTokenError
	}
	return "req-token", "req-secret", nil
}

func (f *fakeFatSecret) Connect(_ context.Context, _ int64, token, verifier, secret string) error {
	f.connected = true
	f.gotToken, f.gotVer, f.gotSecret = token, verifier, secret
	return nil
}

func (f *fakeFatSecret) SearchFoods(_ context.Context, q string, max int) ([]fatsecret.Food, error) {
	f.searchQ, f.searchMax = q, max
	return f.foods, f.searchErr
}

type fakeStats struct{ snap models.Snapshot }

func (f fakeStats) Today(context.Context, int64) models.Snapshot { return f.snap }

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) { return f[id], nil }

type sentNote struct {
	chat int64
	text string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNote
}

func (f *fakeNotifier) Notify(_ context.Context, chat int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNote{chat, text})
	return nil
}

type fixture struct {
	api      *httpapi.API
	whoop    *fakeWhoop
	fs       *fakeFatSecret
	notifier *fakeNotifier
	states   *oauthstate.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	states := oauthstate.New(0)
	t.Cleanup(states.Stop)
	f := &fixture{
		whoop:    &fakeWhoop{},
		fs:       &fakeFatSecret{},
		notifier: &fakeNotifier{},
		states:   states,
	}
	f.api = &httpapi.API{
		Whoop:     f.whoop,
		FatSecret: f.fs,
		Stats:     fakeStats{snap: models.Snapshot{CaloriesIn: 640, CaloriesOut: 2100}},
		Users:     fakeUsers{7: {ID: 7, TelegramUserID: 7007}},
		Notifier:  f.notifier,
		States:    states,
		Config:    httpapi.Config{BaseURL: "https://bot.example.com/", DebugToken: "s3cret"},
	}
	return f
}

func (f *fixture) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	e := httpapi.NewServer(f.api)
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWhoopCallback(t *testing.T) {
	f := newFixture(t)
	state := f.states.Issue(7)

	rec := f.do(t, http.MethodGet, "/whoop/callback?code=abc&state="+state, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), f.whoop.userID)
	assert.Equal(t, "abc", f.whoop.code)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(7007), f.notifier.sent[0].chat)
	assert.Contains(t, f.notifier.sent[0].text, "WHOOP")

	// state is single use
	rec = f.do(t, http.MethodGet, "/whoop/callback?code=abc&state="+state, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhoopCallbackRejects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/whoop/callback?code=abc&state=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/whoop/callback?error=access_denied&state="+f.states.Issue(7), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.whoop.err = errors.New("exchange failed")
	rec = f.do(t, http.MethodGet, "/whoop/callback?code=abc&state="+f.states.Issue(7), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, f.notifier.sent)
}

func TestFatSecretHandshake(t *testing.T) {
	f := newFixture(t)
	state := f.states.Issue(7)

	rec := f.do(t, http.MethodGet, "/fatsecret/connect?state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fatsecret.AuthorizeURLFor("req-token"), rec.Header().Get("Location"))
	assert.Equal(t, "https://bot.example.com/fatsecret/callback", f.fs.gotCallback)

	_, ok := f.states.Peek(state)
	assert.False(t, ok, "connect state must be consumed")

	rec = f.do(t, http.MethodGet, "/fatsecret/callback?oauth_token=req-token&oauth_verifier=v123", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.fs.connected)
	assert.Equal(t, "req-token", f.fs.gotToken)
	assert.Equal(t, "v123", f.fs.gotVer)
	assert.Equal(t, "req-secret", f.fs.gotSecret)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].text, "FatSecret")
}

func TestFatSecretConnectFailures(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/fatsecret/connect?state=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.fs.requestTokenError = errors.New("boom")
	rec = f.do(t, http.MethodGet, "/fatsecret/connect?state="+f.states.Issue(7), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, http.MethodGet, "/fatsecret/callback?oauth_token=unknown&oauth_verifier=v", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, f.fs.connected)
}

func TestNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.api.Whoop = nil
	f.api.FatSecret = nil

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/whoop/callback?code=a&state=b", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/fatsecret/connect?state=b", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/food/search?q=egg", nil).Code)
}

func TestFoodSearch(t *testing.T) {
	f := newFixture(t)
	f.fs.foods = []fatsecret.Food{{ID: "1", Name: "Egg", Description: "Per 100g - Calories: 155kcal"}}

	rec := f.do(t, http.MethodGet, "/food/search?q=egg&max=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "egg", f.fs.searchQ)
	assert.Equal(t, 3, f.fs.searchMax)

	var body struct {
		Query   string           `json:"query"`
		Results []fatsecret.Food `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "egg", body.Query)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Egg", body.Results[0].Name)

	f.do(t, http.MethodGet, "/food/search?q=egg&max=500", nil)
	assert.Equal(t, 5, f.fs.searchMax)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/food/search?q=+", nil).Code)

	f.fs.searchErr = errors.New("down")
	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodGet, "/food/search?q=egg", nil).Code)
}

func TestFoodSearchEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/food/search?q=zzz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"results":[]`))
}

func TestDebugToday(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/debug/today/7", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/debug/today/7", http.Header{"X-Debug-Token": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/debug/today/x", http.Header{"X-Debug-Token": {"s3cret"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/debug/today/7", http.Header{"X-Debug-Token": {"s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 640, snap.CaloriesIn)
	assert.Equal(t, 2100, snap.CaloriesOut)
}

func TestDebugRoutesOffWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.api.Config.DebugToken = ""
	rec := f.do(t, http.MethodGet, "/debug/today/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
