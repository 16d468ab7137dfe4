// Package httpapi is the HTTP side of the bot: OAuth callbacks, food search,
// a debug snapshot route, health and metrics.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/oauthstate"
)

type WhoopConnector interface {
	Connect(ctx context.Context, userID int64, code string) error
}

type FatSecretConnector interface {
	RequestToken(ctx context.Context, callbackURL string) (token, secret string, err error)
	Connect(ctx context.Context, userID int64, requestToken, verifier, requestSecret string) error
	SearchFoods(ctx context.Context, query string, maxResults int) ([]fatsecret.Food, error)
}

type Snapshotter interface {
	Today(ctx context.Context, userID int64) models.Snapshot
}

type Users interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, telegramUserID int64, text string) error
}

type Config struct {
	BaseURL    string
	DebugToken string // debug routes are off when empty
}

// API holds the route handlers. Whoop and FatSecret may be nil when the
// integration is not configured.
type API struct {
	Whoop     WhoopConnector
	FatSecret FatSecretConnector
	Stats     Snapshotter
	Users     Users
	Notifier  Notifier
	States    *oauthstate.Store
	Config    Config
}

const (
	txtWhoopConnected     = "✅ WHOOP підключено! Тепер я бачу твій сон, відновлення та тренування."
	txtFatSecretConnected = "✅ FatSecret підключено! Щоденник їжі синхронізується автоматично."

	pageConnected = "Connected. You can return to Telegram."
	pageExpired   = "This link has expired. Request a new one in Telegram."
	pageFailed    = "Could not complete the connection. Please try again from Telegram."
)

// RegisterRoutes registers every route on e.
func (a *API) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", a.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/whoop/callback", a.WhoopCallback)
	e.GET("/fatsecret/connect", a.FatSecretConnect)
	e.GET("/fatsecret/callback", a.FatSecretCallback)
	e.GET("/food/search", a.FoodSearch)

	if a.Config.DebugToken != "" {
		g := e.Group("/debug", a.requireDebugToken)
		g.GET("/today/:user_id", a.DebugToday)
	}
}

// NewServer builds the echo instance with recovery and request logging.
func NewServer(a *API) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogMethod:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("path", v.URIPath).
				Int("status", v.Status).Dur("latency", v.Latency).Msg("http request")
			return nil
		},
	}))
	a.RegisterRoutes(e)
	return e
}

func (a *API) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// WhoopCallback finishes the WHOOP authorization-code flow.
func (a *API) WhoopCallback(c echo.Context) error {
	if a.Whoop == nil {
		return c.String(http.StatusNotFound, "whoop is not configured")
	}
	if e := c.QueryParam("error"); e != "" {
		log.Warn().Str("error", e).Str("description", c.QueryParam("error_description")).Msg("whoop authorization denied")
		return c.String(http.StatusBadRequest, pageFailed)
	}
	code := c.QueryParam("code")
	pending, ok := a.States.Take(c.QueryParam("state"))
	if !ok || code == "" {
		return c.String(http.StatusBadRequest, pageExpired)
	}
	ctx := c.Request().Context()
	if err := a.Whoop.Connect(ctx, pending.UserID, code); err != nil {
		log.Error().Err(err).Int64("user_id", pending.UserID).Msg("whoop connect failed")
		return c.String(http.StatusBadGateway, pageFailed)
	}
	a.notify(ctx, pending.UserID, txtWhoopConnected)
	return c.String(http.StatusOK, pageConnected)
}

// FatSecretConnect starts the OAuth 1.0 handshake for the chat user behind
// state and sends the browser to FatSecret.
func (a *API) FatSecretConnect(c echo.Context) error {
	if a.FatSecret == nil {
		return c.String(http.StatusNotFound, "fatsecret is not configured")
	}
	pending, ok := a.States.Take(c.QueryParam("state"))
	if !ok {
		return c.String(http.StatusBadRequest, pageExpired)
	}
	callback := strings.TrimRight(a.Config.BaseURL, "/") + "/fatsecret/callback"
	token, secret, err := a.FatSecret.RequestToken(c.Request().Context(), callback)
	if err != nil {
		log.Error().Err(err).Int64("user_id", pending.UserID).Msg("fatsecret request token failed")
		return c.String(http.StatusBadGateway, pageFailed)
	}
	a.States.Put(token, oauthstate.Pending{UserID: pending.UserID, Secret: secret})
	return c.Redirect(http.StatusFound, fatsecret.AuthorizeURLFor(token))
}

// FatSecretCallback exchanges the verifier for the user's access token.
func (a *API) FatSecretCallback(c echo.Context) error {
	if a.FatSecret == nil {
		return c.String(http.StatusNotFound, "fatsecret is not configured")
	}
	token := c.QueryParam("oauth_token")
	verifier := c.QueryParam("oauth_verifier")
	pending, ok := a.States.Take(token)
	if !ok || verifier == "" {
		return c.String(http.StatusBadRequest, pageExpired)
	}
	ctx := c.Request().Context()
	if err := a.FatSecret.Connect(ctx, pending.UserID, token, verifier, pending.Secret); err != nil {
		log.Error().Err(err).Int64("user_id", pending.UserID).Msg("fatsecret connect failed")
		return c.String(http.StatusBadGateway, pageFailed)
	}
	a.notify(ctx, pending.UserID, txtFatSecretConnected)
	return c.String(http.StatusOK, pageConnected)
}

// FoodSearch proxies the public food database.
func (a *API) FoodSearch(c echo.Context) error {
	if a.FatSecret == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "fatsecret is not configured"})
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
	}
	maxResults, _ := strconv.Atoi(c.QueryParam("max"))
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 5
	}
	foods, err := a.FatSecret.SearchFoods(c.Request().Context(), q, maxResults)
	if err != nil {
		log.Error().Err(err).Str("q", q).Msg("food search failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "food search failed"})
	}
	if foods == nil {
		foods = []fatsecret.Food{}
	}
	return c.JSON(http.StatusOK, map[string]any{"query": q, "results": foods})
}

// DebugToday returns the live snapshot for one user.
func (a *API) DebugToday(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad user_id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	return c.JSON(http.StatusOK, a.Stats.Today(ctx, userID))
}

func (a *API) requireDebugToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		got := c.Request().Header.Get("X-Debug-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.Config.DebugToken)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return next(c)
	}
}

func (a *API) notify(ctx context.Context, userID int64, text string) {
	if a.Notifier == nil || a.Users == nil {
		return
	}
	u, err := a.Users.GetUser(ctx, userID)
	if err != nil || u == nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("notify: user lookup failed")
		return
	}
	if err := a.Notifier.Notify(ctx, u.TelegramUserID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("notify failed")
	}
}
