package webserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
	"github.com/lachlan2k/school-portal/internal/api"
	"github.com/lachlan2k/school-portal/internal/auth"
	"github.com/lachlan2k/school-portal/internal/config"
	"github.com/lachlan2k/school-portal/internal/metrics"
	"github.com/lachlan2k/school-portal/internal/session"
)

type Webserver struct {
	echo *echo.Echo
	conf *config.Config

	sessions *session.CookieStore
	auth     *auth.Authenticator
	api      *api.Client
	router   *accesscontrol.Router
	metrics  *metrics.Metrics
}

func New() *Webserver {
	return &Webserver{
		echo: echo.New(),
	}
}

func (w *Webserver) Logger() echo.Logger {
	return w.echo.Logger
}

func parseLogLevel(level string) (log.Lvl, error) {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG, nil
	case "", "info":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return log.INFO, fmt.Errorf("unknown log level %q", level)
}

// Configure builds everything the routes need from conf and registers them
func (w *Webserver) Configure(conf *config.Config) error {
	w.conf = conf
	e := w.echo

	e.HideBanner = true
	e.Debug = conf.Debug

	lvl, err := parseLogLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	e.Logger.SetLevel(lvl)

	if conf.Metrics.Enabled {
		w.metrics = metrics.New()
	}

	w.sessions = &session.CookieStore{
		TokenCookie: conf.Session.Cookie.TokenName,
		UserCookie:  conf.Session.Cookie.UserName,
		Domain:      conf.Session.Cookie.Domain,
		Secure:      conf.Session.Cookie.Secure,
		Lifetime:    conf.SessionLifetime(),
		CheckExpiry: conf.Session.Cookie.CheckExpiry,
	}

	w.api = api.New(conf.API.BaseURL,
		api.WithLoginPath(conf.API.LoginPath),
		api.WithTimeout(conf.APITimeout()),
		api.WithMetrics(w.metrics),
	)

	w.router, err = accesscontrol.NewRouter(conf.Routes.RoleDestinations)
	if err != nil {
		return fmt.Errorf("routes.role_destinations: %v", err)
	}

	err = checkDestinations(w.router)
	if err != nil {
		return err
	}

	w.auth = &auth.Authenticator{
		API:        w.api,
		Sessions:   w.sessions,
		Router:     w.router,
		LoginRoute: conf.Routes.Login,
		Metrics:    w.metrics,
		Logger:     e.Logger,
	}

	e.HTTPErrorHandler = appHTTPErrorHandler
	e.Renderer = newTemplateRenderer()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if lvl <= log.INFO {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Output: e.Logger.Output(),
		}))
	}
	e.Use(middleware.Recover())

	w.registerRoutes()

	return nil
}

// checkDestinations makes sure every role lands on a page that exists
func checkDestinations(router *accesscontrol.Router) error {
	pages := make(map[string]bool, len(dashboards))
	for _, d := range dashboards {
		pages[d.path] = true
	}

	for _, role := range accesscontrol.AllRoles {
		dest := router.Destination(role)

		u, err := url.Parse(dest)
		if err != nil || !pages[strings.TrimSuffix(u.Path, "/")] {
			return fmt.Errorf("routes.role_destinations: %s lands on %s, which isn't a dashboard", role, dest)
		}
	}

	return nil
}

func (w *Webserver) registerRoutes() {
	e := w.echo

	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	if w.metrics != nil {
		e.GET(w.conf.Metrics.Path, echo.WrapHandler(w.metrics.Handler()))
	}

	csrf := w.csrfMiddleware()
	e.GET(w.conf.Routes.Login, w.loginPageRouteHandler, csrf)
	e.POST(w.conf.Routes.Login, w.loginRouteHandler, csrf)
	e.POST("/logout", w.logoutRouteHandler, csrf)

	e.GET("/auth/me", w.authInfoRouteHandler, w.requireAPISession)

	w.registerDashboards()

	apiGroup := e.Group("/api", w.requireAPISession)
	apiGroup.PUT("/subjects/:id/join-permission", w.joinPermissionRouteHandler)
	apiGroup.PUT("/terms/:id/current", w.currentTermRouteHandler)
	apiGroup.GET("/:resource", w.listResourceRouteHandler)
	apiGroup.POST("/:resource", w.createResourceRouteHandler)
	apiGroup.GET("/:resource/:id", w.getResourceRouteHandler)
	apiGroup.PUT("/:resource/:id", w.updateResourceRouteHandler)
	apiGroup.DELETE("/:resource/:id", w.deleteResourceRouteHandler)
}

// ServeHTTP lets the configured server be driven directly, e.g. by httptest
func (w *Webserver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.echo.ServeHTTP(rw, r)
}

func (w *Webserver) Run(conf *config.Config) {
	err := w.Configure(conf)
	if err != nil {
		w.echo.Logger.Fatalf("Failed to configure webserver: %v", err)
	}

	err = w.echo.Start(fmt.Sprintf(":%d", conf.ListenPort))
	w.echo.Logger.Fatal(err)
}
