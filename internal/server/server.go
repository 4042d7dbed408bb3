// Package server provides the HTTP server for the blog API, built on
// Echo v4. Every route is an explicit pipeline of stages; see package
// pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/auth"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/config"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/graph"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/guard"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
)

// Deps are the collaborators the server is built from. All are
// constructed by the caller; the server owns none of them.
type Deps struct {
	Config      *config.Config
	Credentials *auth.Manager
	Accounts    account.Repository
	Posts       post.Repository
	Media       *media.Manager
	Graph       *graph.Coordinator
	Events      *events.Manager
	// MediaDir, when set, is served under /media (local media backend).
	MediaDir string
}

// Server wraps the Echo instance and application dependencies.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	creds    *auth.Manager
	guard    *guard.Guard
	accounts account.Repository
	posts    post.Repository
	media    *media.Manager
	graph    *graph.Coordinator
	events   *events.Manager
}

// New creates a configured Echo server with all routes registered.
func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true // We log the listen address ourselves.

	s := &Server{
		echo:     e,
		cfg:      d.Config,
		creds:    d.Credentials,
		guard:    guard.New(d.Credentials, d.Accounts),
		accounts: d.Accounts,
		posts:    d.Posts,
		media:    d.Media,
		graph:    d.Graph,
		events:   d.Events,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowCredentials: d.Config.AuthMode == config.AuthModeSession,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/events" },
	}))
	if n := d.Config.RateLimitPerMinute; n > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(n) / 60),
				Burst:     n,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	s.registerRoutes(d.MediaDir)
	return s
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start begins listening for HTTP requests. It blocks until the context
// is cancelled, then performs a graceful shutdown allowing in-flight
// requests to complete.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", s.cfg.ListenAddr)
		if err := s.echo.Start(s.cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// handleError renders any error returned from a pipeline. Application
// errors keep their kind and field errors; anything else is logged and
// reported as an internal error.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		he   *echo.HTTPError
		ae   *apperr.Error
		code int
		body errorBody
	)
	switch {
	case errors.As(err, &he):
		code = he.Code
		body = errorBody{
			Error:   strings.ReplaceAll(http.StatusText(code), " ", ""),
			Message: fmt.Sprint(he.Message),
		}
	case errors.As(err, &ae):
		code = apperr.Status(ae)
		body = errorBody{Error: string(ae.Kind), Message: ae.Message, Errors: ae.Fields}
		if len(body.Errors) == 0 && ae.Field != "" {
			body.Errors = []apperr.FieldError{{Path: ae.Field, Msg: ae.Message}}
		}
		if code >= http.StatusInternalServerError {
			log.Printf("Error %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}
	default:
		code = http.StatusInternalServerError
		body = errorBody{Error: string(apperr.KindInternal), Message: "Internal server error."}
		log.Printf("Error %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		log.Printf("Error writing error response: %v", err)
	}
}
