package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

type (
	Deps struct {
		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		Resolver    *session.Resolver
		SessionSvc  *session.Service
		UserSvc     *user.Service
		AcademicSvc *academic.Service
		NoteSvc     *note.Service
		Audit       audit.Store
		MailSvc     core.EmailService
		Metrics     *Metrics
	}

	Server struct {
		app      *echo.Echo
		address  string
		errors   chan error
		shutdown chan os.Signal
		deps     *Deps
	}
)

// NewServer sets up the API. If shutdown is nil, SIGINT and SIGTERM are listened to.
func NewServer(address string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}

	s := &Server{
		app:      echo.New(),
		address:  address,
		errors:   make(chan error, 1),
		shutdown: shutdown,
		deps:     deps,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(s.deps.Metrics.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	auth := authenticator{resolver: s.deps.Resolver, secret: conf.Auth.JWTSecret}

	registerSessionAPI(v1, jwt, auth, s.deps)
	registerAcademicAPI(v1, s.deps)
	registerNoteAPI(v1, jwt, auth, s.deps)
	registerAccountAPI(v1, jwt, auth, s.deps)
	registerAdminAPI(v1, jwt, auth, s.deps)
	registerLiveAPI(v1, s.deps)
}

// Start blocks until the server stops. Errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
