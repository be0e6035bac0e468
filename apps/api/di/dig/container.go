package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/uninotes/apps/api/echo"
	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
	authsvc "github.com/trezcool/uninotes/services/auth"
	emailsvc "github.com/trezcool/uninotes/services/email"
	logsvc "github.com/trezcool/uninotes/services/logger"
	storagesvc "github.com/trezcool/uninotes/services/storage"
	"github.com/trezcool/uninotes/storage/database"
	inmemdb "github.com/trezcool/uninotes/storage/database/inmem"
	sqlxrepos "github.com/trezcool/uninotes/storage/database/sqlx"
	redisstore "github.com/trezcool/uninotes/storage/redis"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are backed by the configured database engine. DB is nil for the memory engine.
type Repositories struct {
	dig.Out
	DB        *sqlx.DB
	Profiles  user.Repository
	Academics academic.Repository
	Notes     note.Repository
}

// AuditBackend is the audit store. Redis is nil when no Redis address is configured.
type AuditBackend struct {
	dig.Out
	Store audit.Store
	Redis *redis.Client
}

type ServerParams struct {
	dig.In
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
	Metrics     *echoapi.Metrics
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == "memory" {
		db, err := inmemdb.Open()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("opening in-memory database: %v", err), err)
		}
		db.SeedMasterData()
		return Repositories{
			Profiles:  inmemdb.NewProfileRepository(db),
			Academics: inmemdb.NewAcademicRepository(db),
			Notes:     inmemdb.NewNoteRepository(db),
		}
	}

	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Repositories{
		DB:        db,
		Profiles:  sqlxrepos.NewProfileRepository(db),
		Academics: sqlxrepos.NewAcademicRepository(db),
		Notes:     sqlxrepos.NewNoteRepository(db),
	}
}

func newObjectStore(conf *core.Config, logger core.Logger) core.ObjectStore {
	if conf.Storage.Provider != "s3" {
		return storagesvc.NewMemoryStore(conf.Storage.PublicBaseURL)
	}
	store, err := storagesvc.NewS3Store(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up object storage: %v", err), err)
	}
	return store
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newAuthenticator(conf *core.Config, mailSvc core.EmailService, logger core.Logger) session.Authenticator {
	if conf.Auth.Provider != "gotrue" {
		return authsvc.NewDummy(mailSvc, conf)
	}
	auth, err := authsvc.NewGoTrue(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up auth provider: %v", err), err)
	}
	return auth
}

func newAuditBackend(conf *core.Config, logger core.Logger) AuditBackend {
	if conf.Redis.Addr == "" {
		return AuditBackend{Store: audit.NewRingStore(conf.Audit.Capacity)}
	}
	client, err := redisstore.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return AuditBackend{Store: redisstore.NewAuditStore(client, conf), Redis: client}
}

func newNoteService(
	repo note.Repository,
	courses *academic.Service,
	store core.ObjectStore,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *note.Service {
	return note.NewService(repo, courses, store, validate, logger, conf)
}

func newResolver(auth session.Authenticator, usrSvc *user.Service, logger core.Logger) *session.Resolver {
	return session.NewResolver(auth, usrSvc, logger)
}

func newSessionService(
	auth session.Authenticator,
	usrSvc *user.Service,
	acaSvc *academic.Service,
	resolver *session.Resolver,
	validate *validator.Validate,
	conf *core.Config,
) *session.Service {
	return session.NewService(auth, usrSvc, acaSvc, resolver, validate, conf)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetrics(reg *prometheus.Registry) *echoapi.Metrics {
	return echoapi.NewMetrics(reg)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf.Server.Host, nil, &echoapi.Deps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Resolver:    p.Resolver,
		SessionSvc:  p.SessionSvc,
		UserSvc:     p.UserSvc,
		AcademicSvc: p.AcademicSvc,
		NoteSvc:     p.NoteSvc,
		Audit:       p.Audit,
		MailSvc:     p.MailSvc,
		Metrics:     p.Metrics,
	})
}

type NewConfigFunc func() *core.Config

// New returns a new dependency injection dig.Container
func New(newConfig NewConfigFunc) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newObjectStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newAuthenticator))
	must(c.Provide(newAuditBackend))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(academic.NewService))
	must(c.Provide(newNoteService))
	must(c.Provide(newResolver))
	must(c.Provide(newSessionService))
	must(c.Provide(newRegistry))
	must(c.Provide(newMetrics))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
