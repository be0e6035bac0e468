package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
	authsvc "github.com/trezcool/uninotes/services/auth"
	emailsvc "github.com/trezcool/uninotes/services/email"
	logsvc "github.com/trezcool/uninotes/services/logger"
	storagesvc "github.com/trezcool/uninotes/services/storage"
	"github.com/trezcool/uninotes/storage/database"
	sqlxrepos "github.com/trezcool/uninotes/storage/database/sqlx"
	redisstore "github.com/trezcool/uninotes/storage/redis"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(false)
	ctx := context.Background()

	// set up DB
	if conf.Database.Engine == "memory" {
		logger.Fatal("the admin commands need a postgres database")
	}
	errAndDie(database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	errAndDie(err)
	defer db.Close()

	// set up audit log
	var auditStore audit.Store = audit.NewRingStore(conf.Audit.Capacity)
	if conf.Redis.Addr != "" {
		client, err := redisstore.Open(ctx, conf)
		errAndDie(err)
		defer client.Close()
		auditStore = redisstore.NewAuditStore(client, conf)
	}

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	var auth session.Authenticator
	if conf.Auth.Provider == "gotrue" {
		auth, err = authsvc.NewGoTrue(conf)
		errAndDie(err)
	} else {
		auth = authsvc.NewDummy(emailsvc.NewConsoleService(appLogger, conf), conf)
	}

	usrSvc := user.NewService(sqlxrepos.NewProfileRepository(db), storagesvc.NewMemoryStore(conf.Storage.PublicBaseURL), conf)
	acaSvc := academic.NewService(sqlxrepos.NewAcademicRepository(db))
	resolver := session.NewResolver(auth, usrSvc, appLogger)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		users:    usrSvc,
		accounts: session.NewService(auth, usrSvc, acaSvc, resolver, validate, conf),
		audit:    auditStore,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
