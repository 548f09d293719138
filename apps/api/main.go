package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/woolzip/backend/apps/api/echo"
	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/quiz"
	"github.com/woolzip/backend/core/user"
	emailsvc "github.com/woolzip/backend/services/email"
	logsvc "github.com/woolzip/backend/services/logger"
	pushsvc "github.com/woolzip/backend/services/push"
	realtimesvc "github.com/woolzip/backend/services/realtime"
	"github.com/woolzip/backend/storage/database"
	sqlxrepos "github.com/woolzip/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	var pushService core.PushService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
		pushService = pushsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
		pushService = pushsvc.NewWebpushService(conf, logger)
	}
	hub := realtimesvc.NewHub(logger)

	usrRepo := sqlxrepos.NewUserRepository(db)
	famRepo := sqlxrepos.NewFamilyRepository(db)
	chkRepo := sqlxrepos.NewCheckinRepository(db)
	quizRepo := sqlxrepos.NewQuizRepository(db)

	usrSvc := user.NewService(usrRepo)
	famSvc := family.NewService(conf, famRepo, mailSvc)
	chkSvc := checkin.NewService(conf, chkRepo, famSvc, usrSvc, pushService, hub, logger)
	quizSvc := quiz.NewService(conf, quizRepo, famSvc, usrSvc, pushService, hub, logger)
	scheduler := quiz.NewScheduler(conf, quizRepo, famRepo, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		FamilySvc:  famSvc,
		CheckinSvc: chkSvc,
		QuizSvc:    quizSvc,
		Scheduler:  scheduler,
		Hub:        hub,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
