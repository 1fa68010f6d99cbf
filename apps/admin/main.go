package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/user"
	logsvc "github.com/trezcool/escuela/services/logger"
	notifysvc "github.com/trezcool/escuela/services/notify"
	"github.com/trezcool/escuela/storage/database"
	sqlxrepos "github.com/trezcool/escuela/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	notifier, err := notifysvc.New(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal("connecting to redis", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:         db,
		usrRepo:    usrRepo,
		usrSvc:     user.NewService(usrRepo),
		schoolRepo: sqlxrepos.NewSchoolRepository(db),
		logger:     logger,
		notifier:   notifier,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)

	_ = notifier.Close()
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %v\n", err)
		}
		os.Exit(1)
	}
}
