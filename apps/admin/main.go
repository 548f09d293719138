package main

import (
	"log"
	"os"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/storage/database"
	sqlxrepos "github.com/woolzip/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  sqlxrepos.NewUserRepository(db),
		famRepo:  sqlxrepos.NewFamilyRepository(db),
		chkRepo:  sqlxrepos.NewCheckinRepository(db),
		quizRepo: sqlxrepos.NewQuizRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
