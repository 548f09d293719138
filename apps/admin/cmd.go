package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/quiz"
	"github.com/woolzip/backend/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sqlx.DB
	usrRepo  user.Repository
	famRepo  family.Repository
	chkRepo  checkin.Repository
	quizRepo quiz.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  createfamily -name NAME -owner USER_ID - create a family owned by an existing user")
	fmt.Println("  seedquestions -family FAMILY_ID - seed the default question pool for a family")
	fmt.Println("  addmedication -user USER_ID -name NAME - register a medication for a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createFamilyCmd := flag.NewFlagSet("createfamily", flag.ExitOnError)
	createFamilyName := createFamilyCmd.String("name", "", "The family's display name.")
	createFamilyOwner := createFamilyCmd.String("owner", "", "The owner's user ID. Joins as an active parent.")

	seedQuestionsCmd := flag.NewFlagSet("seedquestions", flag.ExitOnError)
	seedQuestionsFamily := seedQuestionsCmd.String("family", "", "The family's ID.")

	addMedicationCmd := flag.NewFlagSet("addmedication", flag.ExitOnError)
	addMedicationUser := addMedicationCmd.String("user", "", "The user's ID.")
	addMedicationName := addMedicationCmd.String("name", "", "The medication's name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createfamily":
		if err := createFamilyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createFamilyName == "" || *createFamilyOwner == "" {
			createFamilyCmd.Usage()
			return errHelp
		}
		return cli.createFamily(*createFamilyName, *createFamilyOwner)
	case "seedquestions":
		if err := seedQuestionsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedQuestionsFamily == "" {
			seedQuestionsCmd.Usage()
			return errHelp
		}
		return cli.seedQuestions(*seedQuestionsFamily)
	case "addmedication":
		if err := addMedicationCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addMedicationUser == "" || *addMedicationName == "" {
			addMedicationCmd.Usage()
			return errHelp
		}
		return cli.addMedication(*addMedicationUser, *addMedicationName)
	default:
		cli.printUsage()
		return errHelp
	}
}
