package main

import (
	"context"
	"fmt"

	"github.com/woolzip/backend/core/quiz"
)

// seedQuestions inserts the default prompt pool for a family.
func (cli *commandLine) seedQuestions(familyID string) error {
	ctx := context.Background()

	if _, err := cli.famRepo.GetFamilyByID(ctx, familyID); err != nil {
		return err
	}

	questions, err := cli.quizRepo.SeedQuestions(ctx, familyID, "", quiz.DefaultPrompts)
	if err != nil {
		return err
	}

	fmt.Printf("seeded %d questions for family %s\n", len(questions), familyID)
	return nil
}
