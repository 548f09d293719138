package main

import (
	"context"
	"fmt"

	"github.com/woolzip/backend/core/checkin"
)

// addMedication registers an active medication for a user.
func (cli *commandLine) addMedication(userID, name string) error {
	ctx := context.Background()

	if _, err := cli.usrRepo.GetUserByID(ctx, userID); err != nil {
		return err
	}

	med, err := cli.chkRepo.CreateMedication(ctx, checkin.Medication{
		UserID:   userID,
		Name:     name,
		IsActive: true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created medication %q (%s) for user %s\n", med.Name, med.ID, userID)
	return nil
}
