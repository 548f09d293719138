package main

import (
	"context"
	"fmt"
	"time"

	"github.com/woolzip/backend/core/family"
)

// createFamily creates a family and joins the owner as an active parent.
// The owner must exist and must not already belong to a family.
func (cli *commandLine) createFamily(name, ownerID string) error {
	ctx := context.Background()

	if _, err := cli.usrRepo.GetUserByID(ctx, ownerID); err != nil {
		return err
	}
	if _, err := cli.famRepo.GetActiveMember(ctx, ownerID); err == nil {
		return family.ErrAlreadyInFamily
	} else if err != family.ErrNoFamily {
		return err
	}

	fam, err := cli.famRepo.CreateFamily(ctx, family.Family{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if _, err = cli.famRepo.CreateMember(ctx, family.Member{
		FamilyID:  fam.ID,
		UserID:    ownerID,
		Role:      family.RoleParent,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	fmt.Printf("created family %q (%s)\n", fam.Name, fam.ID)
	return nil
}
