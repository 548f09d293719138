package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/quiz"
	"github.com/woolzip/backend/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	displayName, email string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.UpsertUser(context.Background(), user.User{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		Email:       email,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateFamily(t *testing.T, repo family.Repository, name string) family.Family {
	fam, err := repo.CreateFamily(context.Background(), family.Family{
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateFamily() failed: %v", err)
	}
	return fam
}

func CreateMember(
	t *testing.T,
	repo family.Repository,
	familyID, userID, role string,
	isActive bool,
) family.Member {
	mbr, err := repo.CreateMember(context.Background(), family.Member{
		FamilyID:  familyID,
		UserID:    userID,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return mbr
}

func CreateInvite(
	t *testing.T,
	repo family.Repository,
	code, familyID, createdBy string,
	expiresAt time.Time,
) family.Invite {
	inv, err := repo.CreateInvite(context.Background(), family.Invite{
		Code:      code,
		FamilyID:  familyID,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateInvite() failed: %v", err)
	}
	return inv
}

func CreateMedication(
	t *testing.T,
	repo checkin.Repository,
	userID, name string,
	isActive bool,
) checkin.Medication {
	med, err := repo.CreateMedication(context.Background(), checkin.Medication{
		UserID:   userID,
		Name:     name,
		IsActive: isActive,
	})
	if err != nil {
		t.Fatalf("CreateMedication() failed: %v", err)
	}
	return med
}

// SeedQuestions inserts prompts for a family; falls back to the default pool.
func SeedQuestions(t *testing.T, repo quiz.Repository, familyID string, prompts ...string) []quiz.Question {
	if len(prompts) == 0 {
		prompts = quiz.DefaultPrompts
	}
	questions, err := repo.SeedQuestions(context.Background(), familyID, "", prompts)
	if err != nil {
		t.Fatalf("SeedQuestions() failed: %v", err)
	}
	return questions
}

func CreateInstance(
	t *testing.T,
	repo quiz.Repository,
	familyID, questionID, forDate string,
	expiresAt time.Time,
) quiz.Instance {
	inst, err := repo.CreateInstance(context.Background(), quiz.Instance{
		FamilyID:   familyID,
		QuestionID: questionID,
		ForDate:    forDate,
		Status:     quiz.StatusOpen,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateInstance() failed: %v", err)
	}
	return inst
}

func CreateSchedule(
	t *testing.T,
	repo quiz.Repository,
	familyID, timeOfDay, timezone string,
	enabled bool,
) quiz.Schedule {
	sch, err := repo.UpsertSchedule(context.Background(), quiz.Schedule{
		FamilyID:  familyID,
		TimeOfDay: timeOfDay,
		Timezone:  timezone,
		Enabled:   enabled,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return sch
}
