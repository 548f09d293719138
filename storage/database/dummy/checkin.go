package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
)

type checkinRepository struct {
	db      *checkinTable
	members *familyTable
}

var _ checkin.Repository = (*checkinRepository)(nil) // interface compliance check

func NewCheckinRepository(db *DB) checkin.Repository {
	return &checkinRepository{db: db.checkin, members: db.family}
}

func (repo *checkinRepository) activeFamilyID(userID string) (string, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	for _, mbr := range repo.members.members {
		if mbr.UserID == userID && mbr.IsActive {
			return mbr.FamilyID, nil
		}
	}
	return "", family.ErrNoFamily
}

func (repo *checkinRepository) InsertSignal(ctx context.Context, sig checkin.Signal) (checkin.Signal, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	familyID, err := repo.activeFamilyID(sig.UserID)
	if err != nil {
		return checkin.Signal{}, err
	}
	sig.ID = uuid.New().String()
	sig.FamilyID = familyID
	repo.db.signals[sig.ID] = &sig
	return sig, nil
}

func (repo *checkinRepository) DeleteSignal(ctx context.Context, id, userID string, now time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sig, ok := repo.db.signals[id]
	if !ok || sig.UserID != userID || !now.Before(sig.UndoUntil) {
		return checkin.ErrNotFound
	}
	delete(repo.db.signals, id)
	return nil
}

func (repo *checkinRepository) InsertEmotion(ctx context.Context, emo checkin.Emotion, dayStart time.Time) (checkin.Emotion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	familyID, err := repo.activeFamilyID(emo.UserID)
	if err != nil {
		return checkin.Emotion{}, err
	}
	for _, existing := range repo.db.emotions {
		if existing.UserID == emo.UserID && !existing.CreatedAt.Before(dayStart) {
			return checkin.Emotion{}, checkin.ErrAlreadyShared
		}
	}
	emo.ID = uuid.New().String()
	emo.FamilyID = familyID
	repo.db.emotions[emo.ID] = &emo
	return emo, nil
}

func (repo *checkinRepository) InsertSOSEvent(ctx context.Context, ev checkin.SOSEvent) (checkin.SOSEvent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	familyID, err := repo.activeFamilyID(ev.UserID)
	if err != nil {
		return checkin.SOSEvent{}, err
	}
	ev.ID = uuid.New().String()
	ev.FamilyID = familyID
	repo.db.sosEvents[ev.ID] = &ev
	return ev, nil
}

func (repo *checkinRepository) GetMedication(ctx context.Context, id, userID string) (checkin.Medication, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	med, ok := repo.db.medications[id]
	if !ok || med.UserID != userID || !med.IsActive {
		return checkin.Medication{}, checkin.ErrMedicationNotFound
	}
	return *med, nil
}

func (repo *checkinRepository) InsertMedLog(ctx context.Context, lg checkin.MedLog, dayStart time.Time) (checkin.MedLog, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	familyID, err := repo.activeFamilyID(lg.UserID)
	if err != nil {
		return checkin.MedLog{}, err
	}
	for _, existing := range repo.db.medLogs {
		if existing.UserID == lg.UserID &&
			existing.MedicationID == lg.MedicationID &&
			existing.TimeSlot == lg.TimeSlot &&
			!existing.TakenAt.Before(dayStart) {
			return checkin.MedLog{}, checkin.ErrAlreadyTaken
		}
	}
	lg.ID = uuid.New().String()
	lg.FamilyID = familyID
	repo.db.medLogs[lg.ID] = &lg
	return lg, nil
}

func (repo *checkinRepository) CreateMedication(ctx context.Context, med checkin.Medication) (checkin.Medication, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	med.ID = uuid.New().String()
	repo.db.medications[med.ID] = &med
	return med, nil
}
