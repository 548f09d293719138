package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("signal not found or undo window elapsed")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrAlreadyTaken       = errors.New("this dose was already logged today")
	ErrAlreadyShared      = errors.New("an emotion was already shared today")

	NowFunc = time.Now // mockable
)

type (
	// Repository is the persistence boundary. InsertSignal, InsertEmotion and
	// InsertMedLog are atomic store procedures: they verify the author's active
	// membership (and the per-day uniqueness where one applies) and insert in
	// a single transaction. They return family.ErrNoFamily for non-members.
	Repository interface {
		InsertSignal(ctx context.Context, sig Signal) (Signal, error)
		// DeleteSignal removes the author's own signal while now < undo_until.
		DeleteSignal(ctx context.Context, id, userID string, now time.Time) error
		InsertEmotion(ctx context.Context, emo Emotion, dayStart time.Time) (Emotion, error)
		InsertSOSEvent(ctx context.Context, ev SOSEvent) (SOSEvent, error)
		GetMedication(ctx context.Context, id, userID string) (Medication, error)
		// CreateMedication backs the admin CLI and fixtures; the API has no
		// medication management surface.
		CreateMedication(ctx context.Context, med Medication) (Medication, error)
		InsertMedLog(ctx context.Context, lg MedLog, dayStart time.Time) (MedLog, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		famSvc  *family.Service
		usrSvc  *user.Service
		pushSvc core.PushService
		events  core.EventPublisher
		logger  core.Logger
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	famSvc *family.Service,
	usrSvc *user.Service,
	pushSvc core.PushService,
	events core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		conf:    conf,
		repo:    repo,
		famSvc:  famSvc,
		usrSvc:  usrSvc,
		pushSvc: pushSvc,
		events:  events,
		logger:  logger,
	}
}

// PostSignal records a status signal with a 5-minute undo window.
func (svc *Service) PostSignal(ctx context.Context, userID string, ns NewSignal) (Signal, error) {
	now := NowFunc().UTC()
	sig, err := svc.repo.InsertSignal(ctx, Signal{
		UserID:    userID,
		Type:      ns.Type,
		Tag:       ns.Tag,
		Note:      ns.Note,
		UndoUntil: now.Add(undoWindow),
		CreatedAt: now,
	})
	if err != nil {
		return Signal{}, err
	}
	svc.events.Publish(core.Event{Type: "signal", FamilyID: sig.FamilyID, Data: sig})
	return sig, nil
}

// UndoSignal deletes the author's own signal while its undo window is open.
func (svc *Service) UndoSignal(ctx context.Context, id, userID string) error {
	return svc.repo.DeleteSignal(ctx, id, userID, NowFunc().UTC())
}

// ShareEmotion records the caller's once-per-day mood share.
func (svc *Service) ShareEmotion(ctx context.Context, userID string, ne NewEmotion) (Emotion, error) {
	now := NowFunc()
	emo, err := svc.repo.InsertEmotion(ctx, Emotion{
		UserID:    userID,
		Emoji:     ne.Emoji,
		Text:      ne.Text,
		CreatedAt: now.UTC(),
	}, svc.dayStart(now))
	if err != nil {
		return Emotion{}, err
	}
	svc.events.Publish(core.Event{Type: "emotion", FamilyID: emo.FamilyID, Data: emo})
	return emo, nil
}

// RaiseSOS records an emergency event, posts the companion red signal and
// pushes a notification to every other member's devices. Only the event
// insert can fail the call; the rest is best effort.
func (svc *Service) RaiseSOS(ctx context.Context, userID string) (SOSEvent, error) {
	now := NowFunc().UTC()
	ev, err := svc.repo.InsertSOSEvent(ctx, SOSEvent{UserID: userID, CreatedAt: now})
	if err != nil {
		return SOSEvent{}, err
	}

	if _, err = svc.repo.InsertSignal(ctx, Signal{
		UserID:    userID,
		Type:      TypeRed,
		Tag:       TagSOS,
		Note:      "Emergency",
		UndoUntil: now, // an SOS cannot be undone
		CreatedAt: now,
	}); err != nil {
		svc.logger.Warn(fmt.Sprintf("recording SOS companion signal: %v", err), err)
	}

	svc.notifyFamily(ctx, ev.FamilyID, userID, core.Notification{
		Title: "SOS",
		Body:  "A family member needs help right now.",
		URL:   "/",
	})
	svc.events.Publish(core.Event{Type: "sos", FamilyID: ev.FamilyID, Data: ev})
	return ev, nil
}

// TakeMedication logs a dose; at most one per slot per local day.
func (svc *Service) TakeMedication(ctx context.Context, userID string, tm TakeMedication) (MedLog, Medication, error) {
	med, err := svc.repo.GetMedication(ctx, tm.MedicationID, userID)
	if err != nil {
		return MedLog{}, Medication{}, err
	}

	now := NowFunc()
	lg, err := svc.repo.InsertMedLog(ctx, MedLog{
		UserID:       userID,
		MedicationID: med.ID,
		TimeSlot:     tm.TimeSlot,
		TakenAt:      now.UTC(),
	}, svc.dayStart(now))
	if err != nil {
		return MedLog{}, Medication{}, err
	}
	svc.events.Publish(core.Event{Type: "med_log", FamilyID: lg.FamilyID, Data: lg})
	return lg, med, nil
}

// dayStart is midnight of "now" in the configured family timezone, used as
// the lower bound for the per-day uniqueness checks.
func (svc *Service) dayStart(now time.Time) time.Time {
	loc, err := time.LoadLocation(svc.conf.Quiz.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func (svc *Service) notifyFamily(ctx context.Context, familyID, exceptUserID string, notif core.Notification) {
	members, err := svc.famSvc.ActiveMembers(ctx, familyID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading members for push: %v", err), err)
		return
	}
	for _, mbr := range members {
		if mbr.UserID == exceptUserID {
			continue
		}
		devices, err := svc.usrSvc.Devices(ctx, mbr.UserID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("loading devices for push: %v", err), err)
			continue
		}
		for _, dev := range devices {
			if err = svc.pushSvc.Send(ctx, dev.Subscription, notif); err != nil {
				svc.logger.Warn(fmt.Sprintf("sending push: %v", err), err)
			}
		}
	}
}
