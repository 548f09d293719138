package checkin

import (
	"time"

	"github.com/woolzip/backend/core"
)

// Signal types
const (
	TypeGreen  = "green"
	TypeYellow = "yellow"
	TypeRed    = "red"
)

// Signal tags
const (
	TagMeal  = "meal"
	TagHome  = "home"
	TagLeave = "leave"
	TagSleep = "sleep"
	TagWake  = "wake"
	TagSOS   = "sos"
)

// Medication time slots
const (
	SlotMorning = "morning"
	SlotNoon    = "noon"
	SlotEvening = "evening"
)

// undoWindow is how long the author may take a signal back.
const undoWindow = 5 * time.Minute

// Signal is a lightweight status post on the family timeline.
type Signal struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Tag       string    `json:"tag,omitempty"`
	Note      string    `json:"note,omitempty"`
	UndoUntil time.Time `json:"undo_until"`
	CreatedAt time.Time `json:"created_at"`
}

// Emotion is a once-per-day mood share.
type Emotion struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SOSEvent records an emergency press; delivery fan-out happens separately.
type SOSEvent struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Medication is a user-owned medication plan entry.
type Medication struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// MedLog is one "taken" mark; at most one per (user, medication, slot, local day).
type MedLog struct {
	ID           string    `json:"id"`
	FamilyID     string    `json:"family_id"`
	UserID       string    `json:"user_id"`
	MedicationID string    `json:"medication_id"`
	TimeSlot     string    `json:"time_slot"`
	TakenAt      time.Time `json:"taken_at"`
}

// NewSignal contains the information needed to post a signal.
type NewSignal struct {
	Type string `json:"type" validate:"required,oneof=green yellow red"`
	Tag  string `json:"tag" validate:"omitempty,oneof=meal home leave sleep wake sos"`
	Note string `json:"note" validate:"omitempty,max=60"`
}

func (ns *NewSignal) Validate() error {
	ns.Type = core.CleanString(ns.Type, true /* lower */)
	ns.Tag = core.CleanString(ns.Tag, true /* lower */)
	ns.Note = core.CleanString(ns.Note)
	return core.Validate.Struct(ns)
}

// NewEmotion contains the information needed to share an emotion.
type NewEmotion struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
	Text  string `json:"text" validate:"omitempty,max=60"`
}

func (ne *NewEmotion) Validate() error {
	ne.Emoji = core.CleanString(ne.Emoji)
	ne.Text = core.CleanString(ne.Text)
	return core.Validate.Struct(ne)
}

// TakeMedication contains the information needed to log a dose.
type TakeMedication struct {
	MedicationID string `json:"medicationId" validate:"required"`
	TimeSlot     string `json:"time_slot" validate:"required,oneof=morning noon evening"`
}

func (tm *TakeMedication) Validate() error {
	tm.MedicationID = core.CleanString(tm.MedicationID)
	tm.TimeSlot = core.CleanString(tm.TimeSlot, true /* lower */)
	return core.Validate.Struct(tm)
}
