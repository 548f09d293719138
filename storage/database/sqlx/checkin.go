package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
)

type checkinRepository struct {
	db *sqlx.DB
}

var _ checkin.Repository = (*checkinRepository)(nil) // interface compliance check

func NewCheckinRepository(db *sqlx.DB) *checkinRepository {
	return &checkinRepository{db: db}
}

// trapRaisedErr maps the business exceptions raised by the insert_* SQL
// functions back to their sentinels. Membership resolution and the per-day
// uniqueness checks run inside those functions so check and insert commit
// as one statement.
func trapRaisedErr(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "P0001" {
		switch pqErr.Message {
		case "no_family":
			return family.ErrNoFamily
		case "already_shared":
			return checkin.ErrAlreadyShared
		case "already_taken":
			return checkin.ErrAlreadyTaken
		}
	}
	return errors.Wrap(err, msg)
}

func (repo checkinRepository) InsertSignal(ctx context.Context, sig checkin.Signal) (checkin.Signal, error) {
	sig.ID = uuid.New().String()
	var out struct {
		FamilyID  string    `db:"family_id"`
		CreatedAt null.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &out,
		`SELECT * FROM insert_signal($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		sig.ID, sig.UserID, sig.Type, sig.Tag, sig.Note, sig.UndoUntil)
	if err != nil {
		return checkin.Signal{}, trapRaisedErr(err, "inserting signal")
	}
	sig.FamilyID = out.FamilyID
	sig.CreatedAt = out.CreatedAt.Time
	return sig, nil
}

func (repo checkinRepository) DeleteSignal(ctx context.Context, id, userID string, now time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM signals WHERE id = $1 AND user_id = $2 AND undo_until > $3`, id, userID, now)
	if err != nil {
		return errors.Wrap(err, "deleting signal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return checkin.ErrNotFound
	}
	return nil
}

func (repo checkinRepository) InsertEmotion(ctx context.Context, emo checkin.Emotion, dayStart time.Time) (checkin.Emotion, error) {
	emo.ID = uuid.New().String()
	var out struct {
		FamilyID  string    `db:"family_id"`
		CreatedAt null.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &out,
		`SELECT * FROM insert_emotion($1, $2, $3, NULLIF($4, ''), $5)`,
		emo.ID, emo.UserID, emo.Emoji, emo.Text, dayStart)
	if err != nil {
		return checkin.Emotion{}, trapRaisedErr(err, "inserting emotion")
	}
	emo.FamilyID = out.FamilyID
	emo.CreatedAt = out.CreatedAt.Time
	return emo, nil
}

func (repo checkinRepository) InsertSOSEvent(ctx context.Context, ev checkin.SOSEvent) (checkin.SOSEvent, error) {
	ev.ID = uuid.New().String()
	var out struct {
		FamilyID  string    `db:"family_id"`
		CreatedAt null.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &out,
		`INSERT INTO sos_events (id, family_id, user_id)
		 SELECT $1, fm.family_id, $2 FROM family_members fm
		 WHERE fm.user_id = $2 AND fm.is_active
		 RETURNING family_id, created_at`,
		ev.ID, ev.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return checkin.SOSEvent{}, family.ErrNoFamily
		}
		return checkin.SOSEvent{}, errors.Wrap(err, "inserting SOS event")
	}
	ev.FamilyID = out.FamilyID
	ev.CreatedAt = out.CreatedAt.Time
	return ev, nil
}

func (repo checkinRepository) GetMedication(ctx context.Context, id, userID string) (checkin.Medication, error) {
	var row struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Name      string    `db:"name"`
		IsActive  bool      `db:"is_active"`
		CreatedAt null.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, user_id, name, is_active, created_at
		 FROM medications WHERE id = $1 AND user_id = $2 AND is_active`, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return checkin.Medication{}, checkin.ErrMedicationNotFound
		}
		return checkin.Medication{}, errors.Wrap(err, "finding medication")
	}
	return checkin.Medication{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.Time,
	}, nil
}

func (repo checkinRepository) CreateMedication(ctx context.Context, med checkin.Medication) (checkin.Medication, error) {
	med.ID = uuid.New().String()
	var createdAt null.Time
	err := repo.db.GetContext(ctx, &createdAt,
		`INSERT INTO medications (id, user_id, name, is_active)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		med.ID, med.UserID, med.Name, med.IsActive)
	if err != nil {
		return checkin.Medication{}, errors.Wrap(err, "inserting medication")
	}
	med.CreatedAt = createdAt.Time
	return med, nil
}

func (repo checkinRepository) InsertMedLog(ctx context.Context, lg checkin.MedLog, dayStart time.Time) (checkin.MedLog, error) {
	lg.ID = uuid.New().String()
	var out struct {
		FamilyID string    `db:"family_id"`
		TakenAt  null.Time `db:"taken_at"`
	}
	err := repo.db.GetContext(ctx, &out,
		`SELECT * FROM insert_med_log($1, $2, $3, $4, $5)`,
		lg.ID, lg.UserID, lg.MedicationID, lg.TimeSlot, dayStart)
	if err != nil {
		return checkin.MedLog{}, trapRaisedErr(err, "inserting medication log")
	}
	lg.FamilyID = out.FamilyID
	lg.TakenAt = out.TakenAt.Time
	return lg, nil
}
