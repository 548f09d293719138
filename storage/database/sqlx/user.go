package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/woolzip/backend/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID          string    `db:"id"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

func (r userRow) unmarshal() user.User {
	return user.User{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type deviceRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Subscription string    `db:"subscription"`
	DeviceType   string    `db:"device_type"`
	CreatedAt    null.Time `db:"created_at"`
}

func (r deviceRow) unmarshal() user.Device {
	return user.Device{
		ID:           r.ID,
		UserID:       r.UserID,
		Subscription: r.Subscription,
		DeviceType:   r.DeviceType,
		CreatedAt:    r.CreatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, display_name, email, created_at, updated_at FROM users WHERE id = $1`, id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row.unmarshal(), nil
}

func (repo userRepository) UpsertUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO users (id, display_name, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET display_name = EXCLUDED.display_name, email = EXCLUDED.email, updated_at = now()
		 RETURNING id, display_name, email, created_at, updated_at`,
		usr.ID, usr.DisplayName, usr.Email)
	if err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return row.unmarshal(), nil
}

func (repo userRepository) UpsertDevice(ctx context.Context, dev user.Device) (user.Device, error) {
	if dev.ID == "" {
		dev.ID = uuid.New().String()
	}
	var row deviceRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO devices (id, user_id, subscription, device_type)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, subscription) DO UPDATE SET device_type = EXCLUDED.device_type
		 RETURNING id, user_id, subscription, device_type, created_at`,
		dev.ID, dev.UserID, dev.Subscription, dev.DeviceType)
	if err != nil {
		return user.Device{}, errors.Wrap(err, "upserting device")
	}
	return row.unmarshal(), nil
}

func (repo userRepository) QueryUserDevices(ctx context.Context, userID string) ([]user.Device, error) {
	var rows []deviceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, subscription, device_type, created_at
		 FROM devices WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user devices")
	}
	devs := make([]user.Device, 0, len(rows))
	for _, r := range rows {
		devs = append(devs, r.unmarshal())
	}
	return devs, nil
}
