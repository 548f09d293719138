package user

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

type (
	Repository interface {
		GetUserByID(ctx context.Context, id string) (User, error)
		// UpsertUser inserts the profile row or refreshes display_name/email.
		UpsertUser(ctx context.Context, usr User) (User, error)
		UpsertDevice(ctx context.Context, dev Device) (Device, error)
		// QueryUserDevices returns all registered push endpoints for a user.
		QueryUserDevices(ctx context.Context, userID string) ([]Device, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

// Sync upserts the profile mirrored from the auth provider's token claims.
func (svc *Service) Sync(ctx context.Context, id, displayName, email string) (User, error) {
	now := time.Now().UTC()
	return svc.repo.UpsertUser(ctx, User{
		ID:          id,
		DisplayName: displayName,
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// RegisterDevice upserts a push endpoint, keyed by the subscription itself
// so re-registrations from the same browser do not pile up.
func (svc *Service) RegisterDevice(ctx context.Context, userID string, rd RegisterDevice) (Device, error) {
	return svc.repo.UpsertDevice(ctx, Device{
		UserID:       userID,
		Subscription: rd.PushToken,
		DeviceType:   rd.DeviceType,
		CreatedAt:    time.Now().UTC(),
	})
}

func (svc *Service) Devices(ctx context.Context, userID string) ([]Device, error) {
	return svc.repo.QueryUserDevices(ctx, userID)
}
