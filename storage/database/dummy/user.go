package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/woolzip/backend/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpsertUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if existing, ok := repo.db.users[usr.ID]; ok {
		existing.DisplayName = usr.DisplayName
		existing.Email = usr.Email
		existing.UpdatedAt = time.Now().UTC()
		return *existing, nil
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpsertDevice(ctx context.Context, dev user.Device) (user.Device, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.devices {
		if existing.UserID == dev.UserID && existing.Subscription == dev.Subscription {
			existing.DeviceType = dev.DeviceType
			return *existing, nil
		}
	}
	if dev.ID == "" {
		dev.ID = uuid.New().String()
	}
	repo.db.devices[dev.ID] = &dev
	return dev, nil
}

func (repo *userRepository) QueryUserDevices(ctx context.Context, userID string) ([]user.Device, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	devs := make([]user.Device, 0)
	for _, dev := range repo.db.devices {
		if dev.UserID == userID {
			devs = append(devs, *dev)
		}
	}
	return devs, nil
}
