package user

import (
	"time"

	"github.com/woolzip/backend/core"
)

// User mirrors a profile row managed by the external auth provider.
// The API only ever reads these; writes happen through the provider's
// own signup flow (or the admin CLI / test fixtures).
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Device is a registered web-push endpoint for one user.
type Device struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Subscription string    `json:"-"` // PushSubscription JSON
	DeviceType   string    `json:"device_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterDevice contains the information needed to register a push endpoint.
type RegisterDevice struct {
	PushToken  string `json:"pushToken" validate:"required"`
	DeviceType string `json:"device_type"`
}

func (rd *RegisterDevice) Validate() error {
	rd.PushToken = core.CleanString(rd.PushToken)
	rd.DeviceType = core.CleanString(rd.DeviceType, true /* lower */)
	if rd.DeviceType == "" {
		rd.DeviceType = "desktop"
	}
	return core.Validate.Struct(rd)
}
