package family

import (
	"strings"
	"time"

	"github.com/woolzip/backend/core"
)

// Roles
const (
	RoleParent  = "parent"
	RoleChild   = "child"
	RoleSibling = "sibling"
)

var Roles = []string{RoleParent, RoleChild, RoleSibling}

// Family is a named group of members.
type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Member links a user to a family.
// A user has at most one active membership at a time; this is enforced
// here (lookups use the active row) rather than by a DB constraint.
type Member struct {
	ID          string    `json:"id"`
	FamilyID    string    `json:"family_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	DisplayName string    `json:"display_name,omitempty"` // joined from users
	CreatedAt   time.Time `json:"created_at"`
}

// Invite is a single-use, expiring code that joins its redeemer to a family.
type Invite struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	FamilyID  string    `json:"family_id"`
	CreatedBy string    `json:"created_by"`
	ExpiresAt time.Time `json:"expires_at"`
	UsedBy    string    `json:"used_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (inv Invite) IsOpen(now time.Time) bool {
	return inv.UsedBy == "" && now.Before(inv.ExpiresAt)
}

// NewFamily contains the information needed to create a family.
type NewFamily struct {
	Name string `json:"name" validate:"required,max=40"`
}

func (nf *NewFamily) Validate() error {
	nf.Name = core.CleanString(nf.Name)
	return core.Validate.Struct(nf)
}

// AcceptInvite is the body of the invite redemption call.
type AcceptInvite struct {
	Code string `json:"code" validate:"required,len=6"`
}

func (ai *AcceptInvite) Validate() error {
	ai.Code = strings.ToUpper(core.CleanString(ai.Code))
	return core.Validate.Struct(ai)
}
