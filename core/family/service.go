package family

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/woolzip/backend/core"
)

var (
	// errors
	ErrNotFound        = errors.New("family not found")
	ErrNoFamily        = errors.New("user has no family")
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
	ErrInvalidInvite   = errors.New("invalid or expired invite code")

	inviteCodeChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	inviteCodeLen   = 6
	inviteTTL       = 24 * time.Hour
	maxCodeAttempts = 10
)

type (
	Repository interface {
		CreateFamily(ctx context.Context, fam Family) (Family, error)
		GetFamilyByID(ctx context.Context, id string) (Family, error)
		CreateMember(ctx context.Context, mbr Member) (Member, error)
		// GetActiveMember returns the caller's single active membership,
		// ErrNoFamily when there is none.
		GetActiveMember(ctx context.Context, userID string) (Member, error)
		// QueryActiveMembers returns active members with display names joined in.
		QueryActiveMembers(ctx context.Context, familyID string) ([]Member, error)
		CreateInvite(ctx context.Context, inv Invite) (Invite, error)
		GetInviteByCode(ctx context.Context, code string) (Invite, error)
		MarkInviteUsed(ctx context.Context, code, userID string) error
		// RetireOpenInvites expires all unused, unexpired codes of a family.
		RetireOpenInvites(ctx context.Context, familyID string) error
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{conf: conf, repo: repo, mailSvc: mailSvc}
}

// Create creates a family and joins the owner as an active parent.
func (svc *Service) Create(ctx context.Context, nf NewFamily, ownerID string) (Family, error) {
	if _, err := svc.repo.GetActiveMember(ctx, ownerID); err == nil {
		return Family{}, ErrAlreadyInFamily
	} else if err != ErrNoFamily {
		return Family{}, err
	}

	fam, err := svc.repo.CreateFamily(ctx, Family{Name: nf.Name, CreatedAt: time.Now().UTC()})
	if err != nil {
		return Family{}, err
	}
	_, err = svc.repo.CreateMember(ctx, Member{
		FamilyID:  fam.ID,
		UserID:    ownerID,
		Role:      RoleParent,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	return fam, err
}

func (svc *Service) Get(ctx context.Context, id string) (Family, error) {
	return svc.repo.GetFamilyByID(ctx, id)
}

func (svc *Service) ActiveMember(ctx context.Context, userID string) (Member, error) {
	return svc.repo.GetActiveMember(ctx, userID)
}

func (svc *Service) ActiveMembers(ctx context.Context, familyID string) ([]Member, error) {
	return svc.repo.QueryActiveMembers(ctx, familyID)
}

// GenerateInvite retires any open codes for the caller's family and issues
// a fresh one valid for 24h. When sendTo is set the code is also emailed.
func (svc *Service) GenerateInvite(ctx context.Context, userID, sendTo string) (Invite, Family, error) {
	mbr, err := svc.repo.GetActiveMember(ctx, userID)
	if err != nil {
		return Invite{}, Family{}, err
	}
	fam, err := svc.repo.GetFamilyByID(ctx, mbr.FamilyID)
	if err != nil {
		return Invite{}, Family{}, err
	}

	code, err := svc.newUniqueCode(ctx)
	if err != nil {
		return Invite{}, Family{}, err
	}

	if err = svc.repo.RetireOpenInvites(ctx, mbr.FamilyID); err != nil {
		return Invite{}, Family{}, pkgerrors.Wrap(err, "retiring open invites")
	}

	inv, err := svc.repo.CreateInvite(ctx, Invite{
		Code:      code,
		FamilyID:  mbr.FamilyID,
		CreatedBy: userID,
		ExpiresAt: time.Now().UTC().Add(inviteTTL),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Invite{}, Family{}, pkgerrors.Wrap(err, "creating invite")
	}

	if sendTo != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: sendTo}},
			Subject:      "You are invited to join " + fam.Name,
			TemplateName: "invite",
			TemplateData: map[string]interface{}{"FamilyName": fam.Name, "Code": inv.Code},
			BodyStr:      fmt.Sprintf("Join %s on %s with invite code %s (valid 24h).", fam.Name, svc.conf.AppName, inv.Code),
		})
	}
	return inv, fam, nil
}

// AcceptInvite joins the caller to the inviting family as an active child
// member and consumes the code. The role can be adjusted later.
func (svc *Service) AcceptInvite(ctx context.Context, userID string, ai AcceptInvite) (Family, error) {
	if _, err := svc.repo.GetActiveMember(ctx, userID); err == nil {
		return Family{}, ErrAlreadyInFamily
	} else if err != ErrNoFamily {
		return Family{}, err
	}

	inv, err := svc.repo.GetInviteByCode(ctx, ai.Code)
	if err != nil {
		if err == ErrNotFound {
			return Family{}, ErrInvalidInvite
		}
		return Family{}, err
	}
	if !inv.IsOpen(time.Now().UTC()) {
		return Family{}, ErrInvalidInvite
	}

	fam, err := svc.repo.GetFamilyByID(ctx, inv.FamilyID)
	if err != nil {
		return Family{}, err
	}

	if _, err = svc.repo.CreateMember(ctx, Member{
		FamilyID:  inv.FamilyID,
		UserID:    userID,
		Role:      RoleChild,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return Family{}, pkgerrors.Wrap(err, "joining family")
	}

	// best effort; the code being reusable for a few minutes is acceptable
	if err = svc.repo.MarkInviteUsed(ctx, inv.Code, userID); err != nil {
		return fam, nil
	}
	return fam, nil
}

func (svc *Service) newUniqueCode(ctx context.Context) (string, error) {
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, err = svc.repo.GetInviteByCode(ctx, code); err == ErrNotFound {
			return code, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate a unique invite code")
}

func generateCode() (string, error) {
	// bytes in the 256 % len(alphabet) tail are rejected so every
	// character is equally likely
	limit := byte(256 - 256%len(inviteCodeChars))
	buf := make([]byte, 0, inviteCodeLen)
	raw := make([]byte, inviteCodeLen)
	for len(buf) < inviteCodeLen {
		if _, err := rand.Read(raw); err != nil {
			return "", err
		}
		for _, b := range raw {
			if b >= limit {
				continue
			}
			buf = append(buf, inviteCodeChars[int(b)%len(inviteCodeChars)])
			if len(buf) == inviteCodeLen {
				break
			}
		}
	}
	return string(buf), nil
}
