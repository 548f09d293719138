package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/woolzip/backend/core/family"
)

type familyRepository struct {
	db    *familyTable
	users *userTable
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(db *DB) family.Repository {
	return &familyRepository{db: db.family, users: db.user}
}

func (repo *familyRepository) displayName(userID string) string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.users[userID]; ok {
		return usr.DisplayName
	}
	return ""
}

func (repo *familyRepository) CreateFamily(ctx context.Context, fam family.Family) (family.Family, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	fam.ID = uuid.New().String()
	repo.db.families[fam.ID] = &fam
	return fam, nil
}

func (repo *familyRepository) GetFamilyByID(ctx context.Context, id string) (family.Family, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if fam, ok := repo.db.families[id]; ok {
		return *fam, nil
	}
	return family.Family{}, family.ErrNotFound
}

func (repo *familyRepository) CreateMember(ctx context.Context, mbr family.Member) (family.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mbr.ID = uuid.New().String()
	repo.db.members[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *familyRepository) GetActiveMember(ctx context.Context, userID string) (family.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, mbr := range repo.db.members {
		if mbr.UserID == userID && mbr.IsActive {
			out := *mbr
			out.DisplayName = repo.displayName(out.UserID)
			return out, nil
		}
	}
	return family.Member{}, family.ErrNoFamily
}

func (repo *familyRepository) QueryActiveMembers(ctx context.Context, familyID string) ([]family.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mbrs := make([]family.Member, 0)
	for _, mbr := range repo.db.members {
		if mbr.FamilyID == familyID && mbr.IsActive {
			out := *mbr
			out.DisplayName = repo.displayName(out.UserID)
			mbrs = append(mbrs, out)
		}
	}
	sort.Slice(mbrs, func(i, j int) bool { return mbrs[i].CreatedAt.Before(mbrs[j].CreatedAt) })
	return mbrs, nil
}

func (repo *familyRepository) CreateInvite(ctx context.Context, inv family.Invite) (family.Invite, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv.ID = uuid.New().String()
	repo.db.invites[inv.ID] = &inv
	return inv, nil
}

func (repo *familyRepository) GetInviteByCode(ctx context.Context, code string) (family.Invite, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inv := range repo.db.invites {
		if inv.Code == code {
			return *inv, nil
		}
	}
	return family.Invite{}, family.ErrNotFound
}

func (repo *familyRepository) MarkInviteUsed(ctx context.Context, code, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, inv := range repo.db.invites {
		if inv.Code == code && inv.UsedBy == "" {
			inv.UsedBy = userID
		}
	}
	return nil
}

func (repo *familyRepository) RetireOpenInvites(ctx context.Context, familyID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	for _, inv := range repo.db.invites {
		if inv.FamilyID == familyID && inv.UsedBy == "" && now.Before(inv.ExpiresAt) {
			inv.ExpiresAt = now
		}
	}
	return nil
}
