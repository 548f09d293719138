package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/woolzip/backend/core/family"
)

type familyRepository struct {
	db *sqlx.DB
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(db *sqlx.DB) *familyRepository {
	return &familyRepository{db: db}
}

type familyRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt null.Time `db:"created_at"`
}

func (r familyRow) unmarshal() family.Family {
	return family.Family{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.Time}
}

type memberRow struct {
	ID          string      `db:"id"`
	FamilyID    string      `db:"family_id"`
	UserID      string      `db:"user_id"`
	Role        string      `db:"role"`
	IsActive    bool        `db:"is_active"`
	DisplayName null.String `db:"display_name"`
	CreatedAt   null.Time   `db:"created_at"`
}

func (r memberRow) unmarshal() family.Member {
	return family.Member{
		ID:          r.ID,
		FamilyID:    r.FamilyID,
		UserID:      r.UserID,
		Role:        r.Role,
		IsActive:    r.IsActive,
		DisplayName: r.DisplayName.String,
		CreatedAt:   r.CreatedAt.Time,
	}
}

type inviteRow struct {
	ID        string      `db:"id"`
	Code      string      `db:"code"`
	FamilyID  string      `db:"family_id"`
	CreatedBy string      `db:"created_by"`
	ExpiresAt null.Time   `db:"expires_at"`
	UsedBy    null.String `db:"used_by"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r inviteRow) unmarshal() family.Invite {
	return family.Invite{
		ID:        r.ID,
		Code:      r.Code,
		FamilyID:  r.FamilyID,
		CreatedBy: r.CreatedBy,
		ExpiresAt: r.ExpiresAt.Time,
		UsedBy:    r.UsedBy.String,
		CreatedAt: r.CreatedAt.Time,
	}
}

func (repo familyRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return family.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo familyRepository) CreateFamily(ctx context.Context, fam family.Family) (family.Family, error) {
	fam.ID = uuid.New().String()
	var row familyRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO families (id, name) VALUES ($1, $2) RETURNING id, name, created_at`,
		fam.ID, fam.Name)
	if err != nil {
		return family.Family{}, errors.Wrap(err, "inserting family")
	}
	return row.unmarshal(), nil
}

func (repo familyRepository) GetFamilyByID(ctx context.Context, id string) (family.Family, error) {
	var row familyRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, name, created_at FROM families WHERE id = $1`, id)
	if err != nil {
		return family.Family{}, repo.trapNoRowsErr(err, "finding family by ID")
	}
	return row.unmarshal(), nil
}

func (repo familyRepository) CreateMember(ctx context.Context, mbr family.Member) (family.Member, error) {
	mbr.ID = uuid.New().String()
	var row memberRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO family_members (id, family_id, user_id, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, family_id, user_id, role, is_active, created_at`,
		mbr.ID, mbr.FamilyID, mbr.UserID, mbr.Role, mbr.IsActive)
	if err != nil {
		return family.Member{}, errors.Wrap(err, "inserting family member")
	}
	return row.unmarshal(), nil
}

func (repo familyRepository) GetActiveMember(ctx context.Context, userID string) (family.Member, error) {
	var row memberRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.is_active, u.display_name, fm.created_at
		 FROM family_members fm JOIN users u ON u.id = fm.user_id
		 WHERE fm.user_id = $1 AND fm.is_active
		 ORDER BY fm.created_at DESC LIMIT 1`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return family.Member{}, family.ErrNoFamily
		}
		return family.Member{}, errors.Wrap(err, "finding active membership")
	}
	return row.unmarshal(), nil
}

func (repo familyRepository) QueryActiveMembers(ctx context.Context, familyID string) ([]family.Member, error) {
	var rows []memberRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.is_active, u.display_name, fm.created_at
		 FROM family_members fm JOIN users u ON u.id = fm.user_id
		 WHERE fm.family_id = $1 AND fm.is_active
		 ORDER BY fm.created_at`, familyID)
	if err != nil {
		return nil, errors.Wrap(err, "querying family members")
	}
	mbrs := make([]family.Member, 0, len(rows))
	for _, r := range rows {
		mbrs = append(mbrs, r.unmarshal())
	}
	return mbrs, nil
}

func (repo familyRepository) CreateInvite(ctx context.Context, inv family.Invite) (family.Invite, error) {
	inv.ID = uuid.New().String()
	var row inviteRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO invites (id, code, family_id, created_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, code, family_id, created_by, expires_at, used_by, created_at`,
		inv.ID, inv.Code, inv.FamilyID, inv.CreatedBy, inv.ExpiresAt)
	if err != nil {
		return family.Invite{}, errors.Wrap(err, "inserting invite")
	}
	return row.unmarshal(), nil
}

func (repo familyRepository) GetInviteByCode(ctx context.Context, code string) (family.Invite, error) {
	var row inviteRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, code, family_id, created_by, expires_at, used_by, created_at
		 FROM invites WHERE code = $1`, code)
	if err != nil {
		return family.Invite{}, repo.trapNoRowsErr(err, "finding invite by code")
	}
	return row.unmarshal(), nil
}

func (repo familyRepository) MarkInviteUsed(ctx context.Context, code, userID string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE invites SET used_by = $2 WHERE code = $1 AND used_by IS NULL`, code, userID)
	return errors.Wrap(err, "marking invite used")
}

func (repo familyRepository) RetireOpenInvites(ctx context.Context, familyID string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE invites SET expires_at = now()
		 WHERE family_id = $1 AND used_by IS NULL AND expires_at > now()`, familyID)
	return errors.Wrap(err, "retiring open invites")
}
