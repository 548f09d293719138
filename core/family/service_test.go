package family_test

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/family"
	emailsvc "github.com/woolzip/backend/services/email"
	dummydb "github.com/woolzip/backend/storage/database/dummy"
	testutil "github.com/woolzip/backend/tests"
)

var inviteCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func testConfig() *core.Config {
	return &core.Config{
		AppName: "Woolzip",
		Quiz: core.QuizConfig{
			Timezone:         "Asia/Seoul",
			CutoffHour:       20,
			DefaultTimeOfDay: "20:00",
		},
	}
}

func newTestService(t *testing.T) (*family.Service, family.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	famRepo := dummydb.NewFamilyRepository(db)
	svc := family.NewService(testConfig(), famRepo, emailsvc.NewConsoleServiceMock(testConfig()))
	return svc, famRepo
}

func Test_Service_Create(t *testing.T) {
	svc, famRepo := newTestService(t)
	ctx := context.Background()

	fam, err := svc.Create(ctx, family.NewFamily{Name: "The Kims"}, "owner-1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if fam.Name != "The Kims" {
		t.Errorf("Name = %s, want The Kims", fam.Name)
	}

	// the owner joins as an active parent
	mbr, err := famRepo.GetActiveMember(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetActiveMember() failed: %v", err)
	}
	if mbr.Role != family.RoleParent {
		t.Errorf("Role = %s, want %s", mbr.Role, family.RoleParent)
	}
	if mbr.FamilyID != fam.ID {
		t.Errorf("FamilyID = %s, want %s", mbr.FamilyID, fam.ID)
	}

	// one family per user
	if _, err = svc.Create(ctx, family.NewFamily{Name: "Another"}, "owner-1"); err != family.ErrAlreadyInFamily {
		t.Errorf("Create() again error = %v, want %v", err, family.ErrAlreadyInFamily)
	}
}

func Test_Service_GenerateInvite(t *testing.T) {
	svc, famRepo := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.GenerateInvite(ctx, "nobody", ""); err != family.ErrNoFamily {
		t.Fatalf("GenerateInvite() without family error = %v, want %v", err, family.ErrNoFamily)
	}

	fam, err := svc.Create(ctx, family.NewFamily{Name: "The Kims"}, "owner-1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	inv, invFam, err := svc.GenerateInvite(ctx, "owner-1", "")
	if err != nil {
		t.Fatalf("GenerateInvite() failed: %v", err)
	}
	if !inviteCodeRegex.MatchString(inv.Code) {
		t.Errorf("Code = %q, want 6 uppercase alphanumerics", inv.Code)
	}
	if invFam.ID != fam.ID {
		t.Errorf("family ID = %s, want %s", invFam.ID, fam.ID)
	}
	if ttl := time.Until(inv.ExpiresAt); ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("ExpiresAt %v is not ~24h out", inv.ExpiresAt)
	}

	// a fresh code retires the previous one
	second, _, err := svc.GenerateInvite(ctx, "owner-1", "")
	if err != nil {
		t.Fatalf("GenerateInvite() second failed: %v", err)
	}
	if second.Code == inv.Code {
		t.Fatal("second invite reused the first code")
	}
	retired, err := famRepo.GetInviteByCode(ctx, inv.Code)
	if err != nil {
		t.Fatalf("GetInviteByCode() failed: %v", err)
	}
	if retired.IsOpen(time.Now().UTC()) {
		t.Error("first invite is still open after a second was generated")
	}
}

func Test_Service_GenerateInvite_email(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, family.NewFamily{Name: "The Kims"}, "owner-1"); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	before := len(emailsvc.SentMessages)
	inv, _, err := svc.GenerateInvite(ctx, "owner-1", "grandma@test.fam")
	if err != nil {
		t.Fatalf("GenerateInvite() failed: %v", err)
	}
	if len(emailsvc.SentMessages) != before+1 {
		t.Fatalf("sent %d messages, want 1", len(emailsvc.SentMessages)-before)
	}
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	if got := msg.To[0].Address; got != "grandma@test.fam" {
		t.Errorf("To = %s, want grandma@test.fam", got)
	}
	if !strings.Contains(msg.TextContent, inv.Code) {
		t.Errorf("message body %q does not contain the code %q", msg.TextContent, inv.Code)
	}
}

func Test_Service_AcceptInvite(t *testing.T) {
	svc, famRepo := newTestService(t)
	ctx := context.Background()

	fam, err := svc.Create(ctx, family.NewFamily{Name: "The Kims"}, "owner-1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	inv, _, err := svc.GenerateInvite(ctx, "owner-1", "")
	if err != nil {
		t.Fatalf("GenerateInvite() failed: %v", err)
	}

	if _, err = svc.AcceptInvite(ctx, "joiner-1", family.AcceptInvite{Code: "NOSUCH"}); err != family.ErrInvalidInvite {
		t.Errorf("AcceptInvite() unknown code error = %v, want %v", err, family.ErrInvalidInvite)
	}

	joined, err := svc.AcceptInvite(ctx, "joiner-1", family.AcceptInvite{Code: inv.Code})
	if err != nil {
		t.Fatalf("AcceptInvite() failed: %v", err)
	}
	if joined.ID != fam.ID {
		t.Errorf("joined family %s, want %s", joined.ID, fam.ID)
	}
	mbr, err := famRepo.GetActiveMember(ctx, "joiner-1")
	if err != nil {
		t.Fatalf("GetActiveMember() failed: %v", err)
	}
	if mbr.Role != family.RoleChild {
		t.Errorf("Role = %s, want %s", mbr.Role, family.RoleChild)
	}

	// single use
	if _, err = svc.AcceptInvite(ctx, "joiner-2", family.AcceptInvite{Code: inv.Code}); err != family.ErrInvalidInvite {
		t.Errorf("AcceptInvite() used code error = %v, want %v", err, family.ErrInvalidInvite)
	}

	// members cannot join twice
	if _, err = svc.AcceptInvite(ctx, "joiner-1", family.AcceptInvite{Code: inv.Code}); err != family.ErrAlreadyInFamily {
		t.Errorf("AcceptInvite() by member error = %v, want %v", err, family.ErrAlreadyInFamily)
	}
}

func Test_Service_AcceptInvite_expired(t *testing.T) {
	svc, famRepo := newTestService(t)
	ctx := context.Background()

	fam, err := svc.Create(ctx, family.NewFamily{Name: "The Kims"}, "owner-1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	testutil.CreateInvite(t, famRepo, "OLDONE", fam.ID, "owner-1", time.Now().UTC().Add(-time.Minute))

	if _, err = svc.AcceptInvite(ctx, "joiner-1", family.AcceptInvite{Code: "OLDONE"}); err != family.ErrInvalidInvite {
		t.Errorf("AcceptInvite() expired code error = %v, want %v", err, family.ErrInvalidInvite)
	}
}
