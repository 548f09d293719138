package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/woolzip/backend/core/family"
	emailsvc "github.com/woolzip/backend/services/email"
	testutil "github.com/woolzip/backend/tests"
)

func Test_familyApi_create(t *testing.T) {
	setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	token := getToken(t, usr)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/family",
			wantCode: http.StatusUnauthorized, wantData: errMissingToken,
		},
		{
			name: "Name required", method: http.MethodPost, path: "/v1/family",
			body: []byte(`{}`), token: token,
			wantCode: http.StatusBadRequest,
			wantData: errBodyFields("bad_request", "validation failed", map[string]string{"name": "this field is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/family", token, []byte(`{"name": "The Kims"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		data := dataField(t, decodeBody(t, rec))
		if data["name"] != "The Kims" {
			t.Errorf("name = %v", data["name"])
		}
	})

	t.Run("One family per user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/family", token, []byte(`{"name": "Another"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("already_in_family", "user already belongs to a family"),
		}, rec)
	})
}

func Test_familyApi_retrieve(t *testing.T) {
	setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	other := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.fam")
	loner := testutil.CreateUser(t, usrRepo, "Loner", "loner@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam.ID, usr.ID, family.RoleParent, true)
	testutil.CreateMember(t, famRepo, fam.ID, other.ID, family.RoleParent, true)

	t.Run("No family", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/family", getToken(t, loner))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("no_family", "user has no family"),
		}, rec)
	})

	t.Run("Family and members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/family", getToken(t, usr))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		envelope := decodeBody(t, rec)
		data := dataField(t, envelope)
		if data["id"] != fam.ID {
			t.Errorf("family id = %v; want %v", data["id"], fam.ID)
		}
		members, ok := envelope["members"].([]interface{})
		if !ok || len(members) != 2 {
			t.Fatalf("members = %v; want 2", envelope["members"])
		}
		names := make(map[string]bool, 2)
		for _, m := range members {
			mbr := m.(map[string]interface{})
			names[mbr["display_name"].(string)] = true
		}
		if !names["Mom"] || !names["Dad"] {
			t.Errorf("display names = %v", names)
		}
	})
}

func Test_familyApi_invites(t *testing.T) {
	setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	joiner := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam.ID, usr.ID, family.RoleParent, true)

	token := getToken(t, usr)

	t.Run("No family", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/invite/generate", getToken(t, joiner), []byte(`{}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("no_family", "user has no family"),
		}, rec)
	})

	generate := func(t *testing.T, body string) string {
		req, rec := newAuthRequest(http.MethodPost, "/v1/invite/generate", token, []byte(body))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		envelope := decodeBody(t, rec)
		code, _ := envelope["code"].(string)
		if len(code) != 6 {
			t.Fatalf("code = %q; want 6 chars", code)
		}
		return code
	}

	t.Run("Generate retires previous codes", func(t *testing.T) {
		first := generate(t, `{}`)
		second := generate(t, `{}`)

		req, rec := newAuthRequest(http.MethodPost, "/v1/invite/accept", getToken(t, joiner),
			[]byte(`{"code": "`+first+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("invalid_invite", "invalid or expired invite code"),
		}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/invite/accept", getToken(t, joiner),
			[]byte(`{"code": "`+second+`"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		data := dataField(t, decodeBody(t, rec))
		if data["id"] != fam.ID {
			t.Errorf("joined family = %v; want %v", data["id"], fam.ID)
		}

		// single use
		straggler := testutil.CreateUser(t, usrRepo, "Uncle", "uncle@test.fam")
		req, rec = newAuthRequest(http.MethodPost, "/v1/invite/accept", getToken(t, straggler),
			[]byte(`{"code": "`+second+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("invalid_invite", "invalid or expired invite code"),
		}, rec)
	})

	t.Run("Already in a family", func(t *testing.T) {
		code := generate(t, `{}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/invite/accept", token, []byte(`{"code": "`+code+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("already_in_family", "user already belongs to a family"),
		}, rec)
	})

	t.Run("Expired code", func(t *testing.T) {
		testutil.CreateInvite(t, famRepo, "OLDONE", fam.ID, usr.ID, time.Now().Add(-time.Hour))
		newbie := testutil.CreateUser(t, usrRepo, "Newbie", "newbie@test.fam")
		req, rec := newAuthRequest(http.MethodPost, "/v1/invite/accept", getToken(t, newbie), []byte(`{"code": "OLDONE"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("invalid_invite", "invalid or expired invite code"),
		}, rec)
	})

	t.Run("Email delivery", func(t *testing.T) {
		emailsvc.SentMessages = emailsvc.SentMessages[:0]
		code := generate(t, `{"email": "aunt@test.fam"}`)

		if n := len(emailsvc.SentMessages); n != 1 {
			t.Fatalf("sent %d messages; want 1", n)
		}
		msg := emailsvc.SentMessages[0]
		if msg.To[0].Address != "aunt@test.fam" {
			t.Errorf("to = %v", msg.To)
		}
		if !strings.Contains(msg.TextContent, code) {
			t.Errorf("invite code missing from body: %s", msg.TextContent)
		}
	})
}
