package tests

import (
	"net/http"
	"testing"

	testutil "github.com/woolzip/backend/tests"
)

func Test_deviceApi_register(t *testing.T) {
	setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	token := getToken(t, usr)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/devices/register",
			wantCode: http.StatusUnauthorized, wantData: errMissingToken,
		},
		{
			name: "Push token required", method: http.MethodPost, path: "/v1/devices/register",
			body: []byte(`{}`), token: token,
			wantCode: http.StatusBadRequest,
			wantData: errBodyFields("bad_request", "validation failed", map[string]string{"pushToken": "this field is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Register is an upsert", func(t *testing.T) {
		body := []byte(`{"pushToken": "{\"endpoint\": \"https://push.test/d1\"}", "device_type": "Mobile"}`)

		req, rec := newAuthRequest(http.MethodPost, "/v1/devices/register", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		data := dataField(t, decodeBody(t, rec))
		if data["device_type"] != "mobile" {
			t.Errorf("device_type = %v; want mobile", data["device_type"])
		}
		firstID := data["id"]

		// same subscription re-registers in place
		req, rec = newAuthRequest(http.MethodPost, "/v1/devices/register", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if id := dataField(t, decodeBody(t, rec))["id"]; id != firstID {
			t.Errorf("id = %v; want %v", id, firstID)
		}
	})
}
