package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/quiz"
	testutil "github.com/woolzip/backend/tests"
)

func seoul(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("loading Asia/Seoul: %v", err)
	}
	return loc
}

func Test_quizApi_cron(t *testing.T) {
	setup(t)

	// a family waiting for today's question
	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	fam1 := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam1.ID, mom.ID, family.RoleParent, true)
	testutil.CreateSchedule(t, quizRepo, fam1.ID, "00:00", "Asia/Seoul", true)

	// a family whose open question has been fully answered
	dad := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.fam")
	fam2 := testutil.CreateFamily(t, famRepo, "The Parks")
	testutil.CreateMember(t, famRepo, fam2.ID, dad.ID, family.RoleParent, true)
	questions := testutil.SeedQuestions(t, quizRepo, fam2.ID)
	inst := testutil.CreateInstance(t, quizRepo, fam2.ID, questions[0].ID, "2020-01-01", time.Time{})
	if _, err := quizRepo.CreateResponse(context.Background(), quiz.Response{
		QuestionInstanceID: inst.ID,
		UserID:             dad.ID,
		AnswerText:         "done",
		CreatedAt:          time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateResponse() failed: %v", err)
	}

	cronToken := conf.Quiz.CronSecret

	t.Run("Secret required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/quiz/cron")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: errBody("unauthorized", "user not authenticated"),
		}, rec)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/cron", "lol")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: errBody("unauthorized", "user not authenticated"),
		}, rec)
	})

	t.Run("Unset secret rejects everything", func(t *testing.T) {
		conf.Quiz.CronSecret = ""
		defer func() { conf.Quiz.CronSecret = cronToken }()

		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/cron", cronToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusInternalServerError,
			wantData: errBody("misconfigured", "cron secret is not configured"),
		}, rec)
	})

	t.Run("First run creates and closes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/cron", cronToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]interface{}{
				"ok":      true,
				"created": []string{fam1.ID},
				"skipped": []interface{}{},
				"closed":  []string{inst.ID},
			}),
		}, rec)
	})

	t.Run("Second run is idempotent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/cron", cronToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]interface{}{
				"ok":      true,
				"created": []string{},
				"skipped": []map[string]string{{"family_id": fam1.ID, "reason": "exists"}},
				"closed":  []string{},
			}),
		}, rec)
	})
}

func Test_quizApi_today(t *testing.T) {
	setup(t)
	defer func() { quiz.NowFunc = time.Now }()

	loc := seoul(t)

	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	dad := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.fam")
	loner := testutil.CreateUser(t, usrRepo, "Loner", "loner@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam.ID, mom.ID, family.RoleParent, true)
	testutil.CreateMember(t, famRepo, fam.ID, dad.ID, family.RoleParent, true)

	momToken := getToken(t, mom)
	dadToken := getToken(t, dad)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/quiz/today")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: errMissingToken}, rec)
	})

	t.Run("No family", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/today", getToken(t, loner))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("no_family", "user has no family"),
		}, rec)
	})

	t.Run("Before cutoff", func(t *testing.T) {
		quiz.NowFunc = func() time.Time { return time.Date(2025, 3, 10, 10, 0, 0, 0, loc) }

		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/today", momToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("before_time", "today's question is not available yet"),
		}, rec)
	})

	t.Run("Lazy creation, answers, lazy close", func(t *testing.T) {
		quiz.NowFunc = func() time.Time { return time.Date(2025, 3, 10, 21, 0, 0, 0, loc) }

		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/today", momToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		data := dataField(t, decodeBody(t, rec))
		if data["status"] != "open" {
			t.Errorf("status = %v; want open", data["status"])
		}
		if data["prompt"] == "" {
			t.Error("prompt is empty")
		}
		if data["my_answered"] != false {
			t.Errorf("my_answered = %v; want false", data["my_answered"])
		}
		if members := data["members"].([]interface{}); len(members) != 2 {
			t.Errorf("members = %v; want 2", members)
		}
		instID, _ := data["instance_id"].(string)

		// both members answer
		for _, token := range []string{momToken, dadToken} {
			req, rec = newAuthRequest(http.MethodPost, "/v1/quiz/respond", token,
				[]byte(`{"questionInstanceId": "`+instID+`", "answer_text": "kimchi stew"}`))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"ok": true}`)}, rec)
		}

		// all answered; the next read closes it
		req, rec = newAuthRequest(http.MethodGet, "/v1/quiz/today", momToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		data = dataField(t, decodeBody(t, rec))
		if data["status"] != "closed" {
			t.Errorf("status = %v; want closed", data["status"])
		}
		if count := data["answered_count"].(float64); count != 2 {
			t.Errorf("answered_count = %v; want 2", count)
		}
		if data["my_answered"] != true {
			t.Errorf("my_answered = %v; want true", data["my_answered"])
		}

		// answering a closed question is rejected
		req, rec = newAuthRequest(http.MethodPost, "/v1/quiz/respond", momToken,
			[]byte(`{"questionInstanceId": "`+instID+`", "answer_text": "too late"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("closed", "this question is already closed"),
		}, rec)
	})
}

func Test_quizApi_respond(t *testing.T) {
	setup(t)

	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	dad := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.fam")
	outsider := testutil.CreateUser(t, usrRepo, "Outsider", "out@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	otherFam := testutil.CreateFamily(t, famRepo, "The Parks")
	testutil.CreateMember(t, famRepo, fam.ID, mom.ID, family.RoleParent, true)
	testutil.CreateMember(t, famRepo, fam.ID, dad.ID, family.RoleParent, true)
	testutil.CreateMember(t, famRepo, otherFam.ID, outsider.ID, family.RoleParent, true)

	questions := testutil.SeedQuestions(t, quizRepo, fam.ID)
	inst := testutil.CreateInstance(t, quizRepo, fam.ID, questions[0].ID, "2025-03-10", time.Time{})

	momToken := getToken(t, mom)

	tests := []httpTest{
		{
			name: "Unknown instance", method: http.MethodPost, path: "/v1/quiz/respond",
			body: []byte(`{"questionInstanceId": "nope", "answer_text": "hi"}`), token: momToken,
			wantCode: http.StatusNotFound, wantData: errBody("not_found", "question instance not found"),
		},
		{
			name: "Not a member", method: http.MethodPost, path: "/v1/quiz/respond",
			body: []byte(`{"questionInstanceId": "` + inst.ID + `", "answer_text": "hi"}`), token: getToken(t, outsider),
			wantCode: http.StatusNotFound, wantData: errBody("not_found", "question instance not found"),
		},
		{
			name: "First answer", method: http.MethodPost, path: "/v1/quiz/respond",
			body: []byte(`{"questionInstanceId": "` + inst.ID + `", "answer_text": "stew"}`), token: momToken,
			wantCode: http.StatusOK, wantData: []byte(`{"ok": true}`),
		},
		{
			name: "Answers are immutable", method: http.MethodPost, path: "/v1/quiz/respond",
			body: []byte(`{"questionInstanceId": "` + inst.ID + `", "answer_text": "changed my mind"}`), token: momToken,
			wantCode: http.StatusBadRequest, wantData: errBody("already_answered", "you already answered this question"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_quizApi_nudge(t *testing.T) {
	setup(t)

	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	dad := testutil.CreateUser(t, usrRepo, "Dad", "dad@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam.ID, mom.ID, family.RoleParent, true)
	testutil.CreateMember(t, famRepo, fam.ID, dad.ID, family.RoleParent, true)

	questions := testutil.SeedQuestions(t, quizRepo, fam.ID)
	inst := testutil.CreateInstance(t, quizRepo, fam.ID, questions[0].ID, "2025-03-10", time.Time{})

	momToken := getToken(t, mom)

	t.Run("Target must be a member", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/nudge", momToken,
			[]byte(`{"questionInstanceId": "`+inst.ID+`", "to_user_id": "stranger"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: errBody("not_found", "question instance not found"),
		}, rec)
	})

	t.Run("No devices", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/nudge", momToken,
			[]byte(`{"questionInstanceId": "`+inst.ID+`", "to_user_id": "`+dad.ID+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"ok": true, "sent": 0}`)}, rec)
	})

	t.Run("Delivers to each device", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/devices/register", getToken(t, dad),
			[]byte(`{"pushToken": "{\"endpoint\": \"https://push.test/dad\"}"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("device register failed: %s", rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/quiz/nudge", momToken,
			[]byte(`{"questionInstanceId": "`+inst.ID+`", "to_user_id": "`+dad.ID+`"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"ok": true, "sent": 1}`)}, rec)
	})
}

func Test_quizApi_schedule(t *testing.T) {
	setup(t)

	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam.ID, mom.ID, family.RoleParent, true)

	token := getToken(t, mom)

	t.Run("Unset", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/schedule", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"ok": true, "data": null}`)}, rec)
	})

	t.Run("Bad time of day", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/schedule", token, []byte(`{"time_of_day": "25:99"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBodyFields("bad_request", "validation failed", map[string]string{"time_of_day": "must be a valid HH:MM time"}),
		}, rec)
	})

	t.Run("Set and read back", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/schedule", token, []byte(`{"time_of_day": "21:30"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		data := dataField(t, decodeBody(t, rec))
		if data["time_of_day"] != "21:30" || data["enabled"] != true {
			t.Errorf("schedule = %v", data)
		}
		if data["timezone"] != "Asia/Seoul" {
			t.Errorf("timezone = %v; want Asia/Seoul", data["timezone"])
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/quiz/schedule", token)
		app.ServeHTTP(rec, req)
		data = dataField(t, decodeBody(t, rec))
		if data["time_of_day"] != "21:30" {
			t.Errorf("time_of_day = %v; want 21:30", data["time_of_day"])
		}
	})

	t.Run("Disable", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz/schedule", token, []byte(`{"time_of_day": "21:30", "enabled": false}`))
		app.ServeHTTP(rec, req)
		data := dataField(t, decodeBody(t, rec))
		if data["enabled"] != false {
			t.Errorf("enabled = %v; want false", data["enabled"])
		}
	})
}

func Test_quizApi_history(t *testing.T) {
	setup(t)

	mom := testutil.CreateUser(t, usrRepo, "Mom", "mom@test.fam")
	fam := testutil.CreateFamily(t, famRepo, "The Kims")
	testutil.CreateMember(t, famRepo, fam.ID, mom.ID, family.RoleParent, true)

	token := getToken(t, mom)

	t.Run("Empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/history", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok": true, "data": [], "next_cursor": ""}`),
		}, rec)
	})

	t.Run("Bad cursor", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/history?cursor=lol", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBodyFields("bad_request", "", map[string]string{"cursor": "invalid cursor"}),
		}, rec)
	})

	t.Run("Closed instances with answers", func(t *testing.T) {
		questions := testutil.SeedQuestions(t, quizRepo, fam.ID)
		inst := testutil.CreateInstance(t, quizRepo, fam.ID, questions[0].ID, "2025-03-09", time.Time{})
		if _, err := quizRepo.CreateResponse(context.Background(), quiz.Response{
			QuestionInstanceID: inst.ID,
			UserID:             mom.ID,
			AnswerText:         "stew",
			CreatedAt:          time.Now().UTC(),
		}); err != nil {
			t.Fatalf("CreateResponse() failed: %v", err)
		}
		if err := quizRepo.CloseInstance(context.Background(), inst.ID); err != nil {
			t.Fatalf("CloseInstance() failed: %v", err)
		}

		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz/history", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		envelope := decodeBody(t, rec)
		items, ok := envelope["data"].([]interface{})
		if !ok || len(items) != 1 {
			t.Fatalf("data = %v; want 1 item", envelope["data"])
		}
		item := items[0].(map[string]interface{})
		if item["for_date"] != "2025-03-09" || item["status"] != "closed" {
			t.Errorf("item = %v", item)
		}
		if item["prompt"] == "" {
			t.Error("prompt is empty")
		}
		answers := item["answers"].([]interface{})
		if len(answers) != 1 {
			t.Fatalf("answers = %v; want 1", answers)
		}
		if ans := answers[0].(map[string]interface{}); ans["answer_text"] != "stew" {
			t.Errorf("answer = %v", ans)
		}
		if envelope["next_cursor"] != "" {
			t.Errorf("next_cursor = %v; want empty", envelope["next_cursor"])
		}
	})
}
