package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/woolzip/backend/core/quiz"
)

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

type questionRow struct {
	ID        string      `db:"id"`
	FamilyID  string      `db:"family_id"`
	Prompt    string      `db:"prompt"`
	CreatedBy null.String `db:"created_by"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r questionRow) unmarshal() quiz.Question {
	return quiz.Question{
		ID:        r.ID,
		FamilyID:  r.FamilyID,
		Prompt:    r.Prompt,
		CreatedBy: r.CreatedBy.String,
		CreatedAt: r.CreatedAt.Time,
	}
}

type instanceRow struct {
	ID         string    `db:"id"`
	FamilyID   string    `db:"family_id"`
	QuestionID string    `db:"question_id"`
	Prompt     string    `db:"prompt"`
	ForDate    time.Time `db:"for_date"`
	Status     string    `db:"status"`
	ExpiresAt  null.Time `db:"expires_at"`
	CreatedAt  null.Time `db:"created_at"`
}

func (r instanceRow) unmarshal() quiz.Instance {
	return quiz.Instance{
		ID:         r.ID,
		FamilyID:   r.FamilyID,
		QuestionID: r.QuestionID,
		Prompt:     r.Prompt,
		ForDate:    r.ForDate.Format("2006-01-02"),
		Status:     r.Status,
		ExpiresAt:  r.ExpiresAt.Time,
		CreatedAt:  r.CreatedAt.Time,
	}
}

type responseRow struct {
	ID                 string      `db:"id"`
	QuestionInstanceID string      `db:"question_instance_id"`
	UserID             string      `db:"user_id"`
	DisplayName        null.String `db:"display_name"`
	AnswerText         string      `db:"answer_text"`
	CreatedAt          null.Time   `db:"created_at"`
}

func (r responseRow) unmarshal() quiz.Response {
	return quiz.Response{
		ID:                 r.ID,
		QuestionInstanceID: r.QuestionInstanceID,
		UserID:             r.UserID,
		DisplayName:        r.DisplayName.String,
		AnswerText:         r.AnswerText,
		CreatedAt:          r.CreatedAt.Time,
	}
}

type scheduleRow struct {
	ID        string    `db:"id"`
	FamilyID  string    `db:"family_id"`
	TimeOfDay string    `db:"time_of_day"`
	Timezone  string    `db:"timezone"`
	Enabled   bool      `db:"enabled"`
	CreatedAt null.Time `db:"created_at"`
}

func (r scheduleRow) unmarshal() quiz.Schedule {
	return quiz.Schedule{
		ID:        r.ID,
		FamilyID:  r.FamilyID,
		TimeOfDay: r.TimeOfDay,
		Timezone:  r.Timezone,
		Enabled:   r.Enabled,
		CreatedAt: r.CreatedAt.Time,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const instanceSelect = `
	SELECT qi.id, qi.family_id, qi.question_id, q.prompt, qi.for_date, qi.status, qi.expires_at, qi.created_at
	FROM question_instances qi JOIN questions q ON q.id = qi.question_id`

func (repo quizRepository) QueryQuestions(ctx context.Context, familyID string) ([]quiz.Question, error) {
	var rows []questionRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, family_id, prompt, created_by, created_at
		 FROM questions WHERE family_id = $1 ORDER BY created_at, id`, familyID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	qs := make([]quiz.Question, 0, len(rows))
	for _, r := range rows {
		qs = append(qs, r.unmarshal())
	}
	return qs, nil
}

func (repo quizRepository) SeedQuestions(ctx context.Context, familyID, createdBy string, prompts []string) ([]quiz.Question, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning seed transaction")
	}
	defer tx.Rollback()

	for _, prompt := range prompts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, family_id, prompt, created_by)
			 VALUES ($1, $2, $3, NULLIF($4, ''))`,
			uuid.New().String(), familyID, prompt, createdBy,
		); err != nil {
			return nil, errors.Wrap(err, "seeding questions")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing seeded questions")
	}
	return repo.QueryQuestions(ctx, familyID)
}

func (repo quizRepository) QueryUsedQuestionIDs(ctx context.Context, familyID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT question_id FROM question_instances WHERE family_id = $1`, familyID)
	if err != nil {
		return nil, errors.Wrap(err, "querying used question IDs")
	}
	return ids, nil
}

func (repo quizRepository) CreateInstance(ctx context.Context, inst quiz.Instance) (quiz.Instance, error) {
	inst.ID = uuid.New().String()
	var row instanceRow
	err := repo.db.GetContext(ctx, &row,
		`WITH ins AS (
			INSERT INTO question_instances (id, family_id, question_id, for_date, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, family_id, question_id, for_date, status, expires_at, created_at
		 )
		 SELECT ins.id, ins.family_id, ins.question_id, q.prompt, ins.for_date, ins.status, ins.expires_at, ins.created_at
		 FROM ins JOIN questions q ON q.id = ins.question_id`,
		inst.ID, inst.FamilyID, inst.QuestionID, inst.ForDate, inst.Status,
		null.NewTime(inst.ExpiresAt, !inst.ExpiresAt.IsZero()))
	if err != nil {
		if isUniqueViolation(err) {
			return quiz.Instance{}, quiz.ErrInstanceExists
		}
		return quiz.Instance{}, errors.Wrap(err, "inserting question instance")
	}
	return row.unmarshal(), nil
}

func (repo quizRepository) GetInstance(ctx context.Context, id string) (quiz.Instance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Instance{}, quiz.ErrNotFound
	}
	var row instanceRow
	err := repo.db.GetContext(ctx, &row, instanceSelect+` WHERE qi.id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return quiz.Instance{}, quiz.ErrNotFound
		}
		return quiz.Instance{}, errors.Wrap(err, "finding question instance")
	}
	return row.unmarshal(), nil
}

func (repo quizRepository) GetInstanceForDate(ctx context.Context, familyID, forDate string) (quiz.Instance, error) {
	var row instanceRow
	err := repo.db.GetContext(ctx, &row,
		instanceSelect+` WHERE qi.family_id = $1 AND qi.for_date = $2`, familyID, forDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return quiz.Instance{}, quiz.ErrNotFound
		}
		return quiz.Instance{}, errors.Wrap(err, "finding question instance for date")
	}
	return row.unmarshal(), nil
}

func (repo quizRepository) QueryOpenInstances(ctx context.Context) ([]quiz.Instance, error) {
	var rows []instanceRow
	err := repo.db.SelectContext(ctx, &rows,
		instanceSelect+` WHERE qi.status = 'open' ORDER BY qi.created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying open instances")
	}
	return unmarshalInstances(rows), nil
}

func (repo quizRepository) QueryClosedInstances(ctx context.Context, familyID string, cursor time.Time, limit int) ([]quiz.Instance, error) {
	query := instanceSelect + ` WHERE qi.family_id = $1 AND qi.status = 'closed'
		 ORDER BY qi.created_at DESC LIMIT $2`
	args := []interface{}{familyID, limit}
	if !cursor.IsZero() {
		query = instanceSelect + ` WHERE qi.family_id = $1 AND qi.status = 'closed' AND qi.created_at < $3
			 ORDER BY qi.created_at DESC LIMIT $2`
		args = append(args, cursor)
	}

	var rows []instanceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying closed instances")
	}
	return unmarshalInstances(rows), nil
}

func (repo quizRepository) CloseInstance(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE question_instances SET status = 'closed' WHERE id = $1 AND status = 'open'`, id)
	return errors.Wrap(err, "closing question instance")
}

func (repo quizRepository) QueryResponses(ctx context.Context, instanceID string) ([]quiz.Response, error) {
	var rows []responseRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT qr.id, qr.question_instance_id, qr.user_id, u.display_name, qr.answer_text, qr.created_at
		 FROM question_responses qr JOIN users u ON u.id = qr.user_id
		 WHERE qr.question_instance_id = $1 ORDER BY qr.created_at`, instanceID)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	resps := make([]quiz.Response, 0, len(rows))
	for _, r := range rows {
		resps = append(resps, r.unmarshal())
	}
	return resps, nil
}

func (repo quizRepository) CreateResponse(ctx context.Context, resp quiz.Response) (quiz.Response, error) {
	resp.ID = uuid.New().String()
	var row responseRow
	err := repo.db.GetContext(ctx, &row,
		`WITH ins AS (
			INSERT INTO question_responses (id, question_instance_id, user_id, answer_text)
			VALUES ($1, $2, $3, $4)
			RETURNING id, question_instance_id, user_id, answer_text, created_at
		 )
		 SELECT ins.id, ins.question_instance_id, ins.user_id, u.display_name, ins.answer_text, ins.created_at
		 FROM ins JOIN users u ON u.id = ins.user_id`,
		resp.ID, resp.QuestionInstanceID, resp.UserID, resp.AnswerText)
	if err != nil {
		if isUniqueViolation(err) {
			return quiz.Response{}, quiz.ErrAlreadyAnswered
		}
		return quiz.Response{}, errors.Wrap(err, "inserting response")
	}
	return row.unmarshal(), nil
}

func (repo quizRepository) GetSchedule(ctx context.Context, familyID string) (quiz.Schedule, error) {
	var row scheduleRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, family_id, time_of_day, timezone, enabled, created_at
		 FROM question_schedule WHERE family_id = $1`, familyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return quiz.Schedule{}, quiz.ErrScheduleNotFound
		}
		return quiz.Schedule{}, errors.Wrap(err, "finding schedule")
	}
	return row.unmarshal(), nil
}

func (repo quizRepository) QueryEnabledSchedules(ctx context.Context) ([]quiz.Schedule, error) {
	var rows []scheduleRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, family_id, time_of_day, timezone, enabled, created_at
		 FROM question_schedule WHERE enabled ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying enabled schedules")
	}
	schs := make([]quiz.Schedule, 0, len(rows))
	for _, r := range rows {
		schs = append(schs, r.unmarshal())
	}
	return schs, nil
}

func (repo quizRepository) UpsertSchedule(ctx context.Context, sch quiz.Schedule) (quiz.Schedule, error) {
	if sch.ID == "" {
		sch.ID = uuid.New().String()
	}
	var row scheduleRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO question_schedule (id, family_id, time_of_day, timezone, enabled)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (family_id) DO UPDATE
		 SET time_of_day = EXCLUDED.time_of_day, timezone = EXCLUDED.timezone, enabled = EXCLUDED.enabled
		 RETURNING id, family_id, time_of_day, timezone, enabled, created_at`,
		sch.ID, sch.FamilyID, sch.TimeOfDay, sch.Timezone, sch.Enabled)
	if err != nil {
		return quiz.Schedule{}, errors.Wrap(err, "upserting schedule")
	}
	return row.unmarshal(), nil
}

func (repo quizRepository) CreateNudge(ctx context.Context, n quiz.Nudge) (quiz.Nudge, error) {
	n.ID = uuid.New().String()
	var createdAt null.Time
	err := repo.db.GetContext(ctx, &createdAt,
		`INSERT INTO question_nudges (id, question_instance_id, from_user_id, to_user_id)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		n.ID, n.QuestionInstanceID, n.FromUserID, n.ToUserID)
	if err != nil {
		return quiz.Nudge{}, errors.Wrap(err, "inserting nudge")
	}
	n.CreatedAt = createdAt.Time
	return n, nil
}

func unmarshalInstances(rows []instanceRow) []quiz.Instance {
	insts := make([]quiz.Instance, 0, len(rows))
	for _, r := range rows {
		insts = append(insts, r.unmarshal())
	}
	return insts
}
