package quiz

import (
	"time"

	"github.com/woolzip/backend/core"
)

// Instance statuses
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Creation-sweep skip reasons
const (
	SkipBeforeTime = "before_time"
	SkipExists     = "exists"
	SkipNoQuestion = "no_question"
	SkipError      = "error"
)

// Question is a reusable prompt in a family's pool; never deleted.
type Question struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Prompt    string    `json:"prompt"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Instance is one day's occurrence of a question for one family.
// At most one exists per (family, for_date); its only transition is
// open -> closed, exactly once, never reopened.
type Instance struct {
	ID         string    `json:"id"`
	FamilyID   string    `json:"family_id"`
	QuestionID string    `json:"question_id"`
	Prompt     string    `json:"prompt,omitempty"` // joined from questions
	ForDate    string    `json:"for_date"`         // YYYY-MM-DD, family-local
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"` // zero when the instance has no expiry; TodayView exposes it as a nullable pointer
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether now is at or past the instance expiry.
// Instances without an expiry never expire.
func (inst Instance) Expired(now time.Time) bool {
	return !inst.ExpiresAt.IsZero() && !now.Before(inst.ExpiresAt)
}

// Response is one member's answer to one instance; immutable once written.
type Response struct {
	ID                 string    `json:"id"`
	QuestionInstanceID string    `json:"question_instance_id"`
	UserID             string    `json:"user_id"`
	DisplayName        string    `json:"display_name,omitempty"` // joined from users
	AnswerText         string    `json:"answer_text"`
	CreatedAt          time.Time `json:"created_at"`
}

// Schedule is the per-family creation-sweep configuration; one row per family.
type Schedule struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	TimeOfDay string    `json:"time_of_day"` // HH:MM, family-local
	Timezone  string    `json:"timezone"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Nudge is a write-once reminder record.
type Nudge struct {
	ID                 string    `json:"id"`
	QuestionInstanceID string    `json:"question_instance_id"`
	FromUserID         string    `json:"from_user_id"`
	ToUserID           string    `json:"to_user_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// SubmitResponse is the body of the answer submission call.
type SubmitResponse struct {
	QuestionInstanceID string `json:"questionInstanceId" validate:"required"`
	AnswerText         string `json:"answer_text" validate:"max=500"`
}

func (sr *SubmitResponse) Validate() error {
	sr.QuestionInstanceID = core.CleanString(sr.QuestionInstanceID)
	sr.AnswerText = core.CleanString(sr.AnswerText)
	return core.Validate.Struct(sr)
}

// NudgeRequest is the body of the reminder call.
type NudgeRequest struct {
	QuestionInstanceID string `json:"questionInstanceId" validate:"required"`
	ToUserID           string `json:"to_user_id" validate:"required"`
}

func (nr *NudgeRequest) Validate() error {
	nr.QuestionInstanceID = core.CleanString(nr.QuestionInstanceID)
	nr.ToUserID = core.CleanString(nr.ToUserID)
	return core.Validate.Struct(nr)
}

// SetSchedule is the body of the schedule update call.
type SetSchedule struct {
	TimeOfDay string `json:"time_of_day" validate:"required,timeofday"`
	Enabled   *bool  `json:"enabled"`
}

func (ss *SetSchedule) Validate() error {
	ss.TimeOfDay = core.CleanString(ss.TimeOfDay)
	return core.Validate.Struct(ss)
}

// View types returned by the interactive endpoints.

type (
	MemberView struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Answered    bool   `json:"answered"`
	}

	AnswerView struct {
		UserID      string    `json:"user_id"`
		DisplayName string    `json:"display_name"`
		AnswerText  string    `json:"answer_text"`
		CreatedAt   time.Time `json:"created_at"`
	}

	TodayView struct {
		InstanceID    string       `json:"instance_id"`
		Prompt        string       `json:"prompt"`
		Status        string       `json:"status"`
		ExpiresAt     *time.Time   `json:"expires_at"`
		MyAnswered    bool         `json:"my_answered"`
		AnsweredCount int          `json:"answered_count"`
		Members       []MemberView `json:"members"`
		Answers       []AnswerView `json:"answers"`
	}

	HistoryItem struct {
		ID      string       `json:"id"`
		ForDate string       `json:"for_date"`
		Status  string       `json:"status"`
		Prompt  string       `json:"prompt"`
		Answers []AnswerView `json:"answers"`
	}
)
