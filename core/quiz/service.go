package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/user"
)

const historyPageSize = 20

var randIntn = rand.Intn // mockable

// Service backs the member-facing endpoints. The lazy creation and closing
// it performs on reads use the same predicates as the scheduler sweeps.
type Service struct {
	conf    *core.Config
	repo    Repository
	famSvc  *family.Service
	usrSvc  *user.Service
	pushSvc core.PushService
	events  core.EventPublisher
	logger  core.Logger
}

func NewService(
	conf *core.Config,
	repo Repository,
	famSvc *family.Service,
	usrSvc *user.Service,
	pushSvc core.PushService,
	events core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		conf:    conf,
		repo:    repo,
		famSvc:  famSvc,
		usrSvc:  usrSvc,
		pushSvc: pushSvc,
		events:  events,
		logger:  logger,
	}
}

// Today returns the caller's family question for the local date, creating it
// lazily after the cutoff hour and applying the close predicate
// opportunistically. The lazy path picks a question the family has never
// used, uniformly at random; once none remain it reports ErrQuestionsDepleted.
func (svc *Service) Today(ctx context.Context, userID string) (*TodayView, error) {
	mbr, err := svc.famSvc.ActiveMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := loadLocation(svc.conf.Quiz.Timezone, "")
	now := NowFunc()
	forDate := localDate(now, loc)

	inst, err := svc.repo.GetInstanceForDate(ctx, mbr.FamilyID, forDate)
	if err == ErrNotFound {
		if now.In(loc).Hour() < svc.conf.Quiz.CutoffHour {
			return nil, ErrBeforeTime
		}
		inst, err = svc.createNovelInstance(ctx, mbr.FamilyID, userID, forDate)
		if err == ErrNotFound {
			// lost the creation race and the winner's row is not visible
			// yet; report "no question" rather than an error
			return nil, nil
		} else if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	members, err := svc.famSvc.ActiveMembers(ctx, mbr.FamilyID)
	if err != nil {
		return nil, err
	}
	responses, err := svc.repo.QueryResponses(ctx, inst.ID)
	if err != nil {
		return nil, err
	}

	// lazy close, same predicate as the closing sweep
	if inst.Status == StatusOpen && shouldClose(inst, members, responses, now) {
		if err = svc.repo.CloseInstance(ctx, inst.ID); err != nil {
			svc.logger.Warn(fmt.Sprintf("lazy close of instance %s: %v", inst.ID, err), err)
		} else {
			inst.Status = StatusClosed
		}
	}

	return buildTodayView(inst, userID, members, responses), nil
}

// createNovelInstance materializes today's instance on the interactive path:
// seed the pool if empty, then pick an unused question at random. A losing
// race on the (family, for_date) key falls back to the winner's row.
func (svc *Service) createNovelInstance(ctx context.Context, familyID, userID, forDate string) (Instance, error) {
	pool, err := svc.repo.QueryQuestions(ctx, familyID)
	if err != nil {
		return Instance{}, err
	}
	if len(pool) == 0 {
		if pool, err = svc.repo.SeedQuestions(ctx, familyID, userID, DefaultPrompts); err != nil {
			return Instance{}, errors.Wrap(err, "seeding question pool")
		}
	}

	usedIDs, err := svc.repo.QueryUsedQuestionIDs(ctx, familyID)
	if err != nil {
		return Instance{}, err
	}
	used := make(map[string]bool, len(usedIDs))
	for _, id := range usedIDs {
		used[id] = true
	}
	available := make([]Question, 0, len(pool))
	for _, q := range pool {
		if !used[q.ID] {
			available = append(available, q)
		}
	}
	if len(available) == 0 {
		return Instance{}, ErrQuestionsDepleted
	}

	picked := available[randIntn(len(available))]
	inst, err := svc.repo.CreateInstance(ctx, Instance{
		FamilyID:   familyID,
		QuestionID: picked.ID,
		ForDate:    forDate,
		Status:     StatusOpen,
		CreatedAt:  NowFunc().UTC(),
	})
	if err == ErrInstanceExists {
		// someone else created it first; theirs wins
		return svc.repo.GetInstanceForDate(ctx, familyID, forDate)
	} else if err != nil {
		return Instance{}, errors.Wrap(err, "creating question instance")
	}
	inst.Prompt = picked.Prompt
	svc.events.Publish(core.Event{Type: "quiz_instance", FamilyID: familyID, Data: inst})
	return inst, nil
}

// Respond records the caller's answer. Closed instances and second answers
// are rejected; an existing answer is never modified.
func (svc *Service) Respond(ctx context.Context, userID string, sr SubmitResponse) error {
	inst, err := svc.repo.GetInstance(ctx, sr.QuestionInstanceID)
	if err != nil {
		return err
	}
	mbr, err := svc.famSvc.ActiveMember(ctx, userID)
	if err != nil || mbr.FamilyID != inst.FamilyID {
		// non-members cannot see the instance at all
		return ErrNotFound
	}
	if inst.Status == StatusClosed {
		return ErrClosed
	}

	resp, err := svc.repo.CreateResponse(ctx, Response{
		QuestionInstanceID: inst.ID,
		UserID:             userID,
		AnswerText:         sr.AnswerText,
		CreatedAt:          NowFunc().UTC(),
	})
	if err != nil {
		return err
	}
	svc.events.Publish(core.Event{Type: "quiz_response", FamilyID: inst.FamilyID, Data: resp})
	return nil
}

// Nudge records a reminder and pushes it to each of the target member's
// devices, returning how many deliveries were attempted successfully.
func (svc *Service) Nudge(ctx context.Context, userID string, nr NudgeRequest) (int, error) {
	inst, err := svc.repo.GetInstance(ctx, nr.QuestionInstanceID)
	if err != nil {
		return 0, err
	}
	mbr, err := svc.famSvc.ActiveMember(ctx, userID)
	if err != nil || mbr.FamilyID != inst.FamilyID {
		return 0, ErrNotFound
	}
	if inst.Status == StatusClosed {
		return 0, ErrClosed
	}

	members, err := svc.famSvc.ActiveMembers(ctx, inst.FamilyID)
	if err != nil {
		return 0, err
	}
	var target *family.Member
	for i := range members {
		if members[i].UserID == nr.ToUserID {
			target = &members[i]
			break
		}
	}
	if target == nil {
		return 0, ErrNotFound
	}

	if _, err = svc.repo.CreateNudge(ctx, Nudge{
		QuestionInstanceID: inst.ID,
		FromUserID:         userID,
		ToUserID:           nr.ToUserID,
		CreatedAt:          NowFunc().UTC(),
	}); err != nil {
		return 0, errors.Wrap(err, "creating nudge")
	}

	sent := 0
	devices, err := svc.usrSvc.Devices(ctx, nr.ToUserID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading devices for nudge: %v", err), err)
		return 0, nil
	}
	notif := core.Notification{
		Title: "Today's question",
		Body:  "Your family is waiting for your answer.",
		URL:   "/quiz",
	}
	for _, dev := range devices {
		if err = svc.pushSvc.Send(ctx, dev.Subscription, notif); err != nil {
			svc.logger.Warn(fmt.Sprintf("sending nudge push: %v", err), err)
			continue
		}
		sent++
	}
	return sent, nil
}

// History pages the family's closed instances, newest first. The returned
// cursor is the creation time of the last item, empty on the final page.
func (svc *Service) History(ctx context.Context, userID, cursor string) ([]HistoryItem, string, error) {
	mbr, err := svc.famSvc.ActiveMember(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	var cursorTime time.Time
	if cursor != "" {
		if cursorTime, err = time.Parse(time.RFC3339Nano, cursor); err != nil {
			return nil, "", core.NewValidationError(nil, core.FieldError{Field: "cursor", Error: "invalid cursor"})
		}
	}

	instances, err := svc.repo.QueryClosedInstances(ctx, mbr.FamilyID, cursorTime, historyPageSize)
	if err != nil {
		return nil, "", err
	}

	items := make([]HistoryItem, 0, len(instances))
	for _, inst := range instances {
		responses, err := svc.repo.QueryResponses(ctx, inst.ID)
		if err != nil {
			return nil, "", err
		}
		items = append(items, HistoryItem{
			ID:      inst.ID,
			ForDate: inst.ForDate,
			Status:  inst.Status,
			Prompt:  inst.Prompt,
			Answers: answerViews(responses),
		})
	}

	var next string
	if len(instances) == historyPageSize {
		next = instances[len(instances)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return items, next, nil
}

// GetSchedule returns the family's schedule row, nil when none is configured.
// The exposed timezone is pinned to the configured zone.
func (svc *Service) GetSchedule(ctx context.Context, userID string) (*Schedule, error) {
	mbr, err := svc.famSvc.ActiveMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	sch, err := svc.repo.GetSchedule(ctx, mbr.FamilyID)
	if err == ErrScheduleNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	sch.Timezone = svc.conf.Quiz.Timezone
	return &sch, nil
}

// SetSchedule upserts the family's single schedule row.
func (svc *Service) SetSchedule(ctx context.Context, userID string, ss SetSchedule) (Schedule, error) {
	mbr, err := svc.famSvc.ActiveMember(ctx, userID)
	if err != nil {
		return Schedule{}, err
	}
	enabled := true
	if ss.Enabled != nil {
		enabled = *ss.Enabled
	}
	return svc.repo.UpsertSchedule(ctx, Schedule{
		FamilyID:  mbr.FamilyID,
		TimeOfDay: ss.TimeOfDay,
		Timezone:  svc.conf.Quiz.Timezone,
		Enabled:   enabled,
		CreatedAt: NowFunc().UTC(),
	})
}

func buildTodayView(inst Instance, userID string, members []family.Member, responses []Response) *TodayView {
	responders := make(map[string]bool, len(responses))
	for _, r := range responses {
		responders[r.UserID] = true
	}

	memberViews := make([]MemberView, 0, len(members))
	for _, mbr := range members {
		memberViews = append(memberViews, MemberView{
			UserID:      mbr.UserID,
			DisplayName: displayName(mbr.DisplayName),
			Answered:    responders[mbr.UserID],
		})
	}

	view := &TodayView{
		InstanceID:    inst.ID,
		Prompt:        inst.Prompt,
		Status:        inst.Status,
		MyAnswered:    responders[userID],
		AnsweredCount: len(responses),
		Members:       memberViews,
		Answers:       answerViews(responses),
	}
	if !inst.ExpiresAt.IsZero() {
		expiresAt := inst.ExpiresAt
		view.ExpiresAt = &expiresAt
	}
	return view
}

func answerViews(responses []Response) []AnswerView {
	views := make([]AnswerView, 0, len(responses))
	for _, r := range responses {
		views = append(views, AnswerView{
			UserID:      r.UserID,
			DisplayName: displayName(r.DisplayName),
			AnswerText:  r.AnswerText,
			CreatedAt:   r.CreatedAt,
		})
	}
	return views
}

func displayName(name string) string {
	if name == "" {
		return "가족"
	}
	return name
}
