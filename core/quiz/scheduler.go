package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/woolzip/backend/core"
	"github.com/woolzip/backend/core/family"
)

var (
	// errors
	ErrNotFound            = errors.New("question instance not found")
	ErrClosed              = errors.New("this question is already closed")
	ErrAlreadyAnswered     = errors.New("you already answered this question")
	ErrBeforeTime          = errors.New("today's question is not available yet")
	ErrNoQuestionAvailable = errors.New("no question available for this family")
	ErrQuestionsDepleted   = errors.New("the question pool is depleted")
	// ErrInstanceExists is returned by stores on a (family, for_date)
	// duplicate insert; sweeps treat it as a concurrent creation, not a failure.
	ErrInstanceExists = errors.New("an instance already exists for this family and date")
	// ErrScheduleNotFound is returned when a family has no schedule row.
	ErrScheduleNotFound = errors.New("schedule not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// QueryQuestions returns a family's pool ordered by creation time.
		QueryQuestions(ctx context.Context, familyID string) ([]Question, error)
		// SeedQuestions bulk-inserts prompts as one atomic operation and
		// returns the resulting pool in creation order.
		SeedQuestions(ctx context.Context, familyID, createdBy string, prompts []string) ([]Question, error)
		// QueryUsedQuestionIDs returns every question id that ever had an
		// instance for this family.
		QueryUsedQuestionIDs(ctx context.Context, familyID string) ([]string, error)

		CreateInstance(ctx context.Context, inst Instance) (Instance, error)
		GetInstance(ctx context.Context, id string) (Instance, error)
		GetInstanceForDate(ctx context.Context, familyID, forDate string) (Instance, error)
		QueryOpenInstances(ctx context.Context) ([]Instance, error)
		// QueryClosedInstances pages the family's closed instances newest
		// first, strictly older than cursor when cursor is non-zero.
		QueryClosedInstances(ctx context.Context, familyID string, cursor time.Time, limit int) ([]Instance, error)
		CloseInstance(ctx context.Context, id string) error

		QueryResponses(ctx context.Context, instanceID string) ([]Response, error)
		CreateResponse(ctx context.Context, resp Response) (Response, error)

		GetSchedule(ctx context.Context, familyID string) (Schedule, error)
		QueryEnabledSchedules(ctx context.Context) ([]Schedule, error)
		UpsertSchedule(ctx context.Context, sch Schedule) (Schedule, error)

		CreateNudge(ctx context.Context, n Nudge) (Nudge, error)
	}

	// SweepSkip explains why a family was passed over by a creation sweep.
	SweepSkip struct {
		FamilyID string `json:"family_id"`
		Reason   string `json:"reason"`
	}

	// SweepResult is what one creation sweep did, returned for observability.
	// Skipped families whose block was transient are reattempted by the next
	// sweep; nothing is retried within a run.
	SweepResult struct {
		Created []string    `json:"created"`
		Skipped []SweepSkip `json:"skipped"`
	}

	// Scheduler owns the unattended daily-question lifecycle: the creation
	// sweep and the closing sweep. It holds no state across invocations;
	// every sweep is idempotent and safe to overlap with another run.
	Scheduler struct {
		conf    *core.Config
		repo    Repository
		famRepo family.Repository
		logger  core.Logger
	}
)

func NewScheduler(conf *core.Config, repo Repository, famRepo family.Repository, logger core.Logger) *Scheduler {
	return &Scheduler{conf: conf, repo: repo, famRepo: famRepo, logger: logger}
}

// EnsureQuestionForFamily returns the question for the given family-local
// date, seeding the pool with the default prompts when it is empty. The pick
// is a deterministic rotation (ordinal day of year modulo pool size), so the
// unattended path is fair and repeatable.
func (s *Scheduler) EnsureQuestionForFamily(ctx context.Context, familyID, forDate string) (Question, error) {
	pool, err := s.repo.QueryQuestions(ctx, familyID)
	if err != nil {
		return Question{}, err
	}
	if len(pool) == 0 {
		if pool, err = s.repo.SeedQuestions(ctx, familyID, "", DefaultPrompts); err != nil {
			return Question{}, err
		}
	}
	if len(pool) == 0 {
		return Question{}, ErrNoQuestionAvailable
	}
	return pool[dayIndex(forDate)%len(pool)], nil
}

// CreationSweep creates today's instance for every enabled family whose
// configured time of day has passed. Failures are isolated per family;
// the next sweep naturally reattempts anything transient.
func (s *Scheduler) CreationSweep(ctx context.Context) (SweepResult, error) {
	schedules, err := s.repo.QueryEnabledSchedules(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	now := NowFunc()
	res := SweepResult{Created: []string{}, Skipped: []SweepSkip{}}

	for _, sch := range schedules {
		loc := s.location(sch.Timezone)
		forDate := localDate(now, loc)

		if parseMinutes(sch.TimeOfDay) > minutesOfDay(now, loc) {
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipBeforeTime})
			continue
		}

		if _, err := s.repo.GetInstanceForDate(ctx, sch.FamilyID, forDate); err == nil {
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipExists})
			continue
		} else if err != ErrNotFound {
			s.logger.Error(fmt.Sprintf("creation sweep: family %s: %v", sch.FamilyID, err), err)
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipError})
			continue
		}

		q, err := s.EnsureQuestionForFamily(ctx, sch.FamilyID, forDate)
		if err == ErrNoQuestionAvailable {
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipNoQuestion})
			continue
		} else if err != nil {
			s.logger.Error(fmt.Sprintf("creation sweep: family %s: %v", sch.FamilyID, err), err)
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipError})
			continue
		}

		_, err = s.repo.CreateInstance(ctx, Instance{
			FamilyID:   sch.FamilyID,
			QuestionID: q.ID,
			ForDate:    forDate,
			Status:     StatusOpen,
			ExpiresAt:  endOfDay(forDate, loc),
			CreatedAt:  now.UTC(),
		})
		if err == ErrInstanceExists {
			// another sweep or a lazy read beat us to it
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipExists})
			continue
		} else if err != nil {
			s.logger.Error(fmt.Sprintf("creation sweep: family %s: %v", sch.FamilyID, err), err)
			res.Skipped = append(res.Skipped, SweepSkip{FamilyID: sch.FamilyID, Reason: SkipError})
			continue
		}

		res.Created = append(res.Created, sch.FamilyID)
	}
	return res, nil
}

// ClosingSweep closes every open instance whose members have all answered or
// whose expiry has passed. Failures are isolated per instance.
func (s *Scheduler) ClosingSweep(ctx context.Context) ([]string, error) {
	open, err := s.repo.QueryOpenInstances(ctx)
	if err != nil {
		return nil, err
	}

	now := NowFunc()
	closed := []string{}

	for _, inst := range open {
		members, err := s.famRepo.QueryActiveMembers(ctx, inst.FamilyID)
		if err != nil {
			s.logger.Error(fmt.Sprintf("closing sweep: instance %s: %v", inst.ID, err), err)
			continue
		}
		responses, err := s.repo.QueryResponses(ctx, inst.ID)
		if err != nil {
			s.logger.Error(fmt.Sprintf("closing sweep: instance %s: %v", inst.ID, err), err)
			continue
		}

		if !shouldClose(inst, members, responses, now) {
			continue
		}
		if err = s.repo.CloseInstance(ctx, inst.ID); err != nil {
			s.logger.Error(fmt.Sprintf("closing sweep: instance %s: %v", inst.ID, err), err)
			continue
		}
		closed = append(closed, inst.ID)
	}
	return closed, nil
}

// shouldClose is the single close predicate shared by the closing sweep and
// the lazy "today" read; the two paths must never diverge.
// An instance with zero active members never closes on the all-answered
// branch: vacuous truth is explicitly rejected.
func shouldClose(inst Instance, members []family.Member, responses []Response, now time.Time) bool {
	responders := make(map[string]bool, len(responses))
	for _, r := range responses {
		responders[r.UserID] = true
	}
	allAnswered := len(members) > 0
	for _, mbr := range members {
		if !responders[mbr.UserID] {
			allAnswered = false
			break
		}
	}
	return allAnswered || inst.Expired(now)
}

func (s *Scheduler) location(timezone string) *time.Location {
	return loadLocation(timezone, s.conf.Quiz.Timezone)
}

func loadLocation(timezone, fallback string) *time.Location {
	if timezone == "" {
		timezone = fallback
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
