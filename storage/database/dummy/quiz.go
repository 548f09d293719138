package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/woolzip/backend/core/quiz"
)

type quizRepository struct {
	db    *quizTable
	users *userTable
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db.quiz, users: db.user}
}

func (repo *quizRepository) displayName(userID string) string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.users[userID]; ok {
		return usr.DisplayName
	}
	return ""
}

func (repo *quizRepository) queryQuestions(familyID string) []quiz.Question {
	qs := make([]quiz.Question, 0)
	for _, q := range repo.db.questions {
		if q.FamilyID == familyID {
			qs = append(qs, *q)
		}
	}
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].ID < qs[j].ID
		}
		return qs[i].CreatedAt.Before(qs[j].CreatedAt)
	})
	return qs
}

func (repo *quizRepository) withPrompt(inst quiz.Instance) quiz.Instance {
	if q, ok := repo.db.questions[inst.QuestionID]; ok {
		inst.Prompt = q.Prompt
	}
	return inst
}

func (repo *quizRepository) QueryQuestions(ctx context.Context, familyID string) ([]quiz.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryQuestions(familyID), nil
}

func (repo *quizRepository) SeedQuestions(ctx context.Context, familyID, createdBy string, prompts []string) ([]quiz.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	for i, prompt := range prompts {
		q := quiz.Question{
			ID:        uuid.New().String(),
			FamilyID:  familyID,
			Prompt:    prompt,
			CreatedBy: createdBy,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
		repo.db.questions[q.ID] = &q
	}
	return repo.queryQuestions(familyID), nil
}

func (repo *quizRepository) QueryUsedQuestionIDs(ctx context.Context, familyID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, inst := range repo.db.instances {
		if inst.FamilyID == familyID && !seen[inst.QuestionID] {
			seen[inst.QuestionID] = true
			ids = append(ids, inst.QuestionID)
		}
	}
	return ids, nil
}

func (repo *quizRepository) CreateInstance(ctx context.Context, inst quiz.Instance) (quiz.Instance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.instances {
		if existing.FamilyID == inst.FamilyID && existing.ForDate == inst.ForDate {
			return quiz.Instance{}, quiz.ErrInstanceExists
		}
	}
	inst.ID = uuid.New().String()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	repo.db.instances[inst.ID] = &inst
	return repo.withPrompt(inst), nil
}

func (repo *quizRepository) GetInstance(ctx context.Context, id string) (quiz.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inst, ok := repo.db.instances[id]; ok {
		return repo.withPrompt(*inst), nil
	}
	return quiz.Instance{}, quiz.ErrNotFound
}

func (repo *quizRepository) GetInstanceForDate(ctx context.Context, familyID, forDate string) (quiz.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inst := range repo.db.instances {
		if inst.FamilyID == familyID && inst.ForDate == forDate {
			return repo.withPrompt(*inst), nil
		}
	}
	return quiz.Instance{}, quiz.ErrNotFound
}

func (repo *quizRepository) QueryOpenInstances(ctx context.Context) ([]quiz.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	insts := make([]quiz.Instance, 0)
	for _, inst := range repo.db.instances {
		if inst.Status == quiz.StatusOpen {
			insts = append(insts, repo.withPrompt(*inst))
		}
	}
	sort.Slice(insts, func(i, j int) bool { return insts[i].CreatedAt.Before(insts[j].CreatedAt) })
	return insts, nil
}

func (repo *quizRepository) QueryClosedInstances(ctx context.Context, familyID string, cursor time.Time, limit int) ([]quiz.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	insts := make([]quiz.Instance, 0)
	for _, inst := range repo.db.instances {
		if inst.FamilyID != familyID || inst.Status != quiz.StatusClosed {
			continue
		}
		if !cursor.IsZero() && !inst.CreatedAt.Before(cursor) {
			continue
		}
		insts = append(insts, repo.withPrompt(*inst))
	}
	sort.Slice(insts, func(i, j int) bool { return insts[i].CreatedAt.After(insts[j].CreatedAt) })
	if len(insts) > limit {
		insts = insts[:limit]
	}
	return insts, nil
}

func (repo *quizRepository) CloseInstance(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if inst, ok := repo.db.instances[id]; ok && inst.Status == quiz.StatusOpen {
		inst.Status = quiz.StatusClosed
	}
	return nil
}

func (repo *quizRepository) QueryResponses(ctx context.Context, instanceID string) ([]quiz.Response, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	resps := make([]quiz.Response, 0)
	for _, resp := range repo.db.responses {
		if resp.QuestionInstanceID == instanceID {
			out := *resp
			out.DisplayName = repo.displayName(out.UserID)
			resps = append(resps, out)
		}
	}
	sort.Slice(resps, func(i, j int) bool { return resps[i].CreatedAt.Before(resps[j].CreatedAt) })
	return resps, nil
}

func (repo *quizRepository) CreateResponse(ctx context.Context, resp quiz.Response) (quiz.Response, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.responses {
		if existing.QuestionInstanceID == resp.QuestionInstanceID && existing.UserID == resp.UserID {
			return quiz.Response{}, quiz.ErrAlreadyAnswered
		}
	}
	resp.ID = uuid.New().String()
	resp.DisplayName = repo.displayName(resp.UserID)
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	repo.db.responses[resp.ID] = &resp
	return resp, nil
}

func (repo *quizRepository) GetSchedule(ctx context.Context, familyID string) (quiz.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sch := range repo.db.schedules {
		if sch.FamilyID == familyID {
			return *sch, nil
		}
	}
	return quiz.Schedule{}, quiz.ErrScheduleNotFound
}

func (repo *quizRepository) QueryEnabledSchedules(ctx context.Context) ([]quiz.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schs := make([]quiz.Schedule, 0)
	for _, sch := range repo.db.schedules {
		if sch.Enabled {
			schs = append(schs, *sch)
		}
	}
	sort.Slice(schs, func(i, j int) bool { return schs[i].CreatedAt.Before(schs[j].CreatedAt) })
	return schs, nil
}

func (repo *quizRepository) UpsertSchedule(ctx context.Context, sch quiz.Schedule) (quiz.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.schedules {
		if existing.FamilyID == sch.FamilyID {
			existing.TimeOfDay = sch.TimeOfDay
			existing.Timezone = sch.Timezone
			existing.Enabled = sch.Enabled
			return *existing, nil
		}
	}
	sch.ID = uuid.New().String()
	if sch.CreatedAt.IsZero() {
		sch.CreatedAt = time.Now().UTC()
	}
	repo.db.schedules[sch.ID] = &sch
	return sch, nil
}

func (repo *quizRepository) CreateNudge(ctx context.Context, n quiz.Nudge) (quiz.Nudge, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = uuid.New().String()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	repo.db.nudges[n.ID] = &n
	return n, nil
}
