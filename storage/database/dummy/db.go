package dummydb

import (
	"sync"

	"github.com/woolzip/backend/core/checkin"
	"github.com/woolzip/backend/core/family"
	"github.com/woolzip/backend/core/quiz"
	"github.com/woolzip/backend/core/user"
)

type (
	DB struct {
		user    *userTable
		family  *familyTable
		checkin *checkinTable
		quiz    *quizTable
	}

	userTable struct {
		sync.RWMutex
		users   map[string]*user.User
		devices map[string]*user.Device
	}

	familyTable struct {
		sync.RWMutex
		families map[string]*family.Family
		members  map[string]*family.Member
		invites  map[string]*family.Invite
	}

	checkinTable struct {
		sync.RWMutex
		signals     map[string]*checkin.Signal
		emotions    map[string]*checkin.Emotion
		sosEvents   map[string]*checkin.SOSEvent
		medications map[string]*checkin.Medication
		medLogs     map[string]*checkin.MedLog
	}

	quizTable struct {
		sync.RWMutex
		questions map[string]*quiz.Question
		instances map[string]*quiz.Instance
		responses map[string]*quiz.Response
		schedules map[string]*quiz.Schedule
		nudges    map[string]*quiz.Nudge
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			users:   make(map[string]*user.User),
			devices: make(map[string]*user.Device),
		},
		family: &familyTable{
			families: make(map[string]*family.Family),
			members:  make(map[string]*family.Member),
			invites:  make(map[string]*family.Invite),
		},
		checkin: &checkinTable{
			signals:     make(map[string]*checkin.Signal),
			emotions:    make(map[string]*checkin.Emotion),
			sosEvents:   make(map[string]*checkin.SOSEvent),
			medications: make(map[string]*checkin.Medication),
			medLogs:     make(map[string]*checkin.MedLog),
		},
		quiz: &quizTable{
			questions: make(map[string]*quiz.Question),
			instances: make(map[string]*quiz.Instance),
			responses: make(map[string]*quiz.Response),
			schedules: make(map[string]*quiz.Schedule),
			nudges:    make(map[string]*quiz.Nudge),
		},
	}
	return db, nil
}
