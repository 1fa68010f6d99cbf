package inmemdb

import (
	"sync"

	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
)

type (
	DB struct {
		user   *userTable
		school *schoolTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTables struct {
		sync.RWMutex
		students        map[string]school.Student
		attendance      map[string]school.Attendance // by ID
		observations    map[string]school.Observation
		registers       map[string]school.SchoolRegister
		evaluations     map[string]school.Evaluation
		speechBases     []school.SpeechBase // in display order
		speechRegisters map[string]school.SpeechRegister
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		school: &schoolTables{
			students:        make(map[string]school.Student),
			attendance:      make(map[string]school.Attendance),
			observations:    make(map[string]school.Observation),
			registers:       make(map[string]school.SchoolRegister),
			evaluations:     make(map[string]school.Evaluation),
			speechRegisters: make(map[string]school.SpeechRegister),
		},
	}
	return db, nil
}

// SeedSpeechBases appends bases to the speech-therapy lookup table.
func (db *DB) SeedSpeechBases(bases ...school.SpeechBase) {
	db.school.Lock()
	defer db.school.Unlock()
	db.school.speechBases = append(db.school.speechBases, bases...)
}
