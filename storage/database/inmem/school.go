package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/escuela/core/school"
)

type schoolRepository struct {
	db *schoolTables
}

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) GetStudentsBySchool(_ context.Context, schoolID string) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]school.Student, 0)
	for _, s := range repo.db.students {
		if s.SchoolID == schoolID {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})
	return students, nil
}

func (repo *schoolRepository) SetStudent(_ context.Context, student school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	repo.db.students[student.ID] = student
	return student, nil
}

func (repo *schoolRepository) filterAttendance(keep func(school.Attendance) bool) []school.Attendance {
	atts := make([]school.Attendance, 0)
	for _, a := range repo.db.attendance {
		if keep(a) {
			atts = append(atts, a)
		}
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].Date.Before(atts[j].Date) })
	return atts
}

func (repo *schoolRepository) GetAttendanceByDate(_ context.Context, date time.Time, grade string) ([]school.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	day := date.Format(school.DateLayout)
	return repo.filterAttendance(func(a school.Attendance) bool {
		return a.Grade == grade && a.Day() == day
	}), nil
}

func (repo *schoolRepository) GetAttendanceByMonth(_ context.Context, grade string, month time.Month, year int) ([]school.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filterAttendance(func(a school.Attendance) bool {
		return a.Grade == grade && a.Month == month && a.Year == year
	}), nil
}

// SetAttendance replaces the roll call of the attendance's grade and day.
func (repo *schoolRepository) SetAttendance(_ context.Context, attendance school.Attendance) (school.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	att := attendance.Normalized()
	for id, a := range repo.db.attendance {
		if a.Grade == att.Grade && a.Day() == att.Day() {
			att.ID = id
			break
		}
	}
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	repo.db.attendance[att.ID] = att
	return att, nil
}

func (repo *schoolRepository) GetObservationsByID(_ context.Context, id string) ([]school.Observation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	obs := make([]school.Observation, 0)
	for _, o := range repo.db.observations {
		if o.RefID == id {
			obs = append(obs, o)
		}
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].CreatedAt.Before(obs[j].CreatedAt) })
	return obs, nil
}

func (repo *schoolRepository) SetObservation(_ context.Context, obs school.Observation) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now().UTC()
	}
	repo.db.observations[obs.ID] = obs
	return nil
}

func (repo *schoolRepository) GetSchoolRegistersByID(_ context.Context, id string) ([]school.SchoolRegister, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	regs := make([]school.SchoolRegister, 0)
	for _, r := range repo.db.registers {
		if r.RefID == id {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].Date.Equal(regs[j].Date) {
			return regs[i].Date.Before(regs[j].Date)
		}
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	return regs, nil
}

func (repo *schoolRepository) SetSchoolRegister(_ context.Context, reg school.SchoolRegister) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	repo.db.registers[reg.ID] = reg
	return nil
}

func (repo *schoolRepository) GetEvaluationsByGrade(_ context.Context, grade string) ([]school.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	evals := make([]school.Evaluation, 0)
	for _, e := range repo.db.evaluations {
		if e.Grade == grade {
			evals = append(evals, e)
		}
	}
	sort.Slice(evals, func(i, j int) bool { return evals[i].OA < evals[j].OA })
	return evals, nil
}

// SetEvaluationsByOA replaces the scores of the evaluation's grade and OA.
func (repo *schoolRepository) SetEvaluationsByOA(_ context.Context, eval school.Evaluation) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, e := range repo.db.evaluations {
		if e.Grade == eval.Grade && e.OA == eval.OA {
			eval.ID = id
			break
		}
	}
	if eval.ID == "" {
		eval.ID = uuid.NewString()
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}
	repo.db.evaluations[eval.ID] = eval
	return nil
}

func (repo *schoolRepository) GetSpeechBases(_ context.Context, level string) ([]school.SpeechBase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	bases := make([]school.SpeechBase, 0)
	for _, b := range repo.db.speechBases {
		if b.Level == level {
			bases = append(bases, b)
		}
	}
	return bases, nil
}

func (repo *schoolRepository) GetSpeechRegisters(_ context.Context, grade string) ([]school.SpeechRegister, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	regs := make([]school.SpeechRegister, 0)
	for _, r := range repo.db.speechRegisters {
		if r.Grade == grade {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].PublishedAt.Before(regs[j].PublishedAt) })
	return regs, nil
}

func (repo *schoolRepository) SetSpeechRegister(_ context.Context, reg school.SpeechRegister) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if _, ok := repo.db.speechRegisters[reg.ID]; ok {
		return school.ErrRegisterSet
	}
	repo.db.speechRegisters[reg.ID] = reg
	return nil
}
