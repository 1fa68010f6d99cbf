package school

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

// Context is the handle views use: state reads plus one action function per use case.
// Action functions dispatch their outcome to the state; the returned error is informative only.
type Context interface {
	State() State
	Subscribe(fn func(State)) (cancel func())

	GetStudentsBySchool(ctx context.Context, schoolID string) error
	SetStudent(ctx context.Context, student Student) error
	ClearStudent()

	GetAttendanceByDate(ctx context.Context, date time.Time, grade string) error
	GetAttendanceByMonth(ctx context.Context, grade string, month time.Month, year int) error
	SetAttendance(ctx context.Context, attendance Attendance) error

	GetObservationByID(ctx context.Context, id string) error
	SetObservation(ctx context.Context, obs Observation) error

	GetRegistersByID(ctx context.Context, id string) error
	SetSchoolRegister(ctx context.Context, reg SchoolRegister) error

	SetEvaluationsByOA(ctx context.Context, eval Evaluation) error
	GetEvaluationsByGrade(ctx context.Context, grade string) error

	GetSpeechBases(ctx context.Context, level string) error
	GetSpeechRegisters(ctx context.Context, grade string) error
	SetSpeechRegister(ctx context.Context, reg SpeechRegister) error
	SaveSpeechRegister(ctx context.Context, reg SpeechRegister) error
}

// Invalidation topics published after a successful write.
func StudentsTopic(schoolID string) string     { return "students:" + schoolID }
func AttendanceTopic(grade string) string      { return "attendance:" + grade }
func ObservationsTopic(refID string) string    { return "observations:" + refID }
func RegistersTopic(refID string) string       { return "registers:" + refID }
func EvaluationsTopic(grade string) string     { return "evaluations:" + grade }
func SpeechRegistersTopic(grade string) string { return "speech-registers:" + grade }

// Provider runs the use cases: dispatch loading, call the repository,
// decorate the result and dispatch success, or dispatch the error and log it.
type Provider struct {
	store    *Store
	repo     Repository
	logger   core.Logger
	notifier core.Notifier
}

var _ Context = (*Provider)(nil)

func NewProvider(store *Store, repo Repository, logger core.Logger, notifier core.Notifier) *Provider {
	return &Provider{
		store:    store,
		repo:     repo,
		logger:   logger,
		notifier: notifier,
	}
}

func (p *Provider) State() State { return p.store.State() }

func (p *Provider) Subscribe(fn func(State)) func() { return p.store.Subscribe(fn) }

func (p *Provider) fail(k Kind, err error, msg string) error {
	err = errors.Wrap(err, msg)
	p.store.Dispatch(Failed(k))
	p.logger.Error(fmt.Sprintf("%s: %v", k, err), err)
	return err
}

// invalidate publishes topic. A failed publish does not fail the write.
func (p *Provider) invalidate(ctx context.Context, topic string) {
	if err := p.notifier.Publish(ctx, topic); err != nil {
		p.logger.Warn(fmt.Sprintf("publishing %q: %v", topic, err), err)
	}
}

func (p *Provider) ClearStudent() {
	p.store.Dispatch(ClearStudent())
}

func (p *Provider) GetStudentsBySchool(ctx context.Context, schoolID string) error {
	p.store.Dispatch(Loading(KindStudents))
	students, err := p.repo.GetStudentsBySchool(ctx, schoolID)
	if err != nil {
		return p.fail(KindStudents, err, "getting students by school")
	}
	p.store.Dispatch(StudentsFetched(DecorateStudents(students)))
	return nil
}

func (p *Provider) SetStudent(ctx context.Context, student Student) error {
	p.store.Dispatch(Loading(KindStudent))
	saved, err := p.repo.SetStudent(ctx, student)
	if err != nil {
		return p.fail(KindStudent, err, "setting student")
	}
	p.store.Dispatch(StudentSet(DecorateStudent(saved)))
	p.invalidate(ctx, StudentsTopic(saved.SchoolID))
	return nil
}

func (p *Provider) GetAttendanceByDate(ctx context.Context, date time.Time, grade string) error {
	p.store.Dispatch(Loading(KindAttendance))
	att, err := p.repo.GetAttendanceByDate(ctx, date, NormalizeGrade(grade))
	if err != nil {
		return p.fail(KindAttendance, err, "getting attendance by date")
	}
	p.store.Dispatch(AttendanceFetched(att))
	return nil
}

func (p *Provider) GetAttendanceByMonth(ctx context.Context, grade string, month time.Month, year int) error {
	p.store.Dispatch(Loading(KindMonthAttendance))
	att, err := p.repo.GetAttendanceByMonth(ctx, NormalizeGrade(grade), month, year)
	if err != nil {
		return p.fail(KindMonthAttendance, err, "getting attendance by month")
	}
	p.store.Dispatch(AttendancesFetched(att))
	return nil
}

func (p *Provider) SetAttendance(ctx context.Context, attendance Attendance) error {
	p.store.Dispatch(Loading(KindAttendanceSet))
	saved, err := p.repo.SetAttendance(ctx, attendance.Normalized())
	if err != nil {
		return p.fail(KindAttendanceSet, err, "setting attendance")
	}
	p.store.Dispatch(AttendanceStored(saved))
	p.invalidate(ctx, AttendanceTopic(saved.Grade))
	return nil
}

func (p *Provider) GetObservationByID(ctx context.Context, id string) error {
	p.store.Dispatch(Loading(KindObservations))
	obs, err := p.repo.GetObservationsByID(ctx, id)
	if err != nil {
		return p.fail(KindObservations, err, "getting observations")
	}
	p.store.Dispatch(ObservationsFetched(obs))
	return nil
}

func (p *Provider) SetObservation(ctx context.Context, obs Observation) error {
	p.store.Dispatch(Loading(KindObservationSet))
	if err := p.repo.SetObservation(ctx, obs); err != nil {
		return p.fail(KindObservationSet, err, "setting observation")
	}
	p.store.Dispatch(Stored(KindObservationSet))
	p.invalidate(ctx, ObservationsTopic(obs.RefID))
	return nil
}

func (p *Provider) GetRegistersByID(ctx context.Context, id string) error {
	p.store.Dispatch(Loading(KindSchoolRegisters))
	regs, err := p.repo.GetSchoolRegistersByID(ctx, id)
	if err != nil {
		return p.fail(KindSchoolRegisters, err, "getting school registers")
	}
	p.store.Dispatch(SchoolRegistersFetched(regs))
	return nil
}

func (p *Provider) SetSchoolRegister(ctx context.Context, reg SchoolRegister) error {
	p.store.Dispatch(Loading(KindSchoolRegisterSet))
	if err := p.repo.SetSchoolRegister(ctx, reg); err != nil {
		return p.fail(KindSchoolRegisterSet, err, "setting school register")
	}
	p.store.Dispatch(Stored(KindSchoolRegisterSet))
	p.invalidate(ctx, RegistersTopic(reg.RefID))
	return nil
}

func (p *Provider) SetEvaluationsByOA(ctx context.Context, eval Evaluation) error {
	p.store.Dispatch(Loading(KindEvaluationsByOASet))
	eval.Grade = NormalizeGrade(eval.Grade)
	if err := p.repo.SetEvaluationsByOA(ctx, eval); err != nil {
		return p.fail(KindEvaluationsByOASet, err, "setting evaluations by OA")
	}
	p.store.Dispatch(Stored(KindEvaluationsByOASet))
	p.invalidate(ctx, EvaluationsTopic(eval.Grade))
	return nil
}

func (p *Provider) GetEvaluationsByGrade(ctx context.Context, grade string) error {
	p.store.Dispatch(Loading(KindEvaluationsByOA))
	evals, err := p.repo.GetEvaluationsByGrade(ctx, NormalizeGrade(grade))
	if err != nil {
		return p.fail(KindEvaluationsByOA, err, "getting evaluations by grade")
	}
	p.store.Dispatch(EvaluationsFetched(evals))
	return nil
}

func (p *Provider) GetSpeechBases(ctx context.Context, level string) error {
	p.store.Dispatch(Loading(KindSpeechBases))
	bases, err := p.repo.GetSpeechBases(ctx, level)
	if err != nil {
		return p.fail(KindSpeechBases, err, "getting speech bases")
	}
	p.store.Dispatch(SpeechBasesFetched(bases))
	return nil
}

func (p *Provider) GetSpeechRegisters(ctx context.Context, grade string) error {
	p.store.Dispatch(Loading(KindSpeechRegisters))
	regs, err := p.repo.GetSpeechRegisters(ctx, NormalizeGrade(grade))
	if err != nil {
		return p.fail(KindSpeechRegisters, err, "getting speech registers")
	}
	p.store.Dispatch(SpeechRegistersFetched(regs))
	return nil
}

func (p *Provider) SetSpeechRegister(ctx context.Context, reg SpeechRegister) error {
	p.store.Dispatch(Loading(KindSpeechRegisterSet))
	if err := p.repo.SetSpeechRegister(ctx, reg); err != nil {
		return p.fail(KindSpeechRegisterSet, err, "setting speech register")
	}
	p.store.Dispatch(Stored(KindSpeechRegisterSet))
	p.invalidate(ctx, SpeechRegistersTopic(reg.Grade))
	return nil
}

// SaveSpeechRegister writes reg, then refetches the registers of its grade.
// The refetch is skipped when the write fails.
func (p *Provider) SaveSpeechRegister(ctx context.Context, reg SpeechRegister) error {
	if err := p.SetSpeechRegister(ctx, reg); err != nil {
		return err
	}
	return p.GetSpeechRegisters(ctx, reg.Grade)
}
