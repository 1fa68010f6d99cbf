package school

import (
	"context"
	"time"
)

// Repository is the query layer: one call per (resource, operation), no retries, no batching.
//
// Set calls replace the record with the same ID, creating it when ID is empty.
// Speech registers are the exception: they are immutable, so SetSpeechRegister
// fails with ErrRegisterSet when the ID is taken.
// Gets on an unknown key return an empty list.
type Repository interface {
	GetStudentsBySchool(ctx context.Context, schoolID string) ([]Student, error)
	SetStudent(ctx context.Context, student Student) (Student, error)

	GetAttendanceByDate(ctx context.Context, date time.Time, grade string) ([]Attendance, error)
	GetAttendanceByMonth(ctx context.Context, grade string, month time.Month, year int) ([]Attendance, error)
	SetAttendance(ctx context.Context, attendance Attendance) (Attendance, error)

	GetObservationsByID(ctx context.Context, id string) ([]Observation, error)
	SetObservation(ctx context.Context, obs Observation) error

	GetSchoolRegistersByID(ctx context.Context, id string) ([]SchoolRegister, error)
	SetSchoolRegister(ctx context.Context, reg SchoolRegister) error

	GetEvaluationsByGrade(ctx context.Context, grade string) ([]Evaluation, error)
	SetEvaluationsByOA(ctx context.Context, eval Evaluation) error

	GetSpeechBases(ctx context.Context, level string) ([]SpeechBase, error)
	GetSpeechRegisters(ctx context.Context, grade string) ([]SpeechRegister, error)
	SetSpeechRegister(ctx context.Context, reg SpeechRegister) error
}
