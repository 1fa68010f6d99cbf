package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core/school"
)

func setup(t *testing.T) *DB {
	db, err := Open()
	require.NoError(t, err)
	db.SeedSpeechBases(
		school.SpeechBase{Level: "5", Ambit: "Fonológico", Content: "Rimas"},
		school.SpeechBase{Level: "5", Ambit: "Semántico", Content: "Sinónimos"},
		school.SpeechBase{Level: "6", Ambit: "Fonológico", Content: "Rimas"},
	)
	return db
}

func TestSchoolRepository(t *testing.T) {
	repo := NewSchoolRepository(setup(t))
	ctx := context.Background()

	stu, err := repo.SetStudent(ctx, school.Student{SchoolID: "s1", FirstName: "Ana", Grade: "5-A"})
	require.NoError(t, err)
	students, err := repo.GetStudentsBySchool(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []school.Student{stu}, students)

	date := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	first, err := repo.SetAttendance(ctx, school.Attendance{Grade: "5-A", Date: date})
	require.NoError(t, err)
	second, err := repo.SetAttendance(ctx, school.Attendance{Grade: "5-a", Date: date.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	atts, err := repo.GetAttendanceByMonth(ctx, "5-A", time.March, 2024)
	require.NoError(t, err)
	assert.Len(t, atts, 1)

	require.NoError(t, repo.SetEvaluationsByOA(ctx, school.Evaluation{Grade: "5-A", OA: "OA1"}))
	require.NoError(t, repo.SetEvaluationsByOA(ctx, school.Evaluation{Grade: "5-A", OA: "OA1", Author: "b"}))
	evals, err := repo.GetEvaluationsByGrade(ctx, "5-A")
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, "b", evals[0].Author)

	bases, err := repo.GetSpeechBases(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, []school.SpeechBase{
		{Level: "5", Ambit: "Fonológico", Content: "Rimas"},
		{Level: "5", Ambit: "Semántico", Content: "Sinónimos"},
	}, bases)

	regs, err := repo.GetSpeechRegisters(ctx, "5-A")
	require.NoError(t, err)
	assert.NotNil(t, regs)
	assert.Empty(t, regs)
}

func TestSchoolRepository_SetSpeechRegister(t *testing.T) {
	repo := NewSchoolRepository(setup(t))
	ctx := context.Background()

	reg := school.SpeechRegister{
		ID:       "reg-fono-5-A-1",
		Students: []school.RegisterStudent{{Selected: "Ana"}},
		Grade:    "5-A",
		Contents: []school.RegisterContent{{Content: school.ContentItem{Ambit: "Fonológico", Content: "Rimas"}}},
		Mode:     "Grupal",
	}
	require.NoError(t, repo.SetSpeechRegister(ctx, reg))

	changed := reg
	changed.Mode = "Individual"
	assert.Equal(t, school.ErrRegisterSet, repo.SetSpeechRegister(ctx, changed))

	regs, err := repo.GetSpeechRegisters(ctx, "5-A")
	require.NoError(t, err)
	assert.Equal(t, []school.SpeechRegister{reg}, regs, "registers are immutable")
}
