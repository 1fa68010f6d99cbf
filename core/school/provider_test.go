package school

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeRepo struct {
	Repository // unimplemented methods panic

	mu       sync.Mutex
	calls    []string
	failOn   map[string]bool
	students []Student
	bases    []SpeechBase
	regs     []SpeechRegister
	atts     []Attendance
	obs      []Observation
	sregs    []SchoolRegister
	evals    []Evaluation
}

func (r *fakeRepo) call(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if r.failOn[name] {
		return errBoom
	}
	return nil
}

func (r *fakeRepo) GetStudentsBySchool(_ context.Context, _ string) ([]Student, error) {
	if err := r.call("GetStudentsBySchool"); err != nil {
		return nil, err
	}
	return r.students, nil
}

func (r *fakeRepo) SetStudent(_ context.Context, s Student) (Student, error) {
	if err := r.call("SetStudent"); err != nil {
		return Student{}, err
	}
	s.ID = "new"
	return s, nil
}

func (r *fakeRepo) GetAttendanceByDate(_ context.Context, _ time.Time, grade string) ([]Attendance, error) {
	if err := r.call("GetAttendanceByDate:" + grade); err != nil {
		return nil, err
	}
	return r.atts, nil
}

func (r *fakeRepo) GetObservationsByID(_ context.Context, id string) ([]Observation, error) {
	if err := r.call("GetObservationsByID:" + id); err != nil {
		return nil, err
	}
	return r.obs, nil
}

func (r *fakeRepo) SetObservation(_ context.Context, o Observation) error {
	return r.call("SetObservation:" + o.RefID)
}

func (r *fakeRepo) GetSchoolRegistersByID(_ context.Context, id string) ([]SchoolRegister, error) {
	if err := r.call("GetSchoolRegistersByID:" + id); err != nil {
		return nil, err
	}
	return r.sregs, nil
}

func (r *fakeRepo) SetSchoolRegister(_ context.Context, reg SchoolRegister) error {
	return r.call("SetSchoolRegister:" + reg.RefID)
}

func (r *fakeRepo) GetEvaluationsByGrade(_ context.Context, grade string) ([]Evaluation, error) {
	if err := r.call("GetEvaluationsByGrade:" + grade); err != nil {
		return nil, err
	}
	return r.evals, nil
}

func (r *fakeRepo) GetAttendanceByMonth(_ context.Context, grade string, _ time.Month, _ int) ([]Attendance, error) {
	if err := r.call("GetAttendanceByMonth:" + grade); err != nil {
		return nil, err
	}
	return r.atts, nil
}

func (r *fakeRepo) SetAttendance(_ context.Context, a Attendance) (Attendance, error) {
	if err := r.call("SetAttendance"); err != nil {
		return Attendance{}, err
	}
	a.ID = "att"
	return a, nil
}

func (r *fakeRepo) SetEvaluationsByOA(_ context.Context, e Evaluation) error {
	return r.call("SetEvaluationsByOA:" + e.Grade)
}

func (r *fakeRepo) GetSpeechBases(_ context.Context, level string) ([]SpeechBase, error) {
	if err := r.call("GetSpeechBases:" + level); err != nil {
		return nil, err
	}
	return r.bases, nil
}

func (r *fakeRepo) GetSpeechRegisters(_ context.Context, grade string) ([]SpeechRegister, error) {
	if err := r.call("GetSpeechRegisters:" + grade); err != nil {
		return nil, err
	}
	return r.regs, nil
}

func (r *fakeRepo) SetSpeechRegister(_ context.Context, reg SpeechRegister) error {
	if err := r.call("SetSpeechRegister"); err != nil {
		return err
	}
	r.regs = append(r.regs, reg)
	return nil
}

type logEntry struct {
	level, msg string
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *fakeLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *fakeLogger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *fakeLogger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *fakeLogger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *fakeLogger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *fakeLogger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

type fakeNotifier struct {
	topics []string
	err    error
}

func (n *fakeNotifier) Publish(_ context.Context, topic string) error {
	if n.err != nil {
		return n.err
	}
	n.topics = append(n.topics, topic)
	return nil
}

func (n *fakeNotifier) Close() error { return nil }

func newTestProvider(repo *fakeRepo) (*Provider, *fakeLogger, *fakeNotifier) {
	logger, notifier := new(fakeLogger), new(fakeNotifier)
	return NewProvider(NewStore(), repo, logger, notifier), logger, notifier
}

func TestProvider_GetStudentsBySchool(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{students: []Student{{ID: "1", FirstName: "Ana", LastName: "Pérez", Grade: "5-a"}}}
	p, logger, _ := newTestProvider(repo)

	var phases []string
	p.Subscribe(func(st State) {
		phases = append(phases, fmt.Sprintf("loading=%t error=%t n=%d", st.Students.Loading, st.Students.Error, len(st.Students.Data)))
	})

	require.NoError(t, p.GetStudentsBySchool(ctx, "s1"))
	want := []Student{{ID: "1", FirstName: "Ana", LastName: "Pérez", Name: "Ana Pérez", Grade: "5-A", Level: "5", Letter: "A"}}
	if diff := cmp.Diff(want, p.State().Students.Data); diff != "" {
		t.Errorf("students mismatch (-want +got):\n%s", diff)
	}

	repo.failOn = map[string]bool{"GetStudentsBySchool": true}
	err := p.GetStudentsBySchool(ctx, "s1")
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.Equal(t, want, p.State().Students.Data, "data kept on error")

	assert.Equal(t, []string{
		"loading=true error=false n=0",
		"loading=false error=false n=1",
		"loading=true error=false n=1",
		"loading=false error=true n=1",
	}, phases)
	require.Len(t, logger.entries, 1)
	assert.Equal(t, "error", logger.entries[0].level)
	assert.Contains(t, logger.entries[0].msg, "GET_STUDENTS")
}

func TestProvider_actions(t *testing.T) {
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		call      string // repo call made
		run       func(ctx context.Context, p *Provider) error
		slice     func(State) (loading, errored bool, n int)
		n         int    // items held after success
		wantTopic string // published on success
	}{
		{
			name: "GetAttendanceByDate", call: "GetAttendanceByDate:5-A", n: 1,
			run: func(ctx context.Context, p *Provider) error { return p.GetAttendanceByDate(ctx, day, "5-a") },
			slice: func(s State) (bool, bool, int) {
				return s.Attendance.Loading, s.Attendance.Error, len(s.Attendance.Data)
			},
		},
		{
			name: "GetObservationByID", call: "GetObservationsByID:st1", n: 1,
			run: func(ctx context.Context, p *Provider) error { return p.GetObservationByID(ctx, "st1") },
			slice: func(s State) (bool, bool, int) {
				return s.Observations.Loading, s.Observations.Error, len(s.Observations.Data)
			},
		},
		{
			name: "SetObservation", call: "SetObservation:st1", wantTopic: "observations:st1",
			run: func(ctx context.Context, p *Provider) error {
				return p.SetObservation(ctx, Observation{RefID: "st1", Text: "Participa"})
			},
			slice: func(s State) (bool, bool, int) {
				return s.Observations.Loading, s.Observations.Error, len(s.Observations.Data)
			},
		},
		{
			name: "GetRegistersByID", call: "GetSchoolRegistersByID:5-A", n: 1,
			run: func(ctx context.Context, p *Provider) error { return p.GetRegistersByID(ctx, "5-A") },
			slice: func(s State) (bool, bool, int) {
				return s.SchoolRegisters.Loading, s.SchoolRegisters.Error, len(s.SchoolRegisters.Data)
			},
		},
		{
			name: "SetSchoolRegister", call: "SetSchoolRegister:5-A", wantTopic: "registers:5-A",
			run: func(ctx context.Context, p *Provider) error {
				return p.SetSchoolRegister(ctx, SchoolRegister{RefID: "5-A", Content: "Lectura"})
			},
			slice: func(s State) (bool, bool, int) {
				return s.SchoolRegisters.Loading, s.SchoolRegisters.Error, len(s.SchoolRegisters.Data)
			},
		},
		{
			name: "GetEvaluationsByGrade", call: "GetEvaluationsByGrade:5-A", n: 1,
			run: func(ctx context.Context, p *Provider) error { return p.GetEvaluationsByGrade(ctx, "5-a") },
			slice: func(s State) (bool, bool, int) {
				return s.EvaluationsByOA.Loading, s.EvaluationsByOA.Error, len(s.EvaluationsByOA.Data)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := &fakeRepo{
				atts:  []Attendance{{ID: "a1", Grade: "5-A", Date: day}},
				obs:   []Observation{{ID: "o1", RefID: "st1", Text: "Participa"}},
				sregs: []SchoolRegister{{ID: "r1", RefID: "5-A", Content: "Lectura"}},
				evals: []Evaluation{{ID: "e1", Grade: "5-A", OA: "OA1"}},
			}
			p, logger, notifier := newTestProvider(repo)

			var phases []string
			p.Subscribe(func(st State) {
				loading, errored, n := tt.slice(st)
				phases = append(phases, fmt.Sprintf("loading=%t error=%t n=%d", loading, errored, n))
			})

			require.NoError(t, tt.run(ctx, p))
			repo.failOn = map[string]bool{tt.call: true}
			assert.Equal(t, errBoom, errors.Cause(tt.run(ctx, p)))

			assert.Equal(t, []string{tt.call, tt.call}, repo.calls)
			assert.Equal(t, []string{
				"loading=true error=false n=0",
				fmt.Sprintf("loading=false error=false n=%d", tt.n),
				fmt.Sprintf("loading=true error=false n=%d", tt.n),
				fmt.Sprintf("loading=false error=true n=%d", tt.n),
			}, phases)

			var wantTopics []string
			if tt.wantTopic != "" {
				wantTopics = []string{tt.wantTopic}
			}
			assert.Equal(t, wantTopics, notifier.topics)
			require.Len(t, logger.entries, 1)
			assert.Equal(t, "error", logger.entries[0].level)
		})
	}
}

func TestProvider_writes(t *testing.T) {
	ctx := context.Background()
	repo := new(fakeRepo)
	p, logger, notifier := newTestProvider(repo)

	require.NoError(t, p.SetStudent(ctx, Student{SchoolID: "s1", FirstName: "Ana", Grade: "5-a"}))
	assert.Equal(t, "new", p.State().Student.Data.ID)
	assert.Equal(t, "5-A", p.State().Student.Data.Grade)

	p.ClearStudent()
	assert.Equal(t, InitialState().Student, p.State().Student)

	date := time.Date(2024, time.March, 4, 15, 4, 5, 0, time.UTC)
	require.NoError(t, p.SetAttendance(ctx, Attendance{Grade: " 5-a", Date: date}))
	saved := p.State().SavedAttendance
	assert.False(t, saved.Loading)
	assert.Equal(t, "5-A", saved.Data.Grade)
	assert.Equal(t, time.March, saved.Data.Month)
	assert.Equal(t, 2024, saved.Data.Year)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), saved.Data.Date)

	require.NoError(t, p.SetEvaluationsByOA(ctx, Evaluation{Grade: "5-b", OA: "OA1"}))

	assert.Equal(t, []string{"students:s1", "attendance:5-A", "evaluations:5-B"}, notifier.topics)
	assert.Equal(t, []string{"SetStudent", "SetAttendance", "SetEvaluationsByOA:5-B"}, repo.calls)
	assert.Empty(t, logger.entries)

	// a failed publish does not fail the write
	notifier.err = errBoom
	require.NoError(t, p.SetEvaluationsByOA(ctx, Evaluation{Grade: "5-b", OA: "OA2"}))
	require.Len(t, logger.entries, 1)
	assert.Equal(t, "warn", logger.entries[0].level)

	// nothing is published when the write fails
	notifier.err = nil
	repo.failOn = map[string]bool{"SetAttendance": true}
	require.Error(t, p.SetAttendance(ctx, Attendance{Grade: "5-A", Date: date}))
	assert.True(t, p.State().SavedAttendance.Error)
	assert.Equal(t, "att", p.State().SavedAttendance.Data.ID)
	assert.Len(t, notifier.topics, 3)
}

func TestProvider_SaveSpeechRegister(t *testing.T) {
	ctx := context.Background()
	reg := SpeechRegister{ID: "reg-fono-5-a-1", Grade: "5-A"}

	t.Run("write then refetch", func(t *testing.T) {
		repo := new(fakeRepo)
		p, _, notifier := newTestProvider(repo)

		require.NoError(t, p.SaveSpeechRegister(ctx, reg))
		assert.Equal(t, []string{"SetSpeechRegister", "GetSpeechRegisters:5-A"}, repo.calls)
		assert.Equal(t, []SpeechRegister{reg}, p.State().SpeechRegisters.Data)
		assert.False(t, p.State().SpeechRegisters.Loading)
		assert.Equal(t, []string{"speech-registers:5-A"}, notifier.topics)
	})

	t.Run("no refetch when the write fails", func(t *testing.T) {
		repo := &fakeRepo{failOn: map[string]bool{"SetSpeechRegister": true}}
		p, logger, notifier := newTestProvider(repo)

		err := p.SaveSpeechRegister(ctx, reg)
		assert.Equal(t, errBoom, errors.Cause(err))
		assert.Equal(t, []string{"SetSpeechRegister"}, repo.calls)
		assert.True(t, p.State().SpeechRegisters.Error)
		assert.Empty(t, notifier.topics)
		assert.Len(t, logger.entries, 1)
	})
}

func TestProvider_grades(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{bases: []SpeechBase{{Level: "5", Ambit: "Fonológico", Content: "Rimas"}}}
	p, _, _ := newTestProvider(repo)

	require.NoError(t, p.GetAttendanceByMonth(ctx, "5-a ", time.March, 2024))
	require.NoError(t, p.GetSpeechRegisters(ctx, "5-a"))
	require.NoError(t, p.GetSpeechBases(ctx, "5"))
	assert.Equal(t, []string{"GetAttendanceByMonth:5-A", "GetSpeechRegisters:5-A", "GetSpeechBases:5"}, repo.calls)
	assert.Equal(t, repo.bases, p.State().SpeechBases.Data)
}
