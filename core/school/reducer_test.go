package school

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestInitialState(t *testing.T) {
	s := InitialState()
	assert.True(t, s.Students.Loading)
	assert.True(t, s.Student.Loading)
	assert.True(t, s.Attendance.Loading)
	assert.True(t, s.MonthAttendance.Loading)
	assert.True(t, s.Observations.Loading)
	assert.True(t, s.SchoolRegisters.Loading)
	assert.True(t, s.EvaluationsByOA.Loading)
	assert.True(t, s.SpeechBases.Loading)
	assert.True(t, s.SpeechRegisters.Loading)
	assert.False(t, s.SavedAttendance.Loading)
	assert.Empty(t, s.Students.Data)
	assert.NotNil(t, s.Students.Data)
}

func TestReduce(t *testing.T) {
	students := []Student{{ID: "1", Name: "Ana"}}
	bases := []SpeechBase{{Level: "5", Ambit: "Fonológico", Content: "Rimas"}}
	att := Attendance{ID: "a1", Grade: "5-A"}

	loaded := InitialState()
	loaded.Students = Slice[[]Student]{Data: students}
	loaded.SpeechBases = Slice[[]SpeechBase]{Data: bases}

	tests := []struct {
		name   string
		state  State
		action Action
		want   func(State) State
	}{
		{
			name: "loading", state: loaded, action: Loading(KindStudents),
			want: func(s State) State { s.Students.Loading = true; return s },
		},
		{
			name: "fetched", state: InitialState(), action: StudentsFetched(students),
			want: func(s State) State { s.Students = Slice[[]Student]{Data: students}; return s },
		},
		{
			name: "failed keeps data", state: loaded, action: Failed(KindSpeechBases),
			want: func(s State) State { s.SpeechBases.Error = true; return s },
		},
		{
			name: "loading clears error",
			state: func() State {
				s := loaded
				s.SpeechBases.Error = true
				return s
			}(),
			action: Loading(KindSpeechBases),
			want:   func(s State) State { s.SpeechBases.Error, s.SpeechBases.Loading = false, true; return s },
		},
		{
			name: "stored keeps data", state: loaded, action: Stored(KindSpeechRegisterSet),
			want: func(s State) State { s.SpeechRegisters.Loading = false; return s },
		},
		{
			name: "write kinds share the read slice", state: InitialState(), action: Failed(KindObservationSet),
			want: func(s State) State { s.Observations.Loading, s.Observations.Error = false, true; return s },
		},
		{
			name: "attendance set", state: InitialState(), action: AttendanceStored(att),
			want: func(s State) State { s.SavedAttendance = Slice[Attendance]{Data: att}; return s },
		},
		{
			name: "month attendance", state: InitialState(), action: AttendancesFetched([]Attendance{att}),
			want: func(s State) State { s.MonthAttendance = Slice[[]Attendance]{Data: []Attendance{att}}; return s },
		},
		{
			name: "clear student",
			state: func() State {
				s := InitialState()
				s.Student = Slice[Student]{Data: students[0]}
				return s
			}(),
			action: ClearStudent(),
			want:   func(s State) State { s.Student = InitialState().Student; return s },
		},
		{
			name: "unknown kind", state: loaded, action: Action{kind: Kind(99), phase: PhaseFailed},
			want: func(s State) State { return s },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.want(tt.state)
			got := Reduce(tt.state, tt.action)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Reduce(%v) mismatch (-want +got):\n%s", tt.action, diff)
			}
		})
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "GET_STUDENTS_LOADING", Loading(KindStudents).String())
	assert.Equal(t, "GET_SPEECH_BASES", SpeechBasesFetched(nil).String())
	assert.Equal(t, "SET_SPEECH_REGISTER_ERROR", Failed(KindSpeechRegisterSet).String())
	assert.Equal(t, "SET_STUDENT_CLEAN", ClearStudent().String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

// kindSlices maps every kind to the flags of the slice it drives.
var kindSlices = map[Kind]func(*State) (loading, errored *bool){
	KindStudents:           func(s *State) (*bool, *bool) { return &s.Students.Loading, &s.Students.Error },
	KindStudent:            func(s *State) (*bool, *bool) { return &s.Student.Loading, &s.Student.Error },
	KindAttendance:         func(s *State) (*bool, *bool) { return &s.Attendance.Loading, &s.Attendance.Error },
	KindMonthAttendance:    func(s *State) (*bool, *bool) { return &s.MonthAttendance.Loading, &s.MonthAttendance.Error },
	KindAttendanceSet:      func(s *State) (*bool, *bool) { return &s.SavedAttendance.Loading, &s.SavedAttendance.Error },
	KindObservations:       func(s *State) (*bool, *bool) { return &s.Observations.Loading, &s.Observations.Error },
	KindObservationSet:     func(s *State) (*bool, *bool) { return &s.Observations.Loading, &s.Observations.Error },
	KindSchoolRegisters:    func(s *State) (*bool, *bool) { return &s.SchoolRegisters.Loading, &s.SchoolRegisters.Error },
	KindSchoolRegisterSet:  func(s *State) (*bool, *bool) { return &s.SchoolRegisters.Loading, &s.SchoolRegisters.Error },
	KindEvaluationsByOA:    func(s *State) (*bool, *bool) { return &s.EvaluationsByOA.Loading, &s.EvaluationsByOA.Error },
	KindEvaluationsByOASet: func(s *State) (*bool, *bool) { return &s.EvaluationsByOA.Loading, &s.EvaluationsByOA.Error },
	KindSpeechBases:        func(s *State) (*bool, *bool) { return &s.SpeechBases.Loading, &s.SpeechBases.Error },
	KindSpeechRegisters:    func(s *State) (*bool, *bool) { return &s.SpeechRegisters.Loading, &s.SpeechRegisters.Error },
	KindSpeechRegisterSet:  func(s *State) (*bool, *bool) { return &s.SpeechRegisters.Loading, &s.SpeechRegisters.Error },
}

func setFlags(s State, k Kind, loading, errored bool) State {
	l, e := kindSlices[k](&s)
	*l, *e = loading, errored
	return s
}

// failedState has every slice idle with an error.
func failedState() State {
	s := InitialState()
	for k := range kindSlices {
		s = setFlags(s, k, false, true)
	}
	return s
}

func TestReduce_everyKind(t *testing.T) {
	assert.Len(t, kindSlices, len(kindNames), "every kind maps to a slice")

	for k := KindStudents; k <= KindSpeechRegisterSet; k++ {
		k := k
		t.Run(k.String(), func(t *testing.T) {
			if _, ok := kindSlices[k]; !ok {
				t.Fatalf("kind %v has no slice", k)
			}

			start := failedState()
			want := setFlags(start, k, true, false)
			if diff := cmp.Diff(want, Reduce(start, Loading(k))); diff != "" {
				t.Errorf("Reduce(%v) mismatch (-want +got):\n%s", Loading(k), diff)
			}

			start = InitialState()
			want = setFlags(start, k, false, true)
			if diff := cmp.Diff(want, Reduce(start, Failed(k))); diff != "" {
				t.Errorf("Reduce(%v) mismatch (-want +got):\n%s", Failed(k), diff)
			}

			start = failedState()
			want = setFlags(start, k, false, false)
			if diff := cmp.Diff(want, Reduce(start, Stored(k))); diff != "" {
				t.Errorf("Reduce(%v) mismatch (-want +got):\n%s", Stored(k), diff)
			}
		})
	}
}

func TestReduce_succeeded(t *testing.T) {
	at := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	att := Attendance{ID: "a1", Grade: "5-A", Date: at, Month: time.March, Year: 2024}

	actions := []Action{
		StudentsFetched([]Student{{ID: "1", Name: "Ana", Grade: "5-A"}}),
		StudentSet(Student{ID: "1", Name: "Ana", Grade: "5-A"}),
		AttendanceFetched([]Attendance{att}),
		AttendancesFetched([]Attendance{att}),
		AttendanceStored(att),
		ObservationsFetched([]Observation{{ID: "o1", RefID: "1", Text: "Participa", CreatedAt: at}}),
		SchoolRegistersFetched([]SchoolRegister{{ID: "r1", RefID: "5-A", Content: "Lectura", Date: at}}),
		EvaluationsFetched([]Evaluation{{ID: "e1", Grade: "5-A", OA: "OA1"}}),
		SpeechBasesFetched([]SpeechBase{{Level: "5", Ambit: "Fonológico", Content: "Rimas"}}),
		SpeechRegistersFetched([]SpeechRegister{{ID: "reg-fono-5-A-1", Grade: "5-A", PublishedAt: at}}),
		Stored(KindObservationSet),
		Stored(KindSchoolRegisterSet),
		Stored(KindEvaluationsByOASet),
		Stored(KindSpeechRegisterSet),
	}
	for _, a := range actions {
		a := a
		t.Run(a.String(), func(t *testing.T) {
			once := Reduce(InitialState(), a)
			l, e := kindSlices[a.Kind()](&once)
			assert.False(t, *l)
			assert.False(t, *e)

			if diff := cmp.Diff(once, Reduce(once, a)); diff != "" {
				t.Errorf("Reduce twice mismatch (-once +twice):\n%s", diff)
			}

			// a later error keeps the data
			want := setFlags(once, a.Kind(), false, true)
			if diff := cmp.Diff(want, Reduce(once, Failed(a.Kind()))); diff != "" {
				t.Errorf("Reduce(%v) mismatch (-want +got):\n%s", Failed(a.Kind()), diff)
			}
		})
	}
}
