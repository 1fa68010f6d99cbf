package school

// Slice is the {data, error, loading} triple tracked per resource.
// Data keeps the last successful payload; it is not rolled back on error.
type Slice[T any] struct {
	Data    T    `json:"data"`
	Error   bool `json:"error"`
	Loading bool `json:"loading"`
}

type State struct {
	Students        Slice[[]Student]        `json:"students"`
	Student         Slice[Student]          `json:"student"`
	Attendance      Slice[[]Attendance]     `json:"attendance"`      // by date
	MonthAttendance Slice[[]Attendance]     `json:"monthAttendance"` // by month
	SavedAttendance Slice[Attendance]       `json:"savedAttendance"` // last set
	Observations    Slice[[]Observation]    `json:"observations"`
	SchoolRegisters Slice[[]SchoolRegister] `json:"schoolRegisters"`
	EvaluationsByOA Slice[[]Evaluation]     `json:"evaluationsByOa"`
	SpeechBases     Slice[[]SpeechBase]     `json:"speechBases"`
	SpeechRegisters Slice[[]SpeechRegister] `json:"speechRegisters"`
}

// InitialState is the state before any request: empty data, loading everywhere
// except the attendance write slice.
func InitialState() State {
	return State{
		Students:        Slice[[]Student]{Data: []Student{}, Loading: true},
		Student:         Slice[Student]{Loading: true},
		Attendance:      Slice[[]Attendance]{Data: []Attendance{}, Loading: true},
		MonthAttendance: Slice[[]Attendance]{Data: []Attendance{}, Loading: true},
		SavedAttendance: Slice[Attendance]{},
		Observations:    Slice[[]Observation]{Data: []Observation{}, Loading: true},
		SchoolRegisters: Slice[[]SchoolRegister]{Data: []SchoolRegister{}, Loading: true},
		EvaluationsByOA: Slice[[]Evaluation]{Data: []Evaluation{}, Loading: true},
		SpeechBases:     Slice[[]SpeechBase]{Data: []SpeechBase{}, Loading: true},
		SpeechRegisters: Slice[[]SpeechRegister]{Data: []SpeechRegister{}, Loading: true},
	}
}

// Reduce returns the state resulting from applying a to s. It only touches the
// slice the action's kind maps to; unknown kinds leave the state unchanged.
func Reduce(s State, a Action) State {
	init := InitialState()

	switch a.kind {
	case KindStudents:
		s.Students = reduceSlice(s.Students, a, init.Students)
	case KindStudent:
		s.Student = reduceSlice(s.Student, a, init.Student)
	case KindAttendance:
		s.Attendance = reduceSlice(s.Attendance, a, init.Attendance)
	case KindMonthAttendance:
		s.MonthAttendance = reduceSlice(s.MonthAttendance, a, init.MonthAttendance)
	case KindAttendanceSet:
		s.SavedAttendance = reduceSlice(s.SavedAttendance, a, init.SavedAttendance)
	case KindObservations, KindObservationSet:
		s.Observations = reduceSlice(s.Observations, a, init.Observations)
	case KindSchoolRegisters, KindSchoolRegisterSet:
		s.SchoolRegisters = reduceSlice(s.SchoolRegisters, a, init.SchoolRegisters)
	case KindEvaluationsByOA, KindEvaluationsByOASet:
		s.EvaluationsByOA = reduceSlice(s.EvaluationsByOA, a, init.EvaluationsByOA)
	case KindSpeechBases:
		s.SpeechBases = reduceSlice(s.SpeechBases, a, init.SpeechBases)
	case KindSpeechRegisters, KindSpeechRegisterSet:
		s.SpeechRegisters = reduceSlice(s.SpeechRegisters, a, init.SpeechRegisters)
	}
	return s
}

func reduceSlice[T any](sl Slice[T], a Action, init Slice[T]) Slice[T] {
	switch a.phase {
	case PhaseLoading:
		sl.Loading, sl.Error = true, false
	case PhaseSucceeded:
		sl.Loading, sl.Error = false, false
		// writes without payload keep the data
		if data, ok := a.payload.(T); ok {
			sl.Data = data
		}
	case PhaseFailed:
		sl.Loading, sl.Error = false, true
	case PhaseCleared:
		return init
	}
	return sl
}
