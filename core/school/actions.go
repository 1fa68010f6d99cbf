package school

import "fmt"

// Kind identifies the use case an Action belongs to. The set is closed:
// Reduce has one case per kind.
type Kind int

const (
	KindStudents Kind = iota + 1
	KindStudent
	KindAttendance
	KindMonthAttendance
	KindAttendanceSet
	KindObservations
	KindObservationSet
	KindSchoolRegisters
	KindSchoolRegisterSet
	KindEvaluationsByOA
	KindEvaluationsByOASet
	KindSpeechBases
	KindSpeechRegisters
	KindSpeechRegisterSet
)

var kindNames = map[Kind]string{
	KindStudents:           "GET_STUDENTS",
	KindStudent:            "SET_STUDENT",
	KindAttendance:         "GET_ATTENDANCE",
	KindMonthAttendance:    "GET_ATTENDANCES",
	KindAttendanceSet:      "SET_ATTENDANCE",
	KindObservations:       "GET_OBSERVATIONS",
	KindObservationSet:     "SET_OBSERVATIONS",
	KindSchoolRegisters:    "GET_SCHOOL_REGISTERS",
	KindSchoolRegisterSet:  "SET_SCHOOL_REGISTERS",
	KindEvaluationsByOA:    "GET_EVALUATIONS_BY_OA",
	KindEvaluationsByOASet: "SET_EVALUATIONS_BY_OA",
	KindSpeechBases:        "GET_SPEECH_BASES",
	KindSpeechRegisters:    "GET_SPEECH_REGISTERS",
	KindSpeechRegisterSet:  "SET_SPEECH_REGISTER",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Phase is the step of a use case an Action reports.
type Phase int

const (
	PhaseLoading Phase = iota + 1
	PhaseSucceeded
	PhaseFailed
	PhaseCleared
)

// Action is a state transition request. Build it with the constructors below;
// they pin the payload type of each kind.
type Action struct {
	kind    Kind
	phase   Phase
	payload interface{}
}

func (a Action) Kind() Kind   { return a.kind }
func (a Action) Phase() Phase { return a.phase }

func (a Action) String() string {
	switch a.phase {
	case PhaseLoading:
		return a.kind.String() + "_LOADING"
	case PhaseFailed:
		return a.kind.String() + "_ERROR"
	case PhaseCleared:
		return a.kind.String() + "_CLEAN"
	}
	return a.kind.String()
}

func Loading(k Kind) Action { return Action{kind: k, phase: PhaseLoading} }
func Failed(k Kind) Action  { return Action{kind: k, phase: PhaseFailed} }

// Stored reports a successful write whose response carries no data.
func Stored(k Kind) Action { return Action{kind: k, phase: PhaseSucceeded} }

// ClearStudent resets the Student slice to its initial value.
func ClearStudent() Action { return Action{kind: KindStudent, phase: PhaseCleared} }

func succeeded(k Kind, payload interface{}) Action {
	return Action{kind: k, phase: PhaseSucceeded, payload: payload}
}

func StudentsFetched(students []Student) Action { return succeeded(KindStudents, students) }
func StudentSet(student Student) Action         { return succeeded(KindStudent, student) }

func AttendanceFetched(att []Attendance) Action  { return succeeded(KindAttendance, att) }
func AttendancesFetched(att []Attendance) Action { return succeeded(KindMonthAttendance, att) }
func AttendanceStored(att Attendance) Action     { return succeeded(KindAttendanceSet, att) }

func ObservationsFetched(obs []Observation) Action { return succeeded(KindObservations, obs) }

func SchoolRegistersFetched(regs []SchoolRegister) Action {
	return succeeded(KindSchoolRegisters, regs)
}

func EvaluationsFetched(evals []Evaluation) Action { return succeeded(KindEvaluationsByOA, evals) }

func SpeechBasesFetched(bases []SpeechBase) Action { return succeeded(KindSpeechBases, bases) }

func SpeechRegistersFetched(regs []SpeechRegister) Action {
	return succeeded(KindSpeechRegisters, regs)
}
