package school

import (
	"time"
)

// DateLayout is the layout of calendar days exchanged with the API.
const DateLayout = "2006-01-02"

type Student struct {
	ID        string `json:"id"`
	SchoolID  string `json:"school_id" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Grade     string `json:"grade" validate:"required,grade"`

	// display fields, computed by DecorateStudent
	Name   string `json:"name"`
	Level  string `json:"level"`
	Letter string `json:"letter"`
}

type AttendanceEntry struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Present   bool   `json:"present"`
}

// Attendance is the roll call of a grade for one day.
type Attendance struct {
	ID      string            `json:"id"`
	Grade   string            `json:"grade" validate:"required,grade"`
	Date    time.Time         `json:"date" validate:"required"`
	Month   time.Month        `json:"month"`
	Year    int               `json:"year"`
	Entries []AttendanceEntry `json:"entries"`
}

// Normalized truncates Date to the UTC day and derives Month and Year from it.
func (a Attendance) Normalized() Attendance {
	y, m, d := a.Date.Date()
	a.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	a.Month = m
	a.Year = y
	a.Grade = NormalizeGrade(a.Grade)
	if a.Entries == nil {
		a.Entries = []AttendanceEntry{}
	}
	return a
}

// Day returns the attendance date formatted with DateLayout.
func (a Attendance) Day() string { return a.Date.Format(DateLayout) }

type Observation struct {
	ID        string    `json:"id"`
	RefID     string    `json:"ref_id" validate:"required"`
	Grade     string    `json:"grade"`
	StudentID string    `json:"student_id"`
	Text      string    `json:"text" validate:"required"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type SchoolRegister struct {
	ID        string    `json:"id"`
	RefID     string    `json:"ref_id" validate:"required"`
	Grade     string    `json:"grade"`
	Date      time.Time `json:"date"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content" validate:"required"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type EvaluationEntry struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
}

// Evaluation holds the scores of a grade for one learning objective (OA).
type Evaluation struct {
	ID        string            `json:"id"`
	Grade     string            `json:"grade" validate:"required,grade"`
	OA        string            `json:"oa" validate:"required"`
	Entries   []EvaluationEntry `json:"entries"`
	Author    string            `json:"author"`
	CreatedAt time.Time         `json:"created_at"`
}

// SpeechBase is an entry of the speech-therapy lookup table: a content grouped under an ambit.
type SpeechBase struct {
	Level   string `json:"nivel"`
	Ambit   string `json:"ambito"`
	Content string `json:"contenido"`
}

type RegisterStudent struct {
	Selected string `json:"alumnoSeleccionado"`
}

type ContentItem struct {
	Ambit   string `json:"ambito"`
	Content string `json:"contenido"`
}

type RegisterContent struct {
	Content ContentItem `json:"contenido"`
}

// SpeechRegister is a submitted speech-therapy ("TEL") session plan. It is immutable once created.
type SpeechRegister struct {
	ID           string            `json:"id" validate:"required"`
	Students     []RegisterStudent `json:"alumnos" validate:"required,min=1"`
	Grade        string            `json:"curso" validate:"required"`
	Contents     []RegisterContent `json:"contenidos" validate:"required,min=1"`
	Mode         string            `json:"modalidad" validate:"required"`
	Observations string            `json:"observaciones"`
	User         string            `json:"usuario"`
	PublishedAt  time.Time         `json:"publishedAt"`
}
