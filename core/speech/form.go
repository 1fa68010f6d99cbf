// Package speech implements the speech-therapy ("TEL") session registration form.
package speech

import (
	"context"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
)

// RegisterIDPrefix prefixes the id of every speech register.
const RegisterIDPrefix = "reg-fono-"

var (
	// Modes are the session modalities offered by the form.
	Modes = []string{"Individual", "Grupal"}

	errInvalidForm = errors.New("invalid speech register form")

	fieldMessages = map[string]string{
		"mode":           "La modalidad es obligatoria",
		"ambit":          "El nivel fonoaudiológico es obligatorio",
		"content":        "El contenido es obligatorio",
		"studentsSpeech": "Los estudiantes son obligatorios",
	}

	nowFunc = time.Now // mockable
)

// Planner is the part of the school state the form depends on.
type Planner interface {
	State() school.State
	GetSpeechBases(ctx context.Context, level string) error
	SaveSpeechRegister(ctx context.Context, reg school.SpeechRegister) error
}

// Values holds the form fields.
type Values struct {
	Mode           string           `json:"mode" validate:"required"`
	Ambit          string           `json:"ambit" validate:"required"`
	Content        []string         `json:"content" validate:"required,min=1"`
	StudentsSpeech []school.Student `json:"studentsSpeech" validate:"required,min=1"`
	Register       string           `json:"register"`
}

type Form struct {
	planner    Planner
	validate   *validator.Validate
	translator ut.Translator

	grade  string // as received, e.g. "5-a"
	level  string
	user   string
	values Values
}

// NewForm returns the form for gradeParam ("<number>-<letter>"). user is recorded as the register author.
func NewForm(planner Planner, validate *validator.Validate, translator ut.Translator, gradeParam, user string) (*Form, error) {
	grade := strings.TrimSpace(gradeParam)
	g, err := school.ParseGrade(grade)
	if err != nil {
		return nil, err
	}
	return &Form{
		planner:    planner,
		validate:   validate,
		translator: translator,
		grade:      grade,
		level:      g.Level,
		user:       user,
	}, nil
}

func (f *Form) Grade() string  { return strings.ToUpper(f.grade) }
func (f *Form) Level() string  { return f.level }
func (f *Form) Values() Values { return f.values }

// Loading reports whether the speech bases are still loading.
func (f *Form) Loading() bool { return f.planner.State().SpeechBases.Loading }

// Load fetches the speech bases for the form's level, unless some are already loaded.
func (f *Form) Load(ctx context.Context) error {
	if len(f.planner.State().SpeechBases.Data) > 0 {
		return nil
	}
	return f.planner.GetSpeechBases(ctx, strings.ToUpper(f.level))
}

// Ambits returns the distinct ambits of the loaded speech bases.
func (f *Form) Ambits() []string {
	bases := f.planner.State().SpeechBases.Data
	ambits := make([]string, 0, len(bases))
	for _, b := range bases {
		ambits = append(ambits, b.Ambit)
	}
	return core.Distinct(ambits)
}

// Contents returns the distinct contents of the selected ambit.
func (f *Form) Contents() []string {
	return contentsOf(f.planner.State().SpeechBases.Data, f.values.Ambit)
}

func contentsOf(bases []school.SpeechBase, ambit string) []string {
	contents := make([]string, 0)
	for _, b := range bases {
		if b.Ambit == ambit {
			contents = append(contents, b.Content)
		}
	}
	return core.Distinct(contents)
}

// Students returns the enrolled students of the form's grade.
func (f *Form) Students() []school.Student {
	grade := f.Grade()
	students := make([]school.Student, 0)
	for _, s := range f.planner.State().Students.Data {
		if s.Grade == grade {
			students = append(students, s)
		}
	}
	return students
}

func (f *Form) SetMode(mode string) { f.values.Mode = mode }

// SetAmbit selects ambit and drops the selected contents that do not belong to it.
func (f *Form) SetAmbit(ambit string) {
	f.values.Ambit = ambit
	if f.values.Content == nil {
		return
	}
	allowed := make(map[string]struct{})
	for _, c := range f.Contents() {
		allowed[c] = struct{}{}
	}
	kept := make([]string, 0, len(f.values.Content))
	for _, c := range f.values.Content {
		if _, ok := allowed[c]; ok {
			kept = append(kept, c)
		}
	}
	f.values.Content = kept
}

func (f *Form) SetContents(contents []string)         { f.values.Content = contents }
func (f *Form) SetStudents(students []school.Student) { f.values.StudentsSpeech = students }
func (f *Form) SetRegister(register string)           { f.values.Register = register }

// Fill sets every field at once; the ambit is applied last so contents stay consistent with it.
func (f *Form) Fill(v Values) {
	f.SetMode(v.Mode)
	f.SetStudents(v.StudentsSpeech)
	f.SetRegister(v.Register)
	f.SetContents(v.Content)
	f.SetAmbit(v.Ambit)
}

func (f *Form) Reset() { f.values = Values{} }

// Validate checks that mode, ambit, content and studentsSpeech are present.
// It returns the error messages keyed by field; the map is empty when the form is valid.
func (f *Form) Validate() map[string]string {
	errs := make(map[string]string)
	for _, fe := range f.fieldErrors() {
		errs[fe.Field] = fe.Error
	}
	return errs
}

func (f *Form) fieldErrors() []core.FieldError {
	err := f.validate.Struct(f.values)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []core.FieldError{{Field: "form", Error: err.Error()}}
	}
	flds := make([]core.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Translate(f.translator)
		}
		flds = append(flds, core.FieldError{Field: fe.Field(), Error: msg})
	}
	return flds
}

// Submit validates the form, then writes the composed register and refetches
// the grade's registers. Nothing is written when the form is invalid.
// The form is reset after a successful write.
func (f *Form) Submit(ctx context.Context) (school.SpeechRegister, error) {
	if flds := f.fieldErrors(); len(flds) > 0 {
		return school.SpeechRegister{}, core.NewValidationError(errInvalidForm, flds...)
	}

	reg := f.compose(nowFunc())
	if err := f.planner.SaveSpeechRegister(ctx, reg); err != nil {
		return school.SpeechRegister{}, errors.Wrap(err, "saving speech register")
	}
	f.Reset()
	return reg, nil
}

func (f *Form) compose(now time.Time) school.SpeechRegister {
	students := make([]school.RegisterStudent, 0, len(f.values.StudentsSpeech))
	for _, s := range f.values.StudentsSpeech {
		students = append(students, school.RegisterStudent{Selected: s.Name})
	}
	contents := make([]school.RegisterContent, 0, len(f.values.Content))
	for _, c := range f.values.Content {
		contents = append(contents, school.RegisterContent{
			Content: school.ContentItem{Ambit: f.values.Ambit, Content: c},
		})
	}
	return school.SpeechRegister{
		ID:           RegisterIDPrefix + f.grade + "-" + strconv.FormatInt(now.UnixMilli(), 10),
		Students:     students,
		Grade:        f.Grade(),
		Contents:     contents,
		Mode:         f.values.Mode,
		Observations: f.values.Register,
		User:         f.user,
		PublishedAt:  now.UTC(),
	}
}
