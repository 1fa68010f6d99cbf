package speech

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/services/notify"
	"github.com/trezcool/escuela/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// countingPlanner counts the speech bases requests.
type countingPlanner struct {
	*school.Provider
	basesCalls []string
}

func (p *countingPlanner) GetSpeechBases(ctx context.Context, level string) error {
	p.basesCalls = append(p.basesCalls, level)
	return p.Provider.GetSpeechBases(ctx, level)
}

type fixture struct {
	planner  *countingPlanner
	repo     school.Repository
	notifier *notifysvc.Recorder
	ana      school.Student
	luis     school.Student
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	db.SeedSpeechBases(
		school.SpeechBase{Level: "5", Ambit: "Fonológico", Content: "Rimas"},
		school.SpeechBase{Level: "5", Ambit: "Fonológico", Content: "Sílabas"},
		school.SpeechBase{Level: "5", Ambit: "Semántico", Content: "Sinónimos"},
		school.SpeechBase{Level: "5", Ambit: "Fonológico", Content: "Rimas"},
		school.SpeechBase{Level: "6", Ambit: "Pragmático", Content: "Turnos"},
	)
	repo := inmemdb.NewSchoolRepository(db)
	ctx := context.Background()

	f := &fixture{repo: repo, notifier: notifysvc.NewRecorder()}
	for _, s := range []school.Student{
		{ID: "st1", SchoolID: "s1", FirstName: "Ana", LastName: "Pérez", Grade: "5-A"},
		{ID: "st2", SchoolID: "s1", FirstName: "Luis", LastName: "Soto", Grade: "5-A"},
		{ID: "st3", SchoolID: "s1", FirstName: "Eva", LastName: "Díaz", Grade: "5-B"},
	} {
		_, err = repo.SetStudent(ctx, s)
		require.NoError(t, err)
	}

	store := school.NewStore()
	t.Cleanup(store.Close)
	f.planner = &countingPlanner{Provider: school.NewProvider(store, repo, nopLogger{}, f.notifier)}
	require.NoError(t, f.planner.GetStudentsBySchool(ctx, "s1"))
	students := f.planner.State().Students.Data
	f.ana, f.luis = students[0], students[1]
	return f
}

func newForm(t *testing.T, f *fixture, grade string) *Form {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	form, err := NewForm(f.planner, validate, translator, grade, "Fono Pablo")
	require.NoError(t, err)
	return form
}

func mockNow(t *testing.T, now time.Time) {
	orig := nowFunc
	t.Cleanup(func() { nowFunc = orig })
	nowFunc = func() time.Time { return now }
}

func TestNewForm(t *testing.T) {
	f := setup(t)

	form := newForm(t, f, "5-a")
	assert.Equal(t, "5-A", form.Grade())
	assert.Equal(t, "5", form.Level())

	for _, grade := range []string{"", "5", "quinto-a", "5-"} {
		_, err := NewForm(f.planner, validator.New(), core.NewTranslator(), grade, "")
		assert.Equal(t, school.ErrInvalidGrade, errors.Cause(err), grade)
	}
}

func TestForm_options(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	form := newForm(t, f, "5-a")

	assert.True(t, form.Loading())
	assert.Empty(t, form.Ambits())

	require.NoError(t, form.Load(ctx))
	require.NoError(t, form.Load(ctx))
	assert.Equal(t, []string{"5"}, f.planner.basesCalls, "bases are fetched once")
	assert.False(t, form.Loading())

	assert.Equal(t, []string{"Fonológico", "Semántico"}, form.Ambits())
	assert.Empty(t, form.Contents())

	form.SetAmbit("Fonológico")
	assert.Equal(t, []string{"Rimas", "Sílabas"}, form.Contents())
	form.SetAmbit("Semántico")
	assert.Equal(t, []string{"Sinónimos"}, form.Contents())
	form.SetAmbit("Pragmático")
	assert.Empty(t, form.Contents())

	assert.Equal(t, []school.Student{f.ana, f.luis}, form.Students())
}

func TestForm_SetAmbit(t *testing.T) {
	f := setup(t)
	form := newForm(t, f, "5-A")
	require.NoError(t, form.Load(context.Background()))

	form.SetAmbit("Fonológico")
	form.SetContents([]string{"Rimas", "Sílabas"})
	form.SetAmbit("Fonológico")
	assert.Equal(t, []string{"Rimas", "Sílabas"}, form.Values().Content)

	form.SetAmbit("Semántico")
	assert.Empty(t, form.Values().Content, "contents of another ambit are dropped")
}

func TestForm_Validate(t *testing.T) {
	f := setup(t)
	form := newForm(t, f, "5-A")
	require.NoError(t, form.Load(context.Background()))

	assert.Equal(t, map[string]string{
		"mode":           "La modalidad es obligatoria",
		"ambit":          "El nivel fonoaudiológico es obligatorio",
		"content":        "El contenido es obligatorio",
		"studentsSpeech": "Los estudiantes son obligatorios",
	}, form.Validate())

	form.SetMode("Individual")
	form.SetAmbit("Fonológico")
	form.SetContents([]string{"Rimas"})
	assert.Equal(t, map[string]string{"studentsSpeech": "Los estudiantes son obligatorios"}, form.Validate())

	form.SetStudents([]school.Student{f.ana})
	assert.Empty(t, form.Validate())
}

func TestForm_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	form := newForm(t, f, "5-a")
	require.NoError(t, form.Load(ctx))
	mockNow(t, time.Date(2024, time.March, 4, 8, 0, 0, 0, time.FixedZone("CLT", -3*60*60)))

	t.Run("invalid", func(t *testing.T) {
		form.Fill(Values{Mode: "Grupal", Ambit: "Fonológico"})
		_, err := form.Submit(ctx)
		require.True(t, core.IsValidationError(err))
		vErr := errors.Cause(err).(*core.ValidationError)
		assert.Equal(t, map[string]string{
			"content":        "El contenido es obligatorio",
			"studentsSpeech": "Los estudiantes son obligatorios",
		}, vErr.FieldMap())

		regs, err := f.repo.GetSpeechRegisters(ctx, "5-A")
		require.NoError(t, err)
		assert.Empty(t, regs, "nothing is written")
		assert.Equal(t, "Grupal", form.Values().Mode, "values are kept")
	})

	t.Run("valid", func(t *testing.T) {
		form.Fill(Values{
			Mode:           "Grupal",
			Ambit:          "Fonológico",
			Content:        []string{"Rimas", "Sílabas"},
			StudentsSpeech: []school.Student{f.ana, f.luis},
			Register:       "Trabajan bien en grupo",
		})
		reg, err := form.Submit(ctx)
		require.NoError(t, err)

		data, err := json.MarshalIndent(reg, "", "  ")
		require.NoError(t, err)
		g := goldie.New(t,
			goldie.WithFixtureDir("testdata/golden"),
			goldie.WithNameSuffix(".golden"),
		)
		g.Assert(t, "speech_register", append(data, '\n'))

		assert.Equal(t, []school.SpeechRegister{reg}, f.planner.State().SpeechRegisters.Data, "registers are refetched")
		assert.Equal(t, []string{"speech-registers:5-A"}, f.notifier.Topics())
		assert.Equal(t, Values{}, form.Values(), "form is reset")
	})
}
