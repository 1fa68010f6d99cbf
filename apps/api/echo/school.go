package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
)

var (
	errInvalidDate  = errors.New("invalid date")
	errInvalidMonth = errors.New("invalid month")
	nowFunc         = time.Now // mockable
)

type schoolApi struct {
	repo       school.Repository
	logger     core.Logger
	notifier   core.Notifier
	userSvc    *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func newSchoolApi(deps ServerDeps) *schoolApi {
	return &schoolApi{
		repo:       deps.SchoolRepo,
		logger:     deps.Logger,
		notifier:   deps.Notifier,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newSchoolApi(deps)

	ag := g.Group("", jwt)
	staff := rolesMiddleware(user.RoleTeacher, user.RoleTherapist)

	ag.GET("/schools/:school/students", api.queryStudents)
	ag.POST("/schools/:school/students/import", api.importStudents, rolesMiddleware())
	ag.POST("/students", api.setStudent, rolesMiddleware())

	ag.GET("/grades/:grade/attendance", api.attendanceByDate)
	ag.GET("/grades/:grade/attendance/:year/:month", api.attendanceByMonth)
	ag.GET("/grades/:grade/attendance/:year/:month/export", api.exportAttendance)
	ag.POST("/attendance", api.setAttendance, staff)

	ag.GET("/observations/:id", api.queryObservations)
	ag.POST("/observations", api.setObservation, staff)

	ag.GET("/school-registers/:id", api.querySchoolRegisters)
	ag.POST("/school-registers", api.setSchoolRegister, staff)

	ag.GET("/grades/:grade/evaluations", api.queryEvaluations)
	ag.POST("/evaluations", api.setEvaluations, staff)

	ag.GET("/levels/:level/speech-bases", api.querySpeechBases)
	ag.GET("/grades/:grade/speech-registers", api.querySpeechRegisters)
	ag.POST("/speech-registers", api.setSpeechRegister, rolesMiddleware(user.RoleTherapist))
}

// provider returns a request-scoped provider. The returned func disposes its store.
func (api *schoolApi) provider() (*school.Provider, func()) {
	store := school.NewStore()
	return school.NewProvider(store, api.repo, api.logger, api.notifier), store.Close
}

func (api *schoolApi) bindAndValidate(ctx echo.Context, v interface{}, name string) error {
	if err := ctx.Bind(v); err != nil {
		return errors.Wrapf(err, "binding to %s", name)
	}
	return core.TranslateValidationErrors(api.validate.Struct(v), api.translator)
}

func (api *schoolApi) author(ctx echo.Context) (string, error) {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}
	return usr.DisplayName(), nil
}

// pathParam returns the named path param unescaped. The router keeps escaped
// slashes ("%2F") in raw form.
func pathParam(ctx echo.Context, name string) string {
	p := ctx.Param(name)
	if v, err := url.PathUnescape(p); err == nil {
		return v
	}
	return p
}

// Students

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	p, done := api.provider()
	defer done()

	if err := p.GetStudentsBySchool(ctx.Request().Context(), pathParam(ctx, "school")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().Students.Data)
}

func (api *schoolApi) setStudent(ctx echo.Context) error {
	var data school.Student
	if err := api.bindAndValidate(ctx, &data, "Student"); err != nil {
		return err
	}

	p, done := api.provider()
	defer done()

	if err := p.SetStudent(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p.State().Student.Data)
}

// Attendance

func (api *schoolApi) attendanceByDate(ctx echo.Context) error {
	grade, err := school.ParseGrade(ctx.Param("grade"))
	if err != nil {
		return err
	}
	date := nowFunc().UTC()
	if q := ctx.QueryParam("date"); q != "" {
		if date, err = time.Parse(school.DateLayout, q); err != nil {
			return core.NewValidationError(errInvalidDate, core.FieldError{Field: "date", Error: "la fecha debe tener el formato AAAA-MM-DD"})
		}
	}

	p, done := api.provider()
	defer done()

	if err = p.GetAttendanceByDate(ctx.Request().Context(), date, grade.String()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().Attendance.Data)
}

func parseMonth(ctx echo.Context) (time.Month, int, error) {
	year, yErr := strconv.Atoi(ctx.Param("year"))
	month, mErr := strconv.Atoi(ctx.Param("month"))
	if yErr != nil || mErr != nil || month < 1 || month > 12 {
		return 0, 0, core.NewValidationError(errInvalidMonth, core.FieldError{Field: "month", Error: "el mes debe ser un número entre 1 y 12"})
	}
	return time.Month(month), year, nil
}

func (api *schoolApi) attendanceByMonth(ctx echo.Context) error {
	grade, err := school.ParseGrade(ctx.Param("grade"))
	if err != nil {
		return err
	}
	month, year, err := parseMonth(ctx)
	if err != nil {
		return err
	}

	p, done := api.provider()
	defer done()

	if err = p.GetAttendanceByMonth(ctx.Request().Context(), grade.String(), month, year); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().MonthAttendance.Data)
}

func (api *schoolApi) setAttendance(ctx echo.Context) error {
	var data school.Attendance
	if err := api.bindAndValidate(ctx, &data, "Attendance"); err != nil {
		return err
	}

	p, done := api.provider()
	defer done()

	if err := p.SetAttendance(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p.State().SavedAttendance.Data)
}

// Observations & registers

func (api *schoolApi) queryObservations(ctx echo.Context) error {
	p, done := api.provider()
	defer done()

	if err := p.GetObservationByID(ctx.Request().Context(), pathParam(ctx, "id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().Observations.Data)
}

func (api *schoolApi) setObservation(ctx echo.Context) error {
	var data school.Observation
	if err := api.bindAndValidate(ctx, &data, "Observation"); err != nil {
		return err
	}
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	if data.Author == "" {
		data.Author = author
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = nowFunc().UTC()
	}
	data.Grade = school.NormalizeGrade(data.Grade)

	p, done := api.provider()
	defer done()

	if err = p.SetObservation(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, data)
}

func (api *schoolApi) querySchoolRegisters(ctx echo.Context) error {
	p, done := api.provider()
	defer done()

	if err := p.GetRegistersByID(ctx.Request().Context(), pathParam(ctx, "id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().SchoolRegisters.Data)
}

func (api *schoolApi) setSchoolRegister(ctx echo.Context) error {
	var data school.SchoolRegister
	if err := api.bindAndValidate(ctx, &data, "SchoolRegister"); err != nil {
		return err
	}
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	now := nowFunc().UTC()
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	if data.Author == "" {
		data.Author = author
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now
	}
	if data.Date.IsZero() {
		data.Date = now
	}
	data.Grade = school.NormalizeGrade(data.Grade)

	p, done := api.provider()
	defer done()

	if err = p.SetSchoolRegister(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, data)
}

// Evaluations

func (api *schoolApi) queryEvaluations(ctx echo.Context) error {
	grade, err := school.ParseGrade(ctx.Param("grade"))
	if err != nil {
		return err
	}

	p, done := api.provider()
	defer done()

	if err = p.GetEvaluationsByGrade(ctx.Request().Context(), grade.String()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().EvaluationsByOA.Data)
}

func (api *schoolApi) setEvaluations(ctx echo.Context) error {
	var data school.Evaluation
	if err := api.bindAndValidate(ctx, &data, "Evaluation"); err != nil {
		return err
	}
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	if data.Author == "" {
		data.Author = author
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = nowFunc().UTC()
	}

	p, done := api.provider()
	defer done()

	if err = p.SetEvaluationsByOA(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Speech therapy

func (api *schoolApi) querySpeechBases(ctx echo.Context) error {
	p, done := api.provider()
	defer done()

	if err := p.GetSpeechBases(ctx.Request().Context(), pathParam(ctx, "level")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().SpeechBases.Data)
}

func (api *schoolApi) querySpeechRegisters(ctx echo.Context) error {
	grade, err := school.ParseGrade(ctx.Param("grade"))
	if err != nil {
		return err
	}

	p, done := api.provider()
	defer done()

	if err = p.GetSpeechRegisters(ctx.Request().Context(), grade.String()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.State().SpeechRegisters.Data)
}

func (api *schoolApi) setSpeechRegister(ctx echo.Context) error {
	var data school.SpeechRegister
	if err := api.bindAndValidate(ctx, &data, "SpeechRegister"); err != nil {
		return err
	}
	data.Grade = school.NormalizeGrade(data.Grade)
	if data.PublishedAt.IsZero() {
		data.PublishedAt = nowFunc().UTC()
	}

	p, done := api.provider()
	defer done()

	if err := p.SetSpeechRegister(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, data)
}
