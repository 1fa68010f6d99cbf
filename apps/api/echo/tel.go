package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/speech"
	"github.com/trezcool/escuela/core/user"
)

const telReceiptSubject = "Registro fonoaudiológico guardado"

type telApi struct {
	*schoolApi
	mailSvc core.EmailService
}

func registerTELAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := telApi{
		schoolApi: newSchoolApi(deps),
		mailSvc:   deps.MailSvc,
	}

	tg := g.Group("/grades/:grade/tel", jwt)
	tg.GET("", api.options)
	tg.POST("", api.submit, rolesMiddleware(user.RoleTherapist))
}

type (
	TELOptions struct {
		Grade    string           `json:"grade"`
		Level    string           `json:"level"`
		Modes    []string         `json:"modes"`
		Ambits   []string         `json:"ambits"`
		Contents []string         `json:"contents"`
		Students []school.Student `json:"students"`
		Loading  bool             `json:"loading"`
	}

	TELSubmitResponse struct {
		Register  school.SpeechRegister   `json:"register"`
		Registers []school.SpeechRegister `json:"registers"`
	}
)

// options returns what the form offers for the grade: the ambits, the contents of
// the "ambit" query param and the students of the grade in the "school" query param.
func (api *telApi) options(ctx echo.Context) error {
	p, done := api.provider()
	defer done()

	form, err := speech.NewForm(p, api.validate, api.translator, ctx.Param("grade"), "")
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err = form.Load(reqCtx); err != nil {
		return err
	}
	if schoolID := ctx.QueryParam("school"); schoolID != "" {
		if err = p.GetStudentsBySchool(reqCtx, schoolID); err != nil {
			return err
		}
	}
	form.SetAmbit(ctx.QueryParam("ambit"))

	return ctx.JSON(http.StatusOK, TELOptions{
		Grade:    form.Grade(),
		Level:    form.Level(),
		Modes:    speech.Modes,
		Ambits:   form.Ambits(),
		Contents: form.Contents(),
		Students: form.Students(),
		Loading:  form.Loading(),
	})
}

// submit files the form values as a speech register of the grade and mails a receipt to the submitter.
func (api *telApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var values speech.Values
	if err = ctx.Bind(&values); err != nil {
		return errors.Wrap(err, "binding to speech.Values")
	}

	p, done := api.provider()
	defer done()

	form, err := speech.NewForm(p, api.validate, api.translator, ctx.Param("grade"), usr.DisplayName())
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if err = form.Load(reqCtx); err != nil {
		return err
	}
	form.Fill(values)

	reg, err := form.Submit(reqCtx)
	if err != nil {
		return err
	}

	if usr.Email != "" {
		api.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
			Subject:      telReceiptSubject,
			TemplateName: "speech_register",
			TemplateData: reg,
		})
	}

	return ctx.JSON(http.StatusCreated, TELSubmitResponse{
		Register:  reg,
		Registers: p.State().SpeechRegisters.Data,
	})
}
