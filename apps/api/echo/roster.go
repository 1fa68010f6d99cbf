package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
	rostersvc "github.com/trezcool/escuela/services/roster"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ImportResponse struct {
	Imported int                  `json:"imported"`
	Errors   []rostersvc.RowError `json:"errors"`
}

// importStudents reads the "file" workbook of the request and sets every valid student of it.
func (api *schoolApi) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "este campo es obligatorio"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	students, rowErrs, err := rostersvc.ReadStudents(f, pathParam(ctx, "school"))
	if err != nil {
		cause := errors.Cause(err)
		if cause == rostersvc.ErrNoSheet || cause == rostersvc.ErrMissingCols {
			return core.NewValidationError(cause)
		}
		return core.NewValidationError(errors.New("el archivo no es un libro de Excel válido"))
	}

	p, done := api.provider()
	defer done()

	res := ImportResponse{Errors: rowErrs}
	if res.Errors == nil {
		res.Errors = []rostersvc.RowError{}
	}
	for _, stu := range students {
		if err = p.SetStudent(ctx.Request().Context(), stu); err != nil {
			return err
		}
		res.Imported++
	}
	return ctx.JSON(http.StatusOK, res)
}

// exportAttendance returns the month attendance of a grade as a workbook.
// The students of the "school" query param fill the rows.
func (api *schoolApi) exportAttendance(ctx echo.Context) error {
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

	reqCtx := ctx.Request().Context()
	if schoolID := ctx.QueryParam("school"); schoolID != "" {
		if err = p.GetStudentsBySchool(reqCtx, schoolID); err != nil {
			return err
		}
	}
	if err = p.GetAttendanceByMonth(reqCtx, grade.String(), month, year); err != nil {
		return err
	}

	st := p.State()
	var buf bytes.Buffer
	if err = rostersvc.WriteMonthAttendance(&buf, grade.String(), month, year, st.Students.Data, st.MonthAttendance.Data); err != nil {
		return errors.Wrap(err, "writing attendance workbook")
	}

	fname := fmt.Sprintf("asistencia-%s-%04d-%02d.xlsx", grade, year, int(month))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fname))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
