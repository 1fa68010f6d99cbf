// Package rostersvc reads student rosters from and writes attendance sheets to Excel workbooks.
package rostersvc

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
)

var (
	ErrNoSheet     = errors.New("the workbook has no sheet")
	ErrMissingCols = errors.New("the roster needs the columns nombres, apellidos and curso")

	// accepted header names, lower-cased
	headerAliases = map[string]string{
		"id":         "id",
		"rut":        "id",
		"nombres":    "first_name",
		"nombre":     "first_name",
		"first_name": "first_name",
		"apellidos":  "last_name",
		"apellido":   "last_name",
		"last_name":  "last_name",
		"curso":      "grade",
		"grade":      "grade",
	}
)

// RowError reports a roster row that could not be read. Row is 1-based, as shown by spreadsheet apps.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ReadStudents reads the students of the first sheet of the workbook. The first row holds the headers.
// Rows with a missing name or a malformed grade are reported and skipped.
func ReadStudents(r io.Reader, schoolID string) ([]school.Student, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	if len(rows) == 0 {
		return []school.Student{}, nil, nil
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		if name, ok := headerAliases[core.CleanString(h, true /* lower */)]; ok {
			cols[name] = i
		}
	}
	for _, required := range []string{"first_name", "last_name", "grade"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, ErrMissingCols
		}
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	students := make([]school.Student, 0, len(rows)-1)
	var rowErrs []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		stu := school.Student{
			ID:        cell(row, "id"),
			SchoolID:  schoolID,
			FirstName: cell(row, "first_name"),
			LastName:  cell(row, "last_name"),
			Grade:     cell(row, "grade"),
		}
		if stu.FirstName == "" && stu.LastName == "" && stu.Grade == "" {
			continue // blank line
		}
		if stu.FirstName == "" && stu.LastName == "" {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Error: "el nombre es obligatorio"})
			continue
		}
		if _, err := school.ParseGrade(stu.Grade); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Error: fmt.Sprintf("curso inválido: %q", stu.Grade)})
			continue
		}
		students = append(students, school.DecorateStudent(stu))
	}
	return students, rowErrs, nil
}

// WriteMonthAttendance writes the attendance of grade for month as a workbook: one row per student,
// one column per recorded day with "P" (present) or "A" (absent), and the count of days present.
func WriteMonthAttendance(w io.Writer, grade string, month time.Month, year int, students []school.Student, atts []school.Attendance) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := fmt.Sprintf("%s %04d-%02d", school.NormalizeGrade(grade), year, int(month))
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	// students of the grade plus anyone only seen in the roll calls
	type line struct{ id, name string }
	lines := make([]line, 0, len(students))
	seen := make(map[string]bool)
	for _, s := range students {
		if s.Grade != school.NormalizeGrade(grade) || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		lines = append(lines, line{id: s.ID, name: s.Name})
	}
	for _, a := range atts {
		for _, e := range a.Entries {
			if !seen[e.StudentID] {
				seen[e.StudentID] = true
				lines = append(lines, line{id: e.StudentID, name: e.Name})
			}
		}
	}

	set := func(col, row int, v interface{}) error {
		c, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, c, v)
	}

	if err := set(1, 1, "Alumno"); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for j, a := range atts {
		if err := set(j+2, 1, a.Date.Day()); err != nil {
			return errors.Wrap(err, "writing header")
		}
	}
	if err := set(len(atts)+2, 1, "Presentes"); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, l := range lines {
		row := i + 2
		if err := set(1, row, l.name); err != nil {
			return errors.Wrap(err, "writing student")
		}
		var present int
		for j, a := range atts {
			mark := ""
			for _, e := range a.Entries {
				if e.StudentID != l.id {
					continue
				}
				mark = "A"
				if e.Present {
					mark = "P"
					present++
				}
				break
			}
			if err := set(j+2, row, mark); err != nil {
				return errors.Wrap(err, "writing attendance")
			}
		}
		if err := set(len(atts)+2, row, present); err != nil {
			return errors.Wrap(err, "writing total")
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}
	_ = f.SetColWidth(sheet, "A", "A", 32)

	return errors.Wrap(f.Write(w), "writing workbook")
}
