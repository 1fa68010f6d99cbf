package rostersvc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/escuela/core/school"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReadStudents(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"RUT", "Nombres", "Apellidos", "Curso"},
		{"1-9", "Ana", "Rojas", "5-a"},
		{"", "", "", ""},
		{"2-7", "Beto", "Soto", "quinto"},
		{"3-5", "", "", "5-A"},
		{"", "Carla", "Díaz", "6-B"},
	})

	students, rowErrs, err := ReadStudents(buf, "s1")
	require.NoError(t, err)

	assert.Equal(t, []school.Student{
		{ID: "1-9", SchoolID: "s1", FirstName: "Ana", LastName: "Rojas", Grade: "5-A", Name: "Ana Rojas", Level: "5", Letter: "A"},
		{SchoolID: "s1", FirstName: "Carla", LastName: "Díaz", Grade: "6-B", Name: "Carla Díaz", Level: "6", Letter: "B"},
	}, students)
	assert.Equal(t, []RowError{
		{Row: 4, Error: `curso inválido: "quinto"`},
		{Row: 5, Error: "el nombre es obligatorio"},
	}, rowErrs)
}

func TestReadStudents_missingColumns(t *testing.T) {
	buf := workbook(t, [][]interface{}{{"Nombres", "Curso"}, {"Ana", "5-A"}})
	_, _, err := ReadStudents(buf, "s1")
	assert.Equal(t, ErrMissingCols, err)
}

func TestWriteMonthAttendance(t *testing.T) {
	students := []school.Student{
		{ID: "1", Name: "Ana Rojas", Grade: "5-A"},
		{ID: "2", Name: "Beto Soto", Grade: "5-A"},
		{ID: "3", Name: "Otro Curso", Grade: "6-A"},
	}
	atts := []school.Attendance{
		{Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), Entries: []school.AttendanceEntry{
			{StudentID: "1", Present: true}, {StudentID: "2", Present: false},
		}},
		{Date: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), Entries: []school.AttendanceEntry{
			{StudentID: "1", Present: true}, {StudentID: "9", Name: "Nuevo", Present: true},
		}},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, WriteMonthAttendance(buf, "5-a", time.March, 2024, students, atts))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "5-A 2024-03", sheet)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Alumno", "4", "5", "Presentes"},
		{"Ana Rojas", "P", "P", "2"},
		{"Beto Soto", "A", "", "0"},
		{"Nuevo", "", "P", "1"},
	}, rows)
}
