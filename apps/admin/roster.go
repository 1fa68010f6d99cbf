package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/school"
	rostersvc "github.com/trezcool/escuela/services/roster"
)

func (cli *commandLine) provider() (*school.Provider, func()) {
	store := school.NewStore()
	return school.NewProvider(store, cli.schoolRepo, cli.logger, cli.notifier), store.Close
}

// importStudents sets every valid student of the roster at path. Invalid rows are reported and skipped.
func (cli *commandLine) importStudents(schoolID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer func() { _ = f.Close() }()

	students, rowErrs, err := rostersvc.ReadStudents(f, schoolID)
	if err != nil {
		return errors.Wrap(err, "reading roster")
	}

	p, done := cli.provider()
	defer done()

	ctx := context.Background()
	for _, stu := range students {
		if err = p.SetStudent(ctx, stu); err != nil {
			return err
		}
	}
	for _, re := range rowErrs {
		fmt.Fprintf(cli.out, "row %d: %s\n", re.Row, re.Error)
	}
	fmt.Fprintf(cli.out, "%d students imported\n", len(students))
	return nil
}

func (cli *commandLine) exportAttendance(grade string, year, month int, schoolID, path string) error {
	g, err := school.ParseGrade(grade)
	if err != nil {
		return err
	}

	p, done := cli.provider()
	defer done()

	ctx := context.Background()
	if schoolID != "" {
		if err = p.GetStudentsBySchool(ctx, schoolID); err != nil {
			return err
		}
	}
	if err = p.GetAttendanceByMonth(ctx, g.String(), time.Month(month), year); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating workbook")
	}
	st := p.State()
	if err = rostersvc.WriteMonthAttendance(f, g.String(), time.Month(month), year, st.Students.Data, st.MonthAttendance.Data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing workbook")
	}
	fmt.Fprintf(cli.out, "%d roll calls exported to %s\n", len(st.MonthAttendance.Data), path)
	return nil
}
