package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrRepo    user.Repository
	usrSvc     *user.Service
	schoolRepo school.Repository
	logger     core.Logger
	notifier   core.Notifier
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME [-email EMAIL] [-name NAME] [-roles ROLES] - add or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  importstudents -school SCHOOL -file FILE.xlsx - import a student roster")
	fmt.Fprintln(cli.out, "  exportattendance -grade GRADE -year YEAR -month MONTH [-school SCHOOL] -out FILE.xlsx - export month attendance")
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRoles := addUserCmd.String("roles", "", "Comma separated roles, e.g. teacher:,therapist:")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importSchool := importCmd.String("school", "", "The school the students are enrolled in.")
	importFile := importCmd.String("file", "", "The roster workbook (.xlsx).")

	exportCmd := flag.NewFlagSet("exportattendance", flag.ContinueOnError)
	exportCmd.SetOutput(cli.out)
	exportGrade := exportCmd.String("grade", "", "The grade, e.g. 5-A.")
	exportYear := exportCmd.Int("year", 0, "The year.")
	exportMonth := exportCmd.Int("month", 0, "The month (1-12).")
	exportSchool := exportCmd.String("school", "", "The school whose students fill the rows.")
	exportOut := exportCmd.String("out", "", "The workbook to write (.xlsx).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		var roles []string
		if *addUserRoles != "" {
			roles = strings.Split(*addUserRoles, ",")
		}
		return cli.addUser(user.NewUser{
			Name:     *addUserName,
			Username: *addUserUname,
			Email:    *addUserEmail,
			Password: pwd,
			Roles:    roles,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importSchool == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importSchool, *importFile)
	case "exportattendance":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportGrade == "" || *exportOut == "" || *exportYear == 0 || *exportMonth < 1 || *exportMonth > 12 {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportAttendance(*exportGrade, *exportYear, *exportMonth, *exportSchool, *exportOut)
	default:
		cli.printUsage()
		return errHelp
	}
}
