package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core/school"
)

type studentRow struct {
	ID        string      `db:"id"`
	SchoolID  string      `db:"school_id"`
	FirstName null.String `db:"first_name"`
	LastName  null.String `db:"last_name"`
	Name      null.String `db:"name"`
	Grade     string      `db:"grade"`
}

func (r studentRow) model() school.Student {
	return school.Student{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		FirstName: r.FirstName.String,
		LastName:  r.LastName.String,
		Name:      r.Name.String,
		Grade:     r.Grade,
	}
}

type attendanceRow struct {
	ID      string `db:"id"`
	Grade   string `db:"grade"`
	Day     string `db:"day"`
	Month   int    `db:"month"`
	Year    int    `db:"year"`
	Entries string `db:"entries"`
}

func (r attendanceRow) model() (school.Attendance, error) {
	date, err := time.Parse(school.DateLayout, r.Day)
	if err != nil {
		return school.Attendance{}, errors.Wrapf(err, "parsing attendance day %q", r.Day)
	}
	att := school.Attendance{
		ID:    r.ID,
		Grade: r.Grade,
		Date:  date,
		Month: time.Month(r.Month),
		Year:  r.Year,
	}
	if err = json.Unmarshal([]byte(r.Entries), &att.Entries); err != nil {
		return school.Attendance{}, errors.Wrap(err, "decoding attendance entries")
	}
	return att, nil
}

type observationRow struct {
	ID        string      `db:"id"`
	RefID     string      `db:"ref_id"`
	Grade     null.String `db:"grade"`
	StudentID null.String `db:"student_id"`
	Text      string      `db:"text"`
	Author    null.String `db:"author"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r observationRow) model() school.Observation {
	return school.Observation{
		ID:        r.ID,
		RefID:     r.RefID,
		Grade:     r.Grade.String,
		StudentID: r.StudentID.String,
		Text:      r.Text,
		Author:    r.Author.String,
		CreatedAt: r.CreatedAt.Time.UTC(),
	}
}

type schoolRegisterRow struct {
	ID        string      `db:"id"`
	RefID     string      `db:"ref_id"`
	Grade     null.String `db:"grade"`
	Day       null.String `db:"day"`
	Subject   null.String `db:"subject"`
	Content   string      `db:"content"`
	Author    null.String `db:"author"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r schoolRegisterRow) model() (school.SchoolRegister, error) {
	reg := school.SchoolRegister{
		ID:        r.ID,
		RefID:     r.RefID,
		Grade:     r.Grade.String,
		Subject:   r.Subject.String,
		Content:   r.Content,
		Author:    r.Author.String,
		CreatedAt: r.CreatedAt.Time.UTC(),
	}
	if r.Day.Valid {
		date, err := time.Parse(school.DateLayout, r.Day.String)
		if err != nil {
			return school.SchoolRegister{}, errors.Wrapf(err, "parsing school register day %q", r.Day.String)
		}
		reg.Date = date
	}
	return reg, nil
}

type evaluationRow struct {
	ID        string      `db:"id"`
	Grade     string      `db:"grade"`
	OA        string      `db:"oa"`
	Entries   string      `db:"entries"`
	Author    null.String `db:"author"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r evaluationRow) model() (school.Evaluation, error) {
	eval := school.Evaluation{
		ID:        r.ID,
		Grade:     r.Grade,
		OA:        r.OA,
		Author:    r.Author.String,
		CreatedAt: r.CreatedAt.Time.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Entries), &eval.Entries); err != nil {
		return school.Evaluation{}, errors.Wrap(err, "decoding evaluation entries")
	}
	return eval, nil
}

type speechRegisterRow struct {
	ID           string      `db:"id"`
	Grade        string      `db:"grade"`
	Students     string      `db:"students"`
	Contents     string      `db:"contents"`
	Mode         string      `db:"mode"`
	Observations null.String `db:"observations"`
	UserName     null.String `db:"user_name"`
	PublishedAt  time.Time   `db:"published_at"`
}

func (r speechRegisterRow) model() (school.SpeechRegister, error) {
	reg := school.SpeechRegister{
		ID:           r.ID,
		Grade:        r.Grade,
		Mode:         r.Mode,
		Observations: r.Observations.String,
		User:         r.UserName.String,
		PublishedAt:  r.PublishedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Students), &reg.Students); err != nil {
		return school.SpeechRegister{}, errors.Wrap(err, "decoding register students")
	}
	if err := json.Unmarshal([]byte(r.Contents), &reg.Contents); err != nil {
		return school.SpeechRegister{}, errors.Wrap(err, "decoding register contents")
	}
	return reg, nil
}

type schoolRepository struct {
	db *sqlx.DB
}

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (repo *schoolRepository) selectRows(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return repo.db.SelectContext(ctx, dest, repo.db.Rebind(query), args...)
}

func (repo *schoolRepository) GetStudentsBySchool(ctx context.Context, schoolID string) ([]school.Student, error) {
	var rows []studentRow
	q := `SELECT id, school_id, first_name, last_name, name, grade FROM students WHERE school_id = ? ORDER BY grade, last_name, first_name`
	if err := repo.selectRows(ctx, &rows, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.model())
	}
	return students, nil
}

func (repo *schoolRepository) SetStudent(ctx context.Context, student school.Student) (school.Student, error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	row := studentRow{
		ID:        student.ID,
		SchoolID:  student.SchoolID,
		FirstName: null.StringFrom(student.FirstName),
		LastName:  null.StringFrom(student.LastName),
		Grade:     student.Grade,
	}
	if student.Name != "" {
		row.Name = null.StringFrom(student.Name)
	}
	q := `INSERT INTO students (id, school_id, first_name, last_name, name, grade)
		VALUES (:id, :school_id, :first_name, :last_name, :name, :grade)
		ON CONFLICT (id) DO UPDATE SET
			school_id = excluded.school_id, first_name = excluded.first_name,
			last_name = excluded.last_name, name = excluded.name, grade = excluded.grade`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return school.Student{}, errors.Wrap(err, "upserting student")
	}
	return student, nil
}

func (repo *schoolRepository) attendances(ctx context.Context, q string, args ...interface{}) ([]school.Attendance, error) {
	var rows []attendanceRow
	if err := repo.selectRows(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	atts := make([]school.Attendance, 0, len(rows))
	for _, r := range rows {
		att, err := r.model()
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, nil
}

func (repo *schoolRepository) GetAttendanceByDate(ctx context.Context, date time.Time, grade string) ([]school.Attendance, error) {
	q := `SELECT id, grade, day, month, year, entries FROM attendance WHERE grade = ? AND day = ?`
	return repo.attendances(ctx, q, grade, date.Format(school.DateLayout))
}

func (repo *schoolRepository) GetAttendanceByMonth(ctx context.Context, grade string, month time.Month, year int) ([]school.Attendance, error) {
	q := `SELECT id, grade, day, month, year, entries FROM attendance WHERE grade = ? AND month = ? AND year = ? ORDER BY day`
	return repo.attendances(ctx, q, grade, int(month), year)
}

// SetAttendance replaces the roll call of the attendance's grade and day.
func (repo *schoolRepository) SetAttendance(ctx context.Context, attendance school.Attendance) (school.Attendance, error) {
	att := attendance.Normalized()
	entries, err := encode(att.Entries)
	if err != nil {
		return school.Attendance{}, errors.Wrap(err, "encoding attendance entries")
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.Attendance{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.GetContext(ctx, &existing, tx.Rebind(`SELECT id FROM attendance WHERE grade = ? AND day = ?`), att.Grade, att.Day())
	switch {
	case err == nil:
		att.ID = existing
	case errors.Is(err, sql.ErrNoRows):
		if att.ID == "" {
			att.ID = uuid.NewString()
		}
	default:
		return school.Attendance{}, errors.Wrap(err, "selecting attendance")
	}

	row := attendanceRow{
		ID:      att.ID,
		Grade:   att.Grade,
		Day:     att.Day(),
		Month:   int(att.Month),
		Year:    att.Year,
		Entries: entries,
	}
	q := `INSERT INTO attendance (id, grade, day, month, year, entries)
		VALUES (:id, :grade, :day, :month, :year, :entries)
		ON CONFLICT (id) DO UPDATE SET
			grade = excluded.grade, day = excluded.day, month = excluded.month,
			year = excluded.year, entries = excluded.entries`
	if _, err = tx.NamedExecContext(ctx, q, row); err != nil {
		return school.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	if err = tx.Commit(); err != nil {
		return school.Attendance{}, errors.Wrap(err, "committing attendance")
	}
	return att, nil
}

func (repo *schoolRepository) GetObservationsByID(ctx context.Context, id string) ([]school.Observation, error) {
	var rows []observationRow
	q := `SELECT id, ref_id, grade, student_id, text, author, created_at FROM observations WHERE ref_id = ? ORDER BY created_at`
	if err := repo.selectRows(ctx, &rows, q, id); err != nil {
		return nil, errors.Wrap(err, "selecting observations")
	}
	obs := make([]school.Observation, 0, len(rows))
	for _, r := range rows {
		obs = append(obs, r.model())
	}
	return obs, nil
}

func (repo *schoolRepository) SetObservation(ctx context.Context, obs school.Observation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now().UTC()
	}
	row := observationRow{
		ID:        obs.ID,
		RefID:     obs.RefID,
		Grade:     null.StringFrom(obs.Grade),
		StudentID: null.StringFrom(obs.StudentID),
		Text:      obs.Text,
		Author:    null.StringFrom(obs.Author),
		CreatedAt: null.TimeFrom(obs.CreatedAt.UTC()),
	}
	q := `INSERT INTO observations (id, ref_id, grade, student_id, text, author, created_at)
		VALUES (:id, :ref_id, :grade, :student_id, :text, :author, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			ref_id = excluded.ref_id, grade = excluded.grade, student_id = excluded.student_id,
			text = excluded.text, author = excluded.author`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "upserting observation")
	}
	return nil
}

func (repo *schoolRepository) GetSchoolRegistersByID(ctx context.Context, id string) ([]school.SchoolRegister, error) {
	var rows []schoolRegisterRow
	q := `SELECT id, ref_id, grade, day, subject, content, author, created_at FROM school_registers WHERE ref_id = ? ORDER BY day, created_at`
	if err := repo.selectRows(ctx, &rows, q, id); err != nil {
		return nil, errors.Wrap(err, "selecting school registers")
	}
	regs := make([]school.SchoolRegister, 0, len(rows))
	for _, r := range rows {
		reg, err := r.model()
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (repo *schoolRepository) SetSchoolRegister(ctx context.Context, reg school.SchoolRegister) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	row := schoolRegisterRow{
		ID:        reg.ID,
		RefID:     reg.RefID,
		Grade:     null.StringFrom(reg.Grade),
		Subject:   null.StringFrom(reg.Subject),
		Content:   reg.Content,
		Author:    null.StringFrom(reg.Author),
		CreatedAt: null.TimeFrom(reg.CreatedAt.UTC()),
	}
	if !reg.Date.IsZero() {
		row.Day = null.StringFrom(reg.Date.Format(school.DateLayout))
	}
	q := `INSERT INTO school_registers (id, ref_id, grade, day, subject, content, author, created_at)
		VALUES (:id, :ref_id, :grade, :day, :subject, :content, :author, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			ref_id = excluded.ref_id, grade = excluded.grade, day = excluded.day,
			subject = excluded.subject, content = excluded.content, author = excluded.author`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "upserting school register")
	}
	return nil
}

func (repo *schoolRepository) GetEvaluationsByGrade(ctx context.Context, grade string) ([]school.Evaluation, error) {
	var rows []evaluationRow
	q := `SELECT id, grade, oa, entries, author, created_at FROM evaluations WHERE grade = ? ORDER BY oa`
	if err := repo.selectRows(ctx, &rows, q, grade); err != nil {
		return nil, errors.Wrap(err, "selecting evaluations")
	}
	evals := make([]school.Evaluation, 0, len(rows))
	for _, r := range rows {
		eval, err := r.model()
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}
	return evals, nil
}

// SetEvaluationsByOA replaces the scores of the evaluation's grade and OA.
func (repo *schoolRepository) SetEvaluationsByOA(ctx context.Context, eval school.Evaluation) error {
	entries, err := encode(eval.Entries)
	if err != nil {
		return errors.Wrap(err, "encoding evaluation entries")
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.GetContext(ctx, &existing, tx.Rebind(`SELECT id FROM evaluations WHERE grade = ? AND oa = ?`), eval.Grade, eval.OA)
	switch {
	case err == nil:
		eval.ID = existing
	case errors.Is(err, sql.ErrNoRows):
		if eval.ID == "" {
			eval.ID = uuid.NewString()
		}
	default:
		return errors.Wrap(err, "selecting evaluation")
	}

	row := evaluationRow{
		ID:        eval.ID,
		Grade:     eval.Grade,
		OA:        eval.OA,
		Entries:   entries,
		Author:    null.StringFrom(eval.Author),
		CreatedAt: null.TimeFrom(eval.CreatedAt.UTC()),
	}
	q := `INSERT INTO evaluations (id, grade, oa, entries, author, created_at)
		VALUES (:id, :grade, :oa, :entries, :author, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			grade = excluded.grade, oa = excluded.oa, entries = excluded.entries, author = excluded.author`
	if _, err = tx.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "upserting evaluation")
	}
	return errors.Wrap(tx.Commit(), "committing evaluation")
}

func (repo *schoolRepository) GetSpeechBases(ctx context.Context, level string) ([]school.SpeechBase, error) {
	var rows []school.SpeechBase
	q := `SELECT level, ambit, content FROM speech_bases WHERE level = ? ORDER BY position, ambit, content`
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), level); err != nil {
		return nil, errors.Wrap(err, "selecting speech bases")
	}
	if rows == nil {
		rows = []school.SpeechBase{}
	}
	return rows, nil
}

func (repo *schoolRepository) GetSpeechRegisters(ctx context.Context, grade string) ([]school.SpeechRegister, error) {
	var rows []speechRegisterRow
	q := `SELECT id, grade, students, contents, mode, observations, user_name, published_at
		FROM speech_registers WHERE grade = ? ORDER BY published_at`
	if err := repo.selectRows(ctx, &rows, q, grade); err != nil {
		return nil, errors.Wrap(err, "selecting speech registers")
	}
	regs := make([]school.SpeechRegister, 0, len(rows))
	for _, r := range rows {
		reg, err := r.model()
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (repo *schoolRepository) SetSpeechRegister(ctx context.Context, reg school.SpeechRegister) error {
	students, err := encode(reg.Students)
	if err != nil {
		return errors.Wrap(err, "encoding register students")
	}
	contents, err := encode(reg.Contents)
	if err != nil {
		return errors.Wrap(err, "encoding register contents")
	}
	row := speechRegisterRow{
		ID:           reg.ID,
		Grade:        reg.Grade,
		Students:     students,
		Contents:     contents,
		Mode:         reg.Mode,
		Observations: null.StringFrom(reg.Observations),
		UserName:     null.StringFrom(reg.User),
		PublishedAt:  reg.PublishedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	q := `INSERT INTO speech_registers (id, grade, students, contents, mode, observations, user_name, published_at)
		VALUES (:id, :grade, :students, :contents, :mode, :observations, :user_name, :published_at)
		ON CONFLICT (id) DO NOTHING`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return errors.Wrap(err, "inserting speech register")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "inserting speech register")
	}
	if n == 0 {
		return school.ErrRegisterSet
	}
	return nil
}
