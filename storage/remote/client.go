// Package remote implements the school query layer over the escuela HTTP API.
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
)

var ErrUnauthorized = errors.New("remote: not authenticated")

type Client struct {
	rest    *rest.Client
	baseURL string
	token   string
}

// NewClient returns a client of the API served at baseURL (e.g. "http://localhost:8000/v1").
// A nil httpClient uses a client with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		rest:    &rest.Client{HTTPClient: httpClient},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) SetToken(token string) { c.token = token }

// Login exchanges credentials for a token used by the following calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	in := map[string]string{"username": username, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, rest.Post, "/users/login", nil, in, &out); err != nil {
		return errors.Wrap(err, "logging in")
	}
	c.token = out.Token
	return nil
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, in, out interface{}) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if err = responseError(res); err != nil {
		return err
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(res.Body), out), "decoding response body")
}

// responseError maps the API error responses back to the errors the server started from.
func responseError(res *rest.Response) error {
	switch {
	case res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case res.StatusCode == http.StatusNotFound:
		return school.ErrNotFound
	case res.StatusCode == http.StatusConflict:
		return school.ErrRegisterSet
	case res.StatusCode == http.StatusBadRequest:
		var body map[string]string
		if err := json.Unmarshal([]byte(res.Body), &body); err != nil {
			return core.NewValidationError(errors.New(res.Body))
		}
		if msg, ok := body["error"]; ok && len(body) == 1 {
			return core.NewValidationError(errors.New(msg))
		}
		flds := make([]core.FieldError, 0, len(body))
		for fld, msg := range body {
			flds = append(flds, core.FieldError{Field: fld, Error: msg})
		}
		return core.NewValidationError(nil, flds...)
	default:
		return &rest.RestError{Response: res}
	}
}

type schoolRepository struct {
	c *Client
}

func NewSchoolRepository(c *Client) school.Repository {
	return &schoolRepository{c: c}
}

func (repo *schoolRepository) GetStudentsBySchool(ctx context.Context, schoolID string) ([]school.Student, error) {
	students := make([]school.Student, 0)
	err := repo.c.do(ctx, rest.Get, "/schools/"+url.PathEscape(schoolID)+"/students", nil, nil, &students)
	return students, err
}

func (repo *schoolRepository) SetStudent(ctx context.Context, student school.Student) (school.Student, error) {
	var saved school.Student
	err := repo.c.do(ctx, rest.Post, "/students", nil, student, &saved)
	return saved, err
}

func (repo *schoolRepository) GetAttendanceByDate(ctx context.Context, date time.Time, grade string) ([]school.Attendance, error) {
	atts := make([]school.Attendance, 0)
	query := map[string]string{"date": date.Format(school.DateLayout)}
	err := repo.c.do(ctx, rest.Get, "/grades/"+url.PathEscape(grade)+"/attendance", query, nil, &atts)
	return atts, err
}

func (repo *schoolRepository) GetAttendanceByMonth(ctx context.Context, grade string, month time.Month, year int) ([]school.Attendance, error) {
	atts := make([]school.Attendance, 0)
	path := "/grades/" + url.PathEscape(grade) + "/attendance/" + strconv.Itoa(year) + "/" + strconv.Itoa(int(month))
	err := repo.c.do(ctx, rest.Get, path, nil, nil, &atts)
	return atts, err
}

func (repo *schoolRepository) SetAttendance(ctx context.Context, attendance school.Attendance) (school.Attendance, error) {
	var saved school.Attendance
	err := repo.c.do(ctx, rest.Post, "/attendance", nil, attendance, &saved)
	return saved, err
}

func (repo *schoolRepository) GetObservationsByID(ctx context.Context, id string) ([]school.Observation, error) {
	obs := make([]school.Observation, 0)
	err := repo.c.do(ctx, rest.Get, "/observations/"+url.PathEscape(id), nil, nil, &obs)
	return obs, err
}

func (repo *schoolRepository) SetObservation(ctx context.Context, obs school.Observation) error {
	return repo.c.do(ctx, rest.Post, "/observations", nil, obs, nil)
}

func (repo *schoolRepository) GetSchoolRegistersByID(ctx context.Context, id string) ([]school.SchoolRegister, error) {
	regs := make([]school.SchoolRegister, 0)
	err := repo.c.do(ctx, rest.Get, "/school-registers/"+url.PathEscape(id), nil, nil, &regs)
	return regs, err
}

func (repo *schoolRepository) SetSchoolRegister(ctx context.Context, reg school.SchoolRegister) error {
	return repo.c.do(ctx, rest.Post, "/school-registers", nil, reg, nil)
}

func (repo *schoolRepository) GetEvaluationsByGrade(ctx context.Context, grade string) ([]school.Evaluation, error) {
	evals := make([]school.Evaluation, 0)
	err := repo.c.do(ctx, rest.Get, "/grades/"+url.PathEscape(grade)+"/evaluations", nil, nil, &evals)
	return evals, err
}

func (repo *schoolRepository) SetEvaluationsByOA(ctx context.Context, eval school.Evaluation) error {
	return repo.c.do(ctx, rest.Post, "/evaluations", nil, eval, nil)
}

func (repo *schoolRepository) GetSpeechBases(ctx context.Context, level string) ([]school.SpeechBase, error) {
	bases := make([]school.SpeechBase, 0)
	err := repo.c.do(ctx, rest.Get, "/levels/"+url.PathEscape(level)+"/speech-bases", nil, nil, &bases)
	return bases, err
}

func (repo *schoolRepository) GetSpeechRegisters(ctx context.Context, grade string) ([]school.SpeechRegister, error) {
	regs := make([]school.SpeechRegister, 0)
	err := repo.c.do(ctx, rest.Get, "/grades/"+url.PathEscape(grade)+"/speech-registers", nil, nil, &regs)
	return regs, err
}

func (repo *schoolRepository) SetSpeechRegister(ctx context.Context, reg school.SpeechRegister) error {
	return repo.c.do(ctx, rest.Post, "/speech-registers", nil, reg, nil)
}
