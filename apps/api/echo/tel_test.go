package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/speech"
	"github.com/trezcool/escuela/storage/database/inmem"
)

func seedStudents(t *testing.T, db *inmemdb.DB) (ana, luis school.Student) {
	t.Helper()
	repo := inmemdb.NewSchoolRepository(db)
	ctx := context.Background()

	var err error
	ana, err = repo.SetStudent(ctx, school.Student{SchoolID: "s1", FirstName: "Ana", LastName: "Pérez", Grade: "5-A"})
	require.NoError(t, err)
	luis, err = repo.SetStudent(ctx, school.Student{SchoolID: "s1", FirstName: "Luis", LastName: "Soto", Grade: "5-A"})
	require.NoError(t, err)
	_, err = repo.SetStudent(ctx, school.Student{SchoolID: "s1", FirstName: "Eva", LastName: "Díaz", Grade: "6-B"})
	require.NoError(t, err)
	return school.DecorateStudent(ana), school.DecorateStudent(luis)
}

func Test_telApi_options(t *testing.T) {
	env := newTestEnv(t)
	_, teacher, _, _ := createUsers(t, env)
	ana, luis := seedStudents(t, env.db)
	token := env.getToken(t, teacher)

	q := url.Values{"ambit": {"Fonológico"}, "school": {"s1"}}
	tests := []httpTest{
		{
			name: "invalid grade", path: "/v1/grades/quinto/tel", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: school.ErrInvalidGrade.Error()}),
		},
		{
			name: "no ambit", path: "/v1/grades/5-a/tel", token: token,
			wantData: marshalObj(t, TELOptions{
				Grade:    "5-A",
				Level:    "5",
				Modes:    speech.Modes,
				Ambits:   []string{"Fonológico", "Semántico"},
				Contents: []string{},
				Students: []school.Student{},
			}),
		},
		{
			name: "ambit and school", path: "/v1/grades/5-a/tel?" + q.Encode(), token: token,
			wantData: marshalObj(t, TELOptions{
				Grade:    "5-A",
				Level:    "5",
				Modes:    speech.Modes,
				Ambits:   []string{"Fonológico", "Semántico"},
				Contents: []string{"Rimas", "Sílabas"},
				Students: []school.Student{ana, luis},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, env)
		})
	}
}

func Test_telApi_submit(t *testing.T) {
	env := newTestEnv(t)
	_, teacher, therapist, _ := createUsers(t, env)
	ana, luis := seedStudents(t, env.db)
	path := "/v1/grades/5-a/tel"

	tests := []httpTest{
		{
			name: "therapist required", method: http.MethodPost, path: path, token: env.getToken(t, teacher), body: []byte(`{}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "empty form", method: http.MethodPost, path: path, token: env.getToken(t, therapist), body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"mode":           "La modalidad es obligatoria",
				"ambit":          "El nivel fonoaudiológico es obligatorio",
				"content":        "El contenido es obligatorio",
				"studentsSpeech": "Los estudiantes son obligatorios",
			}),
		},
		{
			name: "content of another ambit", method: http.MethodPost, path: path, token: env.getToken(t, therapist),
			body: marshalObj(t, speech.Values{
				Mode:           "Grupal",
				Ambit:          "Semántico",
				Content:        []string{"Rimas"},
				StudentsSpeech: []school.Student{ana},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"content": "El contenido es obligatorio"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, env)
		})
	}
	assert.Empty(t, env.notifier.Topics())
	assert.Empty(t, env.mailSvc.SentMessages())

	rec := httpTest{
		method: http.MethodPost, path: path, token: env.getToken(t, therapist),
		body: marshalObj(t, speech.Values{
			Mode:           "Grupal",
			Ambit:          "Fonológico",
			Content:        []string{"Rimas", "Sílabas"},
			StudentsSpeech: []school.Student{ana, luis},
			Register:       "Trabajan bien en grupo",
		}),
		wantCode: http.StatusCreated,
	}.run(t, env)

	var res TELSubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	reg := res.Register
	assert.True(t, strings.HasPrefix(reg.ID, "reg-fono-5-a-"), reg.ID)
	assert.Equal(t, "5-A", reg.Grade)
	assert.Equal(t, "Grupal", reg.Mode)
	assert.Equal(t, "Fono Pablo", reg.User)
	assert.Equal(t, "Trabajan bien en grupo", reg.Observations)
	assert.Equal(t, []school.RegisterStudent{{Selected: "Ana Pérez"}, {Selected: "Luis Soto"}}, reg.Students)
	assert.Equal(t, []school.RegisterContent{
		{Content: school.ContentItem{Ambit: "Fonológico", Content: "Rimas"}},
		{Content: school.ContentItem{Ambit: "Fonológico", Content: "Sílabas"}},
	}, reg.Contents)
	require.Len(t, res.Registers, 1)
	assert.Equal(t, reg.ID, res.Registers[0].ID)

	assert.Equal(t, []string{"speech-registers:5-A"}, env.notifier.Topics())

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "pablo@escuela.cl", sent[0].To[0].Address)
	assert.Equal(t, telReceiptSubject, sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, reg.ID)
	assert.Contains(t, sent[0].TextContent, "Fonológico: Sílabas")
}
