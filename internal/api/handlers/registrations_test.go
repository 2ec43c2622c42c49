package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscnitrourkela/project-zucchini/internal/auth"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
)

type stubRegistrations struct {
	registerResult registrations.RegisterResult
	munResult      registrations.MunRegisterResult
	cross          registrations.CrossRegistration
	munStatus      registrations.MunStatus
	team           registrations.Team
	err            error

	gotUID   string
	gotEmail string
	gotInput registrations.NitrutsavInput
	gotTeam  registrations.MunTeamInput
}

func (s *stubRegistrations) Register(_ context.Context, uid string, in registrations.NitrutsavInput) (registrations.RegisterResult, error) {
	s.gotUID, s.gotInput = uid, in
	return s.registerResult, s.err
}

func (s *stubRegistrations) CheckCrossRegistration(_ context.Context, uid string) (registrations.CrossRegistration, error) {
	s.gotUID = uid
	return s.cross, s.err
}

func (s *stubRegistrations) RegisterMun(_ context.Context, uid string, _ registrations.MunInput) (registrations.MunRegisterResult, error) {
	s.gotUID = uid
	return s.munResult, s.err
}

func (s *stubRegistrations) RegisterMunTeam(_ context.Context, uid string, in registrations.MunTeamInput) (registrations.MunRegisterResult, error) {
	s.gotUID, s.gotTeam = uid, in
	return s.munResult, s.err
}

func (s *stubRegistrations) CheckMunRegistration(_ context.Context, uid, email string) (registrations.MunStatus, error) {
	s.gotUID, s.gotEmail = uid, email
	return s.munStatus, s.err
}

func (s *stubRegistrations) GetTeam(_ context.Context, uid string) (registrations.Team, error) {
	s.gotUID = uid
	return s.team, s.err
}

var testIdentity = auth.Identity{UID: "uid-1", Email: "asha@example.com", EmailVerified: true, Name: "Asha"}

func authed(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(auth.WithIdentity(req.Context(), testIdentity))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestRegister_CreatedAndExisting(t *testing.T) {
	stub := &stubRegistrations{registerResult: registrations.RegisterResult{UserID: 42, Created: true}}
	h := NewRegistrationsHandler(stub, "test")

	w := httptest.NewRecorder()
	h.Register(w, authed(http.MethodPost, "/api/register", `{"name":"Asha","email":"asha@example.com"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"userId":42}`, string(env.Data))
	assert.Equal(t, "uid-1", stub.gotUID)
	assert.Equal(t, "Asha", stub.gotInput.Name)

	stub.registerResult.Created = false
	w = httptest.NewRecorder()
	h.Register(w, authed(http.MethodPost, "/api/register", `{"name":"Asha"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	assert.Equal(t, "Already registered", env.Message)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    *http.Request
		err    error
		status int
		msg    string
	}{
		{
			name:   "no identity",
			req:    httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{}`)),
			status: http.StatusUnauthorized,
			msg:    "Unauthorized",
		},
		{
			name:   "empty body",
			req:    authed(http.MethodPost, "/api/register", ""),
			status: http.StatusBadRequest,
			msg:    "Request body is required",
		},
		{
			name:   "malformed json",
			req:    authed(http.MethodPost, "/api/register", `{"name":`),
			status: http.StatusBadRequest,
			msg:    "Invalid JSON body",
		},
		{
			name:   "validation",
			req:    authed(http.MethodPost, "/api/register", `{}`),
			err:    &registrations.ValidationError{Fields: map[string]string{"name": "is required"}},
			status: http.StatusBadRequest,
			msg:    "Validation failed",
		},
		{
			name:   "registered for mun",
			req:    authed(http.MethodPost, "/api/register", `{}`),
			err:    registrations.ErrCrossRegistration,
			status: http.StatusConflict,
			msg:    "Already registered for another event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRegistrationsHandler(&stubRegistrations{err: tt.err}, "test")
			w := httptest.NewRecorder()
			h.Register(w, tt.req)

			assert.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.msg, env.Error)
		})
	}
}

func TestCheckCrossRegistration(t *testing.T) {
	mun := registrations.EventMun
	stub := &stubRegistrations{cross: registrations.CrossRegistration{IsMunRegistered: true, RegistrationType: &mun}}
	h := NewRegistrationsHandler(stub, "test")

	w := httptest.NewRecorder()
	h.CheckCrossRegistration(w, authed(http.MethodGet, "/api/check-cross-registration", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var data registrations.CrossRegistration
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.True(t, data.IsMunRegistered)
	assert.False(t, data.IsNitrutsavRegistered)
	require.NotNil(t, data.RegistrationType)
	assert.Equal(t, registrations.EventMun, *data.RegistrationType)
}

func TestRegisterMunTeam(t *testing.T) {
	stub := &stubRegistrations{munResult: registrations.MunRegisterResult{
		UserID: 7, TeamID: "team-abc", MemberIDs: []int64{7, 8, 9}, Created: true,
	}}
	h := NewRegistrationsHandler(stub, "test")

	body := `{"leader":{"name":"Lead"},"teammates":[{"name":"Two"},{"name":"Three"}]}`
	w := httptest.NewRecorder()
	h.RegisterMunTeam(w, authed(http.MethodPost, "/api/mun/register-team", body))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"userId":7,"teamId":"team-abc","memberIds":[7,8,9]}`, string(decodeEnvelope(t, w).Data))
	assert.Len(t, stub.gotTeam.Teammates, 2)
}

func TestRegisterMun_AlreadyRegistered(t *testing.T) {
	stub := &stubRegistrations{munResult: registrations.MunRegisterResult{UserID: 3}}
	h := NewRegistrationsHandler(stub, "test")

	w := httptest.NewRecorder()
	h.RegisterMun(w, authed(http.MethodPost, "/api/mun/register", `{"name":"Solo"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "Already registered", env.Message)
	assert.JSONEq(t, `{"userId":3}`, string(env.Data))
}

func TestCheckMunRegistration_PassesTokenEmail(t *testing.T) {
	stub := &stubRegistrations{munStatus: registrations.MunStatus{IsRegistered: true, IsTeamLeader: false}}
	h := NewRegistrationsHandler(stub, "test")

	w := httptest.NewRecorder()
	h.CheckMunRegistration(w, authed(http.MethodGet, "/api/mun/check-registration", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "asha@example.com", stub.gotEmail)
	assert.Equal(t, "uid-1", stub.gotUID)
}

func TestCheckMunRegistration_UnverifiedEmailIsNotUsedForLinking(t *testing.T) {
	stub := &stubRegistrations{}
	h := NewRegistrationsHandler(stub, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/mun/check-registration", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "uid-9", Email: "mate@example.com"}))
	w := httptest.NewRecorder()
	h.CheckMunRegistration(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uid-9", stub.gotUID)
	assert.Empty(t, stub.gotEmail)
}

func TestGetTeam(t *testing.T) {
	stub := &stubRegistrations{team: registrations.Team{
		Key:        "team-abc",
		Committee:  registrations.CommitteeMootCourt,
		IsVerified: true,
		Members: []registrations.MunRegistration{
			{ID: 1, Name: "Lead", Email: "lead@example.com", FirebaseUID: "uid-1", IsTeamLeader: true, IsVerified: true},
			{ID: 2, Name: "Two", Email: "two@example.com", IsVerified: true},
		},
	}}
	h := NewRegistrationsHandler(stub, "test")

	w := httptest.NewRecorder()
	h.GetTeam(w, authed(http.MethodGet, "/api/mun/team", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var team teamResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &team))
	assert.Equal(t, "team-abc", team.TeamID)
	assert.Equal(t, "MOOT_COURT", team.Committee)
	require.Len(t, team.Members, 2)
	assert.True(t, team.Members[0].IsLinked)
	assert.False(t, team.Members[1].IsLinked)
}

func TestGetTeam_NotFound(t *testing.T) {
	h := NewRegistrationsHandler(&stubRegistrations{err: registrations.ErrTeamNotFound}, "test")

	w := httptest.NewRecorder()
	h.GetTeam(w, authed(http.MethodGet, "/api/mun/team", ""))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
