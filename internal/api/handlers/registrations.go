package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

type RegistrationService interface {
	Register(ctx context.Context, uid string, in registrations.NitrutsavInput) (registrations.RegisterResult, error)
	CheckCrossRegistration(ctx context.Context, uid string) (registrations.CrossRegistration, error)
	RegisterMun(ctx context.Context, uid string, in registrations.MunInput) (registrations.MunRegisterResult, error)
	RegisterMunTeam(ctx context.Context, uid string, in registrations.MunTeamInput) (registrations.MunRegisterResult, error)
	CheckMunRegistration(ctx context.Context, uid, email string) (registrations.MunStatus, error)
	GetTeam(ctx context.Context, uid string) (registrations.Team, error)
}

type RegistrationsHandler struct {
	Service RegistrationService
	Env     string
}

func NewRegistrationsHandler(service RegistrationService, env string) *RegistrationsHandler {
	return &RegistrationsHandler{Service: service, Env: env}
}

type registerResponse struct {
	UserID int64 `json:"userId"`
}

type munRegisterResponse struct {
	UserID    int64   `json:"userId"`
	TeamID    string  `json:"teamId,omitempty"`
	MemberIDs []int64 `json:"memberIds,omitempty"`
}

func outcome(created bool) string {
	if created {
		return "created"
	}
	return "existing"
}

// Register answers 201 for a new registration and 200 when the caller was
// already registered.
func (h *RegistrationsHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	var in registrations.NitrutsavInput
	if err := decodeJSON(r, &in); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	result, err := h.Service.Register(r.Context(), id.UID, in)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("nitrutsav", "rejected").Inc()
		respond.Error(w, r, err, h.Env)
		return
	}
	metrics.RegistrationsTotal.WithLabelValues("nitrutsav", outcome(result.Created)).Inc()

	body := registerResponse{UserID: result.UserID}
	if result.Created {
		respond.Created(w, body)
		return
	}
	respond.Success(w, http.StatusOK, "Already registered", body)
}

func (h *RegistrationsHandler) CheckCrossRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	status, err := h.Service.CheckCrossRegistration(r.Context(), id.UID)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	respond.OK(w, status)
}

func (h *RegistrationsHandler) RegisterMun(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	var in registrations.MunInput
	if err := decodeJSON(r, &in); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	result, err := h.Service.RegisterMun(r.Context(), id.UID, in)
	h.writeMunResult(w, r, result, err)
}

func (h *RegistrationsHandler) RegisterMunTeam(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	var in registrations.MunTeamInput
	if err := decodeJSON(r, &in); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	result, err := h.Service.RegisterMunTeam(r.Context(), id.UID, in)
	h.writeMunResult(w, r, result, err)
}

func (h *RegistrationsHandler) writeMunResult(w http.ResponseWriter, r *http.Request, result registrations.MunRegisterResult, err error) {
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("mun", "rejected").Inc()
		respond.Error(w, r, err, h.Env)
		return
	}
	metrics.RegistrationsTotal.WithLabelValues("mun", outcome(result.Created)).Inc()

	body := munRegisterResponse{UserID: result.UserID, TeamID: result.TeamID, MemberIDs: result.MemberIDs}
	if result.Created {
		respond.Created(w, body)
		return
	}
	respond.Success(w, http.StatusOK, "Already registered", body)
}

// CheckMunRegistration also links a teammate row the first time a teammate
// signs in, matching on the token email.
func (h *RegistrationsHandler) CheckMunRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	status, err := h.Service.CheckMunRegistration(r.Context(), id.UID, id.VerifiedEmail())
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	respond.OK(w, status)
}

type teamMember struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	IsTeamLeader bool   `json:"isTeamLeader"`
	IsLinked     bool   `json:"isLinked"`
	IsVerified   bool   `json:"isVerified"`
}

type teamResponse struct {
	TeamID     string       `json:"teamId"`
	Committee  string       `json:"committee"`
	IsVerified bool         `json:"isVerified"`
	Members    []teamMember `json:"members"`
}

func toTeamResponse(team registrations.Team) teamResponse {
	out := teamResponse{
		TeamID:     team.Key,
		Committee:  string(team.Committee),
		IsVerified: team.IsVerified,
		Members:    make([]teamMember, 0, len(team.Members)),
	}
	for _, m := range team.Members {
		out.Members = append(out.Members, teamMember{
			ID:           m.ID,
			Name:         m.Name,
			Email:        m.Email,
			IsTeamLeader: m.IsTeamLeader,
			IsLinked:     m.FirebaseUID != "",
			IsVerified:   m.IsVerified,
		})
	}
	return out
}

func (h *RegistrationsHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	team, err := h.Service.GetTeam(r.Context(), id.UID)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	respond.OK(w, toTeamResponse(team))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
