package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/audit"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
)

type AdminService interface {
	Register(ctx context.Context, id auth.Identity, name string) (*admins.Admin, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	Approve(ctx context.Context, approver, email, ip string) (*admins.Admin, error)
}

type ReportService interface {
	ListRegistrations(ctx context.Context, p admins.PageRequest) (*admins.NitrutsavPage, error)
	ListMunRegistrations(ctx context.Context, p admins.PageRequest) (*admins.MunPage, error)
	ListMunTeams(ctx context.Context) ([]registrations.Team, error)
}

type AdminHandler struct {
	Admins  AdminService
	Reports ReportService
	Audit   *audit.Logger
	Env     string
}

func NewAdminHandler(adminService AdminService, reports ReportService, auditLogger *audit.Logger, env string) *AdminHandler {
	return &AdminHandler{Admins: adminService, Reports: reports, Audit: auditLogger, Env: env}
}

type adminRegisterRequest struct {
	Name string `json:"name"`
}

// Register records the caller as a pending admin. A second call fails with
// "Already registered" and reports whether the existing record is verified.
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	var req adminRegisterRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	admin, err := h.Admins.Register(r.Context(), id, req.Name)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	respond.Success(w, http.StatusCreated, "Registration pending approval", admin)
}

type loginResponse struct {
	AmIAdmin bool `json:"amIAdmin"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	ok, err := h.Admins.IsAdmin(r.Context(), id.VerifiedEmail())
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	respond.OK(w, loginResponse{AmIAdmin: ok})
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	email := strings.TrimSpace(r.PathValue("email"))
	if email == "" {
		respond.Error(w, r, respond.BadRequest("Email is required", nil), h.Env)
		return
	}

	admin, err := h.Admins.Approve(r.Context(), id.VerifiedEmail(), email, audit.ClientIP(r))
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	respond.Success(w, http.StatusOK, "Admin approved", admin)
}

func pageRequest(r *http.Request) (admins.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return admins.PageRequest{}, err
	}
	size, err := queryInt(r, "pageSize")
	if err != nil {
		return admins.PageRequest{}, err
	}
	return admins.PageRequest{Page: page, PageSize: size, WithStats: queryBool(r, "stats")}, nil
}

type nitrutsavRow struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Gender        string `json:"gender"`
	DateOfBirth   string `json:"dateOfBirth"`
	Institute     string `json:"institute"`
	University    string `json:"university"`
	IDCard        string `json:"idCard"`
	ReferralCode  string `json:"referralCode,omitempty"`
	IsNITRStudent bool   `json:"isNitrStudent"`
	IsVerified    bool   `json:"isPaymentVerified"`
	CreatedAt     string `json:"createdAt"`
}

type nitrutsavListResponse struct {
	Registrations []nitrutsavRow `json:"registrations"`
	admins.PageInfo
	Stats *admins.NitrutsavStats `json:"stats,omitempty"`
}

func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	p, err := pageRequest(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	page, err := h.Reports.ListRegistrations(r.Context(), p)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	h.logAccess(r, "admin.list_registrations", "nitrutsav", page.Page)

	out := nitrutsavListResponse{
		Registrations: make([]nitrutsavRow, 0, len(page.Items)),
		PageInfo:      page.PageInfo,
		Stats:         page.Stats,
	}
	for _, u := range page.Items {
		out.Registrations = append(out.Registrations, nitrutsavRow{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Phone:         u.Phone,
			Gender:        string(u.Gender),
			DateOfBirth:   formatDate(u.DateOfBirth),
			Institute:     u.Institute,
			University:    u.University,
			IDCard:        u.IDCardURL,
			ReferralCode:  u.ReferralCode,
			IsNITRStudent: registrations.IsNITRStudent(u.Email, u.Institute),
			IsVerified:    u.IsVerified,
			CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respond.OK(w, out)
}

type munRow struct {
	ID                    int64    `json:"id"`
	Name                  string   `json:"name"`
	Email                 string   `json:"email"`
	Phone                 string   `json:"phone"`
	Gender                string   `json:"gender"`
	DateOfBirth           string   `json:"dateOfBirth"`
	StudentType           string   `json:"studentType"`
	Institute             string   `json:"institute"`
	University            string   `json:"university,omitempty"`
	City                  string   `json:"city"`
	State                 string   `json:"state"`
	IDCard                string   `json:"idCard"`
	CommitteeChoice       string   `json:"committeeChoice"`
	PortfolioPreferences  []string `json:"portfolioPreferences"`
	HasParticipatedBefore bool     `json:"hasParticipatedBefore"`
	PreviousExperience    string   `json:"previousExperience,omitempty"`
	EmergencyContactName  string   `json:"emergencyContactName"`
	EmergencyContactPhone string   `json:"emergencyContactPhone"`
	IsTeamLeader          bool     `json:"isTeamLeader"`
	TeamID                string   `json:"teamId,omitempty"`
	IsLinked              bool     `json:"isLinked"`
	IsVerified            bool     `json:"isPaymentVerified"`
	CreatedAt             string   `json:"createdAt"`
}

func toMunRow(m registrations.MunRegistration) munRow {
	prefs := m.PortfolioPreferences
	if prefs == nil {
		prefs = []string{}
	}
	return munRow{
		ID:                    m.ID,
		Name:                  m.Name,
		Email:                 m.Email,
		Phone:                 m.Phone,
		Gender:                string(m.Gender),
		DateOfBirth:           formatDate(m.DateOfBirth),
		StudentType:           string(m.StudentType),
		Institute:             m.Institute,
		University:            m.University,
		City:                  m.City,
		State:                 m.State,
		IDCard:                m.IDCardURL,
		CommitteeChoice:       string(m.Committee),
		PortfolioPreferences:  prefs,
		HasParticipatedBefore: m.HasParticipatedBefore,
		PreviousExperience:    m.PreviousExperience,
		EmergencyContactName:  m.EmergencyContactName,
		EmergencyContactPhone: m.EmergencyContactPhone,
		IsTeamLeader:          m.IsTeamLeader,
		TeamID:                m.TeamID,
		IsLinked:              m.FirebaseUID != "",
		IsVerified:            m.IsVerified,
		CreatedAt:             m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type munListResponse struct {
	Registrations []munRow `json:"registrations"`
	admins.PageInfo
	Stats *admins.MunStats `json:"stats,omitempty"`
}

func (h *AdminHandler) ListMunRegistrations(w http.ResponseWriter, r *http.Request) {
	p, err := pageRequest(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	page, err := h.Reports.ListMunRegistrations(r.Context(), p)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	h.logAccess(r, "admin.list_registrations", "mun", page.Page)

	out := munListResponse{
		Registrations: make([]munRow, 0, len(page.Items)),
		PageInfo:      page.PageInfo,
		Stats:         page.Stats,
	}
	for _, m := range page.Items {
		out.Registrations = append(out.Registrations, toMunRow(m))
	}
	respond.OK(w, out)
}

type adminTeam struct {
	TeamID     string   `json:"teamId"`
	Committee  string   `json:"committee"`
	IsVerified bool     `json:"isPaymentVerified"`
	Members    []munRow `json:"members"`
}

type teamsResponse struct {
	Teams []adminTeam `json:"teams"`
	Total int         `json:"total"`
}

func (h *AdminHandler) ListMunTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Reports.ListMunTeams(r.Context())
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}
	h.logAccess(r, "admin.list_teams", "mun", 0)

	out := teamsResponse{Teams: make([]adminTeam, 0, len(teams)), Total: len(teams)}
	for _, t := range teams {
		team := adminTeam{
			TeamID:     t.Key,
			Committee:  string(t.Committee),
			IsVerified: t.IsVerified,
			Members:    make([]munRow, 0, len(t.Members)),
		}
		for _, m := range t.Members {
			team.Members = append(team.Members, toMunRow(m))
		}
		out.Teams = append(out.Teams, team)
	}
	respond.OK(w, out)
}

func (h *AdminHandler) logAccess(r *http.Request, action, resource string, page int) {
	if h.Audit == nil {
		return
	}
	details := map[string]string{}
	if page > 0 {
		details["page"] = strconv.Itoa(page)
	}
	h.Audit.LogFromRequest(r, action, resource, "", audit.OutcomeSuccess, details)
}
