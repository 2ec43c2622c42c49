package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscnitrourkela/project-zucchini/internal/api/middleware"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
	"github.com/dscnitrourkela/project-zucchini/internal/config"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/uploads"
	"github.com/dscnitrourkela/project-zucchini/internal/ratelimit"
)

type fakeRegistrations struct{}

func (fakeRegistrations) Register(context.Context, string, registrations.NitrutsavInput) (registrations.RegisterResult, error) {
	return registrations.RegisterResult{UserID: 1, Created: true}, nil
}

func (fakeRegistrations) CheckCrossRegistration(context.Context, string) (registrations.CrossRegistration, error) {
	return registrations.CrossRegistration{}, nil
}

func (fakeRegistrations) RegisterMun(context.Context, string, registrations.MunInput) (registrations.MunRegisterResult, error) {
	return registrations.MunRegisterResult{UserID: 1, Created: true}, nil
}

func (fakeRegistrations) RegisterMunTeam(context.Context, string, registrations.MunTeamInput) (registrations.MunRegisterResult, error) {
	return registrations.MunRegisterResult{UserID: 1, Created: true}, nil
}

func (fakeRegistrations) CheckMunRegistration(context.Context, string, string) (registrations.MunStatus, error) {
	return registrations.MunStatus{}, nil
}

func (fakeRegistrations) GetTeam(context.Context, string) (registrations.Team, error) {
	return registrations.Team{Key: "team"}, nil
}

type fakePayments struct{}

func (fakePayments) InitiateOrder(context.Context, string) (payments.Order, error) {
	return payments.Order{OrderID: "order_1"}, nil
}

func (fakePayments) InitiateMunOrder(context.Context, string, string, string) (payments.Order, error) {
	return payments.Order{OrderID: "order_2"}, nil
}

func (fakePayments) VerifyPayment(context.Context, string, payments.VerifyRequest) (payments.VerifyResult, error) {
	return payments.VerifyResult{Message: "ok"}, nil
}

func (fakePayments) VerifyMunPayment(context.Context, string, payments.VerifyRequest) (payments.VerifyResult, error) {
	return payments.VerifyResult{Message: "ok"}, nil
}

func (fakePayments) GetStatus(context.Context, string) (*payments.Status, error) {
	return &payments.Status{}, nil
}

type fakeUploads struct{}

func (fakeUploads) Upload(context.Context, string, string, io.Reader) (*uploads.Result, error) {
	return &uploads.Result{}, nil
}

func (fakeUploads) MaxBytes() int64 { return 1024 }

type fakeAdmins struct{ admins map[string]bool }

func (f fakeAdmins) Register(_ context.Context, id auth.Identity, name string) (*admins.Admin, error) {
	return &admins.Admin{Email: id.Email, Name: name}, nil
}

func (f fakeAdmins) IsAdmin(_ context.Context, email string) (bool, error) {
	return f.admins[email], nil
}

func (f fakeAdmins) Approve(_ context.Context, _, email, _ string) (*admins.Admin, error) {
	return &admins.Admin{Email: email, IsVerified: true}, nil
}

type fakeReports struct{}

func (fakeReports) ListRegistrations(context.Context, admins.PageRequest) (*admins.NitrutsavPage, error) {
	return &admins.NitrutsavPage{}, nil
}

func (fakeReports) ListMunRegistrations(context.Context, admins.PageRequest) (*admins.MunPage, error) {
	return &admins.MunPage{}, nil
}

func (fakeReports) ListMunTeams(context.Context) ([]registrations.Team, error) {
	return nil, nil
}

// tokenVerifier accepts "Bearer <email>" and uses the email as the identity.
var tokenVerifier = auth.VerifierFunc(func(_ context.Context, token string) (auth.Identity, error) {
	if token == "bad" {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return auth.Identity{UID: "uid-" + token, Email: token, EmailVerified: true}, nil
})

func newTestRouter(t *testing.T, rules map[ratelimit.Category]ratelimit.Rule) http.Handler {
	t.Helper()
	cfg := config.Config{
		Environment: "test",
		Upload:      config.UploadConfig{MaxBytes: 1024},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://nitrutsav.in"}},
	}

	var limiter *middleware.RateLimiter
	if rules != nil {
		store := ratelimit.NewMemoryStore(time.Minute)
		t.Cleanup(store.Stop)
		limiter = middleware.NewRateLimiter(ratelimit.NewLimiter(store, rules), nil, "test", zerolog.Nop())
	}

	return NewRouter(cfg, zerolog.Nop(), Dependencies{
		Registrations: fakeRegistrations{},
		Payments:      fakePayments{},
		Uploads:       fakeUploads{},
		Admins:        fakeAdmins{admins: map[string]bool{"admin@example.com": true}},
		Reports:       fakeReports{},
		Verifier:      tokenVerifier,
		RateLimiter:   limiter,
	})
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_RoutesRequireAuth(t *testing.T) {
	h := newTestRouter(t, nil)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/register"},
		{http.MethodGet, "/api/check-cross-registration"},
		{http.MethodPost, "/api/initiate-order"},
		{http.MethodPost, "/api/verify-order"},
		{http.MethodGet, "/api/payment/status"},
		{http.MethodPost, "/api/mun/register"},
		{http.MethodPost, "/api/mun/register-team"},
		{http.MethodGet, "/api/mun/check-registration"},
		{http.MethodGet, "/api/mun/team"},
		{http.MethodPost, "/api/mun/initiate-order"},
		{http.MethodPost, "/api/mun/intiate-order"},
		{http.MethodPost, "/api/mun/verify-order"},
		{http.MethodPost, "/api/upload"},
		{http.MethodPost, "/api/admin/auth/register"},
		{http.MethodPost, "/api/admin/auth/login"},
		{http.MethodGet, "/api/admin/registrations/nitrutsav"},
		{http.MethodGet, "/api/admin/registrations/mun"},
		{http.MethodGet, "/api/admin/registrations/mun/teams"},
		{http.MethodPost, "/api/admin/admins/x@example.com/approve"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(h, rt.method, rt.path, "", "").Code)
			assert.Equal(t, http.StatusUnauthorized, do(h, rt.method, rt.path, "bad", "").Code)
		})
	}
}

func TestRouter_AuthenticatedRequests(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodPost, "/api/register", "asha@example.com", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/mun/team", "asha@example.com", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/mun/intiate-order", "asha@example.com", "").Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	h := newTestRouter(t, nil)

	assert.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/api/admin/registrations/nitrutsav", "asha@example.com", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/admin/registrations/nitrutsav", "admin@example.com", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/admin/admins/new@example.com/approve", "admin@example.com", "").Code)

	// register and login only need a valid token
	assert.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/api/admin/auth/register", "asha@example.com", `{"name":"Asha"}`).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/admin/auth/login", "asha@example.com", "").Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(h, http.MethodGet, "/api/register", "asha@example.com", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Header().Get("Allow"), http.MethodPost)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	h := newTestRouter(t, nil)

	body := `{"name":"` + strings.Repeat("a", int(middleware.DefaultMaxBodySize)) + `"}`
	w := do(h, http.MethodPost, "/api/register", "asha@example.com", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	h := newTestRouter(t, map[ratelimit.Category]ratelimit.Rule{
		ratelimit.CategoryCheck: {Limit: 2, Window: time.Minute},
	})

	for i := 0; i < 2; i++ {
		w := do(h, http.MethodGet, "/api/payment/status", "asha@example.com", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := do(h, http.MethodGet, "/api/payment/status", "asha@example.com", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// the check window is shared across check routes
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodGet, "/api/mun/team", "asha@example.com", "").Code)
	// other categories have no rule and pass
	assert.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/api/register", "asha@example.com", `{}`).Code)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/version", "", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/openapi.json", "", "").Code)

	w := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "zucchini_")
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/register", nil)
	req.Header.Set("Origin", "https://nitrutsav.in")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://nitrutsav.in", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPathOf(t *testing.T) {
	assert.Equal(t, "/api/register", pathOf("POST /api/register"))
	assert.Equal(t, "/healthz", pathOf("/healthz"))
}
