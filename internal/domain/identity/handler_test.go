package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/session"
)

type fakeLocator struct {
	patientIDs map[uuid.UUID]uuid.UUID
}

func (f *fakeLocator) FindPatientIDByUserID(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := f.patientIDs[userID]
	if !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	return id, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeUserRepo, *fakeLocator) {
	t.Helper()
	repo := newFakeUserRepo()
	locator := &fakeLocator{patientIDs: make(map[uuid.UUID]uuid.UUID)}
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return NewHandler(NewService(repo), locator, logger), repo, locator
}

func postJSON(t *testing.T, path, body string, sess *session.Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	session.Attach(c, "test-session", sess)
	return c, rec
}

func TestLogin_BindsSession(t *testing.T) {
	h, repo, _ := newTestHandler(t)
	ctx := context.Background()

	u, err := NewService(repo).CreateUser(ctx, "Alice", "alice@example.com", "s3cret", []string{RoleDoctor})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	sess := session.New()
	c, rec := postJSON(t, "/login", `{"email":"alice@example.com","password":"s3cret"}`, sess)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sess.UserID != u.ID.String() || sess.UserName != "Alice" {
		t.Errorf("session not bound: %+v", sess)
	}
	if !sess.HasAnyRole(RoleDoctor) {
		t.Errorf("session roles = %v, want Doctor", sess.UserRoles)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Redirect != "/patients" {
		t.Errorf("doctor redirect = %q, want /patients", resp.Redirect)
	}
}

func TestLogin_PatientRedirectsToOwnPage(t *testing.T) {
	h, repo, locator := newTestHandler(t)
	ctx := context.Background()

	u, err := NewService(repo).CreateUser(ctx, "Bob", "bob@example.com", "pw", []string{RolePatient})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	pid := uuid.New()
	locator.patientIDs[u.ID] = pid

	c, rec := postJSON(t, "/login", `{"email":"bob@example.com","password":"pw"}`, session.New())
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if want := "/patients/" + pid.String(); resp.Redirect != want {
		t.Errorf("patient redirect = %q, want %q", resp.Redirect, want)
	}
}

func TestLogin_InvalidCredentialsLeaveSessionUntouched(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	if _, err := NewService(repo).CreateUser(context.Background(), "Alice", "alice@example.com", "s3cret", nil); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	sess := session.New()
	c, _ := postJSON(t, "/login", `{"email":"alice@example.com","password":"wrong"}`, sess)

	err := h.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
	if sess.Authenticated() {
		t.Errorf("failed login mutated the session: %+v", sess)
	}
}

// A session captures the roles held at login and keeps them until the next
// login, even when the user record changes in the meantime.
func TestLogin_RolesSnapshotAtLogin(t *testing.T) {
	h, repo, _ := newTestHandler(t)
	ctx := context.Background()

	u, err := NewService(repo).CreateUser(ctx, "Alice", "alice@example.com", "s3cret", []string{RolePatient})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	sess := session.New()
	c, _ := postJSON(t, "/login", `{"email":"alice@example.com","password":"s3cret"}`, sess)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Elevate the stored record after login.
	u.Roles = []string{RolePatient, RoleDoctor}
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if sess.HasAnyRole(RoleDoctor) {
		t.Error("live session picked up a role change without a re-login")
	}

	// The next login sees the new roles.
	sess2 := session.New()
	c2, _ := postJSON(t, "/login", `{"email":"alice@example.com","password":"s3cret"}`, sess2)
	if err := h.Login(c2); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if !sess2.HasAnyRole(RoleDoctor) {
		t.Errorf("re-login did not refresh roles: %v", sess2.UserRoles)
	}
}

func TestLogout_ClearsSessionAndRedirects(t *testing.T) {
	h, _, _ := newTestHandler(t)

	sess := session.New()
	sess.SetUser("u-1", "Alice", []string{RoleDoctor})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	session.Attach(c, "test-session", sess)

	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != auth.LoginPath {
		t.Errorf("redirect = %q, want %q", loc, auth.LoginPath)
	}
	if sess.Authenticated() {
		t.Errorf("session not cleared: %+v", sess)
	}
}

// An anonymous request bounced by the login guard must land on a page that
// actually exists.
func TestLoginPrompt_ReachableFromGuardRedirect(t *testing.T) {
	h, _, _ := newTestHandler(t)

	e := echo.New()
	h.RegisterRoutes(e)
	e.GET("/protected", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, auth.RequireLogin())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("guarded route status = %d, want 302", rec.Code)
	}

	target := rec.Header().Get("Location")
	req = httptest.NewRequest(http.MethodGet, target, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET %s = %d, want 200", target, rec.Code)
	}
}

func TestAccessDenied(t *testing.T) {
	h, _, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/access-denied", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.AccessDenied(c); err != nil {
		t.Fatalf("AccessDenied: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
