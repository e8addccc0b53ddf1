package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/session"
)

// PatientLocator resolves the patient profile linked to a user, so a
// freshly logged-in patient can be sent to their own detail page.
type PatientLocator interface {
	FindPatientIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	patients PatientLocator
	logger   zerolog.Logger
}

func NewHandler(svc *Service, patients PatientLocator, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, patients: patients, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/login", h.LoginPrompt)
	e.POST("/login", h.Login)
	e.POST("/logout", h.Logout)
	e.GET("/access-denied", h.AccessDenied)
}

// LoginPrompt serves the target of the RequireLogin redirect. There is no
// server-rendered form; clients POST the credentials to the same path.
func (h *Handler) LoginPrompt(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "authentication required, submit email and password to POST /login",
	})
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	UserID   string   `json:"user_id"`
	UserName string   `json:"user_name"`
	Roles    []string `json:"roles"`
	Redirect string   `json:"redirect"`
}

// Login verifies the credentials and binds the user to the session. The
// session payload gets the user's id, name, and roles as they are at this
// instant; a later role change on the user record does not touch the live
// session until the next login.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := h.svc.Verify(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		// Session untouched on failure.
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("credential verification failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	sess := session.FromContext(c)
	sess.SetUser(u.ID.String(), u.Name, u.Roles)

	h.logger.Info().Str("user_id", u.ID.String()).Msg("user logged in")

	resp := loginResponse{
		UserID:   u.ID.String(),
		UserName: u.Name,
		Roles:    u.Roles,
		Redirect: "/patients",
	}
	if u.HasRole(RolePatient) {
		if pid, err := h.patients.FindPatientIDByUserID(c.Request().Context(), u.ID); err == nil {
			resp.Redirect = "/patients/" + pid.String()
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// Logout clears the entire session payload. The session middleware persists
// the now-empty mapping under the same identifier on the way out.
func (h *Handler) Logout(c echo.Context) error {
	session.FromContext(c).Clear()
	return c.Redirect(http.StatusFound, auth.LoginPath)
}

func (h *Handler) AccessDenied(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{
		"error": "you do not have permission to access this page",
	})
}
