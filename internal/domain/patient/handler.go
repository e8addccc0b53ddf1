package patient

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	login := auth.RequireLogin()
	doctor := auth.RequireRole("Doctor")

	e.GET("/patients", h.ListPatients, login, doctor)
	e.POST("/patients", h.CreatePatient, login, doctor)
	e.PUT("/patients/:id", h.UpdatePatient, login, doctor)

	// Patients may open their own detail page; cross-patient isolation is a
	// known gap carried from the reference.
	e.GET("/patients/:id", h.GetPatient, login, auth.RequireRole("Patient", "Doctor"))
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list patients")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	details, err := h.svc.GetDetails(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load patient")
	}
	return c.JSON(http.StatusOK, details)
}

type createPatientRequest struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth"`
	Sex         string `json:"sex" form:"sex"`
	EverMarried bool   `json:"ever_married" form:"ever_married"`
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req createPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}

	p, err := h.svc.Register(c.Request().Context(), RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: dob,
		Sex:         req.Sex,
		EverMarried: req.EverMarried,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

type updatePatientRequest struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth"`
	Sex         string `json:"sex" form:"sex"`
	EverMarried bool   `json:"ever_married" form:"ever_married"`
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req updatePatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}

	p, err := h.svc.Update(c.Request().Context(), id, UpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		DateOfBirth: dob,
		Sex:         req.Sex,
		EverMarried: req.EverMarried,
	})
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
