package records

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/ledger"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	login := auth.RequireLogin()

	e.POST("/patients/:id/records", h.CreateRecord, login, auth.RequireRole("Doctor"))
	e.GET("/patients/:id/records", h.ListRecords, login, auth.RequireRole("Patient", "Doctor"))
}

type createRecordRequest struct {
	RecordType string            `json:"record_type" form:"record_type"`
	Fields     map[string]string `json:"fields"`
}

// CreateRecord submits a medical record to the ledger. Ledger failures come
// back as a retryable message; nothing is written locally either way.
func (h *Handler) CreateRecord(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req createRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Fields == nil {
		// Form submissions carry the field values flat alongside record_type.
		req.Fields = formFields(c)
	}

	err = h.svc.CreateRecord(c.Request().Context(), patientID, req.RecordType, req.Fields)
	if errors.Is(err, ledger.ErrUnavailable) {
		h.logger.Error().Err(err).Str("patient_id", patientID.String()).Msg("record creation failed")
		return echo.NewHTTPError(http.StatusBadGateway,
			"failed to create medical record, please try again")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"patient_id": patientID.String(),
		"type":       req.RecordType,
		"status":     "created",
	})
}

func (h *Handler) ListRecords(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list records")
	}
	return c.JSON(http.StatusOK, items)
}

// formFields collects non-empty form values, excluding the record_type
// discriminator itself. Validation narrows them to the type's field set.
func formFields(c echo.Context) map[string]string {
	fields := make(map[string]string)
	values, err := c.FormParams()
	if err != nil {
		return fields
	}
	for k, v := range values {
		if k == "record_type" || len(v) == 0 || v[0] == "" {
			continue
		}
		if !strings.HasPrefix(k, "_") {
			fields[k] = v[0]
		}
	}
	return fields
}
