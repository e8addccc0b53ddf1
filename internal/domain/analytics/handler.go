package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
)

type Handler struct {
	repo RiskRepository
}

func NewHandler(repo RiskRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/analytics/age-risk", h.AgeRiskDistribution,
		auth.RequireLogin(), auth.RequireRole("Doctor"))
}

// AgeRiskDistribution returns the chart data for the age-based disease risk
// view. Rendering the chart itself is the client's job.
func (h *Handler) AgeRiskDistribution(c echo.Context) error {
	buckets, err := h.repo.AgeRiskDistribution(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to aggregate risk data")
	}
	return c.JSON(http.StatusOK, buckets)
}
