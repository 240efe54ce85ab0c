package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type ReportHandler struct {
	reportService services.ReportService
	exportService services.ExportService
}

func NewReportHandler(reportService services.ReportService, exportService services.ExportService) *ReportHandler {
	return &ReportHandler{reportService: reportService, exportService: exportService}
}

// @Summary Financial Overview
// @Description School-wide collection picture for an academic year, with monthly and grade breakdowns and year-over-year comparison
// @Tags Reports
// @Produce json
// @Param academic_year query string true "Academic year (e.g. 2025-2026)"
// @Success 200 {object} services.FinancialOverview
// @Security BearerAuth
// @Router /reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	academicYear := c.Query("academic_year")
	if academicYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year is required"})
		return
	}

	overview, err := h.reportService.FinancialOverview(c.Request.Context(), actorFrom(c), academicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// @Summary Daily Collections
// @Description Completed payment volume per day over a date range
// @Tags Reports
// @Produce json
// @Param academic_year query string true "Academic year"
// @Param start_date query string true "Start date (YYYY-MM-DD)"
// @Param end_date query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} []services.DailySummary
// @Security BearerAuth
// @Router /reports/daily-collections [get]
func (h *ReportHandler) DailyCollections(c *gin.Context) {
	academicYear := c.Query("academic_year")
	from, errFrom := time.Parse("2006-01-02", c.Query("start_date"))
	to, errTo := time.Parse("2006-01-02", c.Query("end_date"))
	if academicYear == "" || errFrom != nil || errTo != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year, start_date and end_date are required"})
		return
	}
	// Include the whole end day
	to = to.Add(24*time.Hour - time.Second)

	summaries, err := h.reportService.DailyCollections(c.Request.Context(), actorFrom(c), academicYear, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"daily_collections": summaries})
}

// @Summary Export Overview XLSX
// @Description Download the financial overview as a spreadsheet
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param academic_year query string true "Academic year"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/overview/export [get]
func (h *ReportHandler) ExportOverview(c *gin.Context) {
	academicYear := c.Query("academic_year")
	if academicYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year is required"})
		return
	}

	data, err := h.exportService.OverviewXLSX(c.Request.Context(), actorFrom(c), academicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="financial-overview.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
