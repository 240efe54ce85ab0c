package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type DefaulterHandler struct {
	defaulterService services.DefaulterService
	exportService    services.ExportService
}

func NewDefaulterHandler(defaulterService services.DefaulterService, exportService services.ExportService) *DefaulterHandler {
	return &DefaulterHandler{defaulterService: defaulterService, exportService: exportService}
}

// @Summary List Defaulters
// @Description Get the defaulter list for the actor's school
// @Tags Defaulters
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param academic_year query string false "Filter by academic year"
// @Param grade query string false "Filter by grade"
// @Param min_due query number false "Minimum overdue amount"
// @Param min_days query int false "Minimum days overdue"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /defaulters [get]
func (h *DefaulterHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["academic_year"] = c.Query("academic_year")
	query.Filters["grade"] = c.Query("grade")
	query.Filters["min_due"] = c.Query("min_due")
	query.Filters["min_days"] = c.Query("min_days")

	defaulters, total, err := h.defaulterService.List(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"defaulters": defaulters,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

type SyncRequest struct {
	AcademicYear string `json:"academic_year" binding:"required"`
}

// @Summary Sync Defaulters
// @Description Recompute the defaulter list for the actor's school now (Admin)
// @Tags Defaulters
// @Accept json
// @Produce json
// @Param request body SyncRequest true "Academic year"
// @Success 200 {object} services.SyncResult
// @Security BearerAuth
// @Router /defaulters/sync [post]
func (h *DefaulterHandler) Sync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year is required"})
		return
	}

	result, err := h.defaulterService.SyncDefaultersForSchool(c.Request.Context(), actorFrom(c).SchoolID, req.AcademicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Send Reminder
// @Description Record a fee reminder against a defaulter and queue its notification
// @Tags Defaulters
// @Produce json
// @Param defaulter_id path int true "Defaulter ID"
// @Success 200 {object} models.FeeDefaulter
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /defaulters/{defaulter_id}/remind [post]
func (h *DefaulterHandler) Remind(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("defaulter_id"), 10, 32)
	defaulter, err := h.defaulterService.SendReminder(c.Request.Context(), actorFrom(c), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"defaulter": defaulter})
}

// @Summary Export Defaulters XLSX
// @Description Download the defaulter list as a spreadsheet
// @Tags Defaulters
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param academic_year query string true "Academic year"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /defaulters/export [get]
func (h *DefaulterHandler) Export(c *gin.Context) {
	academicYear := c.Query("academic_year")
	if academicYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year is required"})
		return
	}

	data, err := h.exportService.DefaultersXLSX(c.Request.Context(), actorFrom(c), academicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="defaulters.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
