package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type RecordHandler struct {
	ledgerService services.LedgerService
}

func NewRecordHandler(ledgerService services.LedgerService) *RecordHandler {
	return &RecordHandler{ledgerService: ledgerService}
}

type CreateRecordRequest struct {
	StudentID    uint   `json:"student_id" binding:"required"`
	AcademicYear string `json:"academic_year" binding:"required"`
}

// @Summary Create Student Fee Record
// @Description Snapshot the active fee structure into a new per-year ledger for a student
// @Tags FeeRecords
// @Accept json
// @Produce json
// @Param request body CreateRecordRequest true "Student and academic year"
// @Success 201 {object} models.StudentFeeRecord
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /fee-records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id and academic_year are required"})
		return
	}

	record, err := h.ledgerService.CreateFromStructure(c.Request.Context(), actorFrom(c), req.StudentID, req.AcademicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fee_record": record})
}

// @Summary Student Fee Status
// @Description Get a student's fee record for an academic year with freshly derived statuses
// @Tags FeeRecords
// @Produce json
// @Param student_id path int true "Student ID"
// @Param academic_year query string true "Academic year (e.g. 2025-2026)"
// @Success 200 {object} models.StudentFeeRecord
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /students/{student_id}/fee-status [get]
func (h *RecordHandler) StudentFeeStatus(c *gin.Context) {
	studentID, _ := strconv.ParseUint(c.Param("student_id"), 10, 32)
	academicYear := c.Query("academic_year")
	if academicYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year is required"})
		return
	}

	record, err := h.ledgerService.GetStudentFeeStatus(c.Request.Context(), actorFrom(c), uint(studentID), academicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fee_record": record})
}

// @Summary Get Fee Record
// @Description Get a fee record by ID
// @Tags FeeRecords
// @Produce json
// @Param record_id path int true "Fee Record ID"
// @Success 200 {object} models.StudentFeeRecord
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /fee-records/{record_id} [get]
func (h *RecordHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("record_id"), 10, 32)
	record, err := h.ledgerService.GetRecord(c.Request.Context(), actorFrom(c), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_record": record})
}
