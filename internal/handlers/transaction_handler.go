package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type TransactionHandler struct {
	collectionService services.CollectionService
	exportService     services.ExportService
}

func NewTransactionHandler(collectionService services.CollectionService, exportService services.ExportService) *TransactionHandler {
	return &TransactionHandler{collectionService: collectionService, exportService: exportService}
}

// @Summary List Transactions
// @Description Get a paginated list of fee transactions
// @Tags Transactions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status (comma-separated)"
// @Param student_id query int false "Filter by student"
// @Param academic_year query string false "Filter by academic year"
// @Param transaction_type query string false "Filter by transaction type"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /transactions [get]
func (h *TransactionHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["status"] = c.Query("status")
	query.Filters["student_id"] = c.Query("student_id")
	query.Filters["academic_year"] = c.Query("academic_year")
	query.Filters["transaction_type"] = c.Query("transaction_type")
	query.Filters["start_date"] = c.Query("start_date")
	query.Filters["end_date"] = c.Query("end_date")

	if search := c.Query("search"); search != "" {
		query.Filters["search_term"] = search
	}
	if search := c.Query("search_term"); search != "" {
		query.Filters["search_term"] = search
	}

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	txns, total, err := h.collectionService.ListTransactions(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(txns))
	for i := range txns {
		responses = append(responses, txns[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Transaction
// @Description Get a transaction by its receipt number
// @Tags Transactions
// @Produce json
// @Param transaction_id path string true "Receipt number"
// @Success 200 {object} models.FeeTransactionResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id} [get]
func (h *TransactionHandler) Show(c *gin.Context) {
	txn, err := h.collectionService.GetTransaction(c.Request.Context(), actorFrom(c), c.Param("transaction_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": txn.ToResponse()})
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// @Summary Cancel Transaction
// @Description Cancel a completed payment within the cancellation window (Admin)
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path string true "Receipt number"
// @Param request body CancelRequest true "Cancellation reason"
// @Success 200 {object} models.FeeTransactionResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/cancel [post]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cancellation reason is required"})
		return
	}

	txn, err := h.collectionService.CancelTransaction(c.Request.Context(), actorFrom(c), c.Param("transaction_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn.ToResponse()})
}

// @Summary Receipt PDF
// @Description Download the printable receipt for a transaction
// @Tags Transactions
// @Produce application/pdf
// @Param transaction_id path string true "Receipt number"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /transactions/{transaction_id}/receipt [get]
func (h *TransactionHandler) Receipt(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	data, err := h.exportService.ReceiptPDF(c.Request.Context(), actorFrom(c), transactionID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("receipt-%s.pdf", transactionID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary Export Collections CSV
// @Description Download the filtered transaction list as CSV
// @Tags Transactions
// @Produce text/csv
// @Param academic_year query string false "Filter by academic year"
// @Param start_date query string false "Filter from date (YYYY-MM-DD)"
// @Param end_date query string false "Filter to date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /transactions/export [get]
func (h *TransactionHandler) ExportCSV(c *gin.Context) {
	query := repository.NewListQuery()
	query.Filters["academic_year"] = c.Query("academic_year")
	query.Filters["start_date"] = c.Query("start_date")
	query.Filters["end_date"] = c.Query("end_date")
	query.Filters["status"] = c.Query("status")

	data, err := h.exportService.CollectionsCSV(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="collections.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
