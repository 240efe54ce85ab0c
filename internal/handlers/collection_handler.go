package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type CollectionHandler struct {
	collectionService services.CollectionService
}

func NewCollectionHandler(collectionService services.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

// @Summary Validate Collection
// @Description Preview a fee collection without committing anything
// @Tags Collections
// @Accept json
// @Produce json
// @Param request body services.CollectInput true "Collection details"
// @Success 200 {object} services.ValidationResult
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /collections/validate [post]
func (h *CollectionHandler) Validate(c *gin.Context) {
	var input services.CollectInput
	if err := BindNestedOrFlat(c, "collection", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.collectionService.Validate(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Collect Fee
// @Description Record a fee collection against a monthly or one-time obligation
// @Tags Collections
// @Accept json
// @Produce json
// @Param request body services.CollectInput true "Collection details"
// @Success 201 {object} services.CollectResult
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /collections [post]
func (h *CollectionHandler) Collect(c *gin.Context) {
	var input services.CollectInput
	if err := BindNestedOrFlat(c, "collection", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	input.IPAddress = c.ClientIP()
	input.DeviceInfo = c.Request.UserAgent()

	result, err := h.collectionService.Collect(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction": result.Transaction.ToResponse(),
		"fee_record":  result.Record,
		"late_fee":    result.LateFeeApplied,
		"warnings":    result.Warnings,
	})
}

// @Summary Waive Monthly Fee
// @Description Waive the remaining balance of a monthly obligation (Admin)
// @Tags Collections
// @Accept json
// @Produce json
// @Param request body services.WaiveInput true "Waiver details"
// @Success 201 {object} models.FeeTransactionResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /collections/waive [post]
func (h *CollectionHandler) Waive(c *gin.Context) {
	var input services.WaiveInput
	if err := BindNestedOrFlat(c, "waiver", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	txn, err := h.collectionService.Waive(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": txn.ToResponse()})
}

// @Summary Batch Waive
// @Description Waive the same month for many students; failures are isolated per student (Admin)
// @Tags Collections
// @Accept json
// @Produce json
// @Param request body services.BatchWaiveInput true "Batch waiver details"
// @Success 200 {object} services.BatchWaiveResult
// @Security BearerAuth
// @Router /collections/batch-waive [post]
func (h *CollectionHandler) BatchWaive(c *gin.Context) {
	var input services.BatchWaiveInput
	if err := BindNestedOrFlat(c, "waiver", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.collectionService.BatchWaive(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
