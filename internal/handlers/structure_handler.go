package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
)

type StructureHandler struct {
	structureService services.StructureService
}

func NewStructureHandler(structureService services.StructureService) *StructureHandler {
	return &StructureHandler{structureService: structureService}
}

// @Summary List Fee Structures
// @Description Get fee structures for the actor's school
// @Tags FeeStructures
// @Produce json
// @Param academic_year query string false "Filter by academic year"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fee-structures [get]
func (h *StructureHandler) Index(c *gin.Context) {
	structures, canModify, err := h.structureService.List(c.Request.Context(), actorFrom(c), c.Query("academic_year"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(structures))
	for i := range structures {
		responses = append(responses, structures[i].ToResponse(canModify[structures[i].ID]))
	}

	c.JSON(http.StatusOK, gin.H{"fee_structures": responses})
}

// @Summary Get Fee Structure
// @Description Get a fee structure by ID
// @Tags FeeStructures
// @Produce json
// @Param structure_id path int true "Fee Structure ID"
// @Success 200 {object} models.FeeStructureResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /fee-structures/{structure_id} [get]
func (h *StructureHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("structure_id"), 10, 32)
	structure, canModify, err := h.structureService.Get(c.Request.Context(), actorFrom(c), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_structure": structure.ToResponse(canModify)})
}

// @Summary Create Fee Structure
// @Description Create a fee structure for a grade and academic year (Admin)
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param request body services.StructureInput true "Fee Structure"
// @Success 201 {object} models.FeeStructureResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /fee-structures [post]
func (h *StructureHandler) Create(c *gin.Context) {
	var input services.StructureInput
	if err := BindNestedOrFlat(c, "fee_structure", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	structure, err := h.structureService.Create(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fee_structure": structure.ToResponse(true)})
}

// @Summary Update Fee Structure
// @Description Update a fee structure that has no recorded payments (Admin)
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param structure_id path int true "Fee Structure ID"
// @Param request body services.StructureInput true "Fee Structure"
// @Success 200 {object} models.FeeStructureResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /fee-structures/{structure_id} [put]
func (h *StructureHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("structure_id"), 10, 32)

	var input services.StructureInput
	if err := BindNestedOrFlat(c, "fee_structure", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	structure, err := h.structureService.Update(c.Request.Context(), actorFrom(c), uint(id), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fee_structure": structure.ToResponse(true)})
}

// @Summary Deactivate Fee Structure
// @Description Retire a fee structure; existing records keep their snapshot (Admin)
// @Tags FeeStructures
// @Produce json
// @Param structure_id path int true "Fee Structure ID"
// @Success 200 {object} models.FeeStructureResponse
// @Security BearerAuth
// @Router /fee-structures/{structure_id}/deactivate [post]
func (h *StructureHandler) Deactivate(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("structure_id"), 10, 32)
	structure, err := h.structureService.Deactivate(c.Request.Context(), actorFrom(c), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_structure": structure.ToResponse(false)})
}

type CloneRequest struct {
	AcademicYear string `json:"academic_year" binding:"required"`
}

// @Summary Clone Fee Structure
// @Description Copy a fee structure into a new academic year (Admin)
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param structure_id path int true "Fee Structure ID"
// @Param request body CloneRequest true "Target academic year"
// @Success 201 {object} models.FeeStructureResponse
// @Security BearerAuth
// @Router /fee-structures/{structure_id}/clone [post]
func (h *StructureHandler) Clone(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("structure_id"), 10, 32)

	var req CloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "academic_year is required"})
		return
	}

	structure, err := h.structureService.Clone(c.Request.Context(), actorFrom(c), uint(id), req.AcademicYear)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fee_structure": structure.ToResponse(true)})
}
