package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/middleware"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Structure    *StructureHandler
	Record       *RecordHandler
	Collection   *CollectionHandler
	Transaction  *TransactionHandler
	Defaulter    *DefaulterHandler
	Fraud        *FraudHandler
	Report       *ReportHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth),
		Structure:    NewStructureHandler(svcs.Structure),
		Record:       NewRecordHandler(svcs.Ledger),
		Collection:   NewCollectionHandler(svcs.Collection),
		Transaction:  NewTransactionHandler(svcs.Collection, svcs.Export),
		Defaulter:    NewDefaulterHandler(svcs.Defaulter, svcs.Export),
		Fraud:        NewFraudHandler(svcs.Fraud),
		Report:       NewReportHandler(svcs.Report, svcs.Export),
		Notification: NewNotificationHandler(svcs.Notification),
		Audit:        NewAuditHandler(svcs.Audit),
	}
}

// actorFrom builds the service-layer actor from the authenticated context
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		ID:       middleware.GetUserID(c),
		Role:     middleware.GetUserRole(c),
		SchoolID: middleware.GetSchoolID(c),
	}
}

// respondError maps service errors onto HTTP statuses. Unknown errors become
// an opaque 500; the detail goes to the log, not the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrImmutableStructure),
		errors.Is(err, services.ErrOrdering),
		errors.Is(err, services.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrOverpayment):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		logger.Log.Error("Unhandled service error",
			"path", c.Request.URL.Path,
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
