package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/sirupsen/logrus"
)

// RunReconciliation sweeps the tenant's ledger for stored-versus-recomputed
// mismatches. Read-only.
func RunReconciliation(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientId, _ := utils.GetClientIdFromContext(c.Request.Context())
		findings, err := workflow.RunReconciliationChecks(c.Request.Context(), logger, clientId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "reconciliation completed", gin.H{"findings": findings, "count": len(findings)})
	}
}

// RequeueOutboxEvents moves FAILED and DEAD outbox rows for this tenant back
// to PENDING so the dispatcher retries them.
func RequeueOutboxEvents(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientId, _ := utils.GetClientIdFromContext(c.Request.Context())
		db := config.GetDB()
		result := db.WithContext(c.Request.Context()).Model(&models.OutboxEvent{}).
			Where("client_id = ? AND publish_status IN ?", clientId,
				[]string{models.OutboxPublishStatusFailed, models.OutboxPublishStatusDead}).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusPending,
				"publish_attempts":   0,
				"next_attempt_at":    nil,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			})
		if result.Error != nil {
			config.LogError(logger, "adminController.go", "RequeueOutboxEvents", "requeue", clientId, result.Error)
			respondError(c, result.Error)
			return
		}
		respondOK(c, "outbox events requeued", gin.H{"requeued": result.RowsAffected})
	}
}
