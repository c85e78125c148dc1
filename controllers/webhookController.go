package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// pubSubPushEnvelope is the wrapper Pub/Sub push subscriptions POST to us.
// The Data byte slice handles base64 decoding on unmarshal.
type pubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type paymentEvent struct {
	ClientId       string          `json:"client_id"`
	SalesInvoiceID int             `json:"sales_invoice_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Reference      string          `json:"reference"`
	CorrelationId  string          `json:"correlation_id"`
}

// PaymentPubSubHandler consumes payment events pushed by the gateway
// subscription. Delivery is at-least-once, so the workflow behind this is
// idempotent per message id. Acking (2xx) a malformed or poisoned message
// drops it; a 5xx tells Pub/Sub to retry and eventually route to the DLQ.
func PaymentPubSubHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "webhookController.go", "PaymentPubSubHandler", "read body", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		var envelope pubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(logger, "webhookController.go", "PaymentPubSubHandler", "unmarshal envelope", body, err)
			c.Status(http.StatusNoContent)
			return
		}

		var event paymentEvent
		if err := json.Unmarshal(envelope.Message.Data, &event); err != nil {
			config.LogError(logger, "webhookController.go", "PaymentPubSubHandler", "unmarshal payment event", envelope.Message.Data, err)
			c.Status(http.StatusNoContent)
			return
		}
		if event.ClientId == "" || event.SalesInvoiceID == 0 {
			config.LogError(logger, "webhookController.go", "PaymentPubSubHandler", "invalid payment event (missing required fields)", event, errors.New("client_id/sales_invoice_id required"))
			c.Status(http.StatusNoContent)
			return
		}

		correlationId := event.CorrelationId
		if correlationId == "" {
			correlationId = envelope.Message.ID
		}

		ctx := utils.SetClientIdInContext(c.Request.Context(), event.ClientId)
		ctx = utils.SetUserIdInContext(ctx, 0)
		ctx = utils.SetUserNameInContext(ctx, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)

		err = workflow.ProcessPaymentMessage(ctx, logger, envelope.Message.ID, &models.NewPayment{
			SalesInvoiceID: event.SalesInvoiceID,
			Amount:         event.Amount,
			Method:         event.Method,
			Reference:      event.Reference,
		})
		if err != nil {
			logger.WithFields(logrus.Fields{
				"field":            "PaymentPubSubHandler",
				"client_id":        event.ClientId,
				"sales_invoice_id": event.SalesInvoiceID,
				"message_id":       envelope.Message.ID,
				"correlation_id":   correlationId,
			}).Error("payment message processing failed: " + err.Error())

			// A poisoned message never becomes valid on retry; ack it.
			var valErr *ledger.ValidationError
			var overErr *ledger.OverpaymentError
			var nfErr *ledger.NotFoundError
			if errors.As(err, &valErr) || errors.As(err, &overErr) || errors.As(err, &nfErr) ||
				errors.Is(err, utils.ErrorRecordNotFound) {
				c.Status(http.StatusNoContent)
				return
			}
			c.Status(http.StatusInternalServerError)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
