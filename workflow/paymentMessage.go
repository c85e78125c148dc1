package workflow

import (
	"context"
	"fmt"

	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const paymentMessageHandler = "PaymentMessage"

// ProcessPaymentMessage applies a payment event delivered at-least-once by the
// payment gateway subscription. Durable idempotency on (client_id, handler,
// message_id) makes redelivery safe: a redelivered message that already
// succeeded is acked without posting a second payment.
func ProcessPaymentMessage(ctx context.Context, logger *logrus.Logger, messageId string, input *models.NewPayment) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}
	if messageId == "" {
		return fmt.Errorf("message id is required")
	}
	if err := input.Validate(); err != nil {
		return err
	}

	return WithPosting(ctx, logger, func(tx *gorm.DB) error {
		skip, err := BeginIdempotency(tx, clientId, paymentMessageHandler, messageId)
		if err != nil {
			return err
		}
		if skip {
			logger.WithFields(logrus.Fields{
				"field":      "ProcessPaymentMessage",
				"client_id":  clientId,
				"message_id": messageId,
			}).Info("duplicate payment message skipped")
			return nil
		}

		if _, err := createPaymentInTx(tx, ctx, logger, clientId, input); err != nil {
			_ = MarkIdempotencyFailed(tx, clientId, paymentMessageHandler, messageId, err)
			return err
		}
		return MarkIdempotencySucceeded(tx, clientId, paymentMessageHandler, messageId)
	})
}
