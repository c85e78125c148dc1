package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("nimbuscrm-backend")

// AcquireTenantPostingLock serializes posting per tenant across instances
// using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that runs the posting transaction.
func AcquireTenantPostingLock(tx *gorm.DB, clientId string) error {
	lockName := fmt.Sprintf("posting:%s", clientId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for client_id=%s", clientId)
	}
	return nil
}

func ReleaseTenantPostingLock(tx *gorm.DB, clientId string) {
	lockName := fmt.Sprintf("posting:%s", clientId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// WithPosting wraps a balance/stock/revenue mutation in the posting envelope:
// a best-effort redis lock per tenant, the MySQL advisory lock, and a single
// database transaction. Any error rolls everything back; no partial ledger
// mutation is ever visible outside the transaction.
func WithPosting(ctx context.Context, logger *logrus.Logger, fn func(tx *gorm.DB) error) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return fmt.Errorf("client id is required")
	}

	var span trace.Span
	ctx, span = tracer.Start(ctx, "ledger.posting",
		trace.WithAttributes(attribute.String("client_id", clientId)))
	defer span.End()

	// Best-effort: if redis is unavailable or the lock cannot be obtained,
	// continue anyway; the advisory lock below still serializes safely.
	var lock *redislock.Lock
	if redisLock := config.GetRedisLock(); redisLock != nil {
		var err error
		lock, err = redisLock.Obtain(ctx, fmt.Sprintf("lock:%s", clientId), 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			logger.WithFields(logrus.Fields{
				"field":     "WithPosting",
				"client_id": clientId,
			}).Warn("could not obtain redis lock; proceeding without redis lock")
			lock = nil
		} else if err != nil {
			logger.WithFields(logrus.Fields{
				"field":     "WithPosting",
				"client_id": clientId,
			}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
			lock = nil
		}
	}
	defer func() {
		if lock == nil {
			return
		}
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"field":     "WithPosting",
				"client_id": clientId,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}()

	// Pin a single pooled connection so GET_LOCK and RELEASE_LOCK run on the
	// connection that owns the lock, and the lock is held until after COMMIT.
	db := config.GetDB()
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := AcquireTenantPostingLock(conn, clientId); err != nil {
			return err
		}
		defer ReleaseTenantPostingLock(conn, clientId)
		return conn.Transaction(func(tx *gorm.DB) error {
			return fn(tx)
		})
	})
}
