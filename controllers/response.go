package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimbuscrm/crm_backend/ledger"
	"github.com/nimbuscrm/crm_backend/utils"
)

// Every handler answers with the same envelope: {success, message, data}.

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "data": data})
}

// respondError maps the ledger error taxonomy onto HTTP status codes. Unknown
// errors surface as 500 with a generic message so internals never leak.
func respondError(c *gin.Context, err error) {
	var (
		validationErr   *ledger.ValidationError
		notFoundErr     *ledger.NotFoundError
		overpaymentErr  *ledger.OverpaymentError
		stockErr        *ledger.InsufficientStockError
		inconsistentErr *ledger.InconsistentStateError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": notFoundErr.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "record not found"})
	case errors.As(err, &overpaymentErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "message": overpaymentErr.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": stockErr.Error()})
	case errors.As(err, &inconsistentErr):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": inconsistentErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// respondBindError reports request binding failures, with per-field detail
// when the validator produced any.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"data":    utils.ProcessValidationErrors(err),
		})
		return
	}
	respondBadRequest(c, err.Error())
}
