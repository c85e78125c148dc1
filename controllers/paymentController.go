package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/sirupsen/logrus"
)

func CreatePayment(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		payment, err := workflow.CreatePayment(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "payment recorded", payment)
	}
}

func DeletePayment(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		if err := workflow.DeletePayment(c.Request.Context(), logger, id); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "payment deleted", nil)
	}
}

func GetPayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	payment, err := models.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", payment)
}

func GetPayments(c *gin.Context) {
	var invoiceId *int
	if v := c.Query("sales_invoice_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			respondBadRequest(c, "invalid sales_invoice_id")
			return
		}
		invoiceId = &id
	}
	payments, err := models.GetPayments(c.Request.Context(), invoiceId)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", payments)
}
