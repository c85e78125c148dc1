package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/sirupsen/logrus"
)

func CreateSalesInvoice(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSalesInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		invoice, err := workflow.CreateSalesInvoice(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "invoice created", invoice)
	}
}

func UpdateSalesInvoice(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		var input models.NewSalesInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		invoice, err := workflow.UpdateSalesInvoice(c.Request.Context(), logger, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "invoice updated", invoice)
	}
}

func DeleteSalesInvoice(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		if err := workflow.DeleteSalesInvoice(c.Request.Context(), logger, id); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "invoice deleted", nil)
	}
}

func GetSalesInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	invoice, err := models.GetSalesInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", invoice)
}

func GetSalesInvoices(c *gin.Context) {
	var filter models.SalesInvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}
	invoices, err := models.GetSalesInvoices(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", invoices)
}
