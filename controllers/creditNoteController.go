package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/sirupsen/logrus"
)

func CreateSalesCreditNote(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSalesCreditNote
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		note, err := workflow.CreateSalesCreditNote(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "credit note created", note)
	}
}

func DeleteSalesCreditNote(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		if err := workflow.DeleteSalesCreditNote(c.Request.Context(), logger, id); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "credit note deleted", nil)
	}
}

func GetSalesCreditNote(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	note, err := models.GetSalesCreditNote(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", note)
}

func GetSalesCreditNotes(c *gin.Context) {
	var invoiceId *int
	if v := c.Query("sales_invoice_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			respondBadRequest(c, "invalid sales_invoice_id")
			return
		}
		invoiceId = &id
	}
	notes, err := models.GetSalesCreditNotes(c.Request.Context(), invoiceId)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", notes)
}
