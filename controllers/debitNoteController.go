package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/sirupsen/logrus"
)

func CreateBillDebitNote(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBillDebitNote
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		note, err := workflow.CreateBillDebitNote(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "debit note created", note)
	}
}

func DeleteBillDebitNote(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		if err := workflow.DeleteBillDebitNote(c.Request.Context(), logger, id); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "debit note deleted", nil)
	}
}

func GetBillDebitNote(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	note, err := models.GetBillDebitNote(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", note)
}

func GetBillDebitNotes(c *gin.Context) {
	var billId *int
	if v := c.Query("bill_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			respondBadRequest(c, "invalid bill_id")
			return
		}
		billId = &id
	}
	notes, err := models.GetBillDebitNotes(c.Request.Context(), billId)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", notes)
}
