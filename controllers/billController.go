package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/workflow"
	"github.com/sirupsen/logrus"
)

func CreateBill(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBill
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		bill, err := workflow.CreateBill(c.Request.Context(), logger, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "bill created", bill)
	}
}

func ConfirmBill(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		bill, err := workflow.ConfirmBill(c.Request.Context(), logger, id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "bill confirmed", bill)
	}
}

func DeleteBill(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		if err := workflow.DeleteBill(c.Request.Context(), logger, id); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, "bill deleted", nil)
	}
}

func GetBill(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	bill, err := models.GetBill(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", bill)
}

func GetBills(c *gin.Context) {
	var filter models.BillFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}
	bills, err := models.GetBills(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", bills)
}
