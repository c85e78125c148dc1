package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models"
)

func GetSalesRevenue(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	revenue, err := models.GetSalesRevenue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", revenue)
}

func GetSalesRevenues(c *gin.Context) {
	var filter models.RevenueFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}
	revenues, err := models.GetSalesRevenues(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", revenues)
}

func GetActivities(c *gin.Context) {
	var filter models.ActivityFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}
	activities, err := models.GetActivities(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "", activities)
}
