package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/models/reports"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func reportWindow(c *gin.Context) (time.Time, time.Time, bool) {
	from := time.Now().UTC().AddDate(0, -1, 0)
	to := time.Now().UTC()
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondBadRequest(c, "invalid from date; expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondBadRequest(c, "invalid to date; expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		// inclusive end of day
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, true
}

func GetRevenueByCustomerReport(c *gin.Context) {
	from, to, ok := reportWindow(c)
	if !ok {
		return
	}
	data, err := reports.GetRevenueByCustomerReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "xlsx" {
		c.Header("Content-Type", excelContentType)
		c.Header("Content-Disposition", "attachment; filename=revenue-by-customer.xlsx")
		if err := reports.WriteRevenueByCustomerExcel(c.Writer, data); err != nil {
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	respondOK(c, "", data)
}

func GetOutstandingReceivablesReport(c *gin.Context) {
	data, err := reports.GetOutstandingReceivablesReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "xlsx" {
		c.Header("Content-Type", excelContentType)
		c.Header("Content-Disposition", "attachment; filename=outstanding-receivables.xlsx")
		if err := reports.WriteOutstandingReceivablesExcel(c.Writer, data); err != nil {
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	respondOK(c, "", data)
}
