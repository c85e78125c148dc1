package reports

import (
	"fmt"
	"io"

	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/xuri/excelize/v2"
)

// WriteRevenueByCustomerExcel renders the revenue-by-customer report as a
// spreadsheet.
func WriteRevenueByCustomerExcel(w io.Writer, data []*RevenueByCustomerResponse) error {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return err
	}

	f.SetCellValue("Sheet1", "A1", "CustomerName")
	f.SetCellValue("Sheet1", "B1", "InvoiceCount")
	f.SetCellValue("Sheet1", "C1", "Revenue")
	f.SetCellValue("Sheet1", "D1", "Cost")
	f.SetCellValue("Sheet1", "E1", "Profit")

	for i, d := range data {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), utils.DereferencePtr(d.CustomerName, ""))
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), d.InvoiceCount)
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), d.TotalRevenue.InexactFloat64())
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), d.TotalCost.InexactFloat64())
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), d.TotalProfit.InexactFloat64())
	}

	return f.Write(w)
}

// WriteOutstandingReceivablesExcel renders the outstanding receivables report
// as a spreadsheet.
func WriteOutstandingReceivablesExcel(w io.Writer, data []*OutstandingReceivableResponse) error {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return err
	}

	f.SetCellValue("Sheet1", "A1", "InvoiceNumber")
	f.SetCellValue("Sheet1", "B1", "CustomerName")
	f.SetCellValue("Sheet1", "C1", "InvoiceDate")
	f.SetCellValue("Sheet1", "D1", "Total")
	f.SetCellValue("Sheet1", "E1", "Settled")
	f.SetCellValue("Sheet1", "F1", "Outstanding")
	f.SetCellValue("Sheet1", "G1", "Status")

	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue("Sheet1", "A"+row, d.InvoiceNumber)
		f.SetCellValue("Sheet1", "B"+row, utils.DereferencePtr(d.CustomerName, ""))
		f.SetCellValue("Sheet1", "C"+row, d.InvoiceDate.Format("2006-01-02"))
		f.SetCellValue("Sheet1", "D"+row, d.Total.InexactFloat64())
		f.SetCellValue("Sheet1", "E"+row, d.SettledAmount.InexactFloat64())
		f.SetCellValue("Sheet1", "F"+row, d.Outstanding.InexactFloat64())
		f.SetCellValue("Sheet1", "G"+row, d.Status)
	}

	return f.Write(w)
}
