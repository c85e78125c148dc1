package models

import (
	"log"

	"github.com/nimbuscrm/crm_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Client{}, &User{},
		&Customer{}, &Vendor{},
		&Product{},
		&SalesInvoice{}, &SalesInvoiceDetail{},
		&Bill{}, &BillDetail{},
		&Payment{},
		&SalesCreditNote{}, &SalesCreditNoteItem{},
		&BillDebitNote{}, &BillDebitNoteItem{},
		&SalesRevenue{},
		&Activity{}, &OutboxEvent{},
		&Document{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
