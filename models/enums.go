package models

// ActivityAction labels one state-changing ledger operation in the activity log.
type ActivityAction string

const (
	ActivityActionCreated         ActivityAction = "created"
	ActivityActionUpdated         ActivityAction = "updated"
	ActivityActionDeleted         ActivityAction = "deleted"
	ActivityActionStockUpdated    ActivityAction = "stock_updated"
	ActivityActionPaymentReceived ActivityAction = "payment_received"
)

// ReferenceType identifies which document an activity/outbox row points at.
type ReferenceType string

const (
	ReferenceTypeSalesInvoice    ReferenceType = "SalesInvoice"
	ReferenceTypeBill            ReferenceType = "Bill"
	ReferenceTypePayment         ReferenceType = "Payment"
	ReferenceTypeSalesCreditNote ReferenceType = "SalesCreditNote"
	ReferenceTypeBillDebitNote   ReferenceType = "BillDebitNote"
	ReferenceTypeProduct         ReferenceType = "Product"
	ReferenceTypeCustomer        ReferenceType = "Customer"
	ReferenceTypeVendor          ReferenceType = "Vendor"
)

// RevenueAccount discriminates how a revenue row was realized.
type RevenueAccount string

const (
	RevenueAccountSales        RevenueAccount = "sales"
	RevenueAccountSalesPayment RevenueAccount = "sales_payment"
	RevenueAccountSalesCredit  RevenueAccount = "sales_credit"
)

// Outbox publish lifecycle.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusPublished  = "PUBLISHED"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// Idempotency lifecycle for event handlers.
const (
	IdempotencyStatusStarted   = "STARTED"
	IdempotencyStatusSucceeded = "SUCCEEDED"
	IdempotencyStatusFailed    = "FAILED"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
