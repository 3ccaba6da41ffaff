package rbac

import "github.com/dapur-erp/dapur-erp/internal/shared"

// Permission names.
const (
	PermProcurementView    = "procurement.view"
	PermProcurementCreate  = "procurement.create"
	PermProcurementApprove = "procurement.approve"
	PermProcurementSend    = "procurement.send"
	PermSupplierRespond    = "procurement.supplier"
	PermGoodsReceive       = "procurement.receive"
	PermQualityControl     = "procurement.qc"
	PermProcurementMatch   = "procurement.match"
	PermFinanceView        = "finance.view"
	PermFinanceInvoice     = "finance.invoice"
	PermFinancePay         = "finance.pay"
	PermFinanceRequest     = "finance.request"
	PermNotificationsView  = "notifications.view"
	PermAuditView          = "audit.view"
)

// Permission describes a grantable permission.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Permissions lists every permission the API checks.
var Permissions = []Permission{
	{PermProcurementView, "Read purchase orders, steps, receipts and matches"},
	{PermProcurementCreate, "Create purchase orders and submit them for approval"},
	{PermProcurementApprove, "Approve or cancel purchase orders"},
	{PermProcurementSend, "Send approved purchase orders to the supplier"},
	{PermSupplierRespond, "Accept, reject and ship purchase orders as the supplier"},
	{PermGoodsReceive, "Record goods receipts"},
	{PermQualityControl, "Record quality control results"},
	{PermProcurementMatch, "Run three-way matches"},
	{PermFinanceView, "Read invoices and payments"},
	{PermFinanceInvoice, "Issue final invoices"},
	{PermFinancePay, "Record payments"},
	{PermFinanceRequest, "Raise and cancel payment requests"},
	{PermNotificationsView, "Read the role inbox"},
	{PermAuditView, "Read and export the audit timeline"},
}

var rolePermissions = map[shared.Role][]string{
	shared.RoleKitchen: {
		PermProcurementView, PermProcurementCreate, PermGoodsReceive, PermQualityControl, PermNotificationsView,
	},
	shared.RoleManager: {
		PermProcurementView, PermProcurementCreate, PermProcurementApprove, PermProcurementSend,
		PermGoodsReceive, PermQualityControl, PermProcurementMatch,
		PermFinanceView, PermFinanceRequest, PermNotificationsView, PermAuditView,
	},
	shared.RoleSupplier: {
		PermProcurementView, PermSupplierRespond, PermFinanceView, PermNotificationsView,
	},
	shared.RoleFinance: {
		PermProcurementView, PermProcurementMatch,
		PermFinanceView, PermFinanceInvoice, PermFinancePay, PermFinanceRequest, PermNotificationsView,
		PermAuditView,
	},
}
