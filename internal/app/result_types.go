package app

import "warehouse-backoffice/internal/core"

// DashboardResult is returned by Dashboard.
type DashboardResult struct {
	Overview    *core.Overview         `json:"overview"`
	Alerts      []core.LowStockAlert   `json:"alerts"`
	Maintenance *core.MaintenanceStats `json:"maintenance"`
	Invoices    *core.InvoiceSummary   `json:"invoices"`
}

// ProposalApplied is returned by ApplyProposal. Transfers report both leg
// ids and the shared reference.
type ProposalApplied struct {
	TransactionIDs []int64 `json:"transaction_ids"`
	Reference      string  `json:"reference"`
}
