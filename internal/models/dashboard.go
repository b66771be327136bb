package models

type DashboardStats struct {
	TotalInvoices   int     `json:"totalInvoices"`
	PaidInvoices    int     `json:"paidInvoices"`
	PendingInvoices int     `json:"pendingInvoices"`
	OverdueInvoices int     `json:"overdueInvoices"`
	TotalAmount     float64 `json:"totalAmount"`
	PaidAmount      float64 `json:"paidAmount"`
	TotalCompanies  int     `json:"totalCompanies"`
}

type DashboardOverview struct {
	Stats          DashboardStats `json:"stats"`
	RecentInvoices []Invoice      `json:"recentInvoices"`
}
