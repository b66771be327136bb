package models

import "time"

const (
	InvoiceStatusPaid      = "paid"
	InvoiceStatusPending   = "pending"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

type Invoice struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	CustomerName string    `json:"customerName"`
	CompanyID    string    `json:"companyId,omitempty"`
	BatchID      string    `json:"batchId,omitempty"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	IssuedAt     time.Time `json:"issuedAt"`
	DueAt        time.Time `json:"dueAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type InvoiceInput struct {
	Code         string    `json:"code,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	CompanyID    string    `json:"companyId,omitempty"`
	BatchID      string    `json:"batchId,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	Status       string    `json:"status,omitempty"`
	IssuedAt     time.Time `json:"issuedAt,omitzero"`
	DueAt        time.Time `json:"dueAt,omitzero"`
}

type InvoiceStatusUpdate struct {
	Status string `json:"status"`
}

type InvoiceLine struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoiceId"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

type InvoiceBatch struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	FileName       string    `json:"fileName,omitempty"`
	Status         string    `json:"status"`
	OrganizationID string    `json:"organizationId,omitempty"`
	TotalInvoices  int       `json:"totalInvoices"`
	ProcessedAt    time.Time `json:"processedAt,omitzero"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"taxId,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
