package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

type InvoiceFilter struct {
	Search    string
	Status    string
	CompanyID string
	BatchID   string
}

func (f InvoiceFilter) filters() apiclient.Filters {
	return apiclient.Filters{
		"search":    f.Search,
		"status":    f.Status,
		"companyId": f.CompanyID,
		"batchId":   f.BatchID,
	}
}

type InvoiceService struct {
	Resource[models.Invoice]
}

func NewInvoiceService(client *apiclient.Client) *InvoiceService {
	return &InvoiceService{Resource: newResource[models.Invoice](client, "/invoices")}
}

// SearchByCode looks an invoice up by its public code. A blank code or a
// missing invoice is a successful envelope with nil data; a blank code sends
// no request.
func (s *InvoiceService) SearchByCode(ctx context.Context, code string) apiclient.Envelope[*models.Invoice] {
	code = strings.TrimSpace(code)
	if code == "" {
		return apiclient.Ok[*models.Invoice](nil, "")
	}
	return call[*models.Invoice](ctx, s.Client, apiclient.Request{
		Method: http.MethodGet,
		Path:   s.path + "/search",
		Query:  url.Values{"code": {code}},
	})
}

// GetInvoicesPaginated pages with the page/limit pair the invoice endpoints use
// instead of page/pageSize.
func (s *InvoiceService) GetInvoicesPaginated(ctx context.Context, page, limit int, filter InvoiceFilter) apiclient.Envelope[apiclient.PaginatedResult[models.Invoice]] {
	page, limit = apiclient.ClampPage(page, limit)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	return call[apiclient.PaginatedResult[models.Invoice]](ctx, s.Client, apiclient.Request{
		Method: http.MethodGet,
		Path:   s.path,
		Query:  filter.filters().Apply(query),
	})
}

func (s *InvoiceService) UpdateStatus(ctx context.Context, id, status string) apiclient.Envelope[models.Invoice] {
	return call[models.Invoice](ctx, s.Client, apiclient.Request{
		Method: http.MethodPatch,
		Path:   s.itemPath(id, "status"),
		Body:   models.InvoiceStatusUpdate{Status: status},
	})
}

func (s *InvoiceService) Import(ctx context.Context, fileName string, file io.Reader) apiclient.Envelope[models.ImportResult] {
	return apiclient.Decode[models.ImportResult](s.UploadFile(ctx, s.path+"/import", "file", fileName, file))
}

type LineService struct {
	Resource[models.InvoiceLine]
}

func NewLineService(client *apiclient.Client) *LineService {
	return &LineService{Resource: newResource[models.InvoiceLine](client, "/invoice-lines")}
}

func (s *LineService) ByInvoice(ctx context.Context, invoiceID string) apiclient.Envelope[[]models.InvoiceLine] {
	return call[[]models.InvoiceLine](ctx, s.Client, apiclient.Request{
		Method: http.MethodGet,
		Path:   s.path,
		Query:  url.Values{"invoiceId": {invoiceID}},
	})
}

type BatchService struct {
	Resource[models.InvoiceBatch]
}

func NewBatchService(client *apiclient.Client) *BatchService {
	return &BatchService{Resource: newResource[models.InvoiceBatch](client, "/invoice-batches")}
}

func (s *BatchService) Upload(ctx context.Context, fileName string, file io.Reader) apiclient.Envelope[models.InvoiceBatch] {
	return apiclient.Decode[models.InvoiceBatch](s.UploadFile(ctx, s.path+"/upload", "file", fileName, file))
}

func (s *BatchService) Process(ctx context.Context, id string) apiclient.Envelope[models.InvoiceBatch] {
	return call[models.InvoiceBatch](ctx, s.Client, apiclient.Request{Method: http.MethodPost, Path: s.itemPath(id, "process")})
}

type CompanyService struct {
	Resource[models.Company]
}

func NewCompanyService(client *apiclient.Client) *CompanyService {
	return &CompanyService{Resource: newResource[models.Company](client, "/companies")}
}
