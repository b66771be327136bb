package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

const defaultRecentInvoices = 5

type DashboardService struct {
	*apiclient.Client
}

func NewDashboardService(client *apiclient.Client) *DashboardService {
	return &DashboardService{Client: client}
}

func (s *DashboardService) Stats(ctx context.Context) apiclient.Envelope[models.DashboardStats] {
	return call[models.DashboardStats](ctx, s.Client, apiclient.Request{Method: http.MethodGet, Path: "/dashboard/stats"})
}

func (s *DashboardService) RecentInvoices(ctx context.Context, limit int) apiclient.Envelope[[]models.Invoice] {
	if limit < 1 {
		limit = defaultRecentInvoices
	}
	return call[[]models.Invoice](ctx, s.Client, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/dashboard/recent-invoices",
		Query:  url.Values{"limit": {strconv.Itoa(limit)}},
	})
}

// Overview loads stats and recent invoices concurrently. When both fail the
// stats failure is reported.
func (s *DashboardService) Overview(ctx context.Context, recent int) apiclient.Envelope[models.DashboardOverview] {
	var (
		stats    apiclient.Envelope[models.DashboardStats]
		invoices apiclient.Envelope[[]models.Invoice]
	)
	var g errgroup.Group
	g.Go(func() error {
		stats = s.Stats(ctx)
		return stats.Err()
	})
	g.Go(func() error {
		invoices = s.RecentInvoices(ctx, recent)
		return invoices.Err()
	})
	if err := g.Wait(); err != nil {
		if !stats.Success {
			return apiclient.Fail[models.DashboardOverview](stats.Message, stats.Errors...)
		}
		return apiclient.Fail[models.DashboardOverview](invoices.Message, invoices.Errors...)
	}
	return apiclient.Ok(models.DashboardOverview{Stats: stats.Data, RecentInvoices: invoices.Data}, "")
}
