package admindata

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/mockapi"
	"invoiceweb/portal/internal/models"
	"invoiceweb/portal/internal/services"
)

type item struct {
	ID string
}

func pageOf(p Params, total int) Page[item] {
	start := (p.Page - 1) * p.PageSize
	var items []item
	for i := start; i < total && i < start+p.PageSize; i++ {
		items = append(items, item{ID: string(rune('a' + i))})
	}
	return Page[item]{Items: items, TotalCount: total, Page: p.Page, PageSize: p.PageSize}
}

func TestLoadFillsState(t *testing.T) {
	var seen []Params
	c := New(Funcs[item]{Fetch: func(_ context.Context, p Params) (Page[item], error) {
		seen = append(seen, p)
		return pageOf(p, 7), nil
	}}, Options{PageSize: 3})

	require.NoError(t, c.Load(context.Background()))
	st := c.State()
	require.Len(t, st.Data, 3)
	require.Equal(t, 7, st.Total)
	require.False(t, st.Loading)
	require.Empty(t, st.Error)

	require.NoError(t, c.SetPage(context.Background(), 3))
	st = c.State()
	require.Equal(t, []item{{ID: "g"}}, st.Data)
	require.Equal(t, 3, st.Page)

	require.NoError(t, c.SetPage(context.Background(), 3))
	require.Len(t, seen, 2)
}

func TestFetchFailureClearsData(t *testing.T) {
	fail := false
	c := New(Funcs[item]{Fetch: func(_ context.Context, p Params) (Page[item], error) {
		if fail {
			return Page[item]{}, errors.New("boom")
		}
		return pageOf(p, 5), nil
	}}, Options{})

	require.NoError(t, c.Load(context.Background()))
	require.Len(t, c.State().Data, 5)

	fail = true
	require.EqualError(t, c.Load(context.Background()), "boom")
	st := c.State()
	require.Empty(t, st.Data)
	require.NotNil(t, st.Data)
	require.Zero(t, st.Total)
	require.Equal(t, "boom", st.Error)
}

func TestSetPageSizeResetsPage(t *testing.T) {
	c := New(Funcs[item]{Fetch: func(_ context.Context, p Params) (Page[item], error) {
		return pageOf(p, 30), nil
	}}, Options{})
	require.NoError(t, c.SetPage(context.Background(), 3))
	require.NoError(t, c.SetPageSize(context.Background(), 20))

	st := c.State()
	require.Equal(t, 1, st.Page)
	require.Equal(t, 20, st.PageSize)
	require.Len(t, st.Data, 20)
}

func TestSearchAndFilterResetPage(t *testing.T) {
	var last Params
	c := New(Funcs[item]{Fetch: func(_ context.Context, p Params) (Page[item], error) {
		last = p
		return pageOf(p, 30), nil
	}}, Options{})
	require.NoError(t, c.SetPage(context.Background(), 2))
	require.NoError(t, c.SetFilter(context.Background(), "status", "paid"))
	require.Equal(t, 1, last.Page)
	require.Equal(t, apiclient.Filters{"status": "paid"}, last.Filters)

	require.NoError(t, c.SetPage(context.Background(), 2))
	require.NoError(t, c.SetSearch(context.Background(), "acme"))
	require.Equal(t, 1, last.Page)
	require.Equal(t, "acme", last.Search)

	require.NoError(t, c.SetFilter(context.Background(), "status", ""))
	require.Empty(t, last.Filters)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := New(Funcs[item]{Fetch: func(_ context.Context, p Params) (Page[item], error) {
		if p.Page == 1 {
			close(started)
			<-release
		}
		return pageOf(p, 30), nil
	}}, Options{})

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = c.Load(context.Background())
	}()
	<-started

	require.NoError(t, c.SetPage(context.Background(), 2))
	require.Equal(t, "k", c.State().Data[0].ID)

	close(release)
	wg.Wait()
	require.ErrorIs(t, slowErr, ErrStale)

	st := c.State()
	require.Equal(t, 2, st.Page)
	require.Equal(t, "k", st.Data[0].ID)
	require.False(t, st.Loading)
}

func TestActionFailureSetsErrorAndReturnsIt(t *testing.T) {
	fetches := 0
	rejected := errors.New("api request failed: Validation failed")
	var loadingDuringCreate bool
	var c *Controller[item]
	c = New(Funcs[item]{
		Fetch: func(_ context.Context, p Params) (Page[item], error) {
			fetches++
			return pageOf(p, 2), nil
		},
		Create: func(context.Context, any) error {
			loadingDuringCreate = c.State().Loading
			return rejected
		},
	}, Options{})

	err := c.CreateItem(context.Background(), item{})
	require.ErrorIs(t, err, rejected)
	require.True(t, loadingDuringCreate)
	st := c.State()
	require.False(t, st.Loading)
	require.Equal(t, rejected.Error(), st.Error)
	require.Zero(t, fetches)
}

func TestActionSuccessRefetches(t *testing.T) {
	fetches := 0
	c := New(Funcs[item]{
		Fetch: func(_ context.Context, p Params) (Page[item], error) {
			fetches++
			return pageOf(p, 2), nil
		},
		Delete: func(context.Context, string) error { return nil },
	}, Options{})

	require.NoError(t, c.DeleteItem(context.Background(), "a"))
	require.Equal(t, 1, fetches)
	require.False(t, c.State().Loading)
}

func TestMissingActionIsNotSupported(t *testing.T) {
	c := New(Funcs[item]{}, Options{})
	require.ErrorIs(t, c.Load(context.Background()), ErrNotSupported)
	require.ErrorIs(t, c.CreateItem(context.Background(), nil), ErrNotSupported)
	require.ErrorIs(t, c.UpdateItem(context.Background(), "a", nil), ErrNotSupported)
	require.ErrorIs(t, c.DeleteItem(context.Background(), "a"), ErrNotSupported)
	require.ErrorIs(t, c.BulkDelete(context.Background(), []string{"a"}), ErrNotSupported)
}

func TestSubscribeSeesLoadingTransitions(t *testing.T) {
	c := New(Funcs[item]{Fetch: func(_ context.Context, p Params) (Page[item], error) {
		return pageOf(p, 1), nil
	}}, Options{})
	var loading []bool
	unsubscribe := c.Subscribe(func(st State[item]) { loading = append(loading, st.Loading) })

	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, []bool{true, false}, loading)

	unsubscribe()
	require.NoError(t, c.Load(context.Background()))
	require.Len(t, loading, 2)
}

func TestResourceControllerAgainstMockBackend(t *testing.T) {
	ctx := context.Background()
	client, err := apiclient.New(apiclient.Options{
		BaseURL:   "http://localhost:5000/api",
		Transport: mockapi.NewTransport(mockapi.NewBackend(mockapi.Options{}), 0, nil),
	})
	require.NoError(t, err)
	api := services.NewAPI(client)
	login := api.Auth.Login(ctx, models.LoginRequest{Email: mockapi.AdminEmail, Password: mockapi.AdminPassword})
	require.True(t, login.Success)

	c := New(ForResource[models.Company](api.Companies), Options{PageSize: 2})
	require.NoError(t, c.Load(ctx))
	st := c.State()
	require.Equal(t, 3, st.Total)
	require.Len(t, st.Data, 2)

	err = c.CreateItem(ctx, models.Company{Email: "missing-name@example.test"})
	require.ErrorIs(t, err, apiclient.ErrRequestFailed)
	require.Contains(t, c.State().Error, "Validation failed")

	require.NoError(t, c.CreateItem(ctx, models.Company{Name: "Umbrella"}))
	st = c.State()
	require.Equal(t, 4, st.Total)
	require.Empty(t, st.Error)

	require.NoError(t, c.SetFilter(ctx, "status", "inactive"))
	require.Equal(t, 1, c.State().Total)

	require.NoError(t, c.SetFilter(ctx, "status", "all"))
	require.NoError(t, c.SetSearch(ctx, "glo"))
	st = c.State()
	require.Equal(t, 1, st.Total)
	require.Equal(t, "Globex", st.Data[0].Name)

	require.NoError(t, c.DeleteItem(ctx, st.Data[0].ID))
	require.Zero(t, c.State().Total)

	invoices := New(Funcs[models.Invoice]{
		Fetch: FromPaginated[models.Invoice](func(ctx context.Context, page, size int, f apiclient.Filters) apiclient.Envelope[apiclient.PaginatedResult[models.Invoice]] {
			return api.Invoices.GetInvoicesPaginated(ctx, page, size, services.InvoiceFilter{Search: f["search"], Status: f["status"]})
		}),
	}, Options{})
	require.NoError(t, invoices.SetFilter(ctx, "status", models.InvoiceStatusPending))
	require.Equal(t, 5, invoices.State().Total)
}
