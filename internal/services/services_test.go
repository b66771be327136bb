package services

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/mockapi"
	"invoiceweb/portal/internal/models"
)

func newMockAPI(t *testing.T, latency time.Duration) (*API, *mockapi.Backend) {
	t.Helper()
	backend := mockapi.NewBackend(mockapi.Options{})
	client, err := apiclient.New(apiclient.Options{
		BaseURL:   "http://localhost:5000/api",
		Transport: mockapi.NewTransport(backend, latency, nil),
	})
	require.NoError(t, err)
	return NewAPI(client), backend
}

func loginAs(t *testing.T, api *API, email, password string) models.AuthResponse {
	t.Helper()
	env := api.Auth.Login(context.Background(), models.LoginRequest{Email: email, Password: password})
	require.True(t, env.Success, env.Message)
	return env.Data
}

func TestGetInvoicesPaginatedByStatus(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	all := api.Invoices.GetAll(ctx)
	require.True(t, all.Success)
	require.Len(t, all.Data, 30)
	var paid []string
	for _, inv := range all.Data {
		if inv.Status == models.InvoiceStatusPaid {
			paid = append(paid, inv.ID)
		}
	}
	require.Len(t, paid, 25)

	env := api.Invoices.GetInvoicesPaginated(ctx, 2, 10, InvoiceFilter{Status: models.InvoiceStatusPaid})
	require.True(t, env.Success, env.Message)
	require.Equal(t, 25, env.Data.Total)
	require.Equal(t, 2, env.Data.Page)
	require.Equal(t, 10, env.Data.Limit)
	require.Equal(t, 3, env.Data.TotalPages)
	got := make([]string, 0, len(env.Data.Data))
	for _, inv := range env.Data.Data {
		got = append(got, inv.ID)
	}
	require.Equal(t, paid[10:20], got)

	last := api.Invoices.GetInvoicesPaginated(ctx, 3, 10, InvoiceFilter{Status: models.InvoiceStatusPaid, CompanyID: "all"})
	require.Len(t, last.Data.Data, 5)

	searched := api.Invoices.GetInvoicesPaginated(ctx, 1, 10, InvoiceFilter{Search: "customer 2"})
	require.Equal(t, 11, searched.Data.Total)
}

type countingTransport struct {
	next  apiclient.Transport
	calls atomic.Int32
}

func (c *countingTransport) Do(ctx context.Context, baseURL string, req apiclient.Request) apiclient.Response {
	c.calls.Add(1)
	return c.next.Do(ctx, baseURL, req)
}

func TestSearchByCode(t *testing.T) {
	counter := &countingTransport{next: mockapi.NewTransport(mockapi.NewBackend(mockapi.Options{}), 25*time.Millisecond, nil)}
	client, err := apiclient.New(apiclient.Options{BaseURL: "http://localhost:5000/api", Transport: counter})
	require.NoError(t, err)
	api := NewAPI(client)
	ctx := context.Background()

	for _, code := range []string{"", "   "} {
		empty := api.Invoices.SearchByCode(ctx, code)
		require.True(t, empty.Success)
		require.Nil(t, empty.Data)
	}
	require.Zero(t, counter.calls.Load())

	start := time.Now()
	found := api.Invoices.SearchByCode(ctx, mockapi.SampleInvoiceCode)
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	require.True(t, found.Success)
	require.NotNil(t, found.Data)
	require.Equal(t, mockapi.SampleInvoiceCode, found.Data.Code)

	missing := api.Invoices.SearchByCode(ctx, "NOPE")
	require.True(t, missing.Success)
	require.Nil(t, missing.Data)
	require.EqualValues(t, 2, counter.calls.Load())
}

func TestLoginAuthenticatesEveryService(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()

	before := api.Dashboard.Stats(ctx)
	require.False(t, before.Success)

	auth := loginAs(t, api, mockapi.UserEmail, mockapi.UserPassword)
	require.Equal(t, auth.AccessToken, api.AuthToken())
	require.Equal(t, auth.AccessToken, api.Companies.AuthToken())

	stats := api.Dashboard.Stats(ctx)
	require.True(t, stats.Success, stats.Message)
	require.Equal(t, 30, stats.Data.TotalInvoices)
	require.Equal(t, 25, stats.Data.PaidInvoices)

	out := api.Auth.Logout(ctx)
	require.True(t, out.Success)
	require.Empty(t, api.AuthToken())
	require.False(t, api.Dashboard.Stats(ctx).Success)
}

func TestFailedLoginLeavesHeadersAlone(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	env := api.Auth.Login(context.Background(), models.LoginRequest{Email: mockapi.UserEmail, Password: "bad"})
	require.False(t, env.Success)
	require.Equal(t, "Invalid email or password", env.Message)
	require.Empty(t, api.AuthToken())
}

func TestExpiredTokenIsRefreshedOnce(t *testing.T) {
	api, backend := newMockAPI(t, 0)
	ctx := context.Background()
	auth := loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	refreshToken := auth.RefreshToken
	refreshes := 0
	api.SetRefresher(func(ctx context.Context) bool {
		refreshes++
		env := api.Auth.Refresh(ctx, refreshToken)
		if env.Success {
			refreshToken = env.Data.RefreshToken
		}
		return env.Success
	})

	backend.RevokeAccessTokens()
	env := api.Companies.GetAll(ctx)
	require.True(t, env.Success, env.Message)
	require.Len(t, env.Data, 3)
	require.Equal(t, 1, refreshes)
	require.NotEqual(t, auth.AccessToken, api.AuthToken())
}

func TestCompanyCRUD(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	invalid := api.Companies.Create(ctx, models.Company{Email: "x@y.test"})
	require.False(t, invalid.Success)
	require.Equal(t, "Validation failed", invalid.Message)
	require.Equal(t, []string{"name: is required"}, invalid.Errors)

	created := api.Companies.Create(ctx, models.Company{Name: "Umbrella", Email: "ap@umbrella.test"})
	require.True(t, created.Success, created.Message)
	require.NotEmpty(t, created.Data.ID)
	require.Equal(t, "active", created.Data.Status)

	fetched := api.Companies.GetByID(ctx, created.Data.ID)
	require.True(t, fetched.Success)
	require.Equal(t, "Umbrella", fetched.Data.Name)

	updated := api.Companies.Update(ctx, created.Data.ID, map[string]string{"status": "inactive"})
	require.True(t, updated.Success)
	require.Equal(t, "inactive", updated.Data.Status)
	require.Equal(t, "Umbrella", updated.Data.Name)

	page := api.Companies.GetPaginated(ctx, 1, 10, apiclient.Filters{"status": "inactive"})
	require.True(t, page.Success)
	require.Equal(t, 2, page.Data.Total)

	deleted := api.Companies.Delete(ctx, created.Data.ID)
	require.True(t, deleted.Success)
	require.Equal(t, "Company deleted successfully", deleted.Message)

	gone := api.Companies.GetByID(ctx, created.Data.ID)
	require.False(t, gone.Success)
	require.Equal(t, "Company not found", gone.Message)

	bulk := api.Companies.BulkDelete(ctx, []string{"comp-1", "comp-2"})
	require.True(t, bulk.Success)
	require.Equal(t, "2 company records deleted", bulk.Message)
}

func TestAdminUserActions(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	page := api.AdminUsers.GetAdminUsersPaginated(ctx, 1, 10, AdminUserFilter{RoleID: "role-user", Status: "all"})
	require.True(t, page.Success, page.Message)
	require.Equal(t, 3, page.Data.Total)

	toggled := api.AdminUsers.ToggleStatus(ctx, "user-3")
	require.True(t, toggled.Success)
	require.Equal(t, "active", toggled.Data.Status)

	short := api.AdminUsers.ResetPassword(ctx, "user-1", "123")
	require.False(t, short.Success)

	noAccount := api.AdminUsers.ResetPassword(ctx, "user-2", "fresh-pass")
	require.False(t, noAccount.Success)
	require.Equal(t, "User has no login account", noAccount.Message)

	reset := api.AdminUsers.ResetPassword(ctx, "user-1", "fresh-pass")
	require.True(t, reset.Success, reset.Message)
	require.True(t, api.Auth.Login(ctx, models.LoginRequest{Email: mockapi.UserEmail, Password: "fresh-pass"}).Success)
}

func TestRoleMenus(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	unknown := api.Roles.AssignMenus(ctx, "role-user", []string{"menu-missing"})
	require.False(t, unknown.Success)

	assigned := api.Roles.AssignMenus(ctx, "role-user", []string{"menu-dashboard", "menu-companies"})
	require.True(t, assigned.Success, assigned.Message)

	menus := api.Roles.Menus(ctx, "role-user")
	require.True(t, menus.Success)
	require.Len(t, menus.Data, 2)
	require.Equal(t, "menu-companies", menus.Data[1].ID)

	tree := api.Menus.Tree(ctx)
	require.True(t, tree.Success)
	require.Len(t, tree.Data, 4)
	require.Equal(t, "menu-admin", tree.Data[3].ID)
	require.Len(t, tree.Data[3].Children, 3)
}

func TestAPIKeyLifecycle(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	regenerated := api.APIKeys.Regenerate(ctx, "key-2")
	require.True(t, regenerated.Success)
	require.Equal(t, "active", regenerated.Data.Status)
	require.True(t, strings.HasPrefix(regenerated.Data.Key, regenerated.Data.Prefix))

	stored := api.APIKeys.GetByID(ctx, "key-2")
	require.Empty(t, stored.Data.Key)

	revoked := api.APIKeys.Revoke(ctx, "key-2")
	require.True(t, revoked.Success)
	require.Equal(t, "revoked", revoked.Data.Status)
}

func TestBatchUploadAndProcess(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	uploaded := api.Batches.Upload(ctx, "march.csv", strings.NewReader("code,customerName,amount\nM-1,A,10\nM-2,B,20\n"))
	require.True(t, uploaded.Success, uploaded.Message)
	require.Equal(t, 2, uploaded.Data.TotalInvoices)
	require.Equal(t, "uploaded", uploaded.Data.Status)

	processed := api.Batches.Process(ctx, uploaded.Data.ID)
	require.True(t, processed.Success)
	require.Equal(t, "processed", processed.Data.Status)
	require.False(t, processed.Data.ProcessedAt.IsZero())

	again := api.Batches.Process(ctx, uploaded.Data.ID)
	require.False(t, again.Success)
	require.Equal(t, "Batch already processed", again.Message)
}

func TestInvoiceStatusAndLines(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.AdminEmail, mockapi.AdminPassword)

	updated := api.Invoices.UpdateStatus(ctx, "inv-006", models.InvoiceStatusPaid)
	require.True(t, updated.Success)
	require.Equal(t, models.InvoiceStatusPaid, updated.Data.Status)

	bad := api.Invoices.UpdateStatus(ctx, "inv-006", "lost")
	require.False(t, bad.Success)

	lines := api.Lines.ByInvoice(ctx, "inv-002")
	require.True(t, lines.Success)
	require.Len(t, lines.Data, 2)
	for _, line := range lines.Data {
		require.Equal(t, "inv-002", line.InvoiceID)
	}
}

func TestDashboardOverview(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()

	denied := api.Dashboard.Overview(ctx, 3)
	require.False(t, denied.Success)
	require.Equal(t, "Unauthorized", denied.Message)

	loginAs(t, api, mockapi.UserEmail, mockapi.UserPassword)
	overview := api.Dashboard.Overview(ctx, 3)
	require.True(t, overview.Success, overview.Message)
	require.Equal(t, 30, overview.Data.Stats.TotalInvoices)
	require.Len(t, overview.Data.RecentInvoices, 3)
	require.Equal(t, "inv-030", overview.Data.RecentInvoices[0].ID)
}

func TestProfileAndAvatar(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.UserEmail, mockapi.UserPassword)

	updated := api.Users.UpdateProfile(ctx, models.UpdateProfileRequest{Phone: "+1-555-0100"})
	require.True(t, updated.Success)
	require.Equal(t, "+1-555-0100", updated.Data.Phone)

	avatar := api.Users.UploadAvatar(ctx, "me.png", strings.NewReader("\x89PNG"))
	require.True(t, avatar.Success, avatar.Message)
	require.Equal(t, "/uploads/avatars/user-1/me.png", avatar.Data.Avatar)

	profile := api.Users.Profile(ctx)
	require.True(t, profile.Success)
	require.Equal(t, avatar.Data.Avatar, profile.Data.Avatar)

	me := api.Auth.CurrentUser(ctx)
	require.True(t, me.Success)
	require.Equal(t, "+1-555-0100", me.Data.Phone)
	require.Len(t, me.Data.Menus, 2)
}

func TestChangePassword(t *testing.T) {
	api, _ := newMockAPI(t, 0)
	ctx := context.Background()
	loginAs(t, api, mockapi.UserEmail, mockapi.UserPassword)

	wrong := api.Auth.ChangePassword(ctx, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "another1"})
	require.False(t, wrong.Success)
	require.Equal(t, "Current password is incorrect", wrong.Message)

	ok := api.Auth.ChangePassword(ctx, models.ChangePasswordRequest{CurrentPassword: mockapi.UserPassword, NewPassword: "another1"})
	require.True(t, ok.Success, ok.Message)
	loginAs(t, api, mockapi.UserEmail, "another1")
}
