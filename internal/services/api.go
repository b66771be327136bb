package services

import "invoiceweb/portal/internal/apiclient"

// API groups every domain service on one client, so a token written through
// any of them is seen by all the others.
type API struct {
	client *apiclient.Client

	Auth          *AuthService
	Users         *UserService
	Invoices      *InvoiceService
	Companies     *CompanyService
	Dashboard     *DashboardService
	AdminUsers    *AdminUserService
	APIKeys       *APIKeyService
	Organizations *OrganizationService
	Roles         *RoleService
	Menus         *MenuService
	Batches       *BatchService
	Lines         *LineService
}

func NewAPI(client *apiclient.Client) *API {
	return &API{
		client:        client,
		Auth:          NewAuthService(client),
		Users:         NewUserService(client),
		Invoices:      NewInvoiceService(client),
		Companies:     NewCompanyService(client),
		Dashboard:     NewDashboardService(client),
		AdminUsers:    NewAdminUserService(client),
		APIKeys:       NewAPIKeyService(client),
		Organizations: NewOrganizationService(client),
		Roles:         NewRoleService(client),
		Menus:         NewMenuService(client),
		Batches:       NewBatchService(client),
		Lines:         NewLineService(client),
	}
}

func (a *API) Client() *apiclient.Client { return a.client }

func (a *API) SetAuthToken(token string) { a.client.SetAuthToken(token) }

func (a *API) ClearAuthToken() { a.client.ClearAuthToken() }

func (a *API) AuthToken() string { return a.client.AuthToken() }

func (a *API) SetRefresher(fn apiclient.Refresher) { a.client.SetRefresher(fn) }
