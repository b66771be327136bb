// Package mockapi is the in-process portal API used by the mock transport. It
// keeps fixture data in memory and answers with the same envelope shape the
// live server uses.
package mockapi

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"invoiceweb/portal/internal/models"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// DefaultSecret signs tokens when Options.Secret is empty. Backends sharing a
// secret accept each other's tokens, so a session survives across processes.
const DefaultSecret = "invoice-portal-mock-secret"

type Options struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
	Logger     *zap.Logger
}

type Backend struct {
	logger     *zap.Logger
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu          sync.Mutex
	accounts    map[string]*account
	resetTokens map[string]string
	// versions counts sign-outs per account; tokens from an older version
	// are rejected.
	versions         map[string]int
	accessGeneration int
	spentRefresh     map[string]struct{}

	users         *collection[models.User]
	invoices      *collection[models.Invoice]
	companies     *collection[models.Company]
	adminUsers    *collection[models.AdminUser]
	apiKeys       *collection[models.APIKey]
	organizations *collection[models.Organization]
	roles         *collection[models.Role]
	menus         *collection[models.Menu]
	batches       *collection[models.InvoiceBatch]
	lines         *collection[models.InvoiceLine]

	handler http.Handler
}

func NewBackend(opts Options) *Backend {
	b := &Backend{
		logger:       opts.Logger,
		secret:       opts.Secret,
		accessTTL:    opts.AccessTTL,
		refreshTTL:   opts.RefreshTTL,
		now:          opts.Now,
		accounts:     map[string]*account{},
		resetTokens:  map[string]string{},
		versions:     map[string]int{},
		spentRefresh: map[string]struct{}{},
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if len(b.secret) == 0 {
		b.secret = []byte(DefaultSecret)
	}
	if b.accessTTL <= 0 {
		b.accessTTL = defaultAccessTTL
	}
	if b.refreshTTL <= 0 {
		b.refreshTTL = defaultRefreshTTL
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	b.seed()
	b.handler = LoggingMiddleware(b.logger, b.AuthMiddleware(b.Routes()))
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

func (b *Backend) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/register", b.handleRegister)
	mux.HandleFunc("POST /auth/refresh", b.handleRefresh)
	mux.HandleFunc("POST /auth/logout", b.handleLogout)
	mux.HandleFunc("GET /auth/me", b.handleMe)
	mux.HandleFunc("POST /auth/change-password", b.handleChangePassword)
	mux.HandleFunc("POST /auth/forgot-password", b.handleForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", b.handleResetPassword)

	mux.HandleFunc("GET /users/profile", b.handleProfile)
	mux.HandleFunc("PUT /users/profile", b.handleUpdateProfile)
	mux.HandleFunc("POST /users/avatar", b.handleAvatar)
	crud[models.User]{
		label: "User", prefix: "user", items: b.users, now: b.now,
		match: func(u models.User, q url.Values) bool {
			return matchesSearch(q, u.Name, u.Email) && matchesFilter(q, "role", u.Role)
		},
		validate: func(u models.User) []string { return required("email", u.Email, "name", u.Name) },
		onCreate: func(u *models.User, now time.Time) { u.CreatedAt = now },
	}.mount(mux, "/users")

	mux.HandleFunc("GET /invoices/search", b.handleInvoiceSearch)
	mux.HandleFunc("PATCH /invoices/{id}/status", b.handleInvoiceStatus)
	mux.HandleFunc("POST /invoices/import", b.handleInvoiceImport)
	crud[models.Invoice]{
		label: "Invoice", prefix: "inv", items: b.invoices, now: b.now,
		match: func(inv models.Invoice, q url.Values) bool {
			return matchesSearch(q, inv.Code, inv.CustomerName) &&
				matchesFilter(q, "status", inv.Status) &&
				matchesFilter(q, "companyId", inv.CompanyID) &&
				matchesFilter(q, "batchId", inv.BatchID)
		},
		validate: validateInvoice,
		onCreate: func(inv *models.Invoice, now time.Time) {
			inv.CreatedAt, inv.UpdatedAt = now, now
			if inv.Status == "" {
				inv.Status = models.InvoiceStatusPending
			}
		},
	}.mount(mux, "/invoices")

	crud[models.InvoiceLine]{
		label: "Invoice line", prefix: "line", items: b.lines, now: b.now,
		match: func(line models.InvoiceLine, q url.Values) bool {
			return matchesFilter(q, "invoiceId", line.InvoiceID) && matchesSearch(q, line.Description)
		},
		validate: func(line models.InvoiceLine) []string {
			return required("invoiceId", line.InvoiceID, "description", line.Description)
		},
		onCreate: func(line *models.InvoiceLine, _ time.Time) { line.Total = line.Quantity * line.UnitPrice },
	}.mount(mux, "/invoice-lines")

	mux.HandleFunc("POST /invoice-batches/upload", b.handleBatchUpload)
	mux.HandleFunc("POST /invoice-batches/{id}/process", b.handleBatchProcess)
	crud[models.InvoiceBatch]{
		label: "Batch", prefix: "batch", items: b.batches, now: b.now,
		match: func(batch models.InvoiceBatch, q url.Values) bool {
			return matchesSearch(q, batch.Name, batch.FileName) &&
				matchesFilter(q, "status", batch.Status) &&
				matchesFilter(q, "organizationId", batch.OrganizationID)
		},
		validate: func(batch models.InvoiceBatch) []string { return required("name", batch.Name) },
		onCreate: func(batch *models.InvoiceBatch, now time.Time) {
			batch.CreatedAt = now
			batch.Status = "uploaded"
		},
	}.mount(mux, "/invoice-batches")

	crud[models.Company]{
		label: "Company", prefix: "comp", items: b.companies, now: b.now,
		match: func(c models.Company, q url.Values) bool {
			return matchesSearch(q, c.Name, c.Email, c.TaxID) && matchesFilter(q, "status", c.Status)
		},
		validate: func(c models.Company) []string { return required("name", c.Name) },
		onCreate: func(c *models.Company, now time.Time) {
			c.CreatedAt = now
			if c.Status == "" {
				c.Status = "active"
			}
		},
	}.mount(mux, "/companies")

	mux.HandleFunc("GET /dashboard/stats", b.handleDashboardStats)
	mux.HandleFunc("GET /dashboard/recent-invoices", b.handleRecentInvoices)

	mux.HandleFunc("POST /admin/users/{id}/reset-password", b.handleAdminResetPassword)
	mux.HandleFunc("PATCH /admin/users/{id}/toggle-status", b.handleToggleStatus)
	crud[models.AdminUser]{
		label: "User", prefix: "user", items: b.adminUsers, now: b.now,
		match: func(u models.AdminUser, q url.Values) bool {
			return matchesSearch(q, u.Name, u.Email) &&
				matchesFilter(q, "roleId", u.RoleID) &&
				matchesFilter(q, "status", u.Status) &&
				matchesFilter(q, "organizationId", u.OrganizationID)
		},
		validate: func(u models.AdminUser) []string {
			return required("email", u.Email, "name", u.Name, "roleId", u.RoleID)
		},
		onCreate: func(u *models.AdminUser, now time.Time) {
			u.CreatedAt = now
			if u.Status == "" {
				u.Status = "active"
			}
		},
	}.mount(mux, "/admin/users")

	mux.HandleFunc("POST /api-keys/{id}/revoke", b.handleRevokeKey)
	mux.HandleFunc("POST /api-keys/{id}/regenerate", b.handleRegenerateKey)
	crud[models.APIKey]{
		label: "API key", prefix: "key", items: b.apiKeys, now: b.now,
		match: func(k models.APIKey, q url.Values) bool {
			return matchesSearch(q, k.Name, k.Prefix) &&
				matchesFilter(q, "status", k.Status) &&
				matchesFilter(q, "organizationId", k.OrganizationID)
		},
		validate: func(k models.APIKey) []string { return required("name", k.Name) },
		onCreate: func(k *models.APIKey, now time.Time) {
			k.CreatedAt = now
			k.Status = "active"
			k.Key, k.Prefix = generateKey()
		},
	}.mount(mux, "/api-keys")

	crud[models.Organization]{
		label: "Organization", prefix: "org", items: b.organizations, now: b.now,
		match: func(o models.Organization, q url.Values) bool {
			return matchesSearch(q, o.Name, o.Code) && matchesFilter(q, "status", o.Status)
		},
		validate: func(o models.Organization) []string { return required("name", o.Name, "code", o.Code) },
		onCreate: func(o *models.Organization, now time.Time) {
			o.CreatedAt = now
			if o.Status == "" {
				o.Status = "active"
			}
		},
	}.mount(mux, "/organizations")

	mux.HandleFunc("GET /roles/{id}/menus", b.handleRoleMenus)
	mux.HandleFunc("PUT /roles/{id}/menus", b.handleAssignMenus)
	crud[models.Role]{
		label: "Role", prefix: "role", items: b.roles, now: b.now,
		match: func(role models.Role, q url.Values) bool {
			return matchesSearch(q, role.Name, role.Description)
		},
		validate: func(role models.Role) []string { return required("name", role.Name) },
	}.mount(mux, "/roles")

	mux.HandleFunc("GET /menus/tree", b.handleMenuTree)
	crud[models.Menu]{
		label: "Menu", prefix: "menu", items: b.menus, now: b.now,
		match: func(m models.Menu, q url.Values) bool {
			return matchesSearch(q, m.Name, m.Path) && matchesFilter(q, "parentId", m.ParentID)
		},
		validate: func(m models.Menu) []string { return required("name", m.Name, "path", m.Path) },
	}.mount(mux, "/menus")

	return mux
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		logger.Debug("mock_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
		)
	})
}
