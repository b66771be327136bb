package mockapi

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"invoiceweb/portal/internal/models"
)

// Fixture credentials accepted by the mock backend.
const (
	AdminEmail    = "admin@invoiceweb.local"
	AdminPassword = "admin123"
	UserEmail     = "user@invoiceweb.local"
	UserPassword  = "user123"

	// SampleInvoiceCode is the code of the first fixture invoice.
	SampleInvoiceCode = "ABC123"
)

var fixtureEpoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// seed fills the backend with 30 invoices (every sixth one pending, the rest
// paid) spread over three companies and two batches, plus the admin catalog.
func (b *Backend) seed() {
	orgs := []models.Organization{
		{ID: "org-1", Name: "Head Office", Code: "HQ", Status: "active", CreatedAt: fixtureEpoch},
		{ID: "org-2", Name: "North Branch", Code: "NB", Status: "active", CreatedAt: fixtureEpoch},
	}
	b.organizations = newCollection(func(o models.Organization) string { return o.ID }, orgs...)

	menus := []models.Menu{
		{ID: "menu-dashboard", Name: "Dashboard", Path: "/dashboard", Icon: "home", Order: 1},
		{ID: "menu-invoices", Name: "Invoices", Path: "/invoices", Icon: "file", Order: 2},
		{ID: "menu-companies", Name: "Companies", Path: "/companies", Icon: "building", Order: 3},
		{ID: "menu-admin", Name: "Administration", Path: "/admin", Icon: "settings", Order: 4},
		{ID: "menu-admin-users", Name: "Users", Path: "/admin/users", ParentID: "menu-admin", Order: 1},
		{ID: "menu-admin-roles", Name: "Roles", Path: "/admin/roles", ParentID: "menu-admin", Order: 2},
		{ID: "menu-admin-keys", Name: "API Keys", Path: "/admin/api-keys", ParentID: "menu-admin", Order: 3},
	}
	b.menus = newCollection(func(m models.Menu) string { return m.ID }, menus...)

	allMenus := make([]string, 0, len(menus))
	for _, m := range menus {
		allMenus = append(allMenus, m.ID)
	}
	roles := []models.Role{
		{ID: "role-admin", Name: "admin", Description: "Full access", MenuIDs: allMenus},
		{ID: "role-user", Name: "user", Description: "Invoice lookup", MenuIDs: []string{"menu-dashboard", "menu-invoices"}},
	}
	b.roles = newCollection(func(r models.Role) string { return r.ID }, roles...)

	admin := b.seedAccount("user-admin", AdminEmail, "Portal Admin", "admin", "org-1", AdminPassword)
	member := b.seedAccount("user-1", UserEmail, "Portal User", "user", "org-1", UserPassword)
	b.users = newCollection(func(u models.User) string { return u.ID }, admin.profile(), member.profile())

	adminUsers := []models.AdminUser{
		{ID: admin.user.ID, Email: admin.user.Email, Name: admin.user.Name, RoleID: "role-admin", RoleName: "admin", OrganizationID: "org-1", Status: "active", CreatedAt: fixtureEpoch},
		{ID: member.user.ID, Email: member.user.Email, Name: member.user.Name, RoleID: "role-user", RoleName: "user", OrganizationID: "org-1", Status: "active", CreatedAt: fixtureEpoch},
		{ID: "user-2", Email: "finance@invoiceweb.local", Name: "Finance Clerk", RoleID: "role-user", RoleName: "user", OrganizationID: "org-2", Status: "active", CreatedAt: fixtureEpoch},
		{ID: "user-3", Email: "auditor@invoiceweb.local", Name: "External Auditor", RoleID: "role-user", RoleName: "user", OrganizationID: "org-2", Status: "inactive", CreatedAt: fixtureEpoch},
	}
	b.adminUsers = newCollection(func(u models.AdminUser) string { return u.ID }, adminUsers...)

	companies := []models.Company{
		{ID: "comp-1", Name: "Acme Corp", Email: "billing@acme.test", TaxID: "TX-1001", Status: "active", CreatedAt: fixtureEpoch},
		{ID: "comp-2", Name: "Globex", Email: "ap@globex.test", TaxID: "TX-1002", Status: "active", CreatedAt: fixtureEpoch},
		{ID: "comp-3", Name: "Initech", Email: "accounts@initech.test", TaxID: "TX-1003", Status: "inactive", CreatedAt: fixtureEpoch},
	}
	b.companies = newCollection(func(c models.Company) string { return c.ID }, companies...)

	b.batches = newCollection(func(batch models.InvoiceBatch) string { return batch.ID },
		models.InvoiceBatch{ID: "batch-1", Name: "January import", FileName: "january.csv", Status: "processed", OrganizationID: "org-1", TotalInvoices: 15, ProcessedAt: fixtureEpoch, CreatedAt: fixtureEpoch},
		models.InvoiceBatch{ID: "batch-2", Name: "February import", FileName: "february.csv", Status: "uploaded", OrganizationID: "org-2", TotalInvoices: 15, CreatedAt: fixtureEpoch},
	)

	invoices := make([]models.Invoice, 0, 30)
	var lines []models.InvoiceLine
	for i := 1; i <= 30; i++ {
		issued := fixtureEpoch.AddDate(0, 0, i)
		inv := models.Invoice{
			ID:           fmt.Sprintf("inv-%03d", i),
			Code:         fmt.Sprintf("INV-%04d", i),
			CustomerName: fmt.Sprintf("Customer %d", i),
			CompanyID:    companies[i%len(companies)].ID,
			BatchID:      "batch-1",
			Amount:       float64(i * 100),
			Currency:     "USD",
			Status:       models.InvoiceStatusPaid,
			IssuedAt:     issued,
			DueAt:        issued.AddDate(0, 0, 30),
			CreatedAt:    issued,
			UpdatedAt:    issued,
		}
		if i == 1 {
			inv.Code = SampleInvoiceCode
		}
		if i > 15 {
			inv.BatchID = "batch-2"
		}
		if i%6 == 0 {
			inv.Status = models.InvoiceStatusPending
		}
		invoices = append(invoices, inv)
		if i <= 3 {
			lines = append(lines,
				models.InvoiceLine{ID: fmt.Sprintf("line-%d-1", i), InvoiceID: inv.ID, Description: "Consulting hours", Quantity: 2, UnitPrice: inv.Amount / 4, Total: inv.Amount / 2},
				models.InvoiceLine{ID: fmt.Sprintf("line-%d-2", i), InvoiceID: inv.ID, Description: "License fee", Quantity: 1, UnitPrice: inv.Amount / 2, Total: inv.Amount / 2},
			)
		}
	}
	b.invoices = newCollection(func(inv models.Invoice) string { return inv.ID }, invoices...)
	b.lines = newCollection(func(line models.InvoiceLine) string { return line.ID }, lines...)

	b.apiKeys = newCollection(func(k models.APIKey) string { return k.ID },
		models.APIKey{ID: "key-1", Name: "ERP sync", Prefix: "pk_4f2a9c1e", OrganizationID: "org-1", Status: "active", CreatedAt: fixtureEpoch},
		models.APIKey{ID: "key-2", Name: "Legacy importer", Prefix: "pk_77be03d5", OrganizationID: "org-2", Status: "revoked", CreatedAt: fixtureEpoch},
	)
}

func (b *Backend) seedAccount(id, email, name, role, orgID, password string) *account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("mockapi: hash fixture password: %v", err))
	}
	acc := &account{
		user:         models.AuthUser{ID: id, Email: email, Name: name, Role: role, OrganizationID: orgID},
		passwordHash: hash,
		createdAt:    fixtureEpoch,
	}
	b.accounts[id] = acc
	return acc
}
