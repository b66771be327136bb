package mockapi

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"invoiceweb/portal/internal/models"
)

const maxUploadBytes = 8 << 20

var (
	ErrAlreadyProcessed = errors.New("batch already processed")
	ErrUnknownStatus    = errors.New("unknown invoice status")
)

func validateInvoice(inv models.Invoice) []string {
	errs := required("code", inv.Code, "customerName", inv.CustomerName)
	if inv.Amount < 0 {
		errs = append(errs, "amount: must not be negative")
	}
	if inv.Status != "" && !knownStatus(inv.Status) {
		errs = append(errs, "status: "+ErrUnknownStatus.Error())
	}
	return errs
}

func knownStatus(status string) bool {
	switch status {
	case models.InvoiceStatusPaid, models.InvoiceStatusPending, models.InvoiceStatusOverdue, models.InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

// handleInvoiceSearch answers a blank code with null data instead of an error.
func (b *Backend) handleInvoiceSearch(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeData(w, http.StatusOK, nil, "")
		return
	}
	for _, inv := range b.invoices.list() {
		if strings.EqualFold(inv.Code, code) {
			writeData(w, http.StatusOK, inv, "")
			return
		}
	}
	writeData(w, http.StatusOK, nil, "Invoice not found")
}

func (b *Backend) handleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req models.InvoiceStatusUpdate
	if !decodeRequest(w, r, &req) {
		return
	}
	if !knownStatus(req.Status) {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", "status: "+ErrUnknownStatus.Error())
		return
	}
	updated, found, _ := b.invoices.update(r.PathValue("id"), func(inv *models.Invoice) error {
		inv.Status = req.Status
		inv.UpdatedAt = b.now()
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	writeData(w, http.StatusOK, updated, "Invoice status updated")
}

// handleInvoiceImport reads a CSV upload with a code,customerName,amount,status
// header. Bad rows are reported and skipped.
func (b *Backend) handleInvoiceImport(w http.ResponseWriter, r *http.Request) {
	content, fileName, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid CSV file", err.Error())
		return
	}
	if len(records) < 2 {
		writeError(w, http.StatusUnprocessableEntity, "Import file has no rows", fileName)
		return
	}

	var result models.ImportResult
	now := b.now()
	for i, record := range records[1:] {
		row := i + 2
		if len(record) < 3 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: expected at least 3 columns", row))
			continue
		}
		amount, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid amount %q", row, record[2]))
			continue
		}
		inv := models.Invoice{
			ID:           newID("inv"),
			Code:         record[0],
			CustomerName: record[1],
			Amount:       amount,
			Currency:     "USD",
			Status:       models.InvoiceStatusPending,
			IssuedAt:     now,
			DueAt:        now.AddDate(0, 0, 30),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if len(record) > 3 && record[3] != "" {
			inv.Status = record[3]
		}
		if errs := validateInvoice(inv); len(errs) > 0 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", row, strings.Join(errs, ", ")))
			continue
		}
		b.invoices.add(inv)
		result.Imported++
	}
	writeData(w, http.StatusOK, result, fmt.Sprintf("Imported %d invoices", result.Imported))
}

func (b *Backend) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats models.DashboardStats
	for _, inv := range b.invoices.list() {
		stats.TotalInvoices++
		stats.TotalAmount += inv.Amount
		switch inv.Status {
		case models.InvoiceStatusPaid:
			stats.PaidInvoices++
			stats.PaidAmount += inv.Amount
		case models.InvoiceStatusPending:
			stats.PendingInvoices++
		case models.InvoiceStatusOverdue:
			stats.OverdueInvoices++
		}
	}
	stats.TotalCompanies = len(b.companies.list())
	writeData(w, http.StatusOK, stats, "")
}

func (b *Backend) handleRecentInvoices(w http.ResponseWriter, r *http.Request) {
	limit := readInt(r.URL.Query(), "limit", 5)
	invoices := b.invoices.list()
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].IssuedAt.After(invoices[j].IssuedAt)
	})
	if limit > 0 && len(invoices) > limit {
		invoices = invoices[:limit]
	}
	writeData(w, http.StatusOK, invoices, "")
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	b.mu.Lock()
	acc, ok := b.accounts[info.User.ID]
	var profile models.User
	if ok {
		profile = acc.profile()
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, profile, "")
}

func (b *Backend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	var req models.UpdateProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	profile, ok := b.updateAccount(info.User.ID, func(acc *account) {
		if name := strings.TrimSpace(req.Name); name != "" {
			acc.user.Name = name
		}
		if req.Phone != "" {
			acc.phone = req.Phone
		}
	})
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, profile, "Profile updated successfully")
}

func (b *Backend) handleAvatar(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	_, fileName, ok := readUpload(w, r, "avatar")
	if !ok {
		return
	}
	profile, found := b.updateAccount(info.User.ID, func(acc *account) {
		acc.avatar = "/uploads/avatars/" + acc.user.ID + "/" + fileName
	})
	if !found {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, profile, "Avatar uploaded successfully")
}

func (b *Backend) updateAccount(userID string, mutate func(*account)) (models.User, bool) {
	b.mu.Lock()
	acc, ok := b.accounts[userID]
	var profile models.User
	if ok {
		mutate(acc)
		profile = acc.profile()
	}
	b.mu.Unlock()
	if !ok {
		return models.User{}, false
	}
	b.users.update(userID, func(u *models.User) error {
		*u = profile
		return nil
	})
	return profile, true
}

func (b *Backend) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", "newPassword: must be at least 6 characters")
		return
	}
	if _, ok := b.adminUsers.get(id); !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err := b.setPassword(id, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusNotFound, "User has no login account")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, nil, "Password reset successfully")
}

func (b *Backend) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	updated, found, _ := b.adminUsers.update(r.PathValue("id"), func(u *models.AdminUser) error {
		if u.Status == "active" {
			u.Status = "inactive"
		} else {
			u.Status = "active"
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, updated, "User status updated")
}

func (b *Backend) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	updated, found, _ := b.apiKeys.update(r.PathValue("id"), func(k *models.APIKey) error {
		k.Status = "revoked"
		k.Key = ""
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "API key not found")
		return
	}
	writeData(w, http.StatusOK, updated, "API key revoked")
}

// handleRegenerateKey returns the new plaintext key once; the stored copy only
// keeps its prefix.
func (b *Backend) handleRegenerateKey(w http.ResponseWriter, r *http.Request) {
	var plaintext string
	updated, found, _ := b.apiKeys.update(r.PathValue("id"), func(k *models.APIKey) error {
		plaintext, k.Prefix = generateKey()
		k.Key = ""
		k.Status = "active"
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "API key not found")
		return
	}
	updated.Key = plaintext
	writeData(w, http.StatusOK, updated, "API key regenerated")
}

func generateKey() (key, prefix string) {
	key = "pk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return key, key[:11]
}

func (b *Backend) handleRoleMenus(w http.ResponseWriter, r *http.Request) {
	role, ok := b.roles.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Role not found")
		return
	}
	writeData(w, http.StatusOK, b.menusByID(role.MenuIDs), "")
}

func (b *Backend) handleAssignMenus(w http.ResponseWriter, r *http.Request) {
	var req models.AssignMenusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	var unknown []string
	for _, id := range req.MenuIDs {
		if _, ok := b.menus.get(id); !ok {
			unknown = append(unknown, "menuIds: unknown menu "+id)
		}
	}
	if len(unknown) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", unknown...)
		return
	}
	_, found, _ := b.roles.update(r.PathValue("id"), func(role *models.Role) error {
		role.MenuIDs = append([]string(nil), req.MenuIDs...)
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "Role not found")
		return
	}
	writeData(w, http.StatusOK, nil, "Menus assigned successfully")
}

func (b *Backend) menusByID(ids []string) []models.Menu {
	out := []models.Menu{}
	for _, id := range ids {
		if menu, ok := b.menus.get(id); ok {
			out = append(out, menu)
		}
	}
	return out
}

func (b *Backend) menusForRole(roleName string) []models.Menu {
	for _, role := range b.roles.list() {
		if strings.EqualFold(role.Name, roleName) {
			return b.menusByID(role.MenuIDs)
		}
	}
	return nil
}

func (b *Backend) handleMenuTree(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, buildMenuTree(b.menus.list()), "")
}

// buildMenuTree nests menus under their parent, ordered by Order. Menus whose
// parent is missing are kept at the root.
func buildMenuTree(menus []models.Menu) []models.Menu {
	known := make(map[string]bool, len(menus))
	for _, m := range menus {
		known[m.ID] = true
	}
	children := map[string][]models.Menu{}
	for _, m := range menus {
		parent := m.ParentID
		if !known[parent] {
			parent = ""
		}
		children[parent] = append(children[parent], m)
	}
	var attach func(parent string, depth int) []models.Menu
	attach = func(parent string, depth int) []models.Menu {
		nodes := children[parent]
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
		out := make([]models.Menu, 0, len(nodes))
		for _, node := range nodes {
			if depth < len(menus) {
				node.Children = attach(node.ID, depth+1)
			}
			out = append(out, node)
		}
		return out
	}
	return attach("", 0)
}

func (b *Backend) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	content, fileName, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	rows := 0
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			rows++
		}
	}
	if rows > 0 {
		rows--
	}
	info, _ := authFromContext(r.Context())
	now := b.now()
	batch := models.InvoiceBatch{
		ID:             newID("batch"),
		Name:           strings.TrimSuffix(fileName, ".csv"),
		FileName:       fileName,
		Status:         "uploaded",
		OrganizationID: info.User.OrganizationID,
		TotalInvoices:  rows,
		CreatedAt:      now,
	}
	b.batches.add(batch)
	writeData(w, http.StatusCreated, batch, "Batch uploaded successfully")
}

func (b *Backend) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	updated, found, err := b.batches.update(r.PathValue("id"), func(batch *models.InvoiceBatch) error {
		if batch.Status == "processed" {
			return ErrAlreadyProcessed
		}
		batch.Status = "processed"
		batch.ProcessedAt = b.now()
		return nil
	})
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "Batch not found")
	case errors.Is(err, ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "Batch already processed")
	default:
		writeData(w, http.StatusOK, updated, "Batch processed successfully")
	}
}

func readUpload(w http.ResponseWriter, r *http.Request, field string) (string, string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return "", "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", field+": file is required")
		return "", "", false
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return "", "", false
	}
	return string(content), header.Filename, true
}
