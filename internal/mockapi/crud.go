package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

const defaultPageSize = 10

// crud serves the list/get/create/update/delete/bulk-delete routes every admin
// collection exposes.
type crud[T any] struct {
	label    string
	prefix   string
	items    *collection[T]
	match    func(item T, q url.Values) bool
	validate func(item T) []string
	onCreate func(item *T, now time.Time)
	now      func() time.Time
}

func (c crud[T]) mount(mux *http.ServeMux, path string) {
	mux.HandleFunc("GET "+path, c.list)
	mux.HandleFunc("POST "+path, c.create)
	mux.HandleFunc("POST "+path+"/bulk-delete", c.bulkDelete)
	mux.HandleFunc("GET "+path+"/{id}", c.get)
	mux.HandleFunc("PUT "+path+"/{id}", c.update)
	mux.HandleFunc("DELETE "+path+"/{id}", c.delete)
}

// list answers with the whole filtered set, or with one page of it when the
// query carries a page number.
func (c crud[T]) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matched := []T{}
	for _, item := range c.items.list() {
		if c.match == nil || c.match(item, q) {
			matched = append(matched, item)
		}
	}
	if q.Get("page") == "" {
		writeData(w, http.StatusOK, matched, "")
		return
	}
	page := readInt(q, "page", 1)
	limit := readInt(q, "limit", 0)
	if limit == 0 {
		limit = readInt(q, "pageSize", defaultPageSize)
	}
	writeData(w, http.StatusOK, apiclient.Paginate(matched, page, limit), "")
}

func (c crud[T]) get(w http.ResponseWriter, r *http.Request) {
	item, ok := c.items.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, c.label+" not found")
		return
	}
	writeData(w, http.StatusOK, item, "")
}

func (c crud[T]) create(w http.ResponseWriter, r *http.Request) {
	var item T
	if !decodeRequest(w, r, &item) {
		return
	}
	if c.validate != nil {
		if errs := c.validate(item); len(errs) > 0 {
			writeError(w, http.StatusUnprocessableEntity, "Validation failed", errs...)
			return
		}
	}
	if err := forceID(&item, newID(c.prefix)); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if c.onCreate != nil {
		c.onCreate(&item, c.now())
	}
	c.items.add(item)
	writeData(w, http.StatusCreated, item, c.label+" created successfully")
}

// update merges the request body over the stored entity, so partial payloads
// leave the other fields untouched.
func (c crud[T]) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", err.Error())
		return
	}
	updated, found, err := c.items.update(id, func(item *T) error {
		if err := json.Unmarshal(body, item); err != nil {
			return err
		}
		if c.validate != nil {
			if errs := c.validate(*item); len(errs) > 0 {
				return validationError(errs)
			}
		}
		return forceID(item, id)
	})
	switch {
	case !found:
		writeError(w, http.StatusNotFound, c.label+" not found")
	case err != nil:
		if errs, ok := err.(validationError); ok {
			writeError(w, http.StatusUnprocessableEntity, "Validation failed", errs...)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", err.Error())
	default:
		writeData(w, http.StatusOK, updated, c.label+" updated successfully")
	}
}

func (c crud[T]) delete(w http.ResponseWriter, r *http.Request) {
	if c.items.remove(r.PathValue("id")) == 0 {
		writeError(w, http.StatusNotFound, c.label+" not found")
		return
	}
	writeData(w, http.StatusOK, nil, c.label+" deleted successfully")
}

func (c crud[T]) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req models.BulkDeleteRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", "ids: at least one id is required")
		return
	}
	removed := c.items.remove(req.IDs...)
	writeData(w, http.StatusOK, nil, fmt.Sprintf("%d %s records deleted", removed, strings.ToLower(c.label)))
}

type validationError []string

func (e validationError) Error() string {
	return strings.Join(e, "; ")
}

func readInt(q url.Values, key string, fallback int) int {
	raw := q.Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// matchesFilter treats an empty value and "all" as no filter.
func matchesFilter(q url.Values, key, value string) bool {
	want := strings.TrimSpace(q.Get(key))
	return want == "" || strings.EqualFold(want, "all") || strings.EqualFold(want, value)
}

func matchesSearch(q url.Values, fields ...string) bool {
	needle := strings.ToLower(strings.TrimSpace(q.Get("search")))
	if needle == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func required(pairs ...string) []string {
	var errs []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			errs = append(errs, pairs[i]+": is required")
		}
	}
	return errs
}
