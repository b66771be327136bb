package apiclient

import (
	"net/url"
	"strconv"
	"strings"
)

type PaginatedResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Paginate cuts one page out of a full, stably ordered result set. Pages start
// at 1; a page past the end is empty.
func Paginate[T any](items []T, page, limit int) PaginatedResult[T] {
	page, limit = ClampPage(page, limit)
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	data := make([]T, end-start)
	copy(data, items[start:end])
	return PaginatedResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: TotalPages(total, limit),
	}
}

func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return page, limit
}

// Filters are optional list filters. Empty values and "all" mean no filter and
// are never sent.
type Filters map[string]string

func (f Filters) Apply(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	for key, value := range f {
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, "all") {
			continue
		}
		q.Set(key, value)
	}
	return q
}

// PageQuery builds the query of a paginated list call.
func PageQuery(page, pageSize int, filters Filters) url.Values {
	page, pageSize = ClampPage(page, pageSize)
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return filters.Apply(q)
}
