package admindata

import (
	"context"
	"maps"

	"invoiceweb/portal/internal/apiclient"
)

// PageFunc is the shape of a service's paginated list call.
type PageFunc[T any] func(ctx context.Context, page, pageSize int, filters apiclient.Filters) apiclient.Envelope[apiclient.PaginatedResult[T]]

// FromPaginated turns a paginated service call into a Fetch. The search term
// travels as the "search" filter.
func FromPaginated[T any](fn PageFunc[T]) func(context.Context, Params) (Page[T], error) {
	return func(ctx context.Context, p Params) (Page[T], error) {
		filters := maps.Clone(p.Filters)
		if filters == nil {
			filters = apiclient.Filters{}
		}
		if p.Search != "" {
			filters["search"] = p.Search
		}
		env := fn(ctx, p.Page, p.PageSize, filters)
		if err := env.Err(); err != nil {
			return Page[T]{}, err
		}
		return Page[T]{
			Items:      env.Data.Data,
			TotalCount: env.Data.Total,
			Page:       env.Data.Page,
			PageSize:   env.Data.Limit,
		}, nil
	}
}

// FromEnvelope reduces an envelope to its error.
func FromEnvelope[R any](env apiclient.Envelope[R]) error {
	return env.Err()
}

// CRUD is the method set shared by the services' generic resources.
type CRUD[T any] interface {
	GetPaginated(ctx context.Context, page, pageSize int, filters apiclient.Filters) apiclient.Envelope[apiclient.PaginatedResult[T]]
	Create(ctx context.Context, dto any) apiclient.Envelope[T]
	Update(ctx context.Context, id string, dto any) apiclient.Envelope[T]
	Delete(ctx context.Context, id string) apiclient.Envelope[apiclient.Void]
	BulkDelete(ctx context.Context, ids []string) apiclient.Envelope[apiclient.Void]
}

// ForResource wires every operation of a CRUD resource.
func ForResource[T any](r CRUD[T]) Funcs[T] {
	return Funcs[T]{
		Fetch: FromPaginated[T](r.GetPaginated),
		Create: func(ctx context.Context, input any) error {
			return FromEnvelope(r.Create(ctx, input))
		},
		Update: func(ctx context.Context, id string, input any) error {
			return FromEnvelope(r.Update(ctx, id, input))
		},
		Delete: func(ctx context.Context, id string) error {
			return FromEnvelope(r.Delete(ctx, id))
		},
		BulkDelete: func(ctx context.Context, ids []string) error {
			return FromEnvelope(r.BulkDelete(ctx, ids))
		},
	}
}
