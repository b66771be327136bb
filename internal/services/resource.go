package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
)

// Resource is the path-addressed CRUD every admin entity shares. Services embed
// it and add their domain actions on top.
type Resource[T any] struct {
	*apiclient.Client
	path string
}

func newResource[T any](client *apiclient.Client, path string) Resource[T] {
	return Resource[T]{Client: client, path: "/" + strings.Trim(path, "/")}
}

func (r Resource[T]) Path() string {
	return r.path
}

func (r Resource[T]) itemPath(id string, rest ...string) string {
	parts := append([]string{r.path, url.PathEscape(id)}, rest...)
	return strings.Join(parts, "/")
}

func (r Resource[T]) GetAll(ctx context.Context) apiclient.Envelope[[]T] {
	return call[[]T](ctx, r.Client, apiclient.Request{Method: http.MethodGet, Path: r.path})
}

func (r Resource[T]) GetByID(ctx context.Context, id string) apiclient.Envelope[T] {
	return call[T](ctx, r.Client, apiclient.Request{Method: http.MethodGet, Path: r.itemPath(id)})
}

func (r Resource[T]) GetPaginated(ctx context.Context, page, pageSize int, filters apiclient.Filters) apiclient.Envelope[apiclient.PaginatedResult[T]] {
	return call[apiclient.PaginatedResult[T]](ctx, r.Client, apiclient.Request{
		Method: http.MethodGet,
		Path:   r.path,
		Query:  apiclient.PageQuery(page, pageSize, filters),
	})
}

func (r Resource[T]) Create(ctx context.Context, dto any) apiclient.Envelope[T] {
	return call[T](ctx, r.Client, apiclient.Request{Method: http.MethodPost, Path: r.path, Body: dto})
}

func (r Resource[T]) Update(ctx context.Context, id string, dto any) apiclient.Envelope[T] {
	return call[T](ctx, r.Client, apiclient.Request{Method: http.MethodPut, Path: r.itemPath(id), Body: dto})
}

func (r Resource[T]) Delete(ctx context.Context, id string) apiclient.Envelope[apiclient.Void] {
	return call[apiclient.Void](ctx, r.Client, apiclient.Request{Method: http.MethodDelete, Path: r.itemPath(id)})
}

func (r Resource[T]) BulkDelete(ctx context.Context, ids []string) apiclient.Envelope[apiclient.Void] {
	return call[apiclient.Void](ctx, r.Client, apiclient.Request{
		Method: http.MethodPost,
		Path:   r.path + "/bulk-delete",
		Body:   models.BulkDeleteRequest{IDs: ids},
	})
}

func call[T any](ctx context.Context, client *apiclient.Client, req apiclient.Request) apiclient.Envelope[T] {
	return apiclient.Decode[T](client.Do(ctx, req).Envelope)
}
