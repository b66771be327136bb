// Package admindata drives paginated admin lists: it owns the current page,
// its loading and error state, and refetches after every change.
package admindata

import (
	"context"
	"errors"
	"maps"
	"sync"

	"go.uber.org/zap"

	"invoiceweb/portal/internal/apiclient"
)

const DefaultPageSize = 10

var (
	ErrNotSupported = errors.New("operation not supported")
	// ErrStale is returned by a fetch whose params were superseded before it
	// completed. Its result is dropped.
	ErrStale = errors.New("stale response discarded")
)

type Params struct {
	Page     int
	PageSize int
	Search   string
	Filters  apiclient.Filters
}

func (p Params) clone() Params {
	p.Filters = maps.Clone(p.Filters)
	return p
}

type Page[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	PageSize   int
}

// Funcs are the operations behind a controller. Only Fetch is required.
type Funcs[T any] struct {
	Fetch      func(ctx context.Context, params Params) (Page[T], error)
	Create     func(ctx context.Context, input any) error
	Update     func(ctx context.Context, id string, input any) error
	Delete     func(ctx context.Context, id string) error
	BulkDelete func(ctx context.Context, ids []string) error
}

type State[T any] struct {
	Data     []T
	Total    int
	Loading  bool
	Error    string
	Page     int
	PageSize int
	Search   string
	Filters  apiclient.Filters
}

type Options struct {
	PageSize int
	Logger   *zap.Logger
}

type Controller[T any] struct {
	funcs  Funcs[T]
	logger *zap.Logger

	mu          sync.Mutex
	params      Params
	data        []T
	total       int
	errMsg      string
	pending     int
	generation  uint64
	subscribers map[int]func(State[T])
	nextSub     int
}

func New[T any](funcs Funcs[T], opts Options) *Controller[T] {
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller[T]{
		funcs:       funcs,
		logger:      logger,
		params:      Params{Page: 1, PageSize: pageSize, Filters: apiclient.Filters{}},
		data:        []T{},
		subscribers: map[int]func(State[T]){},
	}
}

func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller[T]) stateLocked() State[T] {
	data := make([]T, len(c.data))
	copy(data, c.data)
	return State[T]{
		Data:     data,
		Total:    c.total,
		Loading:  c.pending > 0,
		Error:    c.errMsg,
		Page:     c.params.Page,
		PageSize: c.params.PageSize,
		Search:   c.params.Search,
		Filters:  maps.Clone(c.params.Filters),
	}
}

// Load fetches the page for the current params. A failure clears the data and
// records the error.
func (c *Controller[T]) Load(ctx context.Context) error {
	if c.funcs.Fetch == nil {
		return ErrNotSupported
	}
	c.mu.Lock()
	c.generation++
	generation := c.generation
	params := c.params.clone()
	c.pending++
	c.mu.Unlock()
	c.notify()

	page, err := c.funcs.Fetch(ctx, params)

	c.mu.Lock()
	c.pending--
	stale := generation != c.generation
	if !stale {
		if err != nil {
			c.data = []T{}
			c.total = 0
			c.errMsg = err.Error()
		} else {
			c.data = page.Items
			if c.data == nil {
				c.data = []T{}
			}
			c.total = page.TotalCount
			c.errMsg = ""
		}
	}
	c.mu.Unlock()
	c.notify()

	if stale {
		c.logger.Debug("discarded stale page", zap.Int("page", params.Page), zap.Int("page_size", params.PageSize))
		return ErrStale
	}
	if err != nil {
		c.logger.Warn("admin list fetch failed", zap.Error(err))
	}
	return err
}

func (c *Controller[T]) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	return c.change(ctx, func(p *Params) bool {
		if p.Page == page {
			return false
		}
		p.Page = page
		return true
	})
}

// SetPageSize starts again from the first page.
func (c *Controller[T]) SetPageSize(ctx context.Context, size int) error {
	if size < 1 {
		size = DefaultPageSize
	}
	return c.change(ctx, func(p *Params) bool {
		if p.PageSize == size {
			return false
		}
		p.PageSize = size
		p.Page = 1
		return true
	})
}

func (c *Controller[T]) SetSearch(ctx context.Context, search string) error {
	return c.change(ctx, func(p *Params) bool {
		if p.Search == search {
			return false
		}
		p.Search = search
		p.Page = 1
		return true
	})
}

func (c *Controller[T]) SetFilter(ctx context.Context, key, value string) error {
	return c.change(ctx, func(p *Params) bool {
		if p.Filters[key] == value {
			return false
		}
		if value == "" {
			delete(p.Filters, key)
		} else {
			p.Filters[key] = value
		}
		p.Page = 1
		return true
	})
}

func (c *Controller[T]) change(ctx context.Context, apply func(*Params) bool) error {
	c.mu.Lock()
	changed := apply(&c.params)
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.Load(ctx)
}

func (c *Controller[T]) CreateItem(ctx context.Context, input any) error {
	if c.funcs.Create == nil {
		return ErrNotSupported
	}
	return c.mutate(ctx, "create", func() error { return c.funcs.Create(ctx, input) })
}

func (c *Controller[T]) UpdateItem(ctx context.Context, id string, input any) error {
	if c.funcs.Update == nil {
		return ErrNotSupported
	}
	return c.mutate(ctx, "update", func() error { return c.funcs.Update(ctx, id, input) })
}

func (c *Controller[T]) DeleteItem(ctx context.Context, id string) error {
	if c.funcs.Delete == nil {
		return ErrNotSupported
	}
	return c.mutate(ctx, "delete", func() error { return c.funcs.Delete(ctx, id) })
}

func (c *Controller[T]) BulkDelete(ctx context.Context, ids []string) error {
	if c.funcs.BulkDelete == nil {
		return ErrNotSupported
	}
	return c.mutate(ctx, "bulk_delete", func() error { return c.funcs.BulkDelete(ctx, ids) })
}

// mutate runs op and refetches the current page on success. The op error is
// recorded and returned so the caller can keep its form open; a failed
// refetch only shows up in State.
func (c *Controller[T]) mutate(ctx context.Context, op string, fn func() error) error {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
	c.notify()

	err := func() error {
		defer func() {
			c.mu.Lock()
			c.pending--
			c.mu.Unlock()
		}()
		return fn()
	}()
	if err != nil {
		c.mu.Lock()
		c.errMsg = err.Error()
		c.mu.Unlock()
		c.notify()
		c.logger.Warn("admin action failed", zap.String("op", op), zap.Error(err))
		return err
	}

	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrStale) {
		c.logger.Debug("refetch after action failed", zap.String("op", op), zap.Error(err))
	}
	return nil
}

// Subscribe registers fn for every state change and returns a func that
// removes it.
func (c *Controller[T]) Subscribe(fn func(State[T])) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller[T]) notify() {
	c.mu.Lock()
	state := c.stateLocked()
	subs := make([]func(State[T]), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}
