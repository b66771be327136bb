package apiclient

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Refresher renews the session after a 401 and reports whether the caller
// should retry.
type Refresher func(ctx context.Context) bool

// HeaderState is the header map shared by every client built on it. Writers
// replace the whole map, so a call that already took its snapshot keeps the
// headers it was dispatched with.
type HeaderState struct {
	headers   atomic.Pointer[http.Header]
	refresher atomic.Pointer[Refresher]
	flight    singleflight.Group
}

func NewHeaderState() *HeaderState {
	s := &HeaderState{}
	empty := http.Header{}
	s.headers.Store(&empty)
	return s
}

func (s *HeaderState) Snapshot() http.Header {
	return s.headers.Load().Clone()
}

func (s *HeaderState) Set(key, value string) {
	s.update(func(h http.Header) { h.Set(key, value) })
}

func (s *HeaderState) Del(key string) {
	s.update(func(h http.Header) { h.Del(key) })
}

func (s *HeaderState) update(mutate func(http.Header)) {
	for {
		current := s.headers.Load()
		next := current.Clone()
		if next == nil {
			next = http.Header{}
		}
		mutate(next)
		if s.headers.CompareAndSwap(current, &next) {
			return
		}
	}
}

func (s *HeaderState) SetAuthToken(token string) {
	s.Set("Authorization", "Bearer "+token)
}

func (s *HeaderState) ClearAuthToken() {
	s.Del("Authorization")
}

func (s *HeaderState) AuthToken() string {
	value := s.headers.Load().Get("Authorization")
	token, ok := strings.CutPrefix(value, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

func (s *HeaderState) SetRefresher(fn Refresher) {
	if fn == nil {
		s.refresher.Store(nil)
		return
	}
	s.refresher.Store(&fn)
}

// refresh runs the installed refresher, sharing one run between concurrent
// callers. The run is detached from the first caller's cancellation and bound
// by timeout instead; a caller whose own ctx ends stops waiting for it.
func (s *HeaderState) refresh(ctx context.Context, timeout time.Duration) bool {
	fn := s.refresher.Load()
	if fn == nil {
		return false
	}
	ch := s.flight.DoChan("refresh", func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return (*fn)(runCtx), nil
	})
	select {
	case res := <-ch:
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		return false
	}
}
