package apiclient

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// Transport executes a fully prepared request. Headers in req are final; the
// transport only adds what the body encoding requires.
type Transport interface {
	Do(ctx context.Context, baseURL string, req Request) Response
}

// Mode selects between the mock and live transports. It is read on every call,
// so flipping it takes effect immediately for clients that already exist.
type Mode struct {
	mock atomic.Bool
}

func NewMode(mock bool) *Mode {
	m := &Mode{}
	m.mock.Store(mock)
	return m
}

func (m *Mode) Mock() bool {
	return m != nil && m.mock.Load()
}

func (m *Mode) SetMock(mock bool) {
	m.mock.Store(mock)
}

// Switch routes each call to Mock or Live according to Mode.
type Switch struct {
	Live Transport
	Mock Transport
	Mode *Mode
}

func (s *Switch) Do(ctx context.Context, baseURL string, req Request) Response {
	if s.Mode.Mock() && s.Mock != nil {
		return s.Mock.Do(ctx, baseURL, req)
	}
	if s.Live == nil {
		return Response{Envelope: NetworkFailure[json.RawMessage](ErrNoTransport)}
	}
	return s.Live.Do(ctx, baseURL, req)
}
