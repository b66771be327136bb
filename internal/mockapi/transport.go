package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"go.uber.org/zap"

	"invoiceweb/portal/internal/apiclient"
)

// DefaultLatency keeps loading states observable when the mock is used
// interactively.
const DefaultLatency = 300 * time.Millisecond

const mockOrigin = "http://mockapi.local"

// Transport answers calls from an in-process handler after a simulated
// network delay. Responses go through the same normalization as live ones.
type Transport struct {
	handler http.Handler
	latency time.Duration
	logger  *zap.Logger
}

func NewTransport(handler http.Handler, latency time.Duration, logger *zap.Logger) *Transport {
	if latency < 0 {
		latency = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{handler: handler, latency: latency, logger: logger}
}

func (t *Transport) Do(ctx context.Context, _ string, req apiclient.Request) apiclient.Response {
	if err := t.wait(ctx); err != nil {
		return apiclient.Response{Envelope: apiclient.NetworkFailure[json.RawMessage](err)}
	}

	target, err := req.URL(mockOrigin)
	if err != nil {
		return apiclient.Response{Envelope: apiclient.NetworkFailure[json.RawMessage](err)}
	}
	body, contentType, err := req.EncodeBody()
	if err != nil {
		return apiclient.Response{Envelope: apiclient.NetworkFailure[json.RawMessage](err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return apiclient.Response{Envelope: apiclient.NetworkFailure[json.RawMessage](fmt.Errorf("build request: %w", err))}
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, httpReq)
	t.logger.Debug("mock_call",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", rec.Code),
	)
	return apiclient.Response{Status: rec.Code, Envelope: apiclient.Normalize(rec.Code, rec.Body.Bytes())}
}

func (t *Transport) wait(ctx context.Context) error {
	if t.latency == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
