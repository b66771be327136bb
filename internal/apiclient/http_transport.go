package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

type HTTPOptions struct {
	Client *http.Client
	Logger *zap.Logger
	// RateLimit caps outgoing calls per second; zero disables throttling.
	RateLimit float64
	Burst     int
}

// HTTPTransport is the live transport.
type HTTPTransport struct {
	client  *http.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	client := opts.Client
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &HTTPTransport{client: client, logger: logger, limiter: limiter}
}

func (t *HTTPTransport) Do(ctx context.Context, baseURL string, req Request) Response {
	start := time.Now()
	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp, err := t.roundTrip(ctx, baseURL, req, requestID)
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		t.logger.Warn("api_request_failed", append(fields, zap.Error(err))...)
		return Response{Envelope: NetworkFailure[json.RawMessage](err)}
	}

	fields = append(fields, zap.Int("status", resp.Status))
	switch {
	case resp.Status >= http.StatusInternalServerError:
		t.logger.Error("api_request", fields...)
	case resp.Status >= http.StatusBadRequest:
		t.logger.Warn("api_request", fields...)
	default:
		t.logger.Info("api_request", fields...)
	}
	return resp
}

func (t *HTTPTransport) roundTrip(ctx context.Context, baseURL string, req Request, requestID string) (Response, error) {
	fullURL, err := req.URL(baseURL)
	if err != nil {
		return Response{}, err
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	body, contentType, err := req.EncodeBody()
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	res, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return Response{Status: res.StatusCode, Envelope: Normalize(res.StatusCode, data)}, nil
}
