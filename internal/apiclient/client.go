package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

var defaultHeaders = http.Header{
	"Content-Type": {"application/json"},
	"Accept":       {"application/json"},
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport Transport
	// Headers lets several clients share one header map. A fresh one is
	// created when nil.
	Headers *HeaderState
	Logger  *zap.Logger
}

// Client is the base every domain service builds on. It owns the base URL, the
// per-call timeout and the header state, and funnels every verb through Do.
type Client struct {
	baseURL   string
	timeout   time.Duration
	transport Transport
	headers   *HeaderState
	logger    *zap.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, ErrNoTransport
	}
	if _, err := (Request{}).URL(opts.BaseURL); err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	headers := opts.Headers
	if headers == nil {
		headers = NewHeaderState()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   opts.BaseURL,
		timeout:   timeout,
		transport: opts.Transport,
		headers:   headers,
		logger:    logger,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) Timeout() time.Duration { return c.timeout }
func (c *Client) Headers() *HeaderState { return c.headers }
func (c *Client) AuthToken() string { return c.headers.AuthToken() }
func (c *Client) SetAuthToken(token string) { c.headers.SetAuthToken(token) }
func (c *Client) ClearAuthToken() { c.headers.ClearAuthToken() }

// SetRefresher installs the hook used by the 401 policy: a call answered with
// 401 triggers one refresh and, when it succeeds, one retry.
func (c *Client) SetRefresher(fn Refresher) { c.headers.SetRefresher(fn) }

func (c *Client) Do(ctx context.Context, req Request) Response {
	resp := c.dispatch(ctx, req)
	if resp.Status != http.StatusUnauthorized || req.SkipAuthRetry {
		return resp
	}
	if !c.headers.refresh(ctx, c.timeout) {
		return resp
	}
	c.logger.Debug("retrying after token refresh", zap.String("method", req.Method), zap.String("path", req.Path))
	return c.dispatch(ctx, req)
}

func (c *Client) dispatch(ctx context.Context, req Request) Response {
	req.Header = mergeHeaders(defaultHeaders, c.headers.Snapshot(), req.Header)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.transport.Do(ctx, c.baseURL, req)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) Envelope[json.RawMessage] {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}).Envelope
}

func (c *Client) Post(ctx context.Context, path string, body any) Envelope[json.RawMessage] {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}).Envelope
}

func (c *Client) Put(ctx context.Context, path string, body any) Envelope[json.RawMessage] {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}).Envelope
}

func (c *Client) Patch(ctx context.Context, path string, body any) Envelope[json.RawMessage] {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}).Envelope
}

func (c *Client) Delete(ctx context.Context, path string) Envelope[json.RawMessage] {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}).Envelope
}

// UploadFile sends file as multipart/form-data under fieldName. The JSON
// content type is suppressed so the boundary is computed by the transport.
func (c *Client) UploadFile(ctx context.Context, path, fieldName, fileName string, file io.Reader) Envelope[json.RawMessage] {
	content, err := io.ReadAll(file)
	if err != nil {
		return NetworkFailure[json.RawMessage](fmt.Errorf("read upload: %w", err))
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": {Unset}},
		Upload: &FileUpload{FieldName: fieldName, FileName: fileName, Content: content},
	}).Envelope
}
