package mockapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"invoiceweb/portal/internal/apiclient"
)

func TestTransportSimulatesLatency(t *testing.T) {
	transport := NewTransport(NewBackend(Options{}), 40*time.Millisecond, nil)

	start := time.Now()
	resp := transport.Do(context.Background(), "http://ignored", apiclient.Request{
		Method: http.MethodGet,
		Path:   "/invoices/search",
		Query:  map[string][]string{"code": {SampleInvoiceCode}},
	})
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	require.Equal(t, http.StatusOK, resp.Status)
	require.True(t, resp.Envelope.Success)
	require.Contains(t, string(resp.Envelope.Data), SampleInvoiceCode)
}

func TestTransportLatencyHonorsDeadline(t *testing.T) {
	transport := NewTransport(NewBackend(Options{}), time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp := transport.Do(ctx, "", apiclient.Request{Method: http.MethodGet, Path: "/invoices/search"})
	require.False(t, resp.Envelope.Success)
	require.Equal(t, "Network error occurred", resp.Envelope.Message)
	require.Equal(t, 0, resp.Status)
}

func TestTransportNormalizesFailures(t *testing.T) {
	transport := NewTransport(NewBackend(Options{}), 0, nil)
	resp := transport.Do(context.Background(), "", apiclient.Request{Method: http.MethodGet, Path: "/dashboard/stats"})
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	require.False(t, resp.Envelope.Success)
	require.Nil(t, resp.Envelope.Data)
	require.Equal(t, "Unauthorized", resp.Envelope.Message)
}

func TestTransportSendsMultipartUploads(t *testing.T) {
	b := NewBackend(Options{})
	transport := NewTransport(b, 0, nil)
	client, err := apiclient.New(apiclient.Options{BaseURL: "http://localhost:5000/api", Transport: transport})
	require.NoError(t, err)

	auth := apiclient.Decode[struct {
		AccessToken string `json:"accessToken"`
	}](client.Post(context.Background(), "/auth/login", map[string]string{"email": AdminEmail, "password": AdminPassword}))
	require.True(t, auth.Success, auth.Message)
	client.SetAuthToken(auth.Data.AccessToken)

	csv := "code,customerName,amount,status\nNEW-1,Wayne Enterprises,1200,paid\nNEW-2,Stark,oops,pending\n"
	env := client.UploadFile(context.Background(), "/invoices/import", "file", "import.csv", strings.NewReader(csv))
	require.True(t, env.Success, env.Message)
	require.JSONEq(t, `{"imported":1,"failed":1,"errors":["row 3: invalid amount \"oops\""]}`, string(env.Data))
	require.Len(t, b.invoices.list(), 31)
}
