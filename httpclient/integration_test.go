package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smashsdk/sdk-core/config"
	"github.com/smashsdk/sdk-core/httpclient"
	"github.com/smashsdk/sdk-core/testing/fakeapi"
)

const transferService = "transfer"

type notFoundError struct{ *httpclient.SDKError }

type invalidParameterError struct{ *httpclient.SDKError }

var transferErrors = httpclient.ErrorRegistry{}.
	Register("NotFound", func(e *httpclient.SDKError) error { return &notFoundError{e} }).
	Register("InvalidParameter", func(e *httpclient.SDKError) error { return &invalidParameterError{e} })

// tokenRefresher asks the fake API for a new token through its own client.
func tokenRefresher(t *testing.T, srv *fakeapi.Server) httpclient.RefreshFunc {
	auth, err := httpclient.NewBuilder("auth", nil).WithHost(srv.URL()).Build()
	require.NoError(t, err)

	return func(ctx context.Context, _ *httpclient.Response, _ int) (string, error) {
		tr, _, err := httpclient.Invoke[fakeapi.TokenResponse](ctx, auth, &httpclient.Request{
			Method: http.MethodPost,
			Path:   "/auth/token",
		}, nil)
		if err != nil {
			return "", err
		}
		return tr.Token, nil
	}
}

func newTransferClient(t *testing.T, srv *fakeapi.Server, opts ...func(*httpclient.Builder)) *httpclient.Client {
	t.Helper()

	cfg := config.Default()
	cfg.SetHosts(transferService, map[config.Region]string{config.RegionGlobal: srv.URL()})

	b := httpclient.NewBuilder(transferService, nil).
		WithConfig(cfg).
		WithRegion(config.RegionGlobal).
		WithRefreshFunc(tokenRefresher(t, srv))
	for _, opt := range opts {
		opt(b)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestIntegrationRefreshAfterExpiry(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	c := newTransferClient(t, srv, func(b *httpclient.Builder) { b.WithToken(srv.IssueToken()) })
	ctx := context.Background()

	got, _, err := httpclient.Invoke[fakeapi.Transfer](ctx, c, &httpclient.Request{
		Method:     http.MethodGet,
		Path:       "/v1/transfers/:id",
		PathParams: map[string]any{"id": "tr-1"},
	}, transferErrors)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", got.ID)
	assert.Zero(t, srv.TokenRequests())

	srv.ExpireTokens()

	created, resp, err := httpclient.Invoke[fakeapi.Transfer](ctx, c, &httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/transfers",
		Body:   map[string]string{"name": "report.pdf"},
	}, transferErrors)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "report.pdf", created.Name)

	assert.Equal(t, int64(1), srv.TokenRequests())
	assert.Equal(t, int64(1), srv.Unauthorized())
	assert.Equal(t, srv.Token(), c.Token())
	assert.Len(t, srv.Transfers(), 1)
}

func TestIntegrationConcurrentExpiryRefreshesOnce(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	srv.IssueToken()
	srv.ExpireTokens()
	c := newTransferClient(t, srv, func(b *httpclient.Builder) { b.WithToken("stale") })

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = httpclient.Invoke[fakeapi.Transfer](context.Background(), c, &httpclient.Request{
				Method: http.MethodGet,
				Path:   "/v1/transfers/tr-7",
			}, transferErrors)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	// callers that arrive after the cycle already carry the new token
	assert.LessOrEqual(t, srv.TokenRequests(), int64(callers))
	assert.GreaterOrEqual(t, srv.TokenRequests(), int64(1))
	assert.Equal(t, srv.Token(), c.Token())
}

func TestIntegrationTypedErrors(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	c := newTransferClient(t, srv, func(b *httpclient.Builder) { b.WithToken(srv.IssueToken()) })
	ctx := context.Background()

	_, _, err := httpclient.Invoke[fakeapi.Transfer](ctx, c, &httpclient.Request{
		Method: http.MethodGet,
		Path:   "/v1/transfers/" + fakeapi.MissingTransferID,
	}, transferErrors)
	var nf *notFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)
	assert.NotEmpty(t, nf.RequestID)

	_, _, err = httpclient.Invoke[fakeapi.Transfer](ctx, c, &httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/transfers",
		Body:   map[string]string{},
	}, transferErrors)
	var ip *invalidParameterError
	require.ErrorAs(t, err, &ip)
	require.NotNil(t, ip.Details)
	assert.Equal(t, "name", ip.Details.Name)

	got, _, err := httpclient.Invoke[fakeapi.Transfer](ctx, c, &httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/v1/transfers/tr-x",
		Headers: map[string]any{"Accept": "application/xml"},
	}, transferErrors)
	require.NoError(t, err)
	assert.Equal(t, fakeapi.Transfer{ID: "tr-x", Status: "Uploaded"}, got)
}

func TestIntegrationRefreshDeclined(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	c := newTransferClient(t, srv, func(b *httpclient.Builder) {
		b.WithToken("stale").WithRefreshFunc(func(context.Context, *httpclient.Response, int) (string, error) {
			return "", nil
		})
	})

	resp, err := c.Get(context.Background(), &httpclient.Request{Path: "/v1/transfers/tr-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, classifyErr := httpclient.Classify[fakeapi.Transfer](resp, transferErrors)
	assert.True(t, httpclient.IsErrorType(classifyErr, httpclient.UnknownError))
	var sdkErr *httpclient.SDKError
	require.ErrorAs(t, classifyErr, &sdkErr)
	assert.Equal(t, "token expired", sdkErr.Message)
	assert.False(t, errors.As(classifyErr, new(*notFoundError)))
}
