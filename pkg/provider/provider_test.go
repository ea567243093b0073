package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/telemetry"
)

// recordedRequest captures what the fake authority received.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// fakeAuthority serves canned replies keyed by "METHOD path".
type fakeAuthority struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func newFakeAuthority(t *testing.T) (*fakeAuthority, *httptest.Server) {
	t.Helper()
	fa := &fakeAuthority{routes: map[string]func(w http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fa.mu.Lock()
		fa.requests = append(fa.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		handler, ok := fa.routes[r.Method+" "+r.URL.EscapedPath()]
		fa.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no route"}`))
			return
		}
		handler(w)
	}))
	t.Cleanup(srv.Close)
	return fa, srv
}

func (fa *fakeAuthority) handle(route string, status int, body string) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.routes[route] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (fa *fakeAuthority) last() recordedRequest {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.requests[len(fa.requests)-1]
}

func testOptions(url string) []Option {
	return []Option{WithBaseURL(url), WithRateLimit(0, 0)}
}

func TestSecurityClient_Headers(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("PUT /corps/acme/sites/www/edgeDeployment", 200, `{}`)
	fa.handle("PUT /corps/acme/sites/www/edgeDeployment/SID123", 200, `{"ok":true}`)

	c := NewSecurityClient("ops@example.com", "sig-token", "cdn-key", testOptions(srv.URL)...)

	_, err := c.CreateEdgeDeployment(context.Background(), "acme", "www")
	require.NoError(t, err)
	req := fa.last()
	assert.Equal(t, "ops@example.com", req.Header.Get("x-api-user"))
	assert.Equal(t, "sig-token", req.Header.Get("x-api-token"))
	assert.Empty(t, req.Header.Get("Fastly-Key"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	resp, err := c.BindService(context.Background(), "acme", "www", "SID123", BindOptions{})
	require.NoError(t, err)
	req = fa.last()
	assert.Equal(t, "cdn-key", req.Header.Get("Fastly-Key"))
	assert.Empty(t, req.Body)
	assert.Equal(t, engine.Reply{StatusCode: 200, Status: "200 OK", Body: []byte(`{"ok":true}`)}, resp.Reply())
}

func TestSecurityClient_Endpoints(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	c := NewSecurityClient("u", "t", "k", testOptions(srv.URL)...)
	ctx := context.Background()

	tests := []struct {
		name   string
		route  string
		status int
		call   func() (*Response, error)
	}{
		{
			name:   "get edge deployment",
			route:  "GET /corps/acme/sites/www/edgeDeployment",
			status: 200,
			call:   func() (*Response, error) { return c.GetEdgeDeployment(ctx, "acme", "www") },
		},
		{
			name:   "resync backends",
			route:  "PUT /corps/acme/sites/www/edgeDeployment/SID123/backends",
			status: 200,
			call:   func() (*Response, error) { return c.ResyncBackends(ctx, "acme", "www", "SID123") },
		},
		{
			name:   "detach service",
			route:  "DELETE /corps/acme/sites/www/deliveryIntegration/SID123",
			status: 204,
			call:   func() (*Response, error) { return c.DetachService(ctx, "acme", "www", "SID123") },
		},
		{
			name:   "remove edge deployment",
			route:  "DELETE /corps/acme/sites/www/edgeDeployment",
			status: 204,
			call:   func() (*Response, error) { return c.RemoveEdgeDeployment(ctx, "acme", "www") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa.handle(tt.route, tt.status, "")
			resp, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.route, fa.last().Method+" "+fa.last().Path)
		})
	}
}

func TestSecurityClient_BindOptions(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("PUT /corps/acme/sites/www/edgeDeployment/SID123", 200, `{}`)
	c := NewSecurityClient("u", "t", "k", testOptions(srv.URL)...)

	activate := true
	percent := 10
	_, err := c.BindService(context.Background(), "acme", "www", "SID123", BindOptions{
		ActivateVersion: &activate,
		PercentEnabled:  &percent,
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"activateVersion":true,"percentEnabled":10}`, fa.last().Body)
}

func TestSecurityClient_ListCorps(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /corps", 200, `{"data":[{"name":"acme","displayName":"Acme"},{"name":"globex"}]}`)
	c := NewSecurityClient("u", "t", "k", testOptions(srv.URL)...)

	corps, err := c.ListCorps(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Corp{{Name: "acme", DisplayName: "Acme"}, {Name: "globex"}}, corps)
}

func TestSecurityClient_PathEscaping(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /corps/acme/sites/my%20site/edgeDeployment", 200, `{}`)
	c := NewSecurityClient("u", "t", "k", testOptions(srv.URL)...)

	_, err := c.GetEdgeDeployment(context.Background(), "acme", "my site")

	require.NoError(t, err)
}

func TestClient_StatusError(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("PUT /corps/acme/sites/www/edgeDeployment/SID123", 503, `{"message":"edge deployment is still provisioning"}`)

	metrics, err := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	require.NoError(t, err)
	c := NewSecurityClient("u", "t", "k", append(testOptions(srv.URL), WithMetrics(metrics))...)

	_, err = c.BindService(context.Background(), "acme", "www", "SID123", BindOptions{})

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.Code)
	assert.Equal(t, "503 Service Unavailable", se.HTTPStatus())
	assert.Equal(t, "edge deployment is still provisioning", se.Message())
	assert.Equal(t, "bind_service", se.Operation)
	assert.Equal(t, SecurityAuthority, se.Authority)
	assert.Contains(t, se.Error(), "edge deployment is still provisioning")

	var engineView engine.StatusError
	require.ErrorAs(t, err, &engineView)
	assert.Equal(t, 503, engineView.HTTPStatusCode())

	count, err := testutil.GatherAndCount(metrics.Registry(), "edgebind_provider_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_TransportError(t *testing.T) {
	_, srv := newFakeAuthority(t)
	url := srv.URL
	srv.Close()

	c := NewCDNClient("k", testOptions(url)...)
	_, err := c.ServiceDetails(context.Background(), "SID123")

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Zero(t, se.Code)
	assert.Error(t, se.Unwrap())
	assert.Contains(t, se.Error(), "no response received")

	cls := engine.NewPolicyClassifier(engine.DefaultPolicy()).Classify(nil, err)
	assert.Equal(t, engine.OutcomeRetryable, cls.Kind)
	assert.Equal(t, "transport", cls.Reason)
}

func TestClient_ContextCancelled(t *testing.T) {
	_, srv := newFakeAuthority(t)
	c := NewCDNClient("k", testOptions(srv.URL)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ServiceDetails(ctx, "SID123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, engine.IsCancelled(err))
}

func TestClient_RateLimit(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /service/SID123/details", 200, `{"id":"SID123"}`)
	c := NewCDNClient("k", WithBaseURL(srv.URL), WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.ServiceDetails(context.Background(), "SID123")
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClient_TracePropagation(t *testing.T) {
	cfg := telemetry.DefaultConfig().Tracing
	cfg.Enabled = true
	cfg.Exporter = "none"
	cfg.SamplingRate = 1
	tr, err := telemetry.NewTracer(cfg, "edgebind", "test", "test")
	require.NoError(t, err)
	defer tr.Shutdown(context.Background())

	fa, srv := newFakeAuthority(t)
	fa.handle("GET /corps", http.StatusOK, `{"data":[]}`)
	c := NewSecurityClient("ops@example.com", "sig-token", "cdn-key", append(testOptions(srv.URL), WithTracer(tr))...)

	_, err = c.ListCorps(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^00-[0-9a-f]{32}-[0-9a-f]{16}-0[01]$`, fa.last().Header.Get("Traceparent"))
}

func TestCDNClient_ListServices(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /service", 200, `[{"id":"SID123","name":"www","version":4}]`)
	c := NewCDNClient("cdn-key", testOptions(srv.URL)...)

	services, err := c.ListServices(context.Background(), ListServicesInput{})

	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "SID123", services[0].ID)
	assert.Equal(t, 4, services[0].ActiveVersion)
	req := fa.last()
	assert.Equal(t, "cdn-key", req.Header.Get("Fastly-Key"))
	assert.Equal(t, "direction=ascend&page=1&per_page=20&sort=created", req.Query)
}

func TestCDNClient_LatestVersion(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /service/SID123/version", 200, `[{"number":1},{"number":2},{"number":7,"active":true}]`)
	fa.handle("GET /service/EMPTY/version", 200, `[]`)
	c := NewCDNClient("k", testOptions(srv.URL)...)

	v, err := c.LatestVersion(context.Background(), "SID123")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = c.LatestVersion(context.Background(), "EMPTY")
	assert.Error(t, err)
}

func TestCDNClient_Dictionary(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /service/SID123/version/7/dictionary/Edge_Security", 200, `{"id":"dict-1","name":"Edge_Security","version":7}`)
	fa.handle("PUT /service/SID123/dictionary/dict-1/item/Enabled", 200, `{"dictionary_id":"dict-1","item_key":"Enabled","item_value":"100"}`)
	c := NewCDNClient("k", testOptions(srv.URL)...)
	ctx := context.Background()

	dict, err := c.GetDictionary(ctx, "SID123", 7, EdgeSecurityDictionary)
	require.NoError(t, err)
	assert.Equal(t, "dict-1", dict.ID)

	item, err := c.UpdateDictionaryItem(ctx, "SID123", dict.ID, "Enabled", "100")
	require.NoError(t, err)
	assert.Equal(t, "100", item.Value)

	req := fa.last()
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "item_value=100", req.Body)
}

func TestCDNClient_Products(t *testing.T) {
	fa, srv := newFakeAuthority(t)
	fa.handle("GET /enabled-products/ngwaf/services/SID123", 200, `{"product":{"id":"ngwaf"}}`)
	fa.handle("PUT /enabled-products/ngwaf/services/SID999", 200, `{}`)
	c := NewCDNClient("k", testOptions(srv.URL)...)
	ctx := context.Background()

	enabled, err := c.ProductStatus(ctx, EdgeSecurityProduct, "SID123")
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = c.ProductStatus(ctx, EdgeSecurityProduct, "SID999")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = c.EnableProduct(ctx, EdgeSecurityProduct, "SID999")
	require.NoError(t, err)
}

func TestStatusError_Message(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"Site not found"}`, "Site not found"},
		{`{"msg":"Bad request","detail":"invalid id"}`, "Bad request: invalid id"},
		{`{"msg":"Unauthorized"}`, "Unauthorized"},
		{`plain text failure`, "plain text failure"},
		{``, ""},
	}

	for _, tt := range tests {
		e := &StatusError{Code: 400, Body: []byte(tt.body)}
		assert.Equal(t, tt.want, e.Message())
	}
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&StatusError{Code: 404}))
	assert.False(t, IsNotFound(errors.New("x")))
	assert.True(t, IsUnauthorized(&StatusError{Code: 401}))
	assert.True(t, IsUnauthorized(&StatusError{Code: 403}))
	assert.Equal(t, 0, StatusCode(nil))
}
