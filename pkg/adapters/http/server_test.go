package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hgl-pong/baklavajs-sub000"
	nodeflowhttp "github.com/hgl-pong/baklavajs-sub000/pkg/adapters/http"
	"github.com/hgl-pong/baklavajs-sub000/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGraph = `{
	"nodes": [
		{"id": "n1", "type": "sum-diff", "inputs": {"a": 10, "b": 5}},
		{"id": "n2", "type": "double"}
	],
	"connections": [{"from": "n1:c", "to": "n2:value"}]
}`

type fixture struct {
	host    *nodeflow.Host
	streams *nodeflowhttp.StreamManager
	handler http.Handler
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, opts ...nodeflowhttp.Option) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	streams := nodeflowhttp.NewStreamManager(nil)
	metrics := observability.NewMetrics(reg)

	host, err := nodeflow.New(nodeflow.WithLifecycleHooks(observability.Chain(metrics.Hooks(), streams.Hooks())))
	require.NoError(t, err)

	opts = append([]nodeflowhttp.Option{nodeflowhttp.WithStreams(streams), nodeflowhttp.WithGatherer(reg)}, opts...)
	handler, err := nodeflowhttp.NewHandler(host, opts...)
	require.NoError(t, err)
	return &fixture{host: host, streams: streams, handler: handler, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestGetHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, nodeflow.Version, resp["version"])
}

func TestListEngines(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/engines", "")
	require.Equal(t, http.StatusOK, rr.Code)

	engines := decode[[]map[string]any](t, rr)
	require.Len(t, engines, 2)
	assert.Equal(t, "dependency", engines[0]["type"])
	assert.Equal(t, true, engines[0]["default"])
	assert.Equal(t, "forward", engines[1]["type"])
}

func TestGraphLifecycle(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/graphs/sample", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPut, "/graphs/sample", sampleGraph)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/graphs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string][]string{"graphs": {"sample"}}, decode[map[string][]string](t, rr))

	rr = f.do(t, http.MethodGet, "/graphs/sample", "")
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode[map[string]any](t, rr)
	assert.Equal(t, "sample", doc["id"])

	rr = f.do(t, http.MethodGet, "/graphs/sample/diagram", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `n1 -- "c → value" --> n2`)

	rr = f.do(t, http.MethodDelete, "/graphs/sample", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(t, http.MethodGet, "/graphs/sample", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPutGraph_Rejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"schema violation", `{"nodes": [{"id": "n1"}]}`},
		{"malformed reference", `{"nodes": [{"id": "n1", "type": "value"}], "connections": [{"from": "n1", "to": "n1:value"}]}`},
		{"id mismatch", `{"id": "other", "nodes": []}`},
		{"unknown node type", `{"nodes": [{"id": "n1", "type": "teleport"}]}`},
		{"not json", `nodes: []`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPut, "/graphs/g", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rr)["error"])
		})
	}
}

func TestRunGraph(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPut, "/graphs/sample", sampleGraph).Code)

	rr := f.do(t, http.MethodPost, "/graphs/sample/run", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[nodeflowhttp.RunResponse](t, rr)
	assert.Equal(t, "sample", resp.GraphID)
	assert.Equal(t, 15.0, resp.Result["n1"]["c"])
	assert.Equal(t, 30.0, resp.Result["n2"]["result"])

	rr = f.do(t, http.MethodPost, "/graphs/sample/run", `{"engine": "forward", "overrides": {"n1:a": 1}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp = decode[nodeflowhttp.RunResponse](t, rr)
	assert.Equal(t, "forward", resp.Engine)
	assert.Equal(t, 12.0, resp.Result["n2"]["result"])

	rr = f.do(t, http.MethodPost, "/graphs/sample/run", `{"engine": "bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/graphs/missing/run", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRunGraph_FailureReturnsPartialResult(t *testing.T) {
	f := newFixture(t)
	body := `{
		"nodes": [
			{"id": "n1", "type": "value", "inputs": {"value": 1}},
			{"id": "n2", "type": "math", "inputs": {"a": 1, "b": 0, "operation": "divide"}}
		]
	}`
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPut, "/graphs/div", body).Code)

	rr := f.do(t, http.MethodPost, "/graphs/div/run", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	resp := decode[nodeflowhttp.RunResponse](t, rr)
	assert.Contains(t, resp.Error, "division by zero")
	assert.Contains(t, resp.Result, "n1")
	assert.NotContains(t, resp.Result, "n2")
}

func TestRunGraph_RateLimited(t *testing.T) {
	f := newFixture(t, nodeflowhttp.WithRateLimit(0.001, 1))
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPut, "/graphs/sample", sampleGraph).Code)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/graphs/sample/run", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodPost, "/graphs/sample/run", "").Code)

	// Other routes are not limited.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/graphs/sample", "").Code)
}

func TestMetricsAndSpec(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPut, "/graphs/sample", sampleGraph).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/graphs/sample/run", "").Code)

	rr := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `nodeflow_runs_total{engine="dependency",outcome="ok",trigger="run"} 1`)

	rr = f.do(t, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "operationId: runGraph")

	swagger, err := nodeflowhttp.GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, nodeflow.Version, swagger.Info.Version)
}

func TestSubscribeEvents_RunStream(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPut, "/graphs/sample", sampleGraph).Code)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?graph=sample", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func() string {
		select {
		case line := <-lines:
			return line
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return ""
		}
	}
	assert.Equal(t, "event: ping", next())
	assert.Equal(t, "data: connected", next())
	assert.Equal(t, "", next())

	_, err = f.host.Run(context.Background(), "sample", nodeflow.RunOptions{})
	require.NoError(t, err)

	line := next()
	require.True(t, strings.HasPrefix(line, "data: "), line)
	var msg nodeflowhttp.RunMessage
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
	assert.Equal(t, "sample", msg.GraphID)
	assert.Equal(t, "run", msg.Trigger)
	assert.Equal(t, 30.0, msg.Result["n2"]["result"])
}

func TestSubscribeEvents_WatchUnsupported(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestStreamManager_UnsubscribeStopsDelivery(t *testing.T) {
	sm := nodeflowhttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("g")
	sm.Broadcast("g", "one")
	assert.Equal(t, "one", <-ch)

	cancel()
	cancel()
	sm.Broadcast("g", "two")
	_, ok := <-ch
	assert.False(t, ok)
}
