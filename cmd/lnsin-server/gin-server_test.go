package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aknopov/fancylogger"
	"github.com/aknopov/lnsin"
	"github.com/aknopov/lnsin/cmd/param"
	"github.com/aknopov/lnsin/mocker"
	"github.com/aknopov/lnsin/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testServer(t *testing.T, flags serverFlags) *server {
	t.Helper()
	srv, err := newServer(lnsin.DefaultConfig(), flags)
	require.NoError(t, err)
	if srv.history != nil {
		t.Cleanup(func() { srv.history.Close() })
	}
	return srv
}

func doRequest(srv *server, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newEngine(srv).ServeHTTP(rec, req)
	return rec
}

func TestCompute(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{})
	rec := doRequest(srv, http.MethodPost, "/", fmt.Sprintf(`{"x": %v, "e": 0.01}`, math.Pi/4))

	assertT.Equal(http.StatusOK, rec.Code)
	var resp ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assertT.Equal(1, resp.Terms)
	assertT.InDelta(math.Log(math.Sin(math.Pi/4)), resp.Value, 0.01)
	assertT.Equal(math.Pi/4, resp.Reduced)
	assertT.GreaterOrEqual(resp.ElapsedMs, 0.0)
	assertT.Empty(resp.ID)
	assertT.NotEmpty(rec.Header().Get(requestIdHeader))
	assertT.Greater(srv.evaluator.Table().Size(), 2)
}

func TestComputeErrors(t *testing.T) {
	assertT := assert.New(t)

	testCases := []struct {
		name    string
		body    string
		expCode int
		expKind string
	}{
		{"Invalid precision", `{"x": 1, "e": 1.5}`, http.StatusUnprocessableEntity, lnsin.KindInvalidPrecision},
		{"Zero precision", `{"x": 1, "e": 0}`, http.StatusUnprocessableEntity, lnsin.KindInvalidPrecision},
		{"Undefined", `{"x": 0, "e": 0.1}`, http.StatusUnprocessableEntity, lnsin.KindUndefinedArgument},
		{"Unattainable", `{"x": 0.5235987755982988, "e": 1e-100}`, http.StatusUnprocessableEntity, lnsin.KindPrecisionUnattainable},
		{"Malformed", `{"x": 1,`, http.StatusBadRequest, kindMalformed},
		{"Missing e", `{"x": 1}`, http.StatusBadRequest, kindMalformed},
		{"Wrong type", `{"x": "one", "e": 0.1}`, http.StatusBadRequest, kindMalformed},
	}

	srv := testServer(t, serverFlags{})
	for _, tc := range testCases {
		rec := doRequest(srv, http.MethodPost, "/", tc.body)

		assertT.Equal(tc.expCode, rec.Code, "In test", tc.name)
		var resp ErrorResponse
		assertT.NoError(json.Unmarshal(rec.Body.Bytes(), &resp), "In test", tc.name)
		assertT.Equal(tc.expKind, resp.Kind, "In test", tc.name)
		assertT.NotEmpty(resp.Error, "In test", tc.name)
	}
}

func TestComputeLogging(t *testing.T) {
	assertT := assert.New(t)

	stream, ch := param.CreateStream()
	restore := mocker.ReplaceItem(&logger, fancylogger.NewLogger(stream, fancylogger.LiteFg))

	srv := testServer(t, serverFlags{})
	engine := newEngine(srv)
	for _, tc := range []struct{ id, body string }{
		{"req-ok", `{"x": 1.25, "e": 0.01}`},
		{"req-bad", `{"x": 0, "e": 0.01}`},
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		req.Header.Set(requestIdHeader, tc.id)
		engine.ServeHTTP(httptest.NewRecorder(), req)
	}

	restore()
	output := param.ReadStream(stream, ch)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	var okLine, badLine string
	for _, line := range lines {
		if !strings.Contains(line, "Evaluation") || strings.Contains(line, "failed") {
			continue
		}
		switch {
		case strings.Contains(line, "req-ok"):
			okLine = line
		case strings.Contains(line, "req-bad"):
			badLine = line
		}
	}

	if assertT.NotEmpty(okLine, output) {
		assertT.Contains(okLine, "1.25")
		assertT.Contains(okLine, "0.01")
		assertT.Contains(okLine, kindOk)
	}
	if assertT.NotEmpty(badLine, output) {
		assertT.Contains(badLine, lnsin.KindUndefinedArgument)
	}
}

func TestStatusOf(t *testing.T) {
	assertT := assert.New(t)

	assertT.Equal(http.StatusGatewayTimeout, statusOf(fmt.Errorf("x: %w", lnsin.ErrTimeout)))
	assertT.Equal(http.StatusUnprocessableEntity, statusOf(lnsin.ErrPrecisionUnattainable))
	assertT.Equal(http.StatusInternalServerError, statusOf(errors.New("boom")))
}

func TestRequestId(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{})
	engine := newEngine(srv)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"x": 1, "e": 0.1}`))
	req.Header.Set(requestIdHeader, "req-42")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assertT.Equal(http.StatusOK, rec.Code)
	assertT.Equal("req-42", rec.Header().Get(requestIdHeader))
}

func TestRateLimit(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{})
	srv.limiter = rate.NewLimiter(rate.Limit(0.001), 1)

	rec := doRequest(srv, http.MethodPost, "/", `{"x": 1, "e": 0.1}`)
	assertT.Equal(http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/", `{"x": 1, "e": 0.1}`)
	assertT.Equal(http.StatusTooManyRequests, rec.Code)
	assertT.Contains(rec.Body.String(), kindRateLimited)

	// other endpoints are not limited
	rec = doRequest(srv, http.MethodGet, "/status", "")
	assertT.Equal(http.StatusOK, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	assertT := assert.New(t)

	rec := doRequest(testServer(t, serverFlags{}), http.MethodGet, "/history", "")

	assertT.Equal(http.StatusNotFound, rec.Code)
	assertT.Contains(rec.Body.String(), kindNotFound)
}

func TestHistory(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{dbPath: filepath.Join(t.TempDir(), "history.db")})

	ids := make([]string, 0)
	for _, x := range []float64{1, 2, 3} {
		rec := doRequest(srv, http.MethodPost, "/", fmt.Sprintf(`{"x": %v, "e": 0.01}`, x))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ComputeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assertT.NotEmpty(resp.ID)
		ids = append(ids, resp.ID)
	}

	rec := doRequest(srv, http.MethodGet, "/history?limit=2", "")
	assertT.Equal(http.StatusOK, rec.Code)
	var records []session.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	if assertT.Len(records, 2) {
		assertT.Equal(ids[2], records[0].ID)
		assertT.Equal(3.0, records[0].X)
		assertT.Equal(ids[1], records[1].ID)
	}

	rec = doRequest(srv, http.MethodGet, "/history", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assertT.Len(records, 3)

	for _, limit := range []string{"abc", "0", "1001"} {
		rec = doRequest(srv, http.MethodGet, "/history?limit="+limit, "")
		assertT.Equal(http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestStatus(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{})
	doRequest(srv, http.MethodPost, "/", `{"x": 1, "e": 0.0001}`)

	rec := doRequest(srv, http.MethodGet, "/status", "")

	assertT.Equal(http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assertT.Positive(resp.Process.PID)
	assertT.Equal(lnsin.DefaultMaxTerms, resp.MaxTerms)
	assertT.Equal("15m0s", resp.Timeout)
	assertT.Equal(srv.evaluator.Table().Size(), resp.TableSize)
	assertT.Greater(resp.TableSize, 2)
}

func TestMetrics(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{})
	doRequest(srv, http.MethodPost, "/", `{"x": 1, "e": 0.1}`)
	doRequest(srv, http.MethodPost, "/", `{"x": 0, "e": 0.1}`)

	rec := doRequest(srv, http.MethodGet, "/metrics", "")

	assertT.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	assertT.Contains(body, `lnsin_compute_requests_total{kind="ok"}`)
	assertT.Contains(body, `lnsin_compute_requests_total{kind="undefined_argument"}`)
	assertT.Contains(body, "lnsin_compute_terms_bucket")
	assertT.Contains(body, "lnsin_bernoulli_table_size")
}

func TestHead(t *testing.T) {
	rec := doRequest(testServer(t, serverFlags{}), http.MethodHead, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServer(t *testing.T) {
	assertT := assert.New(t)

	srv := testServer(t, serverFlags{rate: 5, burst: 0})
	if assertT.NotNil(srv.limiter) {
		assertT.Equal(rate.Limit(5), srv.limiter.Limit())
		assertT.Equal(1, srv.limiter.Burst())
	}
	assertT.Nil(srv.history)
	assertT.NotNil(srv.evaluator.Table())

	_, err := newServer(lnsin.DefaultConfig(), serverFlags{dbPath: filepath.Join(t.TempDir(), "absent", "h.db")})
	assertT.Error(err)
}

func TestServeShutdown(t *testing.T) {
	assertT := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, testServer(t, serverFlags{}), 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assertT.NoError(err)
	case <-time.After(5 * time.Second):
		assertT.Fail("server did not stop")
	}
}
