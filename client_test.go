package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordedRequest captures what the fake server received.
type recordedRequest struct {
	Method    string
	Path      string
	Body      string
	RequestID string
}

// fakeServer records requests and answers with a fixed status code.
type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	code     int
	body     string
}

func newFakeServer(t *testing.T, code int, body string) *fakeServer {
	t.Helper()
	fs := &fakeServer{code: code, body: body}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{
			Method:    r.Method,
			Path:      r.URL.EscapedPath(),
			Body:      string(data),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		fs.mu.Unlock()
		w.WriteHeader(fs.code)
		_, _ = io.WriteString(w, fs.body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) recorded() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func newTestClient(t *testing.T, serverURL string, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithServerURL(serverURL), WithClientLogger(testLogger())}, opts...)
	c, err := NewClient(opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestClient_UpdateBareIsGet(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	c := newTestClient(t, srv.URL)

	c.Update(context.Background(), "worker-1")

	reqs := srv.recorded()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if reqs[0].Method != http.MethodGet || reqs[0].Path != "/update/worker-1" {
		t.Errorf("request = %s %s, want GET /update/worker-1", reqs[0].Method, reqs[0].Path)
	}
	if reqs[0].RequestID == "" {
		t.Error("request should carry an X-Request-ID")
	}
}

func TestClient_UpdateWithFieldsIsPost(t *testing.T) {
	tests := []struct {
		name string
		opts []UpdateOption
		want map[string]string
	}{
		{"status", []UpdateOption{WithStatus("busy")}, map[string]string{"status": "busy"}},
		{"expiry", []UpdateOption{WithExpiry(90 * time.Second)}, map[string]string{"expiry": "PT1M30S"}},
		{"both", []UpdateOption{WithStatus(Offline), WithExpiry(time.Hour)}, map[string]string{"status": "offline", "expiry": "PT1H"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, http.StatusNoContent, "")
			c := newTestClient(t, srv.URL)

			c.Update(context.Background(), "api", tt.opts...)

			reqs := srv.recorded()
			if len(reqs) != 1 {
				t.Fatalf("got %d requests, want 1", len(reqs))
			}
			if reqs[0].Method != http.MethodPost {
				t.Errorf("Method = %s, want POST", reqs[0].Method)
			}

			var got map[string]string
			if err := json.Unmarshal([]byte(reqs[0].Body), &got); err != nil {
				t.Fatalf("body is not JSON: %v (%q)", err, reqs[0].Body)
			}
			if len(got) != len(tt.want) {
				t.Errorf("body = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("body[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestClient_UpdateEscapesAppName(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	c := newTestClient(t, srv.URL)

	c.Update(context.Background(), "billing/worker 2")

	reqs := srv.recorded()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if reqs[0].Path != "/update/billing%2Fworker%202" {
		t.Errorf("Path = %q, want escaped app name", reqs[0].Path)
	}
}

func TestClient_UpdateSwallowsFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	srv := newFakeServer(t, http.StatusInternalServerError, "disk full")
	c := newTestClient(t, srv.URL, WithClientLogger(logger))
	c.Update(context.Background(), "api")

	if !strings.Contains(logs.String(), "heartbeat update failed") {
		t.Errorf("failure should be logged, got: %s", logs.String())
	}

	// unreachable server
	logs.Reset()
	srv.Close()
	c.Update(context.Background(), "api")
	if !strings.Contains(logs.String(), "heartbeat update failed") {
		t.Errorf("transport failure should be logged, got: %s", logs.String())
	}
}

func TestClient_Initialise(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	c := newTestClient(t, srv.URL)

	if err := c.Initialise(context.Background(), "api", 10*time.Minute); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	reqs := srv.recorded()
	if len(reqs) != 1 || reqs[0].Body != `{"expiry":"PT10M"}` {
		t.Errorf("requests = %+v", reqs)
	}

	if err := c.Initialise(context.Background(), "api", -time.Second); err == nil {
		t.Error("Initialise() with negative expiry should fail")
	}
}

func TestClient_InitialiseReturnsErrors(t *testing.T) {
	srv := newFakeServer(t, http.StatusBadRequest, "invalid expiry")
	c := newTestClient(t, srv.URL)

	err := c.Initialise(context.Background(), "api", time.Minute)
	if err == nil {
		t.Fatal("Initialise() expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry the status code, got: %v", err)
	}
}

func TestClient_Check(t *testing.T) {
	tests := []struct {
		name          string
		code          int
		body          string
		wantFound     bool
		wantAvailable bool
		wantErr       bool
	}{
		{"available", http.StatusOK, "App \"api\" last reported status as \"online\"", true, true, false},
		{"offline", http.StatusServiceUnavailable, "This application has reported an offline status", true, false, false},
		{"never reported", http.StatusNotFound, "no heartbeat", false, false, false},
		{"server error", http.StatusInternalServerError, "boom", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, tt.code, tt.body)
			c := newTestClient(t, srv.URL)

			got, err := c.Check(context.Background(), "api")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Check() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got.Found != tt.wantFound || got.Available != tt.wantAvailable {
				t.Errorf("Check() = %+v, want found=%v available=%v", got, tt.wantFound, tt.wantAvailable)
			}
			if got.StatusCode != tt.code || got.Message != tt.body {
				t.Errorf("Check() = %+v, want code %d message %q", got, tt.code, tt.body)
			}
			if p := srv.recorded()[0].Path; p != "/check/api" {
				t.Errorf("Path = %q, want /check/api", p)
			}
		})
	}
}

func TestClient_Run(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 170*time.Millisecond)
	defer cancel()

	if err := c.Run(ctx, "api", 50*time.Millisecond, WithStatus("busy")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	reqs := srv.recorded()
	// immediate report plus at least two ticks
	if len(reqs) < 3 {
		t.Fatalf("got %d reports, want at least 3", len(reqs))
	}
	for _, r := range reqs {
		if r.Method != http.MethodPost || r.Body != `{"status":"busy"}` {
			t.Errorf("report = %+v", r)
		}
	}
}

func TestClient_RunRejectsBadInterval(t *testing.T) {
	c := newTestClient(t, DefaultServerURL)
	if err := c.Run(context.Background(), "api", 0); err == nil {
		t.Error("Run() with zero interval should fail")
	}
}

func TestClient_RequestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c := newTestClient(t, slow.URL, WithRequestTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Check(context.Background(), "api")
	if err == nil {
		t.Fatal("Check() expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Check() took %v, timeout not applied", elapsed)
	}
}

func TestClient_ConnectionReuse(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	c := newTestClient(t, srv.URL)
	defer c.Close()

	var reusedCount int
	var mu sync.Mutex
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				mu.Lock()
				reusedCount++
				mu.Unlock()
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		c.Update(ctx, "api")
	}

	mu.Lock()
	defer mu.Unlock()
	if reusedCount < numRequests-2 {
		t.Errorf("expected at least %d reused connections, got %d", numRequests-2, reusedCount)
	}
}

func TestNewClient_Options(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ClientOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"https url", []ClientOption{WithServerURL("https://hb.example.com")}, false},
		{"url without scheme", []ClientOption{WithServerURL("localhost:5000")}, true},
		{"ftp url", []ClientOption{WithServerURL("ftp://hb.example.com")}, true},
		{"url without host", []ClientOption{WithServerURL("http://")}, true},
		{"nil http client", []ClientOption{WithHTTPClient(nil)}, true},
		{"custom http client", []ClientOption{WithHTTPClient(&http.Client{})}, false},
		{"nil logger", []ClientOption{WithClientLogger(nil)}, true},
		{"zero timeout", []ClientOption{WithRequestTimeout(0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	c := newTestClient(t, srv.URL+"/")

	c.Update(context.Background(), "api")
	if p := srv.recorded()[0].Path; p != "/update/api" {
		t.Errorf("Path = %q, want /update/api", p)
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := newTestClient(t, DefaultServerURL)
	c.Close()
	c.Close()

	var nilClient *Client
	nilClient.Close()
}

func TestClient_ReportReturnsErrors(t *testing.T) {
	srv := newFakeServer(t, http.StatusBadRequest, "status must not be empty")
	c := newTestClient(t, srv.URL)

	if err := c.Report(context.Background(), "api", WithStatus("")); err == nil {
		t.Error("Report() expected error for 400 response")
	}
	if err := c.Report(context.Background(), " "); err == nil {
		t.Error("Report() expected error for blank app name")
	}
	if n := len(srv.recorded()); n != 1 {
		t.Errorf("got %d requests, want 1 (blank names are rejected locally)", n)
	}
}
