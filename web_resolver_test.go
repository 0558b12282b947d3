package ddnsd_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/Travis-Britz/ddnsd"
)

func echoServer(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("Expected Cache-Control no-cache; got %q", r.Header.Get("Cache-Control"))
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestLookup(t *testing.T) {
	v4 := echoServer(t, http.StatusOK, "192.0.2.1\n")
	v6 := echoServer(t, http.StatusOK, "2001:db8::1")
	wr, err := ddnsd.WebResolver(v4, v6)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}

	res, err := wr.Resolve(context.Background(), ddnsd.IPv4)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("192.0.2.1"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}

	res, err = wr.Resolve(context.Background(), ddnsd.IPv6)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("2001:db8::1"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupFirstLineOnly(t *testing.T) {
	wr, _ := ddnsd.WebResolver(echoServer(t, http.StatusOK, "  198.51.100.7  \nsecond line\n"), "")
	res, err := wr.Resolve(context.Background(), ddnsd.IPv4)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("198.51.100.7"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not ok", http.StatusServiceUnavailable, "192.0.2.1"},
		{"invalid ip", http.StatusOK, "invalid ip"},
		{"empty body", http.StatusOK, ""},
		{"wrong family", http.StatusOK, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wr, _ := ddnsd.WebResolver(echoServer(t, tt.status, tt.body), "")
			res, err := wr.Resolve(context.Background(), ddnsd.IPv4)
			if err == nil {
				t.Fatalf("Expected error response; got %s", res)
			}
			if res.IsValid() {
				t.Fatalf("Expected zero address; got %s", res)
			}
		})
	}
}

func TestLookupReadsBoundedPrefix(t *testing.T) {
	// the body never ends and has no newline, so only a bounded read can return
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "198.51.100.7"+strings.Repeat(" ", 2048))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	wr, _ := ddnsd.WebResolver(srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := wr.Resolve(ctx, ddnsd.IPv4)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("198.51.100.7"), res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupMissingFamily(t *testing.T) {
	wr, _ := ddnsd.WebResolver(echoServer(t, http.StatusOK, "192.0.2.1"), "")
	if _, err := wr.Resolve(context.Background(), ddnsd.IPv6); err == nil {
		t.Fatalf("Expected an error for a family without a service; got err == nil")
	}
}

func TestWebResolverBadURL(t *testing.T) {
	if _, err := ddnsd.WebResolver("http://[::1", ""); err == nil {
		t.Fatalf("Expected URL parse error; got err == nil")
	}
}

func TestHitCount(t *testing.T) {
	// one request per call, no quorum and no retry
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		io.WriteString(w, "invalid ip")
	}))
	defer srv.Close()

	wr, _ := ddnsd.WebResolver(srv.URL, srv.URL)
	if _, err := wr.Resolve(context.Background(), ddnsd.IPv4); err == nil {
		t.Fatalf("Expected an error; got err == nil")
	}
	if hits != 1 {
		t.Fatalf("Expected 1 hit; got %d", hits)
	}
}

func TestUsingHTTPClientReachesResolver(t *testing.T) {
	var used bool
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used = true
		return http.DefaultTransport.RoundTrip(r)
	})}
	p := &stubProvider{}
	c, err := ddnsd.New("home.example.com",
		ddnsd.UsingProvider(p),
		ddnsd.UsingHTTPClient(hc),
		ddnsd.UsingWebResolver(echoServer(t, http.StatusOK, "192.0.2.1"), ""),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	var cache ddnsd.Cache
	if err := c.RunDDNS(context.Background(), &cache); err != nil {
		t.Fatalf("RunDDNS failed: %s", err)
	}
	if !used {
		t.Fatalf("Expected the custom http.Client to be used")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
