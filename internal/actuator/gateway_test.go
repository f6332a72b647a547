package actuator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────

type recordedRequest struct {
	path  string
	query string
}

type plugServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	delay    time.Duration
	srv      *httptest.Server
}

func newPlugServer(t *testing.T) *plugServer {
	t.Helper()
	p := &plugServer{status: http.StatusOK}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, recordedRequest{path: r.URL.Path, query: r.URL.RawQuery})
		status, delay := p.status, p.delay
		p.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *plugServer) respond(status int, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status, p.delay = status, delay
}

func (p *plugServer) host(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(p.srv.URL)
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	return u.Host
}

func (p *plugServer) last(t *testing.T) recordedRequest {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		t.Fatal("no request received")
	}
	return p.requests[len(p.requests)-1]
}

// ─── URL shapes ─────────────────────────────────────────────────────

func TestGateway_URLShapes(t *testing.T) {
	tests := []struct {
		method    string
		on        bool
		wantPath  string
		wantQuery string
	}{
		{MethodTasmota, true, "/cm", "cmnd=Power%20On"},
		{MethodTasmota, false, "/cm", "cmnd=Power%20Off"},
		{MethodShellyGen1, true, "/relay/0", "turn=on"},
		{MethodShellyGen1, false, "/relay/0", "turn=off"},
		{MethodShellyGen2, true, "/rpc/Switch.Set", "id=0&on=true"},
		{MethodShellyGen2, false, "/rpc/Switch.Set", "id=0&on=false"},
	}

	plug := newPlugServer(t)
	g := NewGateway(Options{})

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if !g.Control(context.Background(), tt.method, plug.host(t), tt.on) {
				t.Fatal("Control() = false, want true")
			}
			got := plug.last(t)
			if got.path != tt.wantPath || got.query != tt.wantQuery {
				t.Errorf("request = %s?%s, want %s?%s", got.path, got.query, tt.wantPath, tt.wantQuery)
			}
		})
	}
}

// ─── Failure handling ───────────────────────────────────────────────

func TestGateway_NonOKIsFailure(t *testing.T) {
	plug := newPlugServer(t)
	plug.respond(http.StatusInternalServerError, 0)
	g := NewGateway(Options{})

	err := g.Set(context.Background(), MethodTasmota, plug.host(t), true)
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Set() error = %v, want ErrRejected", err)
	}
	if g.Control(context.Background(), MethodTasmota, plug.host(t), true) {
		t.Error("Control() = true for HTTP 500")
	}
}

func TestGateway_Timeout(t *testing.T) {
	plug := newPlugServer(t)
	plug.respond(http.StatusOK, 2*time.Second)
	g := NewGateway(Options{Timeout: 50 * time.Millisecond})

	start := time.Now()
	if g.Control(context.Background(), MethodShellyGen1, plug.host(t), true) {
		t.Error("Control() = true for a timed-out outlet")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Control() took %v, want it bounded by the timeout", elapsed)
	}
}

func TestGateway_UnknownMethod(t *testing.T) {
	g := NewGateway(Options{})
	if g.Control(context.Background(), "zigbee", "10.0.0.5", true) {
		t.Error("Control() = true for unknown method")
	}
	if err := g.Set(context.Background(), "zigbee", "10.0.0.5", true); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Set() error = %v, want ErrUnknownMethod", err)
	}
	if err := g.Set(context.Background(), MethodRelay, "4", true); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("relay without a bank error = %v, want ErrUnknownMethod", err)
	}
}

func TestGateway_InvalidTarget(t *testing.T) {
	g := NewGateway(Options{})
	for _, target := range []string{"", "10.0.0.5/evil", "a b"} {
		if err := g.Set(context.Background(), MethodTasmota, target, true); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidTarget", target, err)
		}
	}
}

// ─── Relay ──────────────────────────────────────────────────────────

func TestGateway_Relay(t *testing.T) {
	bank := NewMemoryRelays(4, 5)
	g := NewGateway(Options{Relays: bank})

	if !g.Control(context.Background(), MethodRelay, "4", true) {
		t.Fatal("Control(relay 4) = false")
	}
	if on, known := bank.State(4); !known || !on {
		t.Errorf("State(4) = %v, %v; want true, true", on, known)
	}

	if g.Control(context.Background(), MethodRelay, "7", true) {
		t.Error("Control(relay 7) = true for an unconfigured pin")
	}
	if g.Control(context.Background(), MethodRelay, "pin-four", true) {
		t.Error("Control() = true for a non-numeric pin")
	}
}

func TestGateway_ObserverAndRegister(t *testing.T) {
	g := NewGateway(Options{})
	g.Register("fake", driverFunc(func(context.Context, string, bool) error { return nil }))

	var calls []bool
	g.SetObserver(func(method string, ok bool, _ time.Duration) {
		if method != "fake" {
			t.Errorf("observer method = %q, want fake", method)
		}
		calls = append(calls, ok)
	})

	g.Control(context.Background(), "fake", "x", true)
	if len(calls) != 1 || !calls[0] {
		t.Errorf("observer calls = %v, want [true]", calls)
	}

	if !ValidMethod(MethodShellyGen2) || ValidMethod("fake") {
		t.Error("ValidMethod() mismatch")
	}
}

type driverFunc func(ctx context.Context, target string, on bool) error

func (f driverFunc) Set(ctx context.Context, target string, on bool) error { return f(ctx, target, on) }
