package actuator

import (
	"context"
	"net/http"
	"time"
)

// Control methods.
const (
	MethodTasmota    = "tasmota"
	MethodShellyGen1 = "shelly_gen1"
	MethodShellyGen2 = "shelly_gen2"
	MethodRelay      = "relay"
)

// DefaultTimeout is the per-command budget.
const DefaultTimeout = 5 * time.Second

// ValidMethod reports whether m is a supported control method.
func ValidMethod(m string) bool {
	switch m {
	case MethodTasmota, MethodShellyGen1, MethodShellyGen2, MethodRelay:
		return true
	}
	return false
}

// Driver switches one kind of outlet.
type Driver interface {
	Set(ctx context.Context, target string, on bool) error
}

// Logger defines the logging interface used by the gateway.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Observer is told about every command after it completes.
type Observer func(method string, ok bool, elapsed time.Duration)

// Gateway routes commands to drivers.
type Gateway struct {
	drivers  map[string]Driver
	timeout  time.Duration
	logger   Logger
	observer Observer
}

// Options configures a Gateway.
type Options struct {
	// HTTPClient is used by the smart plug drivers. Defaults to a client
	// whose timeout equals Timeout.
	HTTPClient *http.Client

	// Relays backs the relay method. Nil leaves the relay method unregistered.
	Relays RelayBank

	// Timeout is the per-command budget. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// NewGateway creates a gateway with the built-in drivers.
func NewGateway(opts Options) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	g := &Gateway{
		drivers: map[string]Driver{
			MethodTasmota:    &httpDriver{client: client, name: MethodTasmota, build: tasmotaURL},
			MethodShellyGen1: &httpDriver{client: client, name: MethodShellyGen1, build: shellyGen1URL},
			MethodShellyGen2: &httpDriver{client: client, name: MethodShellyGen2, build: shellyGen2URL},
		},
		timeout: timeout,
		logger:  noopLogger{},
	}
	if opts.Relays != nil {
		g.drivers[MethodRelay] = &relayDriver{bank: opts.Relays}
	}
	return g
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// SetObserver registers a callback run after every command.
func (g *Gateway) SetObserver(o Observer) {
	g.observer = o
}

// Register installs or replaces the driver for method.
func (g *Gateway) Register(method string, d Driver) {
	g.drivers[method] = d
}

// Control switches the outlet and reports whether it acknowledged.
func (g *Gateway) Control(ctx context.Context, method, target string, on bool) bool {
	start := time.Now()
	err := g.Set(ctx, method, target, on)
	ok := err == nil

	if ok {
		g.logger.Info("outlet switched", "method", method, "target", target, "on", on)
	} else {
		g.logger.Warn("outlet command failed", "method", method, "target", target, "on", on, "error", err)
	}
	if g.observer != nil {
		g.observer(method, ok, time.Since(start))
	}
	return ok
}

// Set is Control with the failure reason.
func (g *Gateway) Set(ctx context.Context, method, target string, on bool) error {
	d, ok := g.drivers[method]
	if !ok {
		return ErrUnknownMethod
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return d.Set(ctx, target, on)
}
