package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/growctl/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second

	// siteTag is added to every point so several grow spaces can share a bucket.
	siteTag = "site"
)

// Client writes controller telemetry to one InfluxDB v2 bucket.
//
// Points are queued on the library's non-blocking WriteAPI and sent in
// batches of batch_size, or every flush_interval seconds, whichever comes
// first. Failed batches are reported asynchronously through SetOnError
// and counted by WriteErrors; they never reach the controller loop.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Writes never block on the network.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	bucket   string

	// connected is false once Close has run; writes after that are dropped.
	connected bool
	mu        sync.RWMutex

	onError     func(err error)
	writeErrors atomic.Uint64
}

// Connect creates a token-authenticated client for cfg and verifies the
// server answers a ping before returning.
//
// Every point written through the client carries a site=<site> tag when
// site is non-empty.
//
// Parameters:
//   - ctx: Bounds the initial ping, together with a 10 s connect timeout
//   - cfg: InfluxDB section of config.yaml
//   - site: Site identifier from config.yaml (site.id)
//
// Returns:
//   - *Client: Client ready for writes
//   - error: ErrDisabled when influxdb.enabled is false, or
//     ErrConnectionFailed when the server is unreachable or unhealthy
func Connect(ctx context.Context, cfg config.InfluxDBConfig, site string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg, site))

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket:    cfg.Bucket,
		connected: true,
	}
	go c.handleWriteErrors(c.writeAPI.Errors())

	return c, nil
}

// clientOptions maps the batching settings onto the library options.
// Non-positive values fall back to 100 points and 10 s.
func clientOptions(cfg config.InfluxDBConfig, site string) *influxdb2.Options {
	batchSize := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batchSize = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	// #nosec G115 -- flush is positive and far below the uint range
	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize).
		SetFlushInterval(uint(flush.Milliseconds()))
	if site != "" {
		opts.AddDefaultTag(siteTag, site)
	}
	return opts
}

// handleWriteErrors drains the WriteAPI error channel until the client closes.
func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.writeErrors.Add(1)

		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// Close flushes queued points and releases the client. Calling it twice
// is safe.
//
// Returns:
//   - error: Always nil; the library's Close has no error result
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
//
// Parameters:
//   - ctx: Context for cancellation; the ping is additionally capped at 5 s
//
// Returns:
//   - error: ErrNotConnected after Close, or the ping failure
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports whether the client is still accepting writes.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Bucket returns the bucket points are written to.
func (c *Client) Bucket() string {
	return c.bucket
}

// WriteErrors returns how many batches the server rejected or that could
// not be delivered since Connect.
func (c *Client) WriteErrors() uint64 {
	return c.writeErrors.Load()
}

// SetOnError sets a callback for asynchronous write failures. It runs on
// the client's error goroutine and must not block.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Flush sends every queued point and waits for the write to finish.
// It is a no-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
