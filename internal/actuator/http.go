package actuator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type urlBuilder func(host string, on bool) *url.URL

func tasmotaURL(host string, on bool) *url.URL {
	state := "Off"
	if on {
		state = "On"
	}
	return &url.URL{Scheme: "http", Host: host, Path: "/cm", RawQuery: "cmnd=Power%20" + state}
}

func shellyGen1URL(host string, on bool) *url.URL {
	state := "off"
	if on {
		state = "on"
	}
	return &url.URL{Scheme: "http", Host: host, Path: "/relay/0", RawQuery: "turn=" + state}
}

func shellyGen2URL(host string, on bool) *url.URL {
	return &url.URL{Scheme: "http", Host: host, Path: "/rpc/Switch.Set", RawQuery: fmt.Sprintf("id=0&on=%t", on)}
}

// httpDriver switches a smart plug with a single GET.
type httpDriver struct {
	client *http.Client
	name   string
	build  urlBuilder
}

func (d *httpDriver) Set(ctx context.Context, target string, on bool) error {
	if target == "" || strings.ContainsAny(target, "/?#@ ") {
		return fmt.Errorf("%w: %s host %q", ErrInvalidTarget, d.name, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.build(target, on).String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", d.name, target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Drain for connection reuse

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s answered %d", ErrRejected, d.name, target, resp.StatusCode)
	}
	return nil
}
