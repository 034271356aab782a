package avwx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/platform/httpx"
)

// Client talks to the AVWX REST API.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg config.AVWXConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("avwx: base_url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("avwx: base_url: %w", err)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		timeout:    timeout,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(tr)},
	}, nil
}

// NewWithHTTPClient swaps the transport, which keeps tests off the network.
func NewWithHTTPClient(cfg config.AVWXConfig, httpClient *http.Client) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

func (c *Client) Station(ctx context.Context, icao string) (Station, error) {
	var out Station
	err := c.get(ctx, "station", icao, &out)
	return out, err
}

func (c *Client) Metar(ctx context.Context, icao string) (METAR, error) {
	var out METAR
	err := c.get(ctx, "metar", icao, &out)
	return out, err
}

func (c *Client) Taf(ctx context.Context, icao string) (TAF, error) {
	var out TAF
	err := c.get(ctx, "taf", icao, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, kind, icao string, out any) error {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if icao == "" {
		return &httpx.HTTPError{StatusCode: http.StatusBadRequest, Body: "station id required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + kind + "/" + url.PathEscape(icao)
	if c.token != "" {
		u += "?" + url.Values{"token": []string{c.token}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("avwx %s %s: %w", kind, icao, err)
	}
	defer resp.Body.Close()

	if err := httpx.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("avwx %s %s: decode: %w", kind, icao, err)
	}
	return nil
}
