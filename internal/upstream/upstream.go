// Package upstream adapts the airport and weather services to the aggregate
// Directory and Detail interfaces.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/avwx"
	"github.com/yungbote/flightwx/internal/platform/ctxutil"
	"github.com/yungbote/flightwx/internal/platform/httpx"
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	})}
}

func normalizeBase(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "", errors.New("base url required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", raw)
	}
	return base, nil
}

// AirportDirectory lists ICAO identifiers from the airport service's
// catalog. The JSON array is decoded element by element, so identifiers are
// yielded while the body is still arriving.
type AirportDirectory struct {
	baseURL    string
	httpClient *http.Client
}

var _ aggregate.Directory = (*AirportDirectory)(nil)

func NewAirportDirectory(baseURL string, httpClient *http.Client) (*AirportDirectory, error) {
	base, err := normalizeBase(baseURL)
	if err != nil {
		return nil, fmt.Errorf("airport directory: %w", err)
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &AirportDirectory{baseURL: base, httpClient: httpClient}, nil
}

func (d *AirportDirectory) List(ctx context.Context) iter.Seq2[aggregate.EntityID, error] {
	return func(yield func(aggregate.EntityID, error) bool) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/", nil)
		if err != nil {
			yield("", err)
			return
		}
		req.Header.Set("Accept", "application/json")
		ctxutil.Propagate(ctx, req)

		resp, err := d.httpClient.Do(req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()
		if err := httpx.CheckResponse(resp); err != nil {
			yield("", err)
			return
		}

		dec := json.NewDecoder(resp.Body)
		if err := expectDelim(dec, '['); err != nil {
			yield("", err)
			return
		}
		for dec.More() {
			var item struct {
				ICAO string `json:"icao"`
			}
			if err := dec.Decode(&item); err != nil {
				yield("", fmt.Errorf("decode airport: %w", err))
				return
			}
			id := strings.ToUpper(strings.TrimSpace(item.ICAO))
			if id == "" {
				continue
			}
			if !yield(aggregate.EntityID(id), nil) {
				return
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			yield("", err)
		}
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode airport list: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("decode airport list: expected %q, got %v", want, tok)
	}
	return nil
}

// WeatherDetail resolves an ICAO identifier to its current METAR through
// the weather service.
type WeatherDetail struct {
	baseURL    string
	httpClient *http.Client
}

var _ aggregate.Detail[avwx.METAR] = (*WeatherDetail)(nil)

func NewWeatherDetail(baseURL string, httpClient *http.Client) (*WeatherDetail, error) {
	base, err := normalizeBase(baseURL)
	if err != nil {
		return nil, fmt.Errorf("weather detail: %w", err)
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &WeatherDetail{baseURL: base, httpClient: httpClient}, nil
}

func (w *WeatherDetail) Get(ctx context.Context, id aggregate.EntityID) (avwx.METAR, error) {
	var out avwx.METAR
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/metar/"+url.PathEscape(string(id)), nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	ctxutil.Propagate(ctx, req)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse(resp); err != nil {
		return out, detailError(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode metar %s: %w", id, err)
	}
	return out, nil
}

// detailError lifts a non-2xx weather response into an aggregate.DetailError,
// preferring the message from the service's JSON error envelope.
func detailError(err error) error {
	var he *httpx.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	msg := he.Body
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(he.Body), &env) == nil && strings.TrimSpace(env.Error.Message) != "" {
		msg = env.Error.Message
	}
	return &aggregate.DetailError{Code: he.StatusCode, Message: strings.TrimSpace(msg), Err: he}
}
