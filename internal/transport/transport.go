package transport

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/condrove10/retryablehttp"
	"github.com/condrove10/retryablehttp/backoffpolicy"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrNotFound reports a structurally absent resource (HTTP 404).
var ErrNotFound = errors.New("not found")

// Fetcher retrieves the body behind a URL. Implementations return ErrNotFound
// when the resource does not exist; an empty body is returned as is.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

const retryAttempts = 10

var headers = map[string]string{
	"User-Agent":      "github.com/condrove10/dukascopy-archiver",
	"Accept":          "*/*",
	"Connection":      "keep-alive",
	"Origin":          "https://freeserv.dukascopy.com",
	"Referer":         "https://freeserv.dukascopy.com",
	"Accept-Encoding": "gzip, deflate",
	"Cache-Control":   "no-cache",
}

type Options struct {
	// Timeout bounds a single HTTP attempt. Zero disables it.
	Timeout    time.Duration
	RetryDelay time.Duration
	// RequestsPerSecond of zero or less means unlimited.
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	// Zero disables the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		Timeout:           30 * time.Second,
		RetryDelay:        30 * time.Millisecond,
		RequestsPerSecond: 10,
		Burst:             1,
		BreakerFailures:   20,
		BreakerTimeout:    time.Minute,
	}
}

type HTTPFetcher struct {
	httpClient *http.Client
	retryDelay time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func NewHTTPFetcher(httpClient *http.Client, opts Options) *HTTPFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := *httpClient
	client.Timeout = opts.Timeout

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	f := &HTTPFetcher{
		httpClient: &client,
		retryDelay: opts.RetryDelay,
		limiter:    rate.NewLimiter(limit, burst),
	}

	if opts.BreakerFailures > 0 {
		threshold := opts.BreakerFailures
		f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "datafeed",
			Timeout: opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}

	return f
}

type response struct {
	body     []byte
	notFound bool
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var (
		res *response
		err error
	)
	if f.breaker == nil {
		res, err = f.get(ctx, url)
	} else {
		var out interface{}
		out, err = f.breaker.Execute(func() (interface{}, error) {
			return f.get(ctx, url)
		})
		if err == nil {
			res = out.(*response)
		}
	}
	if err != nil {
		return nil, err
	}

	if res.notFound {
		return nil, ErrNotFound
	}

	return res.body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*response, error) {
	client := retryablehttp.Client{
		Context:       ctx,
		HttpClient:    f.httpClient,
		RetryAttempts: retryAttempts,
		RetryDelay:    f.retryDelay,
		RetryStrategy: backoffpolicy.StrategyExponential,
		RetryPolicy: func(resp *http.Response, err error) error {
			if err != nil {
				return err
			}

			switch resp.StatusCode {
			case http.StatusOK, http.StatusNotFound:
				return nil
			default:
				return fmt.Errorf("unexpected status code: %s", resp.Status)
			}
		},
	}

	resp, err := client.Get(url, headers)
	if err != nil {
		return nil, fmt.Errorf("error fetching data for url '%s': %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &response{notFound: true}, nil
	}

	var reader io.Reader
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error creating gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		reader = resp.Body
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading data for url '%s': %w", url, err)
	}

	return &response{body: content}, nil
}
