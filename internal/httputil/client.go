package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/metrics"
)

const (
	DefaultTimeout = 30 * time.Second
	userAgent      = "jmaweather/1.0 (+https://github.com/lox/jmaweather)"
)

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// FetchError is a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Fetcher performs GETs against JMA and memoises bodies for one run, so
// tiles and documents shared between stages are downloaded once.
type Fetcher struct {
	client *http.Client
	cache  *Cache
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	return &Fetcher{client: client, cache: NewCache()}
}

// Bytes returns the body of url. endpoint labels the fetch in metrics.
func (f *Fetcher) Bytes(ctx context.Context, endpoint, url string) ([]byte, error) {
	return f.cache.GetOrFetch(url, func() ([]byte, error) {
		return f.get(ctx, endpoint, url)
	})
}

func (f *Fetcher) Text(ctx context.Context, endpoint, url string) (string, error) {
	data, err := f.Bytes(ctx, endpoint, url)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JSON decodes the body of url into v.
func (f *Fetcher) JSON(ctx context.Context, endpoint, url string, v any) error {
	data, err := f.Bytes(ctx, endpoint, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Image decodes the body of url as a PNG.
func (f *Fetcher) Image(ctx context.Context, endpoint, url string) (image.Image, error) {
	data, err := f.Bytes(ctx, endpoint, url)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", url, err)
	}
	return img, nil
}

func (f *Fetcher) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.JMAFetchLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.JMAFetchTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, errs.Wrap(errs.TransientFetch, "fetch "+endpoint, err)
	}
	defer resp.Body.Close()

	metrics.JMAFetchTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrap(errs.TransientFetch, "fetch "+endpoint, &FetchError{URL: url, StatusCode: resp.StatusCode})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.TransientFetch, "read "+endpoint, err)
	}
	return data, nil
}
