package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pulse-service/pool"
)

// ErrTooLarge is returned when a remote body exceeds the caller's limit.
var ErrTooLarge = errors.New("remote body exceeds size limit")

var httpClient = New(30 * time.Second)

// New builds an HTTP client tuned for repeated fetches from a few origins.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// GetHTTPClient returns the shared HTTP client
func GetHTTPClient() *http.Client {
	return httpClient
}

// SetTimeout replaces the shared client's overall request timeout.
func SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		httpClient = New(timeout)
	}
}

// Fetch downloads url with c and returns at most maxBytes of body along with
// the response Content-Type. maxBytes <= 0 disables the limit.
func Fetch(ctx context.Context, c *http.Client, url string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if maxBytes > 0 {
		if resp.ContentLength > maxBytes {
			return nil, "", ErrTooLarge
		}
		r = io.LimitReader(resp.Body, maxBytes+1)
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if _, err := buf.ReadFrom(r); err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, "", ErrTooLarge
	}

	body := make([]byte, buf.Len())
	copy(body, buf.Bytes())
	return body, resp.Header.Get("Content-Type"), nil
}
