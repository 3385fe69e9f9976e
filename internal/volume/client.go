// Package volume talks to volume servers: existence probes and blob stores
// over plain HTTP.
//
// A volume server is an external collaborator that keeps raw blobs under a
// relative path. The contract is two idempotent calls against its base URL:
//
//	HEAD {base}/{path}   2xx when the blob exists
//	PUT  {base}/{path}   stores the request body, 2xx on success
//
// Every call is independent and is not retried. Any transport error or
// non-2xx status is a failure.
package volume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreamware/keyvol/internal/cluster"
)

// DefaultTimeout bounds a single volume call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// StatusError reports a volume answering with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
}

// Client performs volume calls. The zero value is not usable; use NewClient.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient returns a client whose calls each give up after timeout.
// A non-positive timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			// Redirects from a volume are not followed: the coordinator only
			// cares whether this volume has the blob.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
	}
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Exists probes whether volume holds a blob at path.
// Returns nil only for a 2xx answer.
func (c *Client) Exists(ctx context.Context, volume, path string) error {
	return c.do(ctx, http.MethodHead, cluster.ObjectURL(volume, path), nil)
}

// Store writes value at path on volume.
func (c *Client) Store(ctx context.Context, volume, path string, value []byte) error {
	return c.do(ctx, http.MethodPut, cluster.ObjectURL(volume, path), value)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode}
	}
	return nil
}
