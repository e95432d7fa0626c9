package registry

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// Client wraps http.Client with request logging. It never retries.
type Client struct {
	HTTP   *http.Client // nil = http.DefaultClient
	Logger *slog.Logger // nil = slog.Default()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// get issues a GET. Network failures come back as *TransportError; any status code is
// returned to the caller with the body open.
func (c *Client) get(ctx context.Context, operation, url string, header http.Header) (*http.Response, error) {
	c.logger().DebugContext(ctx, "registry request",
		"operation", operation,
		"method", http.MethodGet,
		"url", url,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, URL: url, Err: err}
	}

	c.logger().DebugContext(ctx, "registry response",
		"operation", operation,
		"status_code", resp.StatusCode,
	)
	return resp, nil
}

// closeBody closes the response body and logs any error
func (c *Client) closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		c.logger().Debug("failed to close response body", "error", err.Error())
	}
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
