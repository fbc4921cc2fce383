// Package http provides the HTTP client used to fetch map tiles.
//
// This package handles:
//   - Connection pooling sized for the worker count
//   - A User-Agent header, which most public tile servers require
//   - Optional client-side request rate limiting
//   - Retry with exponential backoff for transport failures and 5xx responses
//
// Status codes are reported, not interpreted: a 404 or 429 comes back as a
// [Response] with a nil error, and the caller decides what it means. 429 is
// never retried here.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    MaxIdleConnsPerHost: 16,
//	    Timeout:             30 * time.Second,
//	    RetryAttempts:       2,
//	    UserAgent:           "tilerip/1.0",
//	})
//
//	resp, err := client.Fetch(ctx, "https://tile.example.org/3/5/2.png")
//	// resp.StatusCode, resp.Reason, resp.Body
package http
