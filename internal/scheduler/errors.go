package scheduler

import (
	"errors"
	"fmt"

	"github.com/ligustah/tilerip/pkg/tile"
)

// ErrRateLimited matches any *RateLimitError via errors.Is.
var ErrRateLimited = errors.New("scheduler: rate limited by tile server")

// RateLimitError is returned when the tile server answers 429 Too Many Requests.
// The run is aborted as a whole when this happens.
//
// Use errors.As to extract this error and inspect the tile that triggered it.
type RateLimitError struct {
	Tile       tile.ID // Tile whose request was refused
	URL        string  // Request URL
	StatusCode int     // Always 429
	Reason     string  // Reason phrase sent by the server
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by tile server: HTTP %d %s for tile %s", e.StatusCode, e.Reason, e.Tile)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
