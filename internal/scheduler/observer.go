package scheduler

import "github.com/ligustah/tilerip/pkg/tile"

// Outcome is the result of processing one task.
type Outcome int

const (
	OutcomeWritten Outcome = iota
	OutcomeTransportError
	OutcomeHTTPError
	OutcomeRateLimited
	OutcomeEmptyBody
	OutcomeWriteError
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeEmptyBody:
		return "empty_body"
	case OutcomeWriteError:
		return "write_error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Failed reports whether the tile was dropped because of an error.
func (o Outcome) Failed() bool {
	return o != OutcomeWritten && o != OutcomeCanceled
}

// Observer is notified as tiles move through the scheduler.
//
// TileSubmitted and TileSkipped are called from the scheduling goroutine,
// TileFinished from workers. Implementations must be safe for concurrent use.
// TileSubmitted follows the hand-off to a worker, so TileFinished for the
// same tile may be observed first.
type Observer interface {
	TileSubmitted(id tile.ID)
	TileSkipped(id tile.ID)
	TileFinished(id tile.ID, outcome Outcome)
}

// Observers fans notifications out to several observers. Nil entries are ignored.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

type multiObserver []Observer

func (m multiObserver) TileSubmitted(id tile.ID) {
	for _, o := range m {
		o.TileSubmitted(id)
	}
}

func (m multiObserver) TileSkipped(id tile.ID) {
	for _, o := range m {
		o.TileSkipped(id)
	}
}

func (m multiObserver) TileFinished(id tile.ID, outcome Outcome) {
	for _, o := range m {
		o.TileFinished(id, outcome)
	}
}
