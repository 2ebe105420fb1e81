// Package fetch defines the data-source capability the core depends on and
// the error taxonomy every network failure is classified into. The core
// never builds raw requests; it calls these interfaces and turns the results
// into events.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/skycast-tui/skycast/internal/domain"
)

// DataSource is the injected collaborator for all network acquisition.
type DataSource interface {
	// FetchForecast retrieves the full bundle for a resolved location.
	FetchForecast(ctx context.Context, loc domain.Location) (domain.ForecastBundle, error)
	// ResolveGeocode returns raw candidates for a free-text query, in
	// provider order. Ranking and ambiguity are the resolver's business.
	ResolveGeocode(ctx context.Context, query, countryHint string) ([]domain.Location, error)
	// ResolveIPLocation guesses a location from the caller's public IP.
	ResolveIPLocation(ctx context.Context) (domain.Location, error)
}

// ErrorKind classifies a failed acquisition for the resilience engine.
// A timeout is indistinguishable from any other network error as far as
// retry policy goes; the kind exists for logging and the inline indicator.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindMalformed  ErrorKind = "malformed"
	KindUpstream   ErrorKind = "upstream"
)

// Error is a classified fetch failure.
type Error struct {
	Kind ErrorKind
	Op   string // "forecast", "geocode", "geoip"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err under op. Context deadline expiry maps to KindTimeout
// so per-operation timeouts surface as ordinary fetch failures.
func Wrap(op string, kind ErrorKind, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from any error, defaulting to
// KindConnection for unclassified failures.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindConnection
}

// ErrNoResults reports an empty geocode response. Fatal only at bootstrap
// when no cached location exists.
var ErrNoResults = errors.New("geocode returned no results")
