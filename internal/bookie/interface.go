package bookie

import (
	"context"
	"errors"
	"time"
)

// Adapter is the capability set every bookmaker integration provides.
// Adapters speak the upstream's native vocabulary only; translation into
// the canonical market taxonomy happens in the mapping layer.
type Adapter interface {
	// Slug returns the short bookmaker identifier ("bp", "s1", "s2").
	Slug() string

	// DiscoverEvents lists upcoming events in the adapter's root category.
	// Events whose kickoff is already in the past are excluded.
	DiscoverEvents(ctx context.Context) ([]DiscoveredEvent, error)

	// FetchEvent retrieves the full odds payload for one event by the
	// bookmaker's native event ID.
	FetchEvent(ctx context.Context, nativeEventID string) (*RawEvent, error)

	// CheckHealth is a fast liveness probe against the upstream.
	CheckHealth(ctx context.Context) bool
}

// DiscoveredEvent is the minimal discovery record: enough to key the event
// across bookmakers and to schedule it. Full metadata arrives with FetchEvent.
type DiscoveredEvent struct {
	CanonicalID   string    // shared provider event ID, same across bookmakers
	NativeEventID string    // the bookmaker's own event ID
	Kickoff       time.Time // UTC
}

// RawEvent is one bookmaker's view of an event: native markets plus the
// metadata needed to lazily create events and tournaments on first sight.
type RawEvent struct {
	NativeEventID  string
	CanonicalID    string
	HomeTeam       string
	AwayTeam       string
	Kickoff        time.Time
	TournamentID   string // bookmaker-native tournament/competition ID
	TournamentName string
	Markets        []RawMarket
}

// RawMarket is a market exactly as the upstream presented it.
type RawMarket struct {
	NativeMarketID string
	Name           string
	Param          string   // line or handicap specifier, "" when absent
	Groups         []string // display grouping tabs, BetPrime only
	Outcomes       []RawOutcome
}

// RawOutcome is a single priced selection. For SpinBet the Name carries the
// full structured selection key; the mapper strips the market prefix.
type RawOutcome struct {
	Name     string
	Odds     float64
	IsActive bool
}

// Error codes raised by adapters
const (
	ErrCodeNetwork        = "NETWORK_ERROR"
	ErrCodeInvalidEventID = "INVALID_EVENT_ID"
	ErrCodeAPI            = "API_ERROR"
	ErrCodeRateLimited    = "RATE_LIMITED"
)

// AdapterError represents a failure talking to or interpreting an upstream
type AdapterError struct {
	Source  string // bookmaker slug
	Code    string // one of the ErrCode* constants
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a typed adapter error
func NewAdapterError(source, code, message string, err error) *AdapterError {
	return &AdapterError{Source: source, Code: code, Message: message, Err: err}
}

// ErrorCode extracts the adapter error code, or ErrCodeNetwork for plain
// transport errors that were never classified.
func ErrorCode(err error) string {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeNetwork
}

// IsInvalidEventID reports whether the error means the upstream no longer
// knows the event (404 or equivalent). Callers treat this as the event being
// delisted rather than a transient failure.
func IsInvalidEventID(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Code == ErrCodeInvalidEventID
}
