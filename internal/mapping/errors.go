package mapping

import "errors"

// Mapping error kinds
const (
	ErrKindUnknownMarket       = "UNKNOWN_MARKET"
	ErrKindUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	ErrKindInvalidSpecifier    = "INVALID_SPECIFIER"
	ErrKindUnknownParamMarket  = "UNKNOWN_PARAM_MARKET"
	ErrKindNoMatchingOutcomes  = "NO_MATCHING_OUTCOMES"
	ErrKindInvalidOdds         = "INVALID_ODDS"
	ErrKindInvalidKeyFormat    = "INVALID_KEY_FORMAT" // SpinBet structured keys only
)

// MappingError reports why one raw market could not be translated into the
// canonical taxonomy. It is recorded per market and never aborts the event.
type MappingError struct {
	Source           string
	Kind             string
	ExternalMarketID string
	Message          string
}

func (e *MappingError) Error() string {
	return e.Source + ": " + e.Kind + ": " + e.ExternalMarketID + ": " + e.Message
}

// NewMappingError creates a typed mapping error
func NewMappingError(source, kind, externalMarketID, message string) *MappingError {
	return &MappingError{
		Source:           source,
		Kind:             kind,
		ExternalMarketID: externalMarketID,
		Message:          message,
	}
}

// ErrorKind extracts the mapping error kind, or "" for foreign errors
func ErrorKind(err error) string {
	var me *MappingError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsUnknownMarket reports whether the market simply has no mapping entry.
// These feed the unmapped-market log rather than the failure counters.
func IsUnknownMarket(err error) bool {
	return ErrorKind(err) == ErrKindUnknownMarket
}
