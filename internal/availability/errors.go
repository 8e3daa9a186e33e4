package availability

import "errors"

// Errors returned by the availability engine. Callers match them with errors.Is;
// every returned error wraps exactly one of these.
var (
	// ErrFormat reports a malformed time, slot, date or datetime string.
	ErrFormat = errors.New("format error")
	// ErrConfiguration reports request parameters that cannot describe a meeting,
	// such as a quorum larger than the participant list.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataShape reports free/busy data that does not match the requested grid.
	ErrDataShape = errors.New("data shape error")
)
