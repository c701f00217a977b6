package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"

	// Session routing.
	ErrNoSession    = "E_NO_SESSION"
	ErrSessionLimit = "E_SESSION_LIMIT"

	// Puzzle rules.
	ErrBadRequest        = "E_BAD_REQUEST"
	ErrIndex             = "E_INDEX"
	ErrInvalidTransition = "E_INVALID_TRANSITION"
	ErrLevelLocked       = "E_LEVEL_LOCKED"
	ErrInternal          = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrRateLimit:         {},
	ErrNoSession:         {},
	ErrSessionLimit:      {},
	ErrBadRequest:        {},
	ErrIndex:             {},
	ErrInvalidTransition: {},
	ErrLevelLocked:       {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
