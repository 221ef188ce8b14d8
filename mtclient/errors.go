package mtclient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors mirror the RPC error vocabulary of the account-directory
// service as surfaced by the gateway.
var (
	// ErrPhoneOccupied indicates the probed number already has an account.
	ErrPhoneOccupied = errors.New("mtclient: phone number occupied")
	// ErrPhoneInvalid indicates the directory rejected the number as malformed.
	ErrPhoneInvalid = errors.New("mtclient: phone number invalid")
	// ErrAuthRevoked indicates the session keys behind the credentials are no longer registered.
	ErrAuthRevoked = errors.New("mtclient: authorization revoked")
	// ErrAPIIDInvalid indicates the api_id/api_hash pair is not a registered application.
	ErrAPIIDInvalid = errors.New("mtclient: api id invalid")
)

// FloodWaitError reports that the directory service throttled the caller.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("mtclient: flood wait %s", e.RetryAfter)
}

// mapRPCError converts a gateway error code into a typed error.
// Unrecognized codes are returned verbatim so callers classify them as transient.
func mapRPCError(code, message string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch code {
	case "PHONE_NUMBER_OCCUPIED":
		return ErrPhoneOccupied
	case "PHONE_NUMBER_INVALID", "PHONE_NUMBER_BANNED":
		return ErrPhoneInvalid
	case "AUTH_KEY_UNREGISTERED", "SESSION_REVOKED", "USER_DEACTIVATED":
		return ErrAuthRevoked
	case "API_ID_INVALID", "API_ID_PUBLISHED_FLOOD", "API_HASH_INVALID":
		return ErrAPIIDInvalid
	}
	if after, ok := strings.CutPrefix(code, "FLOOD_WAIT_"); ok {
		secs, err := strconv.Atoi(after)
		if err != nil || secs < 0 {
			secs = 0
		}
		return &FloodWaitError{RetryAfter: time.Duration(secs) * time.Second}
	}
	if message != "" {
		return fmt.Errorf("mtclient: %s: %s", code, message)
	}
	return fmt.Errorf("mtclient: %s", code)
}
