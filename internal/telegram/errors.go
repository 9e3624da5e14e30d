package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure classes a scrape run can hit. Commands
// match these with errors.Is to pick an exit code.
var (
	// ErrNotFound means the group identifier does not resolve to anything.
	ErrNotFound = errors.New("group not found")
	// ErrAccessDenied means the group exists but the account cannot read it.
	ErrAccessDenied = errors.New("group is private or you are not a member")
	// ErrBanned means the account was banned from the group.
	ErrBanned = errors.New("you are banned from this group")
	// ErrAuth means the client has no usable authorization.
	ErrAuth = errors.New("telegram client not authorized")
	// ErrRateExhausted means the server kept throttling past the retry ceiling.
	ErrRateExhausted = errors.New("rate limit exhausted")
	// ErrNetwork means a transient failure survived all retry attempts.
	ErrNetwork = errors.New("network failure")
)

// FloodWaitError is a server-signaled backoff with an exact wait duration.
type FloodWaitError struct {
	Seconds int
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("FLOOD_WAIT: server requested %d second pause", e.Seconds)
}

// floodWaitSeconds extracts the wait duration from a FLOOD_WAIT error.
// gotgproto/gotd errors are usually wrapped, so we check the error string
// rather than coupling to the gotd error type.
func floodWaitSeconds(err error) int {
	if err == nil {
		return 0
	}
	str := err.Error()
	if !strings.Contains(str, "FLOOD_WAIT_") {
		return 0
	}
	// format is FLOOD_WAIT_X where X is seconds, e.g. "rpc error: code 420: FLOOD_WAIT_15"
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) < 2 {
		return 0
	}
	var seconds int
	_, _ = fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &seconds)
	return seconds
}

// wrapRPC classifies an RPC error into the package sentinels, keeping the
// original error in the chain. FLOOD_WAIT becomes a typed FloodWaitError so
// the fetcher can honor the server-specified pause.
func wrapRPC(op string, err error) error {
	if err == nil {
		return nil
	}
	if sec := floodWaitSeconds(err); sec > 0 {
		return fmt.Errorf("%s: %w", op, &FloodWaitError{Seconds: sec})
	}
	str := err.Error()
	switch {
	case containsAny(str, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "INVITE_HASH_INVALID", "INVITE_HASH_EXPIRED", "CHANNEL_INVALID", "CHAT_ID_INVALID", "PEER_ID_INVALID"):
		return fmt.Errorf("%s: %w: %v", op, ErrNotFound, err)
	case containsAny(str, "USER_BANNED_IN_CHANNEL"):
		return fmt.Errorf("%s: %w: %v", op, ErrBanned, err)
	case containsAny(str, "CHANNEL_PRIVATE", "CHAT_ADMIN_REQUIRED", "CHAT_FORBIDDEN"):
		return fmt.Errorf("%s: %w: %v", op, ErrAccessDenied, err)
	case containsAny(str, "AUTH_KEY_UNREGISTERED", "AUTH_KEY_INVALID", "SESSION_REVOKED", "SESSION_EXPIRED"):
		return fmt.Errorf("%s: %w: %v", op, ErrAuth, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
