package telegram

import (
	"errors"
	"fmt"
	"testing"
)

func TestInviteHash(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantHash string
		wantOK   bool
	}{
		{
			name:     "plus form invite link",
			id:       "https://t.me/+AbCdEfG123",
			wantHash: "AbCdEfG123",
			wantOK:   true,
		},
		{
			name:     "joinchat form invite link",
			id:       "https://t.me/joinchat/AbCdEfG123",
			wantHash: "AbCdEfG123",
			wantOK:   true,
		},
		{
			name:     "bare t.me invite",
			id:       "t.me/+xyz",
			wantHash: "xyz",
			wantOK:   true,
		},
		{
			name:   "public link is not an invite",
			id:     "https://t.me/golang_group",
			wantOK: false,
		},
		{
			name:   "username is not an invite",
			id:     "@golang_group",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, ok := inviteHash(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("inviteHash(%q) ok = %v, want %v", tt.id, ok, tt.wantOK)
			}
			if ok && hash != tt.wantHash {
				t.Errorf("inviteHash(%q) = %q, want %q", tt.id, hash, tt.wantHash)
			}
		})
	}
}

func TestUsernamePart(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"@golang_group", "golang_group"},
		{"golang_group", "golang_group"},
		{"https://t.me/golang_group", "golang_group"},
		{"http://t.me/golang_group/123", "golang_group"},
		{"t.me/golang_group?start=1", "golang_group"},
	}

	for _, tt := range tests {
		if got := usernamePart(tt.id); got != tt.want {
			t.Errorf("usernamePart(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestLooksNumeric(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"-100123456789", true},
		{"-12345", true},
		{"12345", true},
		{"-", false},
		{"@group", false},
		{"group123", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := looksNumeric(tt.id); got != tt.want {
			t.Errorf("looksNumeric(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestFloodWaitSeconds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "plain flood wait",
			err:  errors.New("rpc error code 420: FLOOD_WAIT_15"),
			want: 15,
		},
		{
			name: "wrapped flood wait",
			err:  fmt.Errorf("get history: %w", errors.New("FLOOD_WAIT_300 (caused by messages.GetHistory)")),
			want: 300,
		},
		{
			name: "unrelated error",
			err:  errors.New("CHANNEL_PRIVATE"),
			want: 0,
		},
		{
			name: "nil error",
			err:  nil,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := floodWaitSeconds(tt.err); got != tt.want {
				t.Errorf("floodWaitSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapRPC_Classification(t *testing.T) {
	tests := []struct {
		name     string
		rpcErr   error
		sentinel error
	}{
		{
			name:     "private channel",
			rpcErr:   errors.New("rpc error code 400: CHANNEL_PRIVATE"),
			sentinel: ErrAccessDenied,
		},
		{
			name:     "admin required for member list",
			rpcErr:   errors.New("rpc error code 400: CHAT_ADMIN_REQUIRED"),
			sentinel: ErrAccessDenied,
		},
		{
			name:     "banned",
			rpcErr:   errors.New("rpc error code 400: USER_BANNED_IN_CHANNEL"),
			sentinel: ErrBanned,
		},
		{
			name:     "unknown username",
			rpcErr:   errors.New("rpc error code 400: USERNAME_NOT_OCCUPIED"),
			sentinel: ErrNotFound,
		},
		{
			name:     "expired invite",
			rpcErr:   errors.New("rpc error code 400: INVITE_HASH_EXPIRED"),
			sentinel: ErrNotFound,
		},
		{
			name:     "dead session",
			rpcErr:   errors.New("rpc error code 401: AUTH_KEY_UNREGISTERED"),
			sentinel: ErrAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapRPC("op", tt.rpcErr)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("wrapRPC(%v) = %v, want %v in chain", tt.rpcErr, err, tt.sentinel)
			}
		})
	}
}

func TestWrapRPC_FloodWait(t *testing.T) {
	err := wrapRPC("get history", errors.New("FLOOD_WAIT_42"))

	var flood *FloodWaitError
	if !errors.As(err, &flood) {
		t.Fatalf("expected FloodWaitError in chain, got %v", err)
	}
	if flood.Seconds != 42 {
		t.Errorf("flood.Seconds = %d, want 42", flood.Seconds)
	}
}

func TestWrapRPC_Nil(t *testing.T) {
	if err := wrapRPC("op", nil); err != nil {
		t.Errorf("wrapRPC(nil) = %v, want nil", err)
	}
}
